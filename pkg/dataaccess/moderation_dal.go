package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edwin961/DragonsBot/pkg/dataaccess/monitoring"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/logging"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const moderationDalName = "moderation_dal"

type ModerationDal interface {
	// SaveWarn inserts a warning. The record's ID is generated here.
	SaveWarn(ctx context.Context, warn *entities.WarnRecord) error

	// GetWarnsByUser lists warnings for a user, oldest first.
	GetWarnsByUser(ctx context.Context, guildID string, userID string) ([]*entities.WarnRecord, error)

	// DeleteWarn deletes a single warning by ID.
	DeleteWarn(ctx context.Context, guildID string, id string) error

	// ClearWarns deletes all warnings for a user. It returns the number of
	// deleted records.
	ClearWarns(ctx context.Context, guildID string, userID string) (int64, error)

	// SaveBan inserts a ban audit record.
	SaveBan(ctx context.Context, ban *entities.BanRecord) error

	// DeleteBan removes the ban audit record for a user.
	DeleteBan(ctx context.Context, guildID string, userID string) error
}

type moderationDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewModerationDal creates a new moderation data access layer.
func NewModerationDal(l *slog.Logger, client *mongo.Client) ModerationDal {
	return &moderationDal{
		l:      l.With(slog.String(logging.KeyDal, moderationDalName)),
		client: client,
	}
}

func (d *moderationDal) SaveWarn(ctx context.Context, warn *entities.WarnRecord) error {
	// Get the warns collection.
	collection := d.client.Database(mongoDatabase).Collection("warns")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "save_warn", mongoDatabase, "warns").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "save_warn", mongoDatabase, "warns"))
	defer t.ObserveDuration()

	if warn.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("error generating warn id: %w", err)
		}
		warn.ID = id
	}

	if _, err := collection.InsertOne(ctx, warn); err != nil {
		return fmt.Errorf("error inserting warn: %w", err)
	}
	return nil
}

func (d *moderationDal) GetWarnsByUser(ctx context.Context, guildID string, userID string) ([]*entities.WarnRecord, error) {
	// Get the warns collection.
	collection := d.client.Database(mongoDatabase).Collection("warns")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "get_warns_by_user", mongoDatabase, "warns").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "get_warns_by_user", mongoDatabase, "warns"))
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, bson.M{"guild_id": guildID, "user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding warns: %w", err)
	}

	var warns []*entities.WarnRecord
	if err := cursor.All(ctx, &warns); err != nil {
		return nil, fmt.Errorf("error decoding warns: %w", err)
	}
	return warns, nil
}

func (d *moderationDal) DeleteWarn(ctx context.Context, guildID string, id string) error {
	// Get the warns collection.
	collection := d.client.Database(mongoDatabase).Collection("warns")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "delete_warn", mongoDatabase, "warns").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "delete_warn", mongoDatabase, "warns"))
	defer t.ObserveDuration()

	res, err := collection.DeleteOne(ctx, bson.M{"guild_id": guildID, "id": id})
	if err != nil {
		return fmt.Errorf("error deleting warn: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (d *moderationDal) ClearWarns(ctx context.Context, guildID string, userID string) (int64, error) {
	// Get the warns collection.
	collection := d.client.Database(mongoDatabase).Collection("warns")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "clear_warns", mongoDatabase, "warns").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "clear_warns", mongoDatabase, "warns"))
	defer t.ObserveDuration()

	res, err := collection.DeleteMany(ctx, bson.M{"guild_id": guildID, "user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("error clearing warns: %w", err)
	}
	return res.DeletedCount, nil
}

func (d *moderationDal) SaveBan(ctx context.Context, ban *entities.BanRecord) error {
	// Get the bans collection.
	collection := d.client.Database(mongoDatabase).Collection("bans")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "save_ban", mongoDatabase, "bans").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "save_ban", mongoDatabase, "bans"))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, ban); err != nil {
		return fmt.Errorf("error inserting ban: %w", err)
	}
	return nil
}

func (d *moderationDal) DeleteBan(ctx context.Context, guildID string, userID string) error {
	// Get the bans collection.
	collection := d.client.Database(mongoDatabase).Collection("bans")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(moderationDalName, "delete_ban", mongoDatabase, "bans").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(moderationDalName, "delete_ban", mongoDatabase, "bans"))
	defer t.ObserveDuration()

	if _, err := collection.DeleteMany(ctx, bson.M{"guild_id": guildID, "user_id": userID}); err != nil {
		return fmt.Errorf("error deleting ban: %w", err)
	}
	return nil
}
