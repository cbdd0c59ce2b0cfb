package dataaccess

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edwin961/DragonsBot/pkg/dataaccess/monitoring"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const snapshotDalName = "snapshot_dal"

type SnapshotDal interface {
	// SaveSnapshot inserts a snapshot. Snapshots are immutable; every
	// invocation writes a new row.
	SaveSnapshot(ctx context.Context, snapshot *entities.GuildSnapshot) error

	// GetSnapshot gets a snapshot by guild and snapshot ID.
	GetSnapshot(ctx context.Context, guildID string, id string) (*entities.GuildSnapshot, error)

	// LatestSnapshot gets the most recent snapshot for a guild.
	LatestSnapshot(ctx context.Context, guildID string) (*entities.GuildSnapshot, error)
}

type snapshotDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewSnapshotDal creates a new snapshot data access layer.
func NewSnapshotDal(l *slog.Logger, client *mongo.Client) SnapshotDal {
	return &snapshotDal{
		l:      l.With(slog.String(logging.KeyDal, snapshotDalName)),
		client: client,
	}
}

func (d *snapshotDal) SaveSnapshot(ctx context.Context, snapshot *entities.GuildSnapshot) error {
	// Get the snapshot collection.
	collection := d.client.Database(mongoDatabase).Collection("snapshots")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(snapshotDalName, "save_snapshot", mongoDatabase, "snapshots").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(snapshotDalName, "save_snapshot", mongoDatabase, "snapshots"))
	defer t.ObserveDuration()

	if _, err := collection.InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("error inserting snapshot: %w", err)
	}
	return nil
}

func (d *snapshotDal) GetSnapshot(ctx context.Context, guildID string, id string) (*entities.GuildSnapshot, error) {
	// Get the snapshot collection.
	collection := d.client.Database(mongoDatabase).Collection("snapshots")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(snapshotDalName, "get_snapshot", mongoDatabase, "snapshots").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(snapshotDalName, "get_snapshot", mongoDatabase, "snapshots"))
	defer t.ObserveDuration()

	var snapshot entities.GuildSnapshot
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID, "id": id}).Decode(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("error getting snapshot: %w", err)
	}
	return &snapshot, nil
}

func (d *snapshotDal) LatestSnapshot(ctx context.Context, guildID string) (*entities.GuildSnapshot, error) {
	// Get the snapshot collection.
	collection := d.client.Database(mongoDatabase).Collection("snapshots")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(snapshotDalName, "latest_snapshot", mongoDatabase, "snapshots").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(snapshotDalName, "latest_snapshot", mongoDatabase, "snapshots"))
	defer t.ObserveDuration()

	opts := options.FindOne().SetSort(bson.M{"created_at": -1})

	var snapshot entities.GuildSnapshot
	err := collection.FindOne(ctx, bson.M{"guild_id": guildID}, opts).Decode(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("error getting latest snapshot: %w", err)
	}
	return &snapshot, nil
}
