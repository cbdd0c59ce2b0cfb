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

const ticketDalName = "ticket_dal"

type TicketDal interface {
	// SaveTicket saves a ticket.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// GetTicket gets a ticket by its channel.
	GetTicket(ctx context.Context, guildID string, channelID string) (*entities.Ticket, error)

	// GetOpenTicketByUser gets the open ticket for a user, if any.
	GetOpenTicketByUser(ctx context.Context, guildID string, userID string) (*entities.Ticket, error)

	// NextTicketNumber allocates the next ticket sequence number for a guild.
	NextTicketNumber(ctx context.Context, guildID string) (int, error)

	// CountTickets counts tickets for a guild with the given status.
	CountTickets(ctx context.Context, guildID string, status entities.TicketStatus) (int64, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(l *slog.Logger, client *mongo.Client) TicketDal {
	return &ticketDal{
		l:      l.With(slog.String(logging.KeyDal, ticketDalName)),
		client: client,
	}
}

func (d *ticketDal) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	// Get the ticket collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Save the ticket.
	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx, bson.M{"guild_id": ticket.GuildID, "channel_id": ticket.ChannelID}, bson.M{"$set": ticket}, opts)
	if err != nil {
		return fmt.Errorf("error updating ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) GetTicket(ctx context.Context, guildID string, channelID string) (*entities.Ticket, error) {
	// Get the ticket collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Get the ticket.
	var ticket entities.Ticket
	err := collection.FindOne(ctx, bson.M{
		"guild_id":   guildID,
		"channel_id": channelID,
	}).Decode(&ticket)
	if err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}

	return &ticket, nil
}

func (d *ticketDal) GetOpenTicketByUser(ctx context.Context, guildID string, userID string) (*entities.Ticket, error) {
	// Get the ticket collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_open_ticket_by_user", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_open_ticket_by_user", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	// Get the ticket.
	var ticket entities.Ticket
	err := collection.FindOne(ctx, bson.M{
		"guild_id": guildID,
		"user_id":  userID,
		"status":   entities.TicketStatusOpen,
	}).Decode(&ticket)
	if err != nil {
		return nil, fmt.Errorf("error getting open ticket: %w", err)
	}

	return &ticket, nil
}

// NextTicketNumber allocates the next ticket sequence number for a guild with
// a single atomic increment on a per-guild counter row, so numbers are
// monotonic even under concurrent creation.
func (d *ticketDal) NextTicketNumber(ctx context.Context, guildID string) (int, error) {
	// Get the counter collection.
	collection := d.client.Database(mongoDatabase).Collection("ticket_counters")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "next_ticket_number", mongoDatabase, "ticket_counters").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "next_ticket_number", mongoDatabase, "ticket_counters"))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var counter struct {
		GuildID string `bson:"guild_id"`
		Seq     int    `bson:"seq"`
	}
	err := collection.FindOneAndUpdate(ctx,
		bson.M{"guild_id": guildID},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("error incrementing ticket counter: %w", err)
	}

	return counter.Seq, nil
}

func (d *ticketDal) CountTickets(ctx context.Context, guildID string, status entities.TicketStatus) (int64, error) {
	// Get the ticket collection.
	collection := d.client.Database(mongoDatabase).Collection("tickets")

	// Start the prometheus metrics.
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "count_tickets", mongoDatabase, "tickets").Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "count_tickets", mongoDatabase, "tickets"))
	defer t.ObserveDuration()

	count, err := collection.CountDocuments(ctx, bson.M{
		"guild_id": guildID,
		"status":   status,
	})
	if err != nil {
		return 0, fmt.Errorf("error counting tickets: %w", err)
	}
	return count, nil
}
