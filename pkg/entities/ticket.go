package entities

import (
	"fmt"

	"github.com/edwin961/DragonsBot/pkg/custom"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketStatusOpen is an open ticket with a live channel.
	TicketStatusOpen TicketStatus = "open"

	// TicketStatusClosed is a closed ticket. The channel has been deleted;
	// only this row remains.
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is one support case.
type Ticket struct {
	// Number is the per-guild sequence number of the ticket.
	// It is combined with the opener's username to form the channel name,
	// e.g. ticket number 1 opened by "edwin" becomes "1-edwin".
	Number int `json:"number" bson:"number"`

	// GuildID is the ID of the guild that the ticket is in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// ChannelID is the ID of the channel that the ticket is in.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// UserID is the ID of the user that opened the ticket.
	UserID string `json:"user_id" bson:"user_id"`

	// Username is the username of the user that opened the ticket.
	Username string `json:"username" bson:"username"`

	// Category is the ticket category label from the panel button.
	Category string `json:"category" bson:"category"`

	// Status is the lifecycle state of the ticket.
	Status TicketStatus `json:"status" bson:"status"`

	// SetupMessageID is the ID of the pinned control message in the channel.
	SetupMessageID string `json:"setup_message_id" bson:"setup_message_id"`

	// ClosedBy is the ID of the user that closed the ticket.
	ClosedBy string `json:"closed_by" bson:"closed_by"`

	// CreatedAt is the time that the ticket was opened.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// ClosedAt is the time that the ticket was closed.
	ClosedAt custom.Datetime `json:"closed_at" bson:"closed_at"`
}

func (t *Ticket) Name() string {
	return fmt.Sprintf("%d-%s", t.Number, t.Username)
}

// IsOpen reports whether the ticket is still open.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}
