package entities

import "github.com/edwin961/DragonsBot/pkg/custom"

// WarnRecord is one warning issued to a user. Records are append only and are
// removed individually by ID or in bulk per user.
type WarnRecord struct {
	// ID is the generated identifier of the warning.
	ID string `json:"id" bson:"id"`

	// GuildID is the ID of the guild that the warning was issued in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// UserID is the ID of the warned user.
	UserID string `json:"user_id" bson:"user_id"`

	// IssuerID is the ID of the moderator that issued the warning.
	IssuerID string `json:"issuer_id" bson:"issuer_id"`

	// Reason is the reason for the warning.
	Reason string `json:"reason" bson:"reason"`

	// CreatedAt is the time that the warning was issued.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`
}
