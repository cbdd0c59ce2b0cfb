package entities

import "github.com/edwin961/DragonsBot/pkg/custom"

// BanRecord is the audit row for a ban.
type BanRecord struct {
	// GuildID is the ID of the guild that the ban was issued in.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// UserID is the ID of the banned user.
	UserID string `json:"user_id" bson:"user_id"`

	// IssuerID is the ID of the moderator that issued the ban.
	IssuerID string `json:"issuer_id" bson:"issuer_id"`

	// Reason is the reason for the ban.
	Reason string `json:"reason" bson:"reason"`

	// CreatedAt is the time that the ban was issued.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`
}
