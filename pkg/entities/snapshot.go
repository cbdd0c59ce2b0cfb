package entities

import "github.com/edwin961/DragonsBot/pkg/custom"

// SnapshotSchemaVersion is the current snapshot schema. Version 1 captured
// roles and channels without permission overwrites; version 2 is the unified
// shape below.
const SnapshotSchemaVersion = 2

// GuildSnapshot is a serialized capture of a guild's structural configuration.
// Rows are immutable once written.
type GuildSnapshot struct {
	// ID is the generated identifier of the snapshot.
	ID string `json:"id" bson:"id"`

	// GuildID is the ID of the guild that was captured.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// GuildName is the name of the guild at capture time.
	GuildName string `json:"guild_name" bson:"guild_name"`

	// SchemaVersion is the snapshot schema version.
	SchemaVersion int `json:"schema_version" bson:"schema_version"`

	// Roles are the captured non-default roles, in stored position order.
	Roles []RoleSnapshot `json:"roles" bson:"roles"`

	// Channels are the captured channels, categories included.
	Channels []ChannelSnapshot `json:"channels" bson:"channels"`

	// Emojis are the captured custom emojis.
	Emojis []EmojiSnapshot `json:"emojis" bson:"emojis"`

	// CreatedAt is the time that the snapshot was taken.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`
}

// RoleSnapshot is one captured role.
type RoleSnapshot struct {
	// ID is the role ID in the source guild.
	ID string `json:"id" bson:"id"`

	// Name is the role name.
	Name string `json:"name" bson:"name"`

	// Permissions is the permission bitmask.
	Permissions int64 `json:"permissions" bson:"permissions"`

	// Color is the role colour.
	Color int `json:"color" bson:"color"`

	// Position is the role position in the source guild.
	Position int `json:"position" bson:"position"`

	// Hoist is whether the role is shown separately in the member list.
	Hoist bool `json:"hoist" bson:"hoist"`

	// Mentionable is whether the role can be mentioned.
	Mentionable bool `json:"mentionable" bson:"mentionable"`
}

// ChannelSnapshot is one captured channel or category.
type ChannelSnapshot struct {
	// ID is the channel ID in the source guild.
	ID string `json:"id" bson:"id"`

	// Name is the channel name.
	Name string `json:"name" bson:"name"`

	// Type is the channel type, as the platform's numeric channel type.
	Type int `json:"type" bson:"type"`

	// ParentName is the name of the parent category, empty for top level
	// channels and categories themselves.
	ParentName string `json:"parent_name" bson:"parent_name"`

	// Position is the channel position.
	Position int `json:"position" bson:"position"`

	// Topic is the channel topic.
	Topic string `json:"topic" bson:"topic"`

	// NSFW is whether the channel is marked NSFW.
	NSFW bool `json:"nsfw" bson:"nsfw"`

	// Bitrate is the voice bitrate, zero for text channels.
	Bitrate int `json:"bitrate" bson:"bitrate"`

	// UserLimit is the voice user limit, zero for text channels.
	UserLimit int `json:"user_limit" bson:"user_limit"`

	// RateLimitPerUser is the slow-mode interval in seconds.
	RateLimitPerUser int `json:"rate_limit_per_user" bson:"rate_limit_per_user"`

	// Overwrites are the role-targeted permission overwrites. Member-targeted
	// overwrites are not captured; they cannot be migrated across guilds.
	Overwrites []OverwriteSnapshot `json:"overwrites" bson:"overwrites"`
}

// OverwriteSnapshot is one role-targeted permission overwrite.
type OverwriteSnapshot struct {
	// RoleID is the target role ID in the source guild.
	RoleID string `json:"role_id" bson:"role_id"`

	// Allow is the allowed permission bitmask.
	Allow int64 `json:"allow" bson:"allow"`

	// Deny is the denied permission bitmask.
	Deny int64 `json:"deny" bson:"deny"`
}

// EmojiSnapshot is one captured custom emoji.
type EmojiSnapshot struct {
	// ID is the emoji ID in the source guild.
	ID string `json:"id" bson:"id"`

	// Name is the emoji name.
	Name string `json:"name" bson:"name"`

	// ImageURL is the CDN URL of the emoji image.
	ImageURL string `json:"image_url" bson:"image_url"`
}
