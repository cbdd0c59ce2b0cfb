package entities

import "github.com/edwin961/DragonsBot/pkg/custom"

// WelcomePlaceholder is replaced with the joining member's mention in the
// welcome message body.
const WelcomePlaceholder = "{user}"

type WelcomeConfig struct {
	// Enabled is whether welcome messages are enabled.
	Enabled bool `json:"enabled" bson:"enabled"`

	// ChannelID is the ID of the channel that welcome messages are sent to.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// Header is the title of the welcome embed.
	Header string `json:"header" bson:"header"`

	// Text is the body of the welcome embed. The WelcomePlaceholder token is
	// replaced with the new member's mention.
	Text string `json:"text" bson:"text"`

	// ImageURL is an optional image or GIF shown on the embed.
	ImageURL string `json:"image_url" bson:"image_url"`

	// Color is the embed colour.
	Color custom.HexColor `json:"color" bson:"color"`
}
