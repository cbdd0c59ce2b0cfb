package entities

// Guild is the per-guild configuration. There is at most one row per guild;
// each feature keeps its own embedded configuration block.
type Guild struct {
	// ID is the ID of the guild.
	ID string `json:"id" bson:"id"`

	// Ticketing is the ticketing configuration.
	Ticketing TicketingConfig `json:"ticketing" bson:"ticketing"`

	// Welcome is the welcome message configuration.
	Welcome WelcomeConfig `json:"welcome" bson:"welcome"`
}
