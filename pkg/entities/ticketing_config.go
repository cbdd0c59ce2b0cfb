package entities

// ClosePolicy controls who is allowed to close a ticket.
type ClosePolicy string

const (
	// ClosePolicyAnyone allows any member with channel access to close a ticket.
	ClosePolicyAnyone ClosePolicy = "anyone"

	// ClosePolicyStaff restricts closing to holders of the support role.
	ClosePolicyStaff ClosePolicy = "staff"

	// ClosePolicyOpenerOrStaff allows the ticket opener or a support role holder.
	ClosePolicyOpenerOrStaff ClosePolicy = "opener_or_staff"
)

// ParseClosePolicy validates a close policy string. An empty string maps to
// ClosePolicyAnyone, which is the default behaviour.
func ParseClosePolicy(s string) (ClosePolicy, bool) {
	switch ClosePolicy(s) {
	case "":
		return ClosePolicyAnyone, true
	case ClosePolicyAnyone, ClosePolicyStaff, ClosePolicyOpenerOrStaff:
		return ClosePolicy(s), true
	default:
		return "", false
	}
}

type TicketingConfig struct {
	// Enabled is whether ticketing is enabled.
	Enabled bool `json:"enabled" bson:"enabled"`

	// PanelChannelID is the ID of the channel that the ticket panel is posted in.
	PanelChannelID string `json:"panel_channel_id" bson:"panel_channel_id"`

	// PanelMessageID is the ID of the posted panel message.
	PanelMessageID string `json:"panel_message_id" bson:"panel_message_id"`

	// CategoryID is the ID of the category that ticket channels are created under.
	CategoryID string `json:"category_id" bson:"category_id"`

	// LogChannelID is the ID of the channel that ticket events are logged to.
	LogChannelID string `json:"log_channel_id" bson:"log_channel_id"`

	// RoleID is the ID of the support role that handles tickets.
	RoleID string `json:"role_id" bson:"role_id"`

	// ClosePolicy is who may close a ticket.
	ClosePolicy ClosePolicy `json:"close_policy" bson:"close_policy"`

	// Buttons are the panel buttons, in display order. Reconfiguring replaces
	// the whole list.
	Buttons []TicketButton `json:"buttons" bson:"buttons"`
}
