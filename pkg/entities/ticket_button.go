package entities

import "fmt"

const (
	// ButtonStyleBlurple is the primary (blurple) button style.
	ButtonStyleBlurple = "blurple"

	// ButtonStyleGrey is the secondary (grey) button style.
	ButtonStyleGrey = "grey"

	// ButtonStyleGreen is the success (green) button style.
	ButtonStyleGreen = "green"

	// ButtonStyleRed is the danger (red) button style.
	ButtonStyleRed = "red"
)

// TicketButton is one panel button. Activating it opens a ticket of the
// button's category.
type TicketButton struct {
	// Label is the button label, unique within a guild's panel.
	Label string `json:"label" bson:"label"`

	// Emoji is an optional emoji rendered on the button.
	Emoji string `json:"emoji" bson:"emoji"`

	// Style is one of the ButtonStyle* values.
	Style string `json:"style" bson:"style"`

	// Category is the label of the ticket category opened by this button.
	Category string `json:"category" bson:"category"`
}

// Validate checks the button specification for storage.
func (b *TicketButton) Validate() error {
	if b.Label == "" {
		return fmt.Errorf("button label is required")
	}
	if b.Category == "" {
		return fmt.Errorf("button category is required")
	}
	switch b.Style {
	case ButtonStyleBlurple, ButtonStyleGrey, ButtonStyleGreen, ButtonStyleRed:
		return nil
	default:
		return fmt.Errorf("unknown button style %q: use one of blurple, grey, green, red", b.Style)
	}
}
