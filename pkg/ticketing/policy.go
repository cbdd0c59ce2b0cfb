package ticketing

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
)

const (
	// OpenButtonPrefix prefixes panel button custom IDs. The button's category
	// label follows the prefix, so the action survives a process restart
	// without any in-memory dispatch state.
	OpenButtonPrefix = "ticket_open:"

	// CloseButtonID is the custom ID of the close button inside a ticket
	// channel.
	CloseButtonID = "ticket_close"
)

// OpenButtonID builds the stable custom ID for a panel button.
func OpenButtonID(category string) string {
	return OpenButtonPrefix + category
}

// ParseOpenButtonID extracts the category label from a panel button custom
// ID. It reports false for custom IDs of other components.
func ParseOpenButtonID(customID string) (string, bool) {
	if !strings.HasPrefix(customID, OpenButtonPrefix) {
		return "", false
	}
	return strings.TrimPrefix(customID, OpenButtonPrefix), true
}

// CanClose evaluates the guild's close policy for a member attempting to
// close a ticket. Administrators may always close.
func CanClose(policy entities.ClosePolicy, ticket *entities.Ticket, member *discordgo.Member, supportRoleID string) bool {
	if member == nil || member.User == nil {
		return false
	}
	if entitlement.IsAdministrator(member) {
		return true
	}

	switch policy {
	case entities.ClosePolicyStaff:
		return entitlement.HasRole(member, supportRoleID)
	case entities.ClosePolicyOpenerOrStaff:
		return member.User.ID == ticket.UserID || entitlement.HasRole(member, supportRoleID)
	default:
		// ClosePolicyAnyone: anyone with channel access may close.
		return true
	}
}
