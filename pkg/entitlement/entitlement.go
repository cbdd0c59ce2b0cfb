// Package entitlement holds the capability predicates gating privileged
// operations. Every function is a pure check; callers surface the rejection.
package entitlement

import (
	"github.com/bwmarrin/discordgo"
)

// Capability is one named permission the bot needs before a guild restore.
type Capability struct {
	// Name is the human readable capability name, used in rejection messages.
	Name string

	// Bit is the permission bit.
	Bit int64
}

// RestoreCapabilities are the capabilities the bot's own membership must hold
// before a snapshot restore may begin.
var RestoreCapabilities = []Capability{
	{Name: "Manage Roles", Bit: discordgo.PermissionManageRoles},
	{Name: "Manage Channels", Bit: discordgo.PermissionManageChannels},
	{Name: "Manage Expressions", Bit: discordgo.PermissionManageGuildExpressions},
	{Name: "View Audit Log", Bit: discordgo.PermissionViewAuditLogs},
}

// IsAdministrator reports whether the invoking member holds the administrator
// permission. A nil member resolves to not authorized.
func IsAdministrator(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	return member.Permissions&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator
}

// IsGuildOwner reports whether the user owns the guild.
func IsGuildOwner(guild *discordgo.Guild, userID string) bool {
	if guild == nil || userID == "" {
		return false
	}
	return guild.OwnerID == userID
}

// HasRole reports whether the member holds the given role.
func HasRole(member *discordgo.Member, roleID string) bool {
	if member == nil {
		return false
	}
	for _, r := range member.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// MemberPermissions aggregates a member's guild-level permission bitmask from
// the @everyone role and the member's roles. Interaction payloads carry a
// resolved Permissions field, but members fetched over the REST API do not,
// so the bot's own membership is resolved here.
func MemberPermissions(guild *discordgo.Guild, member *discordgo.Member) int64 {
	if guild == nil || member == nil {
		return 0
	}

	var perms int64
	for _, role := range guild.Roles {
		// @everyone carries the guild's base permissions.
		if role.ID == guild.ID {
			perms |= role.Permissions
			continue
		}
		for _, id := range member.Roles {
			if id == role.ID {
				perms |= role.Permissions
				break
			}
		}
	}

	if perms&discordgo.PermissionAdministrator == discordgo.PermissionAdministrator {
		return discordgo.PermissionAll
	}
	return perms
}

// MissingCapabilities returns the names of the restore capabilities absent
// from the given permission bitmask, in declaration order. An empty result
// means the restore precondition holds.
func MissingCapabilities(perms int64) []string {
	var missing []string
	for _, c := range RestoreCapabilities {
		if perms&c.Bit != c.Bit {
			missing = append(missing, c.Name)
		}
	}
	return missing
}
