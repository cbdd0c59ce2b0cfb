package entitlement

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func TestIsAdministrator(t *testing.T) {
	tests := []struct {
		name   string
		member *discordgo.Member
		want   bool
	}{
		{
			name: "administrator",
			member: &discordgo.Member{
				Permissions: discordgo.PermissionAdministrator,
			},
			want: true,
		},
		{
			name: "admin among other bits",
			member: &discordgo.Member{
				Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages,
			},
			want: true,
		},
		{
			name: "moderator only",
			member: &discordgo.Member{
				Permissions: discordgo.PermissionBanMembers | discordgo.PermissionManageMessages,
			},
			want: false,
		},
		{
			name: "nil member",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsAdministrator(tt.member))
		})
	}
}

func TestIsGuildOwner(t *testing.T) {
	g := &discordgo.Guild{ID: "guild-1", OwnerID: "owner-1"}

	require.True(t, IsGuildOwner(g, "owner-1"))
	require.False(t, IsGuildOwner(g, "someone-else"))
	require.False(t, IsGuildOwner(nil, "owner-1"))
	require.False(t, IsGuildOwner(g, ""))
}

func TestMemberPermissions(t *testing.T) {
	guild := &discordgo.Guild{
		ID:      "guild-1",
		OwnerID: "owner-1",
		Roles: []*discordgo.Role{
			{ID: "guild-1", Permissions: discordgo.PermissionViewChannel},
			{ID: "role-mod", Permissions: discordgo.PermissionBanMembers},
			{ID: "role-admin", Permissions: discordgo.PermissionAdministrator},
		},
	}

	tests := []struct {
		name   string
		member *discordgo.Member
		want   int64
	}{
		{
			name:   "everyone only",
			member: &discordgo.Member{},
			want:   discordgo.PermissionViewChannel,
		},
		{
			name:   "role permissions aggregate",
			member: &discordgo.Member{Roles: []string{"role-mod"}},
			want:   discordgo.PermissionViewChannel | discordgo.PermissionBanMembers,
		},
		{
			name:   "administrator expands to all",
			member: &discordgo.Member{Roles: []string{"role-admin"}},
			want:   discordgo.PermissionAll,
		},
		{
			name: "nil member",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MemberPermissions(guild, tt.member))
		})
	}
}

func TestMissingCapabilities(t *testing.T) {
	full := int64(discordgo.PermissionManageRoles |
		discordgo.PermissionManageChannels |
		discordgo.PermissionManageGuildExpressions |
		discordgo.PermissionViewAuditLogs)

	require.Empty(t, MissingCapabilities(full))
	require.Equal(t, []string{"Manage Channels"}, MissingCapabilities(full&^discordgo.PermissionManageChannels))
	require.Len(t, MissingCapabilities(0), len(RestoreCapabilities))
}
