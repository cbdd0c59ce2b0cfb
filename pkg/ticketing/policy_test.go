package ticketing

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestOpenButtonIDRoundTrip(t *testing.T) {
	id := OpenButtonID("billing")
	require.Equal(t, "ticket_open:billing", id)

	category, ok := ParseOpenButtonID(id)
	require.True(t, ok)
	require.Equal(t, "billing", category)

	_, ok = ParseOpenButtonID("backup_confirm:abc")
	require.False(t, ok)
}

func TestCanClose(t *testing.T) {
	ticket := &entities.Ticket{UserID: "opener"}

	member := func(userID string, roles []string, perms int64) *discordgo.Member {
		return &discordgo.Member{
			User:        &discordgo.User{ID: userID},
			Roles:       roles,
			Permissions: perms,
		}
	}

	tests := []struct {
		name   string
		policy entities.ClosePolicy
		member *discordgo.Member
		want   bool
	}{
		{
			name:   "anyone allows stranger",
			policy: entities.ClosePolicyAnyone,
			member: member("stranger", nil, 0),
			want:   true,
		},
		{
			name:   "staff rejects stranger",
			policy: entities.ClosePolicyStaff,
			member: member("stranger", nil, 0),
			want:   false,
		},
		{
			name:   "staff allows support role",
			policy: entities.ClosePolicyStaff,
			member: member("helper", []string{"support-role"}, 0),
			want:   true,
		},
		{
			name:   "staff allows administrator",
			policy: entities.ClosePolicyStaff,
			member: member("admin", nil, discordgo.PermissionAdministrator),
			want:   true,
		},
		{
			name:   "opener_or_staff allows opener",
			policy: entities.ClosePolicyOpenerOrStaff,
			member: member("opener", nil, 0),
			want:   true,
		},
		{
			name:   "opener_or_staff rejects stranger",
			policy: entities.ClosePolicyOpenerOrStaff,
			member: member("stranger", nil, 0),
			want:   false,
		},
		{
			name:   "nil member",
			policy: entities.ClosePolicyAnyone,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CanClose(tt.policy, ticket, tt.member, "support-role"))
		})
	}
}
