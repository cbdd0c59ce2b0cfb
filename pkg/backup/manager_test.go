package backup

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// fakeSnapshotDal is an in-memory SnapshotDal.
type fakeSnapshotDal struct {
	saved []*entities.GuildSnapshot
}

func (f *fakeSnapshotDal) SaveSnapshot(_ context.Context, snapshot *entities.GuildSnapshot) error {
	cp := *snapshot
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeSnapshotDal) GetSnapshot(_ context.Context, guildID, id string) (*entities.GuildSnapshot, error) {
	for _, s := range f.saved {
		if s.GuildID == guildID && s.ID == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("snapshot not found")
}

func (f *fakeSnapshotDal) LatestSnapshot(_ context.Context, guildID string) (*entities.GuildSnapshot, error) {
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].GuildID == guildID {
			return f.saved[i], nil
		}
	}
	return nil, fmt.Errorf("snapshot not found")
}

// fakeSession records the guild mutations the manager makes.
type fakeSession struct {
	guild    *discordgo.Guild
	roles    []*discordgo.Role
	channels []*discordgo.Channel
	members  map[string]*discordgo.Member

	nextID int

	createdRoles    []*discordgo.RoleParams
	reordered       []*discordgo.Role
	createdChannels []discordgo.GuildChannelCreateData
	createdEmojis   []*discordgo.EmojiParams
	renames         []string
}

func (f *fakeSession) Guild(_ string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return f.guild, nil
}

func (f *fakeSession) GuildRoles(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeSession) GuildChannels(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeSession) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	m, ok := f.members[userID]
	if !ok {
		return nil, fmt.Errorf("member not found")
	}
	return m, nil
}

func (f *fakeSession) GuildRoleCreate(_ string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	f.nextID++
	f.createdRoles = append(f.createdRoles, data)
	return &discordgo.Role{ID: fmt.Sprintf("new-role-%d", f.nextID), Name: data.Name}, nil
}

func (f *fakeSession) GuildRoleReorder(_ string, roles []*discordgo.Role, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.reordered = roles
	return roles, nil
}

func (f *fakeSession) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.nextID++
	f.createdChannels = append(f.createdChannels, data)
	return &discordgo.Channel{
		ID:   fmt.Sprintf("new-chan-%d", f.nextID),
		Name: data.Name,
		Type: data.Type,
	}, nil
}

func (f *fakeSession) GuildEmojiCreate(_ string, data *discordgo.EmojiParams, _ ...discordgo.RequestOption) (*discordgo.Emoji, error) {
	f.createdEmojis = append(f.createdEmojis, data)
	return &discordgo.Emoji{ID: "new-emoji", Name: data.Name}, nil
}

func (f *fakeSession) GuildEdit(_ string, g *discordgo.GuildParams, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	f.renames = append(f.renames, g.Name)
	return f.guild, nil
}

func testManager(t *testing.T) (*Manager, *fakeSession, *fakeSnapshotDal) {
	t.Helper()
	s := &fakeSession{members: make(map[string]*discordgo.Member)}
	dal := new(fakeSnapshotDal)
	m := NewManager(slog.Default(), s, dal)
	m.limiter = rate.NewLimiter(rate.Inf, 1)
	return m, s, dal
}

func TestSnapshotCapturesGuild(t *testing.T) {
	m, s, dal := testManager(t)

	s.guild = &discordgo.Guild{
		ID:   "guild-1",
		Name: "Dragons",
		Emojis: []*discordgo.Emoji{
			{ID: "emoji-1", Name: "dragon"},
		},
	}
	s.roles = []*discordgo.Role{
		{ID: "guild-1", Name: "@everyone", Permissions: 104},
		{ID: "role-bot", Name: "Bot", Managed: true},
		{ID: "role-staff", Name: "Staff", Permissions: 8192, Color: 0x4169e1, Position: 1, Hoist: true},
	}
	s.channels = []*discordgo.Channel{
		{ID: "cat-1", Name: "Support", Type: discordgo.ChannelTypeGuildCategory, Position: 0},
		{
			ID:       "chan-1",
			Name:     "general",
			Type:     discordgo.ChannelTypeGuildText,
			ParentID: "cat-1",
			Topic:    "chat",
			PermissionOverwrites: []*discordgo.PermissionOverwrite{
				{ID: "role-staff", Type: discordgo.PermissionOverwriteTypeRole, Allow: 1024},
				{ID: "user-1", Type: discordgo.PermissionOverwriteTypeMember, Allow: 1024},
			},
		},
	}

	snapshot, err := m.Snapshot(context.Background(), "guild-1")
	require.NoError(t, err)

	require.NotEmpty(t, snapshot.ID)
	require.Equal(t, entities.SnapshotSchemaVersion, snapshot.SchemaVersion)
	require.Equal(t, "Dragons", snapshot.GuildName)

	// @everyone and managed roles are not captured.
	require.Len(t, snapshot.Roles, 1)
	require.Equal(t, "Staff", snapshot.Roles[0].Name)

	require.Len(t, snapshot.Channels, 2)
	require.Equal(t, "Support", snapshot.Channels[1].ParentName)

	// Member overwrites do not carry over to another guild.
	require.Len(t, snapshot.Channels[1].Overwrites, 1)
	require.Equal(t, "role-staff", snapshot.Channels[1].Overwrites[0].RoleID)

	require.Len(t, snapshot.Emojis, 1)
	require.Contains(t, snapshot.Emojis[0].ImageURL, "emoji-1")

	require.Len(t, dal.saved, 1)
	require.Equal(t, snapshot.ID, dal.saved[0].ID)
}

func TestRestoreAbortsWithoutCapabilities(t *testing.T) {
	m, s, _ := testManager(t)

	s.guild = &discordgo.Guild{
		ID: "guild-2",
		Roles: []*discordgo.Role{
			{ID: "guild-2", Permissions: discordgo.PermissionViewChannel},
		},
	}
	s.members["bot-user"] = &discordgo.Member{User: &discordgo.User{ID: "bot-user"}}

	snapshot := &entities.GuildSnapshot{
		GuildID: "guild-1",
		Roles:   []entities.RoleSnapshot{{ID: "role-1", Name: "Staff"}},
	}

	_, err := m.Restore(context.Background(), "guild-2", "bot-user", snapshot)
	require.Error(t, err)

	var missing *MissingCapabilitiesError
	require.ErrorAs(t, err, &missing)
	require.Contains(t, missing.Missing, "Manage Roles")
	require.Contains(t, missing.Missing, "Manage Channels")

	// Nothing was written.
	require.Empty(t, s.createdRoles)
	require.Empty(t, s.createdChannels)
	require.Empty(t, s.createdEmojis)
	require.Empty(t, s.renames)
}

func TestRestoreRecreatesStructure(t *testing.T) {
	m, s, _ := testManager(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	s.guild = &discordgo.Guild{
		ID: "guild-2",
		Roles: []*discordgo.Role{
			{ID: "role-admin", Permissions: discordgo.PermissionAdministrator},
		},
	}
	s.members["bot-user"] = &discordgo.Member{
		User:  &discordgo.User{ID: "bot-user"},
		Roles: []string{"role-admin"},
	}

	snapshot := &entities.GuildSnapshot{
		GuildID:   "guild-1",
		GuildName: "Dragons",
		Roles: []entities.RoleSnapshot{
			{ID: "role-staff", Name: "Staff", Permissions: 8192, Position: 1},
		},
		Channels: []entities.ChannelSnapshot{
			{ID: "cat-1", Name: "Support", Type: int(discordgo.ChannelTypeGuildCategory)},
			{
				ID:         "chan-1",
				Name:       "general",
				Type:       int(discordgo.ChannelTypeGuildText),
				ParentName: "Support",
				Overwrites: []entities.OverwriteSnapshot{
					{RoleID: "role-staff", Allow: 1024},
					{RoleID: "guild-1", Deny: 1024},
					{RoleID: "role-gone", Allow: 2048},
				},
			},
		},
		Emojis: []entities.EmojiSnapshot{
			{ID: "emoji-1", Name: "dragon", ImageURL: srv.URL + "/emojis/emoji-1.png"},
		},
	}

	res, err := m.Restore(context.Background(), "guild-2", "bot-user", snapshot)
	require.NoError(t, err)

	require.Equal(t, 1, res.RolesCreated)
	require.Equal(t, 2, res.ChannelsCreated)
	require.Equal(t, 1, res.EmojisCreated)
	require.Equal(t, 0, res.Skipped)

	require.Len(t, s.createdRoles, 1)
	require.Equal(t, "Staff", s.createdRoles[0].Name)
	require.Len(t, s.reordered, 1)

	require.Len(t, s.createdChannels, 2)
	category := s.createdChannels[0]
	require.Equal(t, "Support", category.Name)

	channel := s.createdChannels[1]
	require.Equal(t, "general", channel.Name)
	require.Equal(t, "new-chan-2", channel.ParentID)

	// The staff overwrite is remapped onto the new role, the @everyone
	// overwrite onto the target guild, and the unmapped role is dropped.
	require.Len(t, channel.PermissionOverwrites, 2)
	require.Equal(t, "new-role-1", channel.PermissionOverwrites[0].ID)
	require.Equal(t, "guild-2", channel.PermissionOverwrites[1].ID)

	require.Len(t, s.createdEmojis, 1)
	require.Equal(t, "dragon", s.createdEmojis[0].Name)
	require.Contains(t, s.createdEmojis[0].Image, "data:image/png;base64,")

	require.Equal(t, []string{"Dragons"}, s.renames)
}
