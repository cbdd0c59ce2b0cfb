package ticketing

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeTicketDal is an in-memory TicketDal.
type fakeTicketDal struct {
	tickets  map[string]*entities.Ticket // keyed by channel ID
	counters map[string]int

	saveErr error
}

func newFakeTicketDal() *fakeTicketDal {
	return &fakeTicketDal{
		tickets:  make(map[string]*entities.Ticket),
		counters: make(map[string]int),
	}
}

func (f *fakeTicketDal) SaveTicket(_ context.Context, ticket *entities.Ticket) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := *ticket
	f.tickets[ticket.ChannelID] = &cp
	return nil
}

func (f *fakeTicketDal) GetTicket(_ context.Context, guildID, channelID string) (*entities.Ticket, error) {
	t, ok := f.tickets[channelID]
	if !ok || t.GuildID != guildID {
		return nil, fmt.Errorf("error getting ticket: %w", mongo.ErrNoDocuments)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTicketDal) GetOpenTicketByUser(_ context.Context, guildID, userID string) (*entities.Ticket, error) {
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.UserID == userID && t.Status == entities.TicketStatusOpen {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("error getting open ticket: %w", mongo.ErrNoDocuments)
}

func (f *fakeTicketDal) NextTicketNumber(_ context.Context, guildID string) (int, error) {
	f.counters[guildID]++
	return f.counters[guildID], nil
}

func (f *fakeTicketDal) CountTickets(_ context.Context, guildID string, status entities.TicketStatus) (int64, error) {
	var n int64
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeTicketDal) openFor(guildID, userID string) []*entities.Ticket {
	var out []*entities.Ticket
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.UserID == userID && t.Status == entities.TicketStatusOpen {
			out = append(out, t)
		}
	}
	return out
}

// fakeSession records the discord calls the manager makes.
type fakeSession struct {
	nextChannelID int

	createdChannels []discordgo.GuildChannelCreateData
	sentMessages    map[string][]*discordgo.MessageSend
	pinned          map[string][]string
	deleted         []string
	history         map[string][]*discordgo.Message

	createErr error
	deleteErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		sentMessages: make(map[string][]*discordgo.MessageSend),
		pinned:       make(map[string][]string),
		history:      make(map[string][]*discordgo.Message),
	}
}

func (f *fakeSession) GuildChannelCreateComplex(_ string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextChannelID++
	f.createdChannels = append(f.createdChannels, data)
	return &discordgo.Channel{
		ID:   fmt.Sprintf("chan-%d", f.nextChannelID),
		Name: data.Name,
		Type: data.Type,
	}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sentMessages[channelID] = append(f.sentMessages[channelID], data)
	return &discordgo.Message{ID: fmt.Sprintf("msg-%d", len(f.sentMessages[channelID])), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessagePin(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.pinned[channelID] = append(f.pinned[channelID], messageID)
	return nil
}

func (f *fakeSession) ChannelMessages(channelID string, _ int, _, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return f.history[channelID], nil
}

func (f *fakeSession) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func testManager(t *testing.T) (*Manager, *fakeSession, *fakeTicketDal) {
	t.Helper()
	s := newFakeSession()
	dal := newFakeTicketDal()
	m := NewManager(slog.Default(), s, dal)
	m.closeDelay = 0
	return m, s, dal
}

func testConfig() *entities.TicketingConfig {
	return &entities.TicketingConfig{
		Enabled:      true,
		CategoryID:   "category-1",
		LogChannelID: "log-channel",
		RoleID:       "support-role",
	}
}

func TestCreateOpensExactlyOneTicket(t *testing.T) {
	m, s, dal := testManager(t)

	ticket, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID:  "guild-1",
		UserID:   "user-1",
		Username: "edwin",
		Category: "support",
	})
	require.NoError(t, err)

	require.Equal(t, 1, ticket.Number)
	require.Equal(t, "1-edwin", ticket.Name())
	require.Equal(t, entities.TicketStatusOpen, ticket.Status)
	require.NotEmpty(t, ticket.ChannelID)

	// Exactly one open row for (guild, user).
	require.Len(t, dal.openFor("guild-1", "user-1"), 1)

	// The channel denies @everyone and grants the opener and support role.
	require.Len(t, s.createdChannels, 1)
	created := s.createdChannels[0]
	require.Equal(t, "1-edwin", created.Name)
	require.Equal(t, "category-1", created.ParentID)
	require.Len(t, created.PermissionOverwrites, 3)
	require.Equal(t, int64(discordgo.PermissionViewChannel), created.PermissionOverwrites[0].Deny)

	// The control message was pinned.
	require.Len(t, s.pinned[ticket.ChannelID], 1)
}

func TestCreateRejectsDuplicateOpen(t *testing.T) {
	m, _, _ := testManager(t)

	first, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "support",
	})
	require.NoError(t, err)

	_, err = m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "billing",
	})
	require.Error(t, err)

	var alreadyOpen *AlreadyOpenError
	require.ErrorAs(t, err, &alreadyOpen)
	require.Equal(t, first.ChannelID, alreadyOpen.ChannelID)
}

func TestSequenceNumbersAreMonotonic(t *testing.T) {
	m, _, _ := testManager(t)

	for i, user := range []string{"user-1", "user-2", "user-3"} {
		ticket, err := m.Create(context.Background(), testConfig(), CreateRequest{
			GuildID: "guild-1", UserID: user, Username: "edwin", Category: "support",
		})
		require.NoError(t, err)
		require.Equal(t, i+1, ticket.Number)
	}
}

func TestCreateSurfacesChannelError(t *testing.T) {
	m, s, dal := testManager(t)
	s.createErr = fmt.Errorf("missing category")

	_, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "support",
	})
	require.ErrorContains(t, err, "missing category")
	require.Empty(t, dal.openFor("guild-1", "user-1"))
}

func TestCloseMarksTicketAndDeletesChannel(t *testing.T) {
	m, s, dal := testManager(t)

	ticket, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "support",
	})
	require.NoError(t, err)

	closed, err := m.Close(context.Background(), testConfig(), "guild-1", ticket.ChannelID, "staff-1")
	require.NoError(t, err)

	require.Equal(t, entities.TicketStatusClosed, closed.Status)
	require.Equal(t, "staff-1", closed.ClosedBy)
	require.False(t, time.Time(closed.ClosedAt).IsZero())

	// The row survives the channel deletion.
	stored := dal.tickets[ticket.ChannelID]
	require.Equal(t, entities.TicketStatusClosed, stored.Status)
	require.Equal(t, "staff-1", stored.ClosedBy)

	require.Equal(t, []string{ticket.ChannelID}, s.deleted)

	// Closing frees the opener for a new ticket.
	next, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "support",
	})
	require.NoError(t, err)
	require.Equal(t, 2, next.Number)
}

func TestCloseUnknownChannel(t *testing.T) {
	m, _, _ := testManager(t)

	_, err := m.Close(context.Background(), testConfig(), "guild-1", "not-a-ticket", "staff-1")
	require.ErrorIs(t, err, ErrTicketNotFound)
}

func TestCloseTwice(t *testing.T) {
	m, _, dal := testManager(t)

	ticket, err := m.Create(context.Background(), testConfig(), CreateRequest{
		GuildID: "guild-1", UserID: "user-1", Username: "edwin", Category: "support",
	})
	require.NoError(t, err)

	_, err = m.Close(context.Background(), testConfig(), "guild-1", ticket.ChannelID, "staff-1")
	require.NoError(t, err)

	// The row is still queryable after the channel is gone.
	_, ok := dal.tickets[ticket.ChannelID]
	require.True(t, ok)

	_, err = m.Close(context.Background(), testConfig(), "guild-1", ticket.ChannelID, "staff-2")
	require.ErrorIs(t, err, ErrTicketClosed)
}

func TestTranscriptFormat(t *testing.T) {
	m, s, _ := testManager(t)

	ts1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ts2 := time.Date(2026, 3, 1, 10, 5, 0, 0, time.UTC)

	// The history endpoint returns newest first.
	s.history["chan-1"] = []*discordgo.Message{
		{Content: "thanks!", Timestamp: ts2, Author: &discordgo.User{Username: "edwin"}},
		{Content: "how can we help?", Timestamp: ts1, Author: &discordgo.User{Username: "staff"}},
	}

	got, err := m.Transcript("chan-1")
	require.NoError(t, err)

	want := "[2026-03-01T10:00:00Z] staff: how can we help?\n" +
		"[2026-03-01T10:05:00Z] edwin: thanks!"
	require.Equal(t, want, got)
}
