package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

// recordingTransport captures the raw platform calls a controller makes, so
// tests can assert on what was sent without a live session.
type recordingTransport struct {
	requests []*http.Request
	bodies   []string
}

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	var body string
	if r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}
	rt.requests = append(rt.requests, r)
	rt.bodies = append(rt.bodies, body)
	return &http.Response{
		StatusCode: http.StatusNoContent,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

// fakeGuildDal is an in-memory GuildDal that counts writes.
type fakeGuildDal struct {
	guilds map[string]*entities.Guild
	saves  int
}

func newFakeGuildDal() *fakeGuildDal {
	return &fakeGuildDal{guilds: make(map[string]*entities.Guild)}
}

func (f *fakeGuildDal) SaveGuild(_ context.Context, guild *entities.Guild) error {
	f.saves++
	f.guilds[guild.ID] = guild
	return nil
}

func (f *fakeGuildDal) GetGuildByID(_ context.Context, id string) (*entities.Guild, error) {
	g, ok := f.guilds[id]
	if !ok {
		return nil, fmt.Errorf("error getting guild: %w", mongo.ErrNoDocuments)
	}
	cp := *g
	return &cp, nil
}

func testApp(t *testing.T) (*App, *fakeGuildDal, *recordingTransport) {
	t.Helper()
	rt := &recordingTransport{}
	dal := newFakeGuildDal()
	return &App{
		l: slog.Default(),
		s: &discordgo.Session{
			Client:      &http.Client{Transport: rt},
			Ratelimiter: discordgo.NewRatelimiter(),
		},
		guildDal: dal,
		restores: newPendingRestores(),
	}, dal, rt
}

func commandInteraction(member *discordgo.Member) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-1",
		Token:   "token-1",
		GuildID: "guild-1",
		Type:    discordgo.InteractionApplicationCommand,
		Member:  member,
	}}
}

func TestSetupRejectsNonAdminBeforeAnyWrite(t *testing.T) {
	a, dal, rt := testApp(t)

	i := commandInteraction(&discordgo.Member{User: &discordgo.User{ID: "user-1"}})

	require.NoError(t, setupController(a, i))

	// The rejection went out and the datastore was never touched.
	require.Zero(t, dal.saves)
	require.Len(t, rt.requests, 1)
	require.Contains(t, rt.bodies[0], messages.ErrUserAdminRequired)
}

func TestPanelRejectsNonAdminBeforeAnyWrite(t *testing.T) {
	a, dal, rt := testApp(t)

	i := commandInteraction(&discordgo.Member{User: &discordgo.User{ID: "user-1"}})

	require.NoError(t, panelController(a, i))

	require.Zero(t, dal.saves)
	require.Len(t, rt.requests, 1)
	require.Contains(t, rt.bodies[0], messages.ErrUserAdminRequired)
}
