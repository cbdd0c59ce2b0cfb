package main

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"github.com/stretchr/testify/require"
)

// fakeResponder records interaction responses and follow-ups.
type fakeResponder struct {
	respondErr error

	responses []*discordgo.InteractionResponse
	followups []*discordgo.WebhookParams
}

func (f *fakeResponder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	if f.respondErr != nil {
		return f.respondErr
	}
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeResponder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.followups = append(f.followups, data)
	return &discordgo.Message{ID: "msg-1"}, nil
}

func testInteraction() *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-1",
		GuildID: "guild-1",
		Token:   "token-1",
	}}
}

func TestReportInteractionErrorResponds(t *testing.T) {
	s := &fakeResponder{}

	require.NoError(t, reportInteractionError(s, testInteraction()))

	require.Len(t, s.responses, 1)
	require.Equal(t, messages.ErrUserErrorProcessing, s.responses[0].Data.Content)
	require.Equal(t, discordgo.MessageFlagsEphemeral, s.responses[0].Data.Flags)
	require.Empty(t, s.followups)
}

func TestReportInteractionErrorFallsBackToFollowUp(t *testing.T) {
	// An already acknowledged interaction rejects a second response.
	s := &fakeResponder{respondErr: fmt.Errorf("HTTP 400 Bad Request, {\"message\": \"Interaction has already been acknowledged.\", \"code\": 40060}")}

	require.NoError(t, reportInteractionError(s, testInteraction()))

	require.Empty(t, s.responses)
	require.Len(t, s.followups, 1)
	require.Equal(t, messages.ErrUserErrorProcessing, s.followups[0].Content)
	require.Equal(t, discordgo.MessageFlagsEphemeral, s.followups[0].Flags)
}
