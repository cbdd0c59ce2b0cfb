package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestWelcomeEmbed(t *testing.T) {
	cfg := &entities.WelcomeConfig{
		Enabled:   true,
		ChannelID: "chan-1",
		Header:    "Welcome!",
		Text:      "Hey {user}, enjoy your stay.",
		ImageURL:  "https://example.com/banner.gif",
		Color:     "4169e1",
	}
	user := &discordgo.User{ID: "user-1", Username: "edwin"}

	embed := welcomeEmbed(cfg, user)

	require.Equal(t, "Welcome!", embed.Title)
	require.Equal(t, "Hey <@user-1>, enjoy your stay.", embed.Description)
	require.Equal(t, 0x4169e1, embed.Color)
	require.Equal(t, "https://example.com/banner.gif", embed.Image.URL)
}
