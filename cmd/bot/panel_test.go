package main

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestPanelComponents(t *testing.T) {
	buttons := make([]entities.TicketButton, 7)
	for n := range buttons {
		buttons[n] = entities.TicketButton{
			Label:    fmt.Sprintf("Button %d", n),
			Style:    entities.ButtonStyleGreen,
			Category: fmt.Sprintf("category-%d", n),
		}
	}

	rows := panelComponents(buttons)

	// Five buttons per row, remainder on its own row.
	require.Len(t, rows, 2)
	first := rows[0].(discordgo.ActionsRow)
	require.Len(t, first.Components, 5)
	second := rows[1].(discordgo.ActionsRow)
	require.Len(t, second.Components, 2)

	// Custom IDs carry the category so they survive a restart.
	btn := first.Components[0].(discordgo.Button)
	require.Equal(t, "ticket_open:category-0", btn.CustomID)
}

func TestPanelModalRejectsDuplicateCategory(t *testing.T) {
	a, dal, rt := testApp(t)
	dal.guilds["guild-1"] = &entities.Guild{
		ID: "guild-1",
		Ticketing: entities.TicketingConfig{
			Enabled: true,
			Buttons: []entities.TicketButton{
				{Label: "Bug", Style: entities.ButtonStyleRed, Category: "support"},
			},
		},
	}

	// A second button for the same category would collide on the panel's
	// custom IDs, so the submission is rejected without a write.
	i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-1",
		Token:   "token-1",
		GuildID: "guild-1",
		Type:    discordgo.InteractionModalSubmit,
		Member:  &discordgo.Member{User: &discordgo.User{ID: "admin-1"}, Permissions: discordgo.PermissionAdministrator},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: panelModalPrefix,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: panelInputName, Value: "Bug report"},
				}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: panelInputColor, Value: entities.ButtonStyleGreen},
				}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: panelInputCategory, Value: "support"},
				}},
			},
		},
	}}

	require.NoError(t, panelModalController(a, i, panelModalPrefix))

	require.Zero(t, dal.saves)
	require.Len(t, rt.requests, 1)
	require.Contains(t, rt.bodies[0], "already opens")
}

func TestButtonStyle(t *testing.T) {
	require.Equal(t, discordgo.PrimaryButton, buttonStyle(entities.ButtonStyleBlurple))
	require.Equal(t, discordgo.SecondaryButton, buttonStyle(entities.ButtonStyleGrey))
	require.Equal(t, discordgo.SuccessButton, buttonStyle(entities.ButtonStyleGreen))
	require.Equal(t, discordgo.DangerButton, buttonStyle(entities.ButtonStyleRed))
}
