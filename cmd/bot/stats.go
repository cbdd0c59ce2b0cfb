package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
)

// statsCmd is the read-only stats command.
var statsCmd = &discordgo.ApplicationCommand{
	Name:        "stats",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Show bot statistics.",
}

func statsController(a IApp, i *discordgo.InteractionCreate) error {
	uptime := time.Since(a.StartedAt()).Round(time.Second)

	guilds := len(a.Session().State.Guilds)

	open, err := a.TicketDal().CountTickets(context.Background(), i.GuildID, entities.TicketStatusOpen)
	if err != nil {
		return fmt.Errorf("error counting open tickets: %w", err)
	}

	closed, err := a.TicketDal().CountTickets(context.Background(), i.GuildID, entities.TicketStatusClosed)
	if err != nil {
		return fmt.Errorf("error counting closed tickets: %w", err)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title: "Bot statistics",
					Color: 0x5865f2,
					Fields: []*discordgo.MessageEmbedField{
						{Name: "Uptime", Value: uptime.String(), Inline: true},
						{Name: "Servers", Value: fmt.Sprintf("%d", guilds), Inline: true},
						{Name: "Open tickets", Value: fmt.Sprintf("%d", open), Inline: true},
						{Name: "Closed tickets", Value: fmt.Sprintf("%d", closed), Inline: true},
					},
				},
			},
		},
	})
}
