package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"github.com/edwin961/DragonsBot/pkg/ticketing"
	"go.mongodb.org/mongo-driver/mongo"
)

// openTicketButton handles a press on one of the panel buttons. The pressed
// button's custom ID carries the ticket category.
func openTicketButton(a IApp, i *discordgo.InteractionCreate, customID string) error {
	category, ok := ticketing.ParseOpenButtonID(customID)
	if !ok {
		return fmt.Errorf("malformed panel button custom ID %q", customID)
	}

	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}
	if !guild.Ticketing.Enabled {
		return respondEphemeral(a, i, "Ticketing is not enabled on this server")
	}

	// Channel provisioning takes several platform calls, so acknowledge the
	// press first and report the outcome as a follow-up.
	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error acknowledging interaction: %w", err)
	}

	ticket, err := a.TicketManager().Create(context.Background(), &guild.Ticketing, ticketing.CreateRequest{
		GuildID:  i.GuildID,
		UserID:   i.Member.User.ID,
		Username: i.Member.User.Username,
		Category: category,
	})
	if err != nil {
		var alreadyOpen *ticketing.AlreadyOpenError
		if errors.As(err, &alreadyOpen) {
			return followUpEphemeral(a, i, fmt.Sprintf("You already have an open ticket in <#%s>", alreadyOpen.ChannelID))
		}
		return fmt.Errorf("error creating ticket: %w", err)
	}

	return followUpEphemeral(a, i, fmt.Sprintf("Your ticket has been created in <#%s>", ticket.ChannelID))
}

// closeTicketButton handles the close button inside a ticket channel. The
// guild's close policy decides who may press it.
func closeTicketButton(a IApp, i *discordgo.InteractionCreate, _ string) error {
	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	ticket, err := a.TicketDal().GetTicket(context.Background(), i.GuildID, i.ChannelID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return respondEphemeral(a, i, messages.ErrUserNotTicketChannel)
		}
		return fmt.Errorf("error getting ticket: %w", err)
	}

	if !ticketing.CanClose(guild.Ticketing.ClosePolicy, ticket, i.Member, guild.Ticketing.RoleID) {
		return respondEphemeral(a, i, messages.ErrUserNotAuthorized)
	}

	// Respond before the close runs; the channel is deleted after the grace
	// delay, at which point the interaction can no longer be answered.
	if err := respondEphemeral(a, i, "Closing this ticket"); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	if _, err := a.TicketManager().Close(context.Background(), &guild.Ticketing, i.GuildID, i.ChannelID, i.Member.User.ID); err != nil {
		if errors.Is(err, ticketing.ErrTicketClosed) {
			a.Log().Warn("Close pressed on an already closed ticket", slog.String(logging.KeyChannel, i.ChannelID))
			return nil
		}
		return fmt.Errorf("error closing ticket: %w", err)
	}

	return nil
}
