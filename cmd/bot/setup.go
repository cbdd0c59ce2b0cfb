package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// setupCmdName is the command for all configuration commands.
	setupCmdName = "setup"

	// enableTicketingCmdName is the sub command enabling ticketing.
	enableTicketingCmdName = "ticketing_enable"

	// disableTicketingCmdName is the sub command disabling ticketing.
	disableTicketingCmdName = "ticketing_disable"

	// categoryOptName is the category option.
	categoryOptName = "category"

	// roleOptName is the support role option.
	roleOptName = "role"

	// logChannelOptName is the log channel option.
	logChannelOptName = "log_channel"

	// closePolicyOptName is the close policy option.
	closePolicyOptName = "close_policy"
)

var setupCmd = &discordgo.ApplicationCommand{
	Name:        setupCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for all configuration commands.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        enableTicketingCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This will enable ticketing under the category you specify.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         categoryOptName,
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "This is the category ticket channels are created under.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
					Required:     true,
				},
				{
					Name:        roleOptName,
					Type:        discordgo.ApplicationCommandOptionRole,
					Description: "This is the role you want to handle tickets.",
					Required:    true,
				},
				{
					Name:         logChannelOptName,
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "This is the channel ticket events and transcripts are logged to.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{
					Name:        closePolicyOptName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "Who may close a ticket. Defaults to anyone.",
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "Anyone", Value: string(entities.ClosePolicyAnyone)},
						{Name: "Staff only", Value: string(entities.ClosePolicyStaff)},
						{Name: "Opener or staff", Value: string(entities.ClosePolicyOpenerOrStaff)},
					},
				},
			},
		},
		{
			Name:        disableTicketingCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "This will disable ticketing for your server.",
		},
	},
}

// getOrCreateGuild loads the guild configuration row, starting a fresh one
// when none exists yet.
func getOrCreateGuild(a IApp, guildID string) (*entities.Guild, error) {
	guild, err := a.GuildDal().GetGuildByID(context.Background(), guildID)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error getting guild: %w", err)
		}
		guild = &entities.Guild{
			ID: guildID,
		}
	}
	return guild, nil
}

func setupController(a IApp, i *discordgo.InteractionCreate) error {
	// Ensure the user is an administrator before anything is written.
	if !entitlement.IsAdministrator(i.Member) {
		return respondEphemeral(a, i, messages.ErrUserAdminRequired)
	}

	// Extract the sub command.
	subCmd := i.ApplicationCommandData().Options[0]

	switch subCmd.Name {
	case enableTicketingCmdName:
		return enableTicketingController(a, i, subCmd)
	case disableTicketingCmdName:
		return disableTicketingController(a, i)
	default:
		return fmt.Errorf("unhandled sub command %s", subCmd.Name)
	}
}

// enableTicketingController enables ticketing for the guild. The panel itself
// is configured and published separately.
func enableTicketingController(a IApp, i *discordgo.InteractionCreate, subCmd *discordgo.ApplicationCommandInteractionDataOption) error {
	opts := optionMap(subCmd.Options)

	// Extract the category provided.
	category := opts[categoryOptName].ChannelValue(a.Session())
	if category.Type != discordgo.ChannelTypeGuildCategory {
		return respondEphemeral(a, i, "You must provide a category for ticket channels.")
	}

	// Extract the role provided.
	role := opts[roleOptName].RoleValue(a.Session(), i.GuildID)

	policy := entities.ClosePolicyAnyone
	if opt, ok := opts[closePolicyOptName]; ok {
		parsed, valid := entities.ParseClosePolicy(opt.StringValue())
		if !valid {
			return respondEphemeral(a, i, fmt.Sprintf("Unknown close policy %q", opt.StringValue()))
		}
		policy = parsed
	}

	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	// Enable ticketing for the guild. The panel buttons and message survive a
	// reconfigure; only the placement settings change.
	guild.Ticketing.Enabled = true
	guild.Ticketing.CategoryID = category.ID
	guild.Ticketing.RoleID = role.ID
	guild.Ticketing.ClosePolicy = policy

	if opt, ok := opts[logChannelOptName]; ok {
		guild.Ticketing.LogChannelID = opt.ChannelValue(a.Session()).ID
	}

	// Save the guild.
	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	if err := respondEphemeral(a, i, fmt.Sprintf("Ticketing has been enabled under category <#%s>", category.ID)); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}
	return nil
}

// disableTicketingController disables ticketing for the guild. The panel
// configuration is kept for a later re-enable.
func disableTicketingController(a IApp, i *discordgo.InteractionCreate) error {
	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	// Disable ticketing for the guild.
	guild.Ticketing.Enabled = false

	// Save the guild.
	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	if err := respondEphemeral(a, i, "Ticketing has been disabled"); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}
	return nil
}
