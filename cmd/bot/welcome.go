package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/custom"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// welcomeSetupCmdName is the command for configuring welcome messages.
	welcomeSetupCmdName = "welcome-setup"

	// welcomeChannelOpt is the channel option.
	welcomeChannelOpt = "channel"

	// welcomeHeaderOpt is the embed title option.
	welcomeHeaderOpt = "header"

	// welcomeTextOpt is the embed body option.
	welcomeTextOpt = "text"

	// welcomeImageOpt is the embed image option.
	welcomeImageOpt = "image_url"

	// welcomeColorOpt is the embed colour option.
	welcomeColorOpt = "color"

	// welcomeEnabledOpt toggles the feature.
	welcomeEnabledOpt = "enabled"
)

var welcomeSetupCmd = &discordgo.ApplicationCommand{
	Name:        welcomeSetupCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "Configure the welcome message for this server.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:         welcomeChannelOpt,
			Type:         discordgo.ApplicationCommandOptionChannel,
			Description:  "The channel welcome messages are sent to.",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			Required:     true,
		},
		{
			Name:        welcomeHeaderOpt,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The title of the welcome embed.",
			Required:    true,
		},
		{
			Name:        welcomeTextOpt,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The body of the welcome embed. {user} is replaced with the new member.",
			Required:    true,
		},
		{
			Name:        welcomeImageOpt,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "An image or GIF URL shown on the embed.",
		},
		{
			Name:        welcomeColorOpt,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The embed colour as a 6 digit hex value, e.g. 4169e1.",
		},
		{
			Name:        welcomeEnabledOpt,
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Description: "Whether welcome messages are enabled. Defaults to true.",
		},
	},
}

func welcomeSetupController(a IApp, i *discordgo.InteractionCreate) error {
	// Ensure the user is an administrator.
	if !entitlement.IsAdministrator(i.Member) {
		return respondEphemeral(a, i, messages.ErrUserAdminRequired)
	}

	opts := optionMap(i.ApplicationCommandData().Options)

	channel := opts[welcomeChannelOpt].ChannelValue(a.Session())
	if channel.Type != discordgo.ChannelTypeGuildText {
		return respondEphemeral(a, i, "You must provide a text channel for welcome messages.")
	}

	// Validate the colour before anything is written.
	var color custom.HexColor
	if opt, ok := opts[welcomeColorOpt]; ok {
		parsed, err := custom.ParseHexColor(opt.StringValue())
		if err != nil {
			return respondEphemeral(a, i, fmt.Sprintf("Invalid colour: %s", err.Error()))
		}
		color = parsed
	}

	enabled := true
	if opt, ok := opts[welcomeEnabledOpt]; ok {
		enabled = opt.BoolValue()
	}

	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	guild.Welcome = entities.WelcomeConfig{
		Enabled:   enabled,
		ChannelID: channel.ID,
		Header:    opts[welcomeHeaderOpt].StringValue(),
		Text:      opts[welcomeTextOpt].StringValue(),
		Color:     color,
	}
	if opt, ok := opts[welcomeImageOpt]; ok {
		guild.Welcome.ImageURL = opt.StringValue()
	}

	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	if !enabled {
		return respondEphemeral(a, i, "Welcome messages have been disabled")
	}
	return respondEphemeral(a, i, fmt.Sprintf("Welcome messages have been enabled in channel <#%s>", channel.ID))
}

// memberJoinedHandler sends the configured welcome embed when a member joins.
// A guild without a welcome configuration is silently skipped.
func memberJoinedHandler(a IApp) func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	return func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		guild, err := a.GuildDal().GetGuildByID(context.Background(), m.GuildID)
		if err != nil {
			if !errors.Is(err, mongo.ErrNoDocuments) {
				a.Log().Error("Error getting guild",
					slog.String(logging.KeyGuild, m.GuildID),
					slog.String(logging.KeyError, err.Error()),
				)
			}
			return
		}

		cfg := guild.Welcome
		if !cfg.Enabled || cfg.ChannelID == "" {
			return
		}

		embed := welcomeEmbed(&cfg, m.User)
		if _, err := a.Session().ChannelMessageSendEmbed(cfg.ChannelID, embed); err != nil {
			a.Log().Error("Error sending welcome message",
				slog.String(logging.KeyGuild, m.GuildID),
				slog.String(logging.KeyChannel, cfg.ChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}
}

func welcomeEmbed(cfg *entities.WelcomeConfig, user *discordgo.User) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       cfg.Header,
		Description: strings.ReplaceAll(cfg.Text, entities.WelcomePlaceholder, user.Mention()),
		Color:       cfg.Color.Int(),
		Thumbnail: &discordgo.MessageEmbedThumbnail{
			URL: user.AvatarURL(""),
		},
	}
	if cfg.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: cfg.ImageURL}
	}
	return embed
}
