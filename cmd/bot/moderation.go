package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/custom"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// userOptName is the target user option shared by the moderation commands.
	userOptName = "user"

	// reasonOptName is the reason option.
	reasonOptName = "reason"

	// durationOptName is the timeout duration option.
	durationOptName = "duration"

	// warnIDOptName is the warning ID option.
	warnIDOptName = "warning_id"

	// maxTimeout is the longest timeout the platform accepts.
	maxTimeout = 28 * 24 * time.Hour
)

var banCmd = &discordgo.ApplicationCommand{
	Name:        "ban",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Ban a user from the server.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to ban.",
			Required:    true,
		},
		{
			Name:        reasonOptName,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The reason for the ban.",
		},
	},
}

var unbanCmd = &discordgo.ApplicationCommand{
	Name:        "unban",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Remove a user's ban.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to unban.",
			Required:    true,
		},
	},
}

var muteCmd = &discordgo.ApplicationCommand{
	Name:        "mute",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Time a user out.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to time out.",
			Required:    true,
		},
		{
			Name:        durationOptName,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "How long, e.g. 10m, 1h or 1d.",
			Required:    true,
		},
		{
			Name:        reasonOptName,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The reason for the timeout.",
		},
	},
}

var unmuteCmd = &discordgo.ApplicationCommand{
	Name:        "unmute",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Remove a user's timeout.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to remove the timeout from.",
			Required:    true,
		},
	},
}

var warnCmd = &discordgo.ApplicationCommand{
	Name:        "warn",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Warn a user.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to warn.",
			Required:    true,
		},
		{
			Name:        reasonOptName,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The reason for the warning.",
			Required:    true,
		},
	},
}

var warningsCmd = &discordgo.ApplicationCommand{
	Name:        "warnings",
	Type:        discordgo.ChatApplicationCommand,
	Description: "List a user's warnings.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to list warnings for.",
			Required:    true,
		},
	},
}

var delWarnCmd = &discordgo.ApplicationCommand{
	Name:        "delwarn",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Remove a single warning by its ID.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        warnIDOptName,
			Type:        discordgo.ApplicationCommandOptionString,
			Description: "The warning ID, as shown by /warnings.",
			Required:    true,
		},
	},
}

var clearWarnsCmd = &discordgo.ApplicationCommand{
	Name:        "clearwarns",
	Type:        discordgo.ChatApplicationCommand,
	Description: "Remove all of a user's warnings.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        userOptName,
			Type:        discordgo.ApplicationCommandOptionUser,
			Description: "The user to clear warnings for.",
			Required:    true,
		},
	},
}

// requireModeration gates a moderation command on a permission bit.
// Administrators always pass.
func requireModeration(a IApp, i *discordgo.InteractionCreate, bit int64) (bool, error) {
	if entitlement.IsAdministrator(i.Member) || i.Member.Permissions&bit == bit {
		return true, nil
	}
	return false, respondEphemeral(a, i, messages.ErrUserNotAuthorized)
}

// dmUser sends a direct message, best-effort. Closed DMs are only logged.
func dmUser(a IApp, userID, content string) {
	channel, err := a.Session().UserChannelCreate(userID)
	if err == nil {
		_, err = a.Session().ChannelMessageSend(channel.ID, content)
	}
	if err != nil {
		a.Log().Warn("Error sending DM",
			slog.String(logging.KeyUser, userID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func banController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionBanMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	reason := ""
	if opt, exists := opts[reasonOptName]; exists {
		reason = opt.StringValue()
	}

	// The DM has to go out before the ban lands; a banned user shares no
	// guild with the bot any more.
	if reason != "" {
		dmUser(a, user.ID, fmt.Sprintf("You have been banned: %s", reason))
	} else {
		dmUser(a, user.ID, "You have been banned")
	}

	if err := a.Session().GuildBanCreateWithReason(i.GuildID, user.ID, reason, 0); err != nil {
		return fmt.Errorf("error banning user: %w", err)
	}

	if err := a.ModerationDal().SaveBan(context.Background(), &entities.BanRecord{
		GuildID:   i.GuildID,
		UserID:    user.ID,
		IssuerID:  i.Member.User.ID,
		Reason:    reason,
		CreatedAt: custom.Datetime(time.Now().UTC()),
	}); err != nil {
		return fmt.Errorf("error saving ban record: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Banned <@%s>", user.ID))
}

func unbanController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionBanMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	if err := a.Session().GuildBanDelete(i.GuildID, user.ID); err != nil {
		return fmt.Errorf("error unbanning user: %w", err)
	}

	// A missing audit row means the ban predates the bot; the unban stands.
	if err := a.ModerationDal().DeleteBan(context.Background(), i.GuildID, user.ID); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("error deleting ban record: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Unbanned <@%s>", user.ID))
}

func muteController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	duration, err := parseTimeoutDuration(opts[durationOptName].StringValue())
	if err != nil {
		return respondEphemeral(a, i, fmt.Sprintf("Invalid duration: %s", err.Error()))
	}

	until := time.Now().UTC().Add(duration)
	if err := a.Session().GuildMemberTimeout(i.GuildID, user.ID, &until); err != nil {
		return fmt.Errorf("error timing out user: %w", err)
	}

	if opt, exists := opts[reasonOptName]; exists {
		dmUser(a, user.ID, fmt.Sprintf("You have been timed out for %s: %s", duration, opt.StringValue()))
	}

	return respondEphemeral(a, i, fmt.Sprintf("Timed out <@%s> for %s", user.ID, duration))
}

func unmuteController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	if err := a.Session().GuildMemberTimeout(i.GuildID, user.ID, nil); err != nil {
		return fmt.Errorf("error removing timeout: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Removed the timeout from <@%s>", user.ID))
}

func warnController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())
	reason := opts[reasonOptName].StringValue()

	if err := a.ModerationDal().SaveWarn(context.Background(), &entities.WarnRecord{
		GuildID:   i.GuildID,
		UserID:    user.ID,
		IssuerID:  i.Member.User.ID,
		Reason:    reason,
		CreatedAt: custom.Datetime(time.Now().UTC()),
	}); err != nil {
		return fmt.Errorf("error saving warning: %w", err)
	}

	dmUser(a, user.ID, fmt.Sprintf("You have been warned: %s", reason))

	return respondEphemeral(a, i, fmt.Sprintf("Warned <@%s>", user.ID))
}

func warningsController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	warns, err := a.ModerationDal().GetWarnsByUser(context.Background(), i.GuildID, user.ID)
	if err != nil {
		return fmt.Errorf("error getting warnings: %w", err)
	}

	if len(warns) == 0 {
		return respondEphemeral(a, i, fmt.Sprintf("<@%s> has no warnings", user.ID))
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(warns))
	for n, w := range warns {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("#%d — %s", n+1, time.Time(w.CreatedAt).Format("2006-01-02 15:04")),
			Value: fmt.Sprintf("%s (by <@%s>, id `%s`)", w.Reason, w.IssuerID, w.ID),
		})
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:  fmt.Sprintf("Warnings for %s", user.Username),
					Fields: fields,
					Color:  0xfee75c,
				},
			},
		},
	})
}

func delWarnController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	id := opts[warnIDOptName].StringValue()

	if err := a.ModerationDal().DeleteWarn(context.Background(), i.GuildID, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return respondEphemeral(a, i, fmt.Sprintf("No warning with id `%s`", id))
		}
		return fmt.Errorf("error deleting warning: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Removed warning `%s`", id))
}

func clearWarnsController(a IApp, i *discordgo.InteractionCreate) error {
	ok, err := requireModeration(a, i, discordgo.PermissionModerateMembers)
	if !ok {
		return err
	}

	opts := optionMap(i.ApplicationCommandData().Options)
	user := opts[userOptName].UserValue(a.Session())

	deleted, err := a.ModerationDal().ClearWarns(context.Background(), i.GuildID, user.ID)
	if err != nil {
		return fmt.Errorf("error clearing warnings: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Removed %d warnings from <@%s>", deleted, user.ID))
}

// parseTimeoutDuration parses durations like 10m, 1h or 1d.
func parseTimeoutDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("duration is required")
	}

	unit := time.Minute
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown unit %q: use m, h or d", s[len(s)-1:])
	}

	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	d := time.Duration(n) * unit
	if d > maxTimeout {
		return 0, fmt.Errorf("duration %q exceeds the 28 day limit", s)
	}
	return d, nil
}
