package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/messages"
	"github.com/edwin961/DragonsBot/pkg/ticketing"
)

const (
	// panelCmdName is the command for configuring the ticket panel.
	panelCmdName = "panel"

	// addButtonCmdName is the sub command adding one panel button.
	addButtonCmdName = "add"

	// clearButtonsCmdName is the sub command removing all panel buttons.
	clearButtonsCmdName = "clear"

	// publishPanelCmdName is the sub command posting the panel message.
	publishPanelCmdName = "publish"

	// panelChannelOptName is the channel option of the publish sub command.
	panelChannelOptName = "channel"

	// panelModalPrefix prefixes the add-button modal custom ID.
	panelModalPrefix = "panel_add"

	// maxPanelButtons is the platform limit of 5 action rows of 5 buttons.
	maxPanelButtons = 25
)

// Modal input custom IDs.
const (
	panelInputName     = "name"
	panelInputEmoji    = "emoji"
	panelInputColor    = "color"
	panelInputCategory = "category"
)

var panelCmd = &discordgo.ApplicationCommand{
	Name:        panelCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for configuring the ticket panel.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        addButtonCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Add a button to the ticket panel.",
		},
		{
			Name:        clearButtonsCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Remove all buttons from the ticket panel.",
		},
		{
			Name:        publishPanelCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Post the ticket panel in a channel.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:         panelChannelOptName,
					Type:         discordgo.ApplicationCommandOptionChannel,
					Description:  "The channel to post the panel in.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
					Required:     true,
				},
			},
		},
	},
}

func panelController(a IApp, i *discordgo.InteractionCreate) error {
	// Ensure the user is an administrator before anything is written.
	if !entitlement.IsAdministrator(i.Member) {
		return respondEphemeral(a, i, messages.ErrUserAdminRequired)
	}

	subCmd := i.ApplicationCommandData().Options[0]

	switch subCmd.Name {
	case addButtonCmdName:
		return addButtonController(a, i)
	case clearButtonsCmdName:
		return clearButtonsController(a, i)
	case publishPanelCmdName:
		return publishPanelController(a, i, subCmd)
	default:
		return fmt.Errorf("unhandled sub command %s", subCmd.Name)
	}
}

// addButtonController opens the button configuration modal. All fields arrive
// in a single submission, so a half-configured button can never be stored.
func addButtonController(a IApp, i *discordgo.InteractionCreate) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: panelModalPrefix,
			Title:    "Add a panel button",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  panelInputName,
						Label:     "Button label",
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: 80,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    panelInputEmoji,
						Label:       "Emoji (optional)",
						Style:       discordgo.TextInputShort,
						Placeholder: "\U0001F3AB",
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    panelInputColor,
						Label:       "Color",
						Style:       discordgo.TextInputShort,
						Placeholder: "blurple, grey, green or red",
						Required:    true,
					},
				}},
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:  panelInputCategory,
						Label:     "Ticket category",
						Style:     discordgo.TextInputShort,
						Required:  true,
						MaxLength: 80,
					},
				}},
			},
		},
	})
}

// panelModalController stores the submitted button. Validation failures are
// surfaced to the admin and nothing is written.
func panelModalController(a IApp, i *discordgo.InteractionCreate, _ string) error {
	data := i.ModalSubmitData()

	button := entities.TicketButton{
		Label:    modalInputValue(data, panelInputName),
		Emoji:    modalInputValue(data, panelInputEmoji),
		Style:    modalInputValue(data, panelInputColor),
		Category: modalInputValue(data, panelInputCategory),
	}

	if err := button.Validate(); err != nil {
		return respondEphemeral(a, i, fmt.Sprintf("Invalid button: %s", err.Error()))
	}

	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if len(guild.Ticketing.Buttons) >= maxPanelButtons {
		return respondEphemeral(a, i, fmt.Sprintf("The panel already has the maximum of %d buttons", maxPanelButtons))
	}

	// Labels and categories are both unique: one label per button, and the
	// category keys the button's custom ID, so a panel can only carry one
	// button per category.
	for _, b := range guild.Ticketing.Buttons {
		if b.Label == button.Label {
			return respondEphemeral(a, i, fmt.Sprintf("A button labelled %q already exists, clear the panel to start over", button.Label))
		}
		if b.Category == button.Category {
			return respondEphemeral(a, i, fmt.Sprintf("Button %q already opens %q tickets, clear the panel to start over", b.Label, b.Category))
		}
	}

	guild.Ticketing.Buttons = append(guild.Ticketing.Buttons, button)

	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Button %q added. Publish the panel to apply the change.", button.Label))
}

// clearButtonsController removes every stored panel button.
func clearButtonsController(a IApp, i *discordgo.InteractionCreate) error {
	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	guild.Ticketing.Buttons = nil

	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, "All panel buttons have been removed")
}

// publishPanelController posts the panel message and records its location. A
// previously posted panel is deleted best-effort.
func publishPanelController(a IApp, i *discordgo.InteractionCreate, subCmd *discordgo.ApplicationCommandInteractionDataOption) error {
	opts := optionMap(subCmd.Options)
	channel := opts[panelChannelOptName].ChannelValue(a.Session())

	guild, err := getOrCreateGuild(a, i.GuildID)
	if err != nil {
		return err
	}

	if !guild.Ticketing.Enabled {
		return respondEphemeral(a, i, "Ticketing is not enabled, run /setup ticketing_enable first")
	}
	if len(guild.Ticketing.Buttons) == 0 {
		return respondEphemeral(a, i, "The panel has no buttons, add one with /panel add first")
	}

	msg, err := a.Session().ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Title:       "Support Tickets",
				Description: "Press a button below to open a ticket.",
				Color:       0x5865f2,
			},
		},
		Components: panelComponents(guild.Ticketing.Buttons),
	})
	if err != nil {
		return fmt.Errorf("error sending panel message: %w", err)
	}

	// Remove the previous panel so only one is active.
	if guild.Ticketing.PanelChannelID != "" && guild.Ticketing.PanelMessageID != "" {
		if err := a.Session().ChannelMessageDelete(guild.Ticketing.PanelChannelID, guild.Ticketing.PanelMessageID); err != nil {
			a.Log().Warn("Error deleting previous panel message",
				slog.String(logging.KeyChannel, guild.Ticketing.PanelChannelID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}

	guild.Ticketing.PanelChannelID = channel.ID
	guild.Ticketing.PanelMessageID = msg.ID

	if err := a.GuildDal().SaveGuild(context.Background(), guild); err != nil {
		return fmt.Errorf("error saving guild: %w", err)
	}

	return respondEphemeral(a, i, fmt.Sprintf("Panel published in <#%s>", channel.ID))
}

// panelComponents renders the stored buttons, five per action row.
func panelComponents(buttons []entities.TicketButton) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var row []discordgo.MessageComponent

	for _, b := range buttons {
		btn := discordgo.Button{
			Label:    b.Label,
			Style:    buttonStyle(b.Style),
			CustomID: ticketing.OpenButtonID(b.Category),
		}
		if b.Emoji != "" {
			btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
		}

		row = append(row, btn)
		if len(row) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func buttonStyle(style string) discordgo.ButtonStyle {
	switch style {
	case entities.ButtonStyleGrey:
		return discordgo.SecondaryButton
	case entities.ButtonStyleGreen:
		return discordgo.SuccessButton
	case entities.ButtonStyleRed:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}
