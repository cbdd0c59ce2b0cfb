package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/backup"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/messages"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// backupCmdName is the command for guild snapshots.
	backupCmdName = "backup"

	// createBackupCmdName is the sub command taking a snapshot.
	createBackupCmdName = "create"

	// restoreBackupCmdName is the sub command restoring a snapshot.
	restoreBackupCmdName = "restore"

	// snapshotIdOptName is the snapshot ID option of the restore sub command.
	snapshotIdOptName = "snapshot_id"

	// backupConfirmButtonPrefix prefixes the restore confirmation button. The
	// pending exchange token follows the prefix.
	backupConfirmButtonPrefix = "backup_confirm:"

	// backupCancelButtonPrefix prefixes the restore cancellation button.
	backupCancelButtonPrefix = "backup_cancel:"

	// confirmationExpiry is how long a restore confirmation stays valid.
	confirmationExpiry = 60 * time.Second
)

var backupCmd = &discordgo.ApplicationCommand{
	Name:        backupCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "This is the command for guild snapshots.",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        createBackupCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Take a snapshot of this server's roles, channels and emojis.",
		},
		{
			Name:        restoreBackupCmdName,
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Description: "Restore a snapshot into this server.",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Name:        snapshotIdOptName,
					Type:        discordgo.ApplicationCommandOptionString,
					Description: "The snapshot to restore. Defaults to the most recent one.",
				},
			},
		},
	},
}

// pendingRestore is one restore awaiting its confirmation button press.
type pendingRestore struct {
	guildID    string
	snapshotID string
	ownerID    string
	expiry     *time.Timer
}

// pendingRestores holds the confirmations in flight, keyed by exchange
// token. One instance hangs off the App.
type pendingRestores struct {
	mtx sync.Mutex
	m   map[string]*pendingRestore
}

func newPendingRestores() *pendingRestores {
	return &pendingRestores{m: make(map[string]*pendingRestore)}
}

func (p *pendingRestores) put(token string, pending *pendingRestore) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.m[token] = pending
}

// take removes and returns the pending restore for a token. A nil result
// means the exchange already expired or was consumed.
func (p *pendingRestores) take(token string) *pendingRestore {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	pending, ok := p.m[token]
	if !ok {
		return nil
	}
	delete(p.m, token)

	if pending.expiry != nil {
		pending.expiry.Stop()
	}
	return pending
}

func backupController(a IApp, i *discordgo.InteractionCreate) error {
	// Snapshots move the whole guild structure, so both directions are
	// restricted to the guild owner.
	guild, err := a.Session().Guild(i.GuildID)
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}
	if !entitlement.IsGuildOwner(guild, i.Member.User.ID) {
		return respondEphemeral(a, i, messages.ErrUserOwnerRequired)
	}

	subCmd := i.ApplicationCommandData().Options[0]

	switch subCmd.Name {
	case createBackupCmdName:
		return createBackupController(a, i)
	case restoreBackupCmdName:
		return restoreBackupController(a, i, subCmd)
	default:
		return fmt.Errorf("unhandled sub command %s", subCmd.Name)
	}
}

func createBackupController(a IApp, i *discordgo.InteractionCreate) error {
	// Reading a large guild takes a few platform calls.
	if err := deferEphemeral(a, i); err != nil {
		return fmt.Errorf("error acknowledging interaction: %w", err)
	}

	snapshot, err := a.BackupManager().Snapshot(context.Background(), i.GuildID)
	if err != nil {
		return fmt.Errorf("error taking snapshot: %w", err)
	}

	return followUpEphemeral(a, i, fmt.Sprintf("Snapshot `%s` created: %d roles, %d channels, %d emojis.",
		snapshot.ID, len(snapshot.Roles), len(snapshot.Channels), len(snapshot.Emojis)))
}

func restoreBackupController(a IApp, i *discordgo.InteractionCreate, subCmd *discordgo.ApplicationCommandInteractionDataOption) error {
	opts := optionMap(subCmd.Options)

	var snapshot *entities.GuildSnapshot
	var err error
	if opt, ok := opts[snapshotIdOptName]; ok {
		snapshot, err = a.SnapshotDal().GetSnapshot(context.Background(), i.GuildID, opt.StringValue())
	} else {
		snapshot, err = a.SnapshotDal().LatestSnapshot(context.Background(), i.GuildID)
	}
	if err != nil {
		return respondEphemeral(a, i, "No snapshot found for this server")
	}

	token, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("error generating confirmation token: %w", err)
	}

	pending := &pendingRestore{
		guildID:    i.GuildID,
		snapshotID: snapshot.ID,
		ownerID:    i.Member.User.ID,
	}

	// The prompt self-destructs when the expiry lapses without a press.
	interaction := i.Interaction
	pending.expiry = time.AfterFunc(confirmationExpiry, func() {
		if a.PendingRestores().take(token) == nil {
			return
		}
		content := messages.ErrUserConfirmationTimeout
		if _, err := a.Session().InteractionResponseEdit(interaction, &discordgo.WebhookEdit{
			Content:    &content,
			Components: &[]discordgo.MessageComponent{},
		}); err != nil {
			a.Log().Warn("Error expiring restore confirmation", slog.String(logging.KeyError, err.Error()))
		}
	})

	a.PendingRestores().put(token, pending)

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("Restore snapshot `%s` of **%s** (%d roles, %d channels, %d emojis) into this server?",
				snapshot.ID, snapshot.GuildName, len(snapshot.Roles), len(snapshot.Channels), len(snapshot.Emojis)),
			Flags: discordgo.MessageFlagsEphemeral,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Restore",
						Style:    discordgo.DangerButton,
						CustomID: backupConfirmButtonPrefix + token,
					},
					discordgo.Button{
						Label:    "Cancel",
						Style:    discordgo.SecondaryButton,
						CustomID: backupCancelButtonPrefix + token,
					},
				}},
			},
		},
	})
}

func backupConfirmButton(a IApp, i *discordgo.InteractionCreate, customID string) error {
	token := strings.TrimPrefix(customID, backupConfirmButtonPrefix)

	pending := a.PendingRestores().take(token)
	if pending == nil {
		return respondEphemeral(a, i, messages.ErrUserConfirmationTimeout)
	}
	if pending.ownerID != i.Member.User.ID || pending.guildID != i.GuildID {
		return respondEphemeral(a, i, messages.ErrUserNotAuthorized)
	}

	// Swap the prompt for a progress note before the long-running restore.
	if err := a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Restoring, this can take a while...",
			Components: []discordgo.MessageComponent{},
		},
	}); err != nil {
		return fmt.Errorf("error responding to interaction: %w", err)
	}

	snapshot, err := a.SnapshotDal().GetSnapshot(context.Background(), pending.guildID, pending.snapshotID)
	if err != nil {
		return fmt.Errorf("error getting snapshot: %w", err)
	}

	res, err := a.BackupManager().Restore(context.Background(), pending.guildID, a.Session().State.User.ID, snapshot)
	if err != nil {
		var missing *backup.MissingCapabilitiesError
		if errors.As(err, &missing) {
			return followUpEphemeral(a, i, fmt.Sprintf("Restore aborted before any change: %s.", missing.Error()))
		}
		return fmt.Errorf("error restoring snapshot: %w", err)
	}

	return followUpEphemeral(a, i, res.Summary())
}

func backupCancelButton(a IApp, i *discordgo.InteractionCreate, customID string) error {
	token := strings.TrimPrefix(customID, backupCancelButtonPrefix)

	if a.PendingRestores().take(token) == nil {
		return respondEphemeral(a, i, messages.ErrUserConfirmationTimeout)
	}

	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    "Restore cancelled, nothing was changed.",
			Components: []discordgo.MessageComponent{},
		},
	})
}
