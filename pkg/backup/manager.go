// Package backup serializes a guild's structural configuration to a snapshot
// row and replays a snapshot against a live guild. Restore is best-effort:
// individual items that fail are logged and skipped, never fatal, except the
// capability precondition which aborts before anything is written.
package backup

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/custom"
	"github.com/edwin961/DragonsBot/pkg/dataaccess"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/entitlement"
	"github.com/edwin961/DragonsBot/pkg/logging"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/time/rate"
)

// Session is the slice of the discord session the snapshot/restore manager
// uses.
type Session interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildRoleReorder(guildID string, roles []*discordgo.Role, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildEmojiCreate(guildID string, data *discordgo.EmojiParams, options ...discordgo.RequestOption) (*discordgo.Emoji, error)
	GuildEdit(guildID string, g *discordgo.GuildParams, options ...discordgo.RequestOption) (*discordgo.Guild, error)
}

// MissingCapabilitiesError aborts a restore whose bot membership lacks a
// required capability. Nothing has been written when it is returned.
type MissingCapabilitiesError struct {
	// Missing are the absent capability names.
	Missing []string
}

func (e *MissingCapabilitiesError) Error() string {
	return fmt.Sprintf("the bot is missing the following capabilities: %s", strings.Join(e.Missing, ", "))
}

// Result summarises a restore. Individual skipped items are only visible in
// the process logs.
type Result struct {
	// RolesCreated is the number of roles recreated.
	RolesCreated int

	// ChannelsCreated is the number of channels and categories recreated.
	ChannelsCreated int

	// EmojisCreated is the number of emojis re-uploaded.
	EmojisCreated int

	// Skipped is the number of items that failed and were skipped.
	Skipped int
}

// Summary renders the result as the free-text line reported to the invoker.
func (r *Result) Summary() string {
	return fmt.Sprintf("Restored %d roles, %d channels and %d emojis (%d items skipped).",
		r.RolesCreated, r.ChannelsCreated, r.EmojisCreated, r.Skipped)
}

type Manager struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s Session

	// snapshots is the snapshot data access layer.
	snapshots dataaccess.SnapshotDal

	// limiter paces guild mutations during a restore. Bulk recreation of
	// roles and channels trips the platform's rate limits otherwise.
	limiter *rate.Limiter

	// httpc fetches emoji images during a restore.
	httpc *http.Client
}

// NewManager creates a new snapshot/restore manager.
func NewManager(l *slog.Logger, s Session, snapshots dataaccess.SnapshotDal) *Manager {
	return &Manager{
		l:         l,
		s:         s,
		snapshots: snapshots,
		limiter:   rate.NewLimiter(rate.Every(250*time.Millisecond), 5),
		httpc:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot captures the guild's roles, channels and emojis into one immutable
// snapshot row and returns it.
func (m *Manager) Snapshot(ctx context.Context, guildID string) (*entities.GuildSnapshot, error) {
	guild, err := m.s.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	roles, err := m.s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting roles: %w", err)
	}

	channels, err := m.s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting channels: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("error generating snapshot id: %w", err)
	}

	snapshot := &entities.GuildSnapshot{
		ID:            id,
		GuildID:       guildID,
		GuildName:     guild.Name,
		SchemaVersion: entities.SnapshotSchemaVersion,
		CreatedAt:     custom.Datetime(time.Now().UTC()),
	}

	for _, role := range roles {
		// @everyone and integration-managed roles cannot be recreated.
		if role.ID == guildID || role.Managed {
			continue
		}
		snapshot.Roles = append(snapshot.Roles, entities.RoleSnapshot{
			ID:          role.ID,
			Name:        role.Name,
			Permissions: role.Permissions,
			Color:       role.Color,
			Position:    role.Position,
			Hoist:       role.Hoist,
			Mentionable: role.Mentionable,
		})
	}

	// Category names resolve channel parents across guilds, where IDs do not.
	categoryNames := make(map[string]string)
	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildCategory {
			categoryNames[channel.ID] = channel.Name
		}
	}

	for _, channel := range channels {
		cs := entities.ChannelSnapshot{
			ID:               channel.ID,
			Name:             channel.Name,
			Type:             int(channel.Type),
			ParentName:       categoryNames[channel.ParentID],
			Position:         channel.Position,
			Topic:            channel.Topic,
			NSFW:             channel.NSFW,
			Bitrate:          channel.Bitrate,
			UserLimit:        channel.UserLimit,
			RateLimitPerUser: channel.RateLimitPerUser,
		}
		for _, ow := range channel.PermissionOverwrites {
			// Member-targeted overwrites are dropped; member IDs do not
			// carry over to another guild.
			if ow.Type != discordgo.PermissionOverwriteTypeRole {
				continue
			}
			cs.Overwrites = append(cs.Overwrites, entities.OverwriteSnapshot{
				RoleID: ow.ID,
				Allow:  ow.Allow,
				Deny:   ow.Deny,
			})
		}
		snapshot.Channels = append(snapshot.Channels, cs)
	}

	for _, emoji := range guild.Emojis {
		snapshot.Emojis = append(snapshot.Emojis, entities.EmojiSnapshot{
			ID:       emoji.ID,
			Name:     emoji.Name,
			ImageURL: fmt.Sprintf("https://cdn.discordapp.com/emojis/%s.png", emoji.ID),
		})
	}

	if err := m.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("error saving snapshot: %w", err)
	}

	return snapshot, nil
}

// Restore replays a snapshot against the target guild. The bot's own
// membership must hold every restore capability or the whole operation aborts
// before any write. Each subsequent step is best-effort.
func (m *Manager) Restore(ctx context.Context, guildID, botUserID string, snapshot *entities.GuildSnapshot) (*Result, error) {
	guild, err := m.s.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting guild: %w", err)
	}

	botMember, err := m.s.GuildMember(guildID, botUserID)
	if err != nil {
		return nil, fmt.Errorf("error getting bot membership: %w", err)
	}

	perms := entitlement.MemberPermissions(guild, botMember)
	if missing := entitlement.MissingCapabilities(perms); len(missing) > 0 {
		return nil, &MissingCapabilitiesError{Missing: missing}
	}

	res := new(Result)

	// Old role IDs map to new ones so overwrites can be remapped. The source
	// guild ID maps onto the target so @everyone overwrites carry over.
	roleMap := map[string]string{
		snapshot.GuildID: guildID,
	}

	if err := m.restoreRoles(ctx, guildID, snapshot, roleMap, res); err != nil {
		return res, err
	}

	categoryMap, err := m.restoreCategories(ctx, guildID, snapshot, roleMap, res)
	if err != nil {
		return res, err
	}

	if err := m.restoreChannels(ctx, guildID, snapshot, roleMap, categoryMap, res); err != nil {
		return res, err
	}

	if err := m.restoreEmojis(ctx, guildID, snapshot, res); err != nil {
		return res, err
	}

	if err := m.wait(ctx); err != nil {
		return res, err
	}
	if _, err := m.s.GuildEdit(guildID, &discordgo.GuildParams{Name: snapshot.GuildName}); err != nil {
		m.l.Warn("Error renaming guild",
			slog.String(logging.KeyGuild, guildID),
			slog.String(logging.KeyError, err.Error()),
		)
		res.Skipped++
	}

	return res, nil
}

func (m *Manager) restoreRoles(ctx context.Context, guildID string, snapshot *entities.GuildSnapshot, roleMap map[string]string, res *Result) error {
	roles := make([]entities.RoleSnapshot, len(snapshot.Roles))
	copy(roles, snapshot.Roles)
	sort.Slice(roles, func(i, j int) bool { return roles[i].Position < roles[j].Position })

	var reorder []*discordgo.Role
	for _, rs := range roles {
		if err := m.wait(ctx); err != nil {
			return err
		}

		rs := rs
		created, err := m.s.GuildRoleCreate(guildID, &discordgo.RoleParams{
			Name:        rs.Name,
			Color:       &rs.Color,
			Hoist:       &rs.Hoist,
			Permissions: &rs.Permissions,
			Mentionable: &rs.Mentionable,
		})
		if err != nil {
			m.l.Warn("Error recreating role, skipping",
				slog.String(logging.KeyGuild, guildID),
				slog.String("role", rs.Name),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Skipped++
			continue
		}

		roleMap[rs.ID] = created.ID
		reorder = append(reorder, &discordgo.Role{ID: created.ID, Position: rs.Position})
		res.RolesCreated++
	}

	if len(reorder) > 0 {
		if err := m.wait(ctx); err != nil {
			return err
		}
		// Relative ordering is reapplied with a single bulk edit.
		if _, err := m.s.GuildRoleReorder(guildID, reorder); err != nil {
			m.l.Warn("Error reordering restored roles",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyError, err.Error()),
			)
		}
	}

	return nil
}

func (m *Manager) restoreCategories(ctx context.Context, guildID string, snapshot *entities.GuildSnapshot, roleMap map[string]string, res *Result) (map[string]string, error) {
	categoryMap := make(map[string]string)

	for _, cs := range snapshot.Channels {
		if cs.Type != int(discordgo.ChannelTypeGuildCategory) {
			continue
		}

		if err := m.wait(ctx); err != nil {
			return categoryMap, err
		}

		created, err := m.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:                 cs.Name,
			Type:                 discordgo.ChannelTypeGuildCategory,
			Position:             cs.Position,
			PermissionOverwrites: remapOverwrites(cs.Overwrites, roleMap),
		})
		if err != nil {
			m.l.Warn("Error recreating category, skipping",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyChannel, cs.Name),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Skipped++
			continue
		}

		categoryMap[cs.Name] = created.ID
		res.ChannelsCreated++
	}

	return categoryMap, nil
}

func (m *Manager) restoreChannels(ctx context.Context, guildID string, snapshot *entities.GuildSnapshot, roleMap, categoryMap map[string]string, res *Result) error {
	for _, cs := range snapshot.Channels {
		if cs.Type == int(discordgo.ChannelTypeGuildCategory) {
			continue
		}

		if err := m.wait(ctx); err != nil {
			return err
		}

		channelType := discordgo.ChannelType(cs.Type)
		switch channelType {
		case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildVoice:
		default:
			// Anything else falls back to a text channel.
			channelType = discordgo.ChannelTypeGuildText
		}

		_, err := m.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
			Name:                 cs.Name,
			Type:                 channelType,
			Topic:                cs.Topic,
			Bitrate:              cs.Bitrate,
			UserLimit:            cs.UserLimit,
			RateLimitPerUser:     cs.RateLimitPerUser,
			Position:             cs.Position,
			NSFW:                 cs.NSFW,
			ParentID:             categoryMap[cs.ParentName],
			PermissionOverwrites: remapOverwrites(cs.Overwrites, roleMap),
		})
		if err != nil {
			m.l.Warn("Error recreating channel, skipping",
				slog.String(logging.KeyGuild, guildID),
				slog.String(logging.KeyChannel, cs.Name),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Skipped++
			continue
		}

		res.ChannelsCreated++
	}

	return nil
}

func (m *Manager) restoreEmojis(ctx context.Context, guildID string, snapshot *entities.GuildSnapshot, res *Result) error {
	for _, es := range snapshot.Emojis {
		if err := m.wait(ctx); err != nil {
			return err
		}

		image, err := m.fetchEmojiImage(ctx, es.ImageURL)
		if err != nil {
			m.l.Warn("Error fetching emoji image, skipping",
				slog.String("emoji", es.Name),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Skipped++
			continue
		}

		if _, err := m.s.GuildEmojiCreate(guildID, &discordgo.EmojiParams{
			Name:  es.Name,
			Image: image,
		}); err != nil {
			m.l.Warn("Error re-uploading emoji, skipping",
				slog.String("emoji", es.Name),
				slog.String(logging.KeyError, err.Error()),
			)
			res.Skipped++
			continue
		}

		res.EmojisCreated++
	}

	return nil
}

// fetchEmojiImage downloads an emoji image and encodes it as the data URI the
// emoji create endpoint expects.
func (m *Manager) fetchEmojiImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("error building request: %w", err)
	}

	resp, err := m.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching image", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("error reading image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(body), nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	return m.limiter.Wait(ctx)
}

func remapOverwrites(overwrites []entities.OverwriteSnapshot, roleMap map[string]string) []*discordgo.PermissionOverwrite {
	var out []*discordgo.PermissionOverwrite
	for _, ow := range overwrites {
		newID, ok := roleMap[ow.RoleID]
		if !ok {
			// The target role was not recreated; nothing to attach to.
			continue
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    newID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: ow.Allow,
			Deny:  ow.Deny,
		})
	}
	return out
}
