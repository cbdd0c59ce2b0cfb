// Package ticketing owns the ticket lifecycle: duplicate-open detection,
// channel provisioning, transcript capture and closure. The channel itself is
// destroyed on close; the ticket row is the only durable record.
package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/pkg/custom"
	"github.com/edwin961/DragonsBot/pkg/dataaccess"
	"github.com/edwin961/DragonsBot/pkg/entities"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"go.mongodb.org/mongo-driver/mongo"
)

// transcriptLimit is the number of most recent messages captured on close.
const transcriptLimit = 100

// defaultCloseDelay is the grace period between announcing a closure and
// deleting the channel.
const defaultCloseDelay = 5 * time.Second

// Session is the slice of the discord session the lifecycle manager uses.
type Session interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessagePin(channelID, messageID string, options ...discordgo.RequestOption) error
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// ErrTicketClosed is returned when a close is attempted on an already closed
// ticket.
var ErrTicketClosed = errors.New("ticket is already closed")

// ErrTicketNotFound is returned when a channel has no ticket row.
var ErrTicketNotFound = errors.New("no ticket for this channel")

// AlreadyOpenError rejects a create while the opener still has an open
// ticket. The existing channel is named so the caller can link it.
type AlreadyOpenError struct {
	// ChannelID is the channel of the existing open ticket.
	ChannelID string
}

func (e *AlreadyOpenError) Error() string {
	return fmt.Sprintf("an open ticket already exists in channel %s", e.ChannelID)
}

// CreateRequest is one ticket creation.
type CreateRequest struct {
	// GuildID is the guild the ticket is opened in.
	GuildID string

	// UserID is the opener.
	UserID string

	// Username is the opener's username, used in the channel name.
	Username string

	// Category is the ticket category label from the panel button.
	Category string
}

type Manager struct {
	// l is the logger.
	l *slog.Logger

	// s is the discord session.
	s Session

	// tickets is the ticket data access layer.
	tickets dataaccess.TicketDal

	// closeDelay is the grace period before channel deletion.
	closeDelay time.Duration
}

// NewManager creates a new ticket lifecycle manager.
func NewManager(l *slog.Logger, s Session, tickets dataaccess.TicketDal) *Manager {
	return &Manager{
		l:          l,
		s:          s,
		tickets:    tickets,
		closeDelay: defaultCloseDelay,
	}
}

// Create opens a ticket: it rejects a duplicate open ticket for the opener,
// allocates the next sequence number, provisions a private channel under the
// configured category and persists the ticket row before anything is
// announced. The duplicate check is a read before the write, so two
// near-simultaneous presses can still race past it; that window is accepted.
func (m *Manager) Create(ctx context.Context, cfg *entities.TicketingConfig, req CreateRequest) (*entities.Ticket, error) {
	existing, err := m.tickets.GetOpenTicketByUser(ctx, req.GuildID, req.UserID)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error checking for open ticket: %w", err)
	}
	if existing != nil {
		return nil, &AlreadyOpenError{ChannelID: existing.ChannelID}
	}

	number, err := m.tickets.NextTicketNumber(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("error allocating ticket number: %w", err)
	}

	ticket := &entities.Ticket{
		Number:    number,
		GuildID:   req.GuildID,
		UserID:    req.UserID,
		Username:  req.Username,
		Category:  req.Category,
		Status:    entities.TicketStatusOpen,
		CreatedAt: custom.Datetime(time.Now().UTC()),
	}

	// Create the ticket channel only the support role and the opener can see.
	channel, err := m.s.GuildChannelCreateComplex(req.GuildID, discordgo.GuildChannelCreateData{
		Name:  ticket.Name(),
		Type:  discordgo.ChannelTypeGuildText,
		Topic: fmt.Sprintf("%s ticket opened by %s", req.Category, req.Username),
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			// Deny @everyone from seeing the ticket.
			{
				ID:   req.GuildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			// The opener can see the ticket.
			{
				ID:    req.UserID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory | discordgo.PermissionAttachFiles,
			},
			// The support role can see the ticket.
			{
				ID:    cfg.RoleID,
				Type:  discordgo.PermissionOverwriteTypeRole,
				Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages | discordgo.PermissionReadMessageHistory | discordgo.PermissionAttachFiles | discordgo.PermissionManageMessages,
			},
		},
		ParentID: cfg.CategoryID,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}

	ticket.ChannelID = channel.ID

	// Persist the ticket before any confirmation is sent. A channel created
	// before a persistence failure is not deleted; the orphan is logged.
	if err := m.tickets.SaveTicket(ctx, ticket); err != nil {
		m.l.Error("Ticket channel created but row not persisted, channel is orphaned",
			slog.String(logging.KeyGuild, ticket.GuildID),
			slog.String(logging.KeyChannel, ticket.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
		return nil, fmt.Errorf("error saving ticket: %w", err)
	}

	if err := m.setupTicketChannel(ctx, cfg, ticket); err != nil {
		m.l.Error("Error setting up ticket channel",
			slog.String(logging.KeyChannel, ticket.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	m.logEvent(cfg, &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Ticket #%d opened", ticket.Number),
		Description: fmt.Sprintf("<@%s> opened a **%s** ticket in <#%s>.", ticket.UserID, ticket.Category, ticket.ChannelID),
		Color:       0x57f287,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}, nil)

	return ticket, nil
}

// setupTicketChannel sends and pins the control message inside a new ticket
// channel and records its ID on the ticket.
func (m *Manager) setupTicketChannel(ctx context.Context, cfg *entities.TicketingConfig, ticket *entities.Ticket) error {
	msg, err := m.s.ChannelMessageSendComplex(ticket.ChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf(`Welcome <@%s>, your ticket has been created.
Please provide any additional info you deem relevant to help us answer faster. [<@&%s>]`, ticket.UserID, cfg.RoleID),
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Close Ticket",
						Style:    discordgo.DangerButton,
						CustomID: CloseButtonID,
						Emoji:    &discordgo.ComponentEmoji{Name: "\U0001F510"},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("error sending control message: %w", err)
	}

	if err := m.s.ChannelMessagePin(ticket.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("error pinning control message: %w", err)
	}

	ticket.SetupMessageID = msg.ID
	if err := m.tickets.SaveTicket(ctx, ticket); err != nil {
		return fmt.Errorf("error saving ticket: %w", err)
	}
	return nil
}

// Close closes the ticket backing the given channel: the transcript is
// captured and logged, the row is marked closed with the closer's identity,
// and the channel is deleted after the grace delay. Reads of the channel
// after Close returns must treat an unknown channel as expected.
func (m *Manager) Close(ctx context.Context, cfg *entities.TicketingConfig, guildID, channelID, closerID string) (*entities.Ticket, error) {
	ticket, err := m.tickets.GetTicket(ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}

	if !ticket.IsOpen() {
		return nil, ErrTicketClosed
	}

	// The transcript body is only logged, never persisted.
	transcript, err := m.Transcript(channelID)
	if err != nil {
		m.l.Warn("Error capturing transcript",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
		transcript = "(transcript unavailable)"
	}

	ticket.Status = entities.TicketStatusClosed
	ticket.ClosedBy = closerID
	ticket.ClosedAt = custom.Datetime(time.Now().UTC())

	if err := m.tickets.SaveTicket(ctx, ticket); err != nil {
		return nil, fmt.Errorf("error saving ticket: %w", err)
	}

	m.logEvent(cfg, &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Ticket #%d closed", ticket.Number),
		Color: 0xed4245,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Opened By", Value: fmt.Sprintf("<@%s>", ticket.UserID), Inline: true},
			{Name: "Closed By", Value: fmt.Sprintf("<@%s>", closerID), Inline: true},
			{Name: "Category", Value: ticket.Category, Inline: true},
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, &discordgo.File{
		Name:        fmt.Sprintf("%s-transcript.txt", ticket.Name()),
		ContentType: "text/plain",
		Reader:      strings.NewReader(transcript),
	})

	// Announce, then give channel members the grace period to read it.
	if _, err := m.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s> closed this ticket. The channel will be deleted shortly.", closerID),
	}); err != nil {
		m.l.Warn("Error announcing ticket closure",
			slog.String(logging.KeyChannel, channelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}

	if m.closeDelay > 0 {
		select {
		case <-time.After(m.closeDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if _, err := m.s.ChannelDelete(channelID); err != nil && !isUnknownChannel(err) {
		return nil, fmt.Errorf("error deleting ticket channel: %w", err)
	}

	return ticket, nil
}

// Transcript reads up to the most recent 100 messages of a channel in
// chronological order, one "[timestamp] author: content" line per message.
func (m *Manager) Transcript(channelID string) (string, error) {
	msgs, err := m.s.ChannelMessages(channelID, transcriptLimit, "", "", "")
	if err != nil {
		return "", fmt.Errorf("error reading channel history: %w", err)
	}

	// The history endpoint returns newest first.
	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", msg.Timestamp.UTC().Format(time.RFC3339), msg.Author.Username, msg.Content))
	}
	return strings.Join(lines, "\n"), nil
}

// logEvent sends an embed, and optionally a file, to the configured log
// channel. Logging is best-effort and never fails the transition.
func (m *Manager) logEvent(cfg *entities.TicketingConfig, embed *discordgo.MessageEmbed, file *discordgo.File) {
	if cfg.LogChannelID == "" {
		return
	}

	send := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	if file != nil {
		send.Files = []*discordgo.File{file}
	}

	if _, err := m.s.ChannelMessageSendComplex(cfg.LogChannelID, send); err != nil {
		m.l.Warn("Error writing to ticket log channel",
			slog.String(logging.KeyChannel, cfg.LogChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

func isUnknownChannel(err error) bool {
	restErr := new(discordgo.RESTError)
	return errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel
}
