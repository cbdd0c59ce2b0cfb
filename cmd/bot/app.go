package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/cmd/bot/config"
	"github.com/edwin961/DragonsBot/cmd/bot/monitoring"
	"github.com/edwin961/DragonsBot/pkg/backup"
	"github.com/edwin961/DragonsBot/pkg/dataaccess"
	"github.com/edwin961/DragonsBot/pkg/dataaccess/connection"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/request"
	"github.com/edwin961/DragonsBot/pkg/ticketing"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// PathLiveness is the path for the liveness probe.
	PathLiveness = "/"

	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for health check.
	PathHealth = "/health"
)

// IApp is the interface for the application.
type IApp interface {
	// Log returns the application logger.
	Log() *slog.Logger

	// Session returns the discord session.
	Session() *discordgo.Session

	// GuildDal returns the guild configuration data access layer.
	GuildDal() dataaccess.GuildDal

	// TicketDal returns the ticket data access layer.
	TicketDal() dataaccess.TicketDal

	// ModerationDal returns the moderation data access layer.
	ModerationDal() dataaccess.ModerationDal

	// SnapshotDal returns the snapshot data access layer.
	SnapshotDal() dataaccess.SnapshotDal

	// TicketManager returns the ticket lifecycle manager.
	TicketManager() *ticketing.Manager

	// BackupManager returns the snapshot/restore manager.
	BackupManager() *backup.Manager

	// PendingRestores returns the restore confirmations in flight.
	PendingRestores() *pendingRestores

	// StartedAt returns the process start time.
	StartedAt() time.Time
}

type App struct {
	// l is the logger.
	l *slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// db is the database.
	db *mongo.Client

	// guildDal is the guild configuration data access layer.
	guildDal dataaccess.GuildDal

	// ticketDal is the ticket data access layer.
	ticketDal dataaccess.TicketDal

	// moderationDal is the moderation data access layer.
	moderationDal dataaccess.ModerationDal

	// snapshotDal is the snapshot data access layer.
	snapshotDal dataaccess.SnapshotDal

	// tickets is the ticket lifecycle manager.
	tickets *ticketing.Manager

	// backups is the snapshot/restore manager.
	backups *backup.Manager

	// restores are the restore confirmations in flight.
	restores *pendingRestores

	// startedAt is the process start time, reported by the stats command.
	startedAt time.Time

	// registeredCommands are the slash commands registered per guild,
	// unregistered again on shutdown.
	registeredCommands map[string][]*discordgo.ApplicationCommand
}

// NewApp creates a new instance of App.
func NewApp(
	l *slog.Logger,
	r *mux.Router,
	db *mongo.Client,
	guildDal dataaccess.GuildDal,
	ticketDal dataaccess.TicketDal,
	moderationDal dataaccess.ModerationDal,
	snapshotDal dataaccess.SnapshotDal,
) *App {
	return &App{
		l:                  l,
		r:                  r,
		db:                 db,
		guildDal:           guildDal,
		ticketDal:          ticketDal,
		moderationDal:      moderationDal,
		snapshotDal:        snapshotDal,
		restores:           newPendingRestores(),
		startedAt:          time.Now().UTC(),
		registeredCommands: make(map[string][]*discordgo.ApplicationCommand),
	}
}

// newMongoClient connects the database from the parsed configuration.
func newMongoClient(l *slog.Logger) (*mongo.Client, error) {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = config.MongoUri

	db, err := mongoConn.Connect(context.Background())
	if err != nil {
		return nil, fmt.Errorf("error connecting to mongo: %w", err)
	}

	l.Debug("Connected to MongoDB", slog.String("key", config.EnvMongoUri))
	return db, nil
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.l.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	a.RegisterDiscordHandlers()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands. A failed sync for one guild is only logged;
	// the remaining guilds still get their commands.
	a.registerSlashCommands()

	a.l.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Process shutdown signal.
	for sig := range c {
		a.l.Info("Received shutdown signal", slog.String("signal", sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.l.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	// Unregister slash commands.
	a.unregisterSlashCommands()

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}

	// Disconnect the database.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.db.Disconnect(ctx); err != nil {
		return fmt.Errorf("error disconnecting from mongo: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	monitoring.TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + config.BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	a.s = dg

	// The managers talk to the platform through the session, so they are
	// built once it exists.
	a.tickets = ticketing.NewManager(a.l, dg, a.ticketDal)
	a.backups = backup.NewManager(a.l, dg, a.snapshotDal)
	return nil
}

func (a *App) runServer() {
	go func() {
		a.l.Info("Starting monitoring server", slog.String("addr", a.svr.Addr))
		if err := a.svr.ListenAndServe(); err != nil {
			a.l.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.l.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathLiveness is the liveness probe.
	a.r.HandleFunc(PathLiveness, middlewareHttp(a.livenessCheck, a)).Methods(http.MethodGet)

	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.l)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.l)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + config.MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) livenessCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Bot is running"))
}

func (a *App) GetJoinedGuilds() ([]*discordgo.UserGuild, error) {
	guilds, err := a.s.UserGuilds(200, "", "", false)
	if err != nil {
		return nil, fmt.Errorf("error getting guilds: %w", err)
	}
	return guilds, nil
}

func (a *App) RegisterDiscordHandlers() {
	// Bot joined guild.
	a.s.AddHandler(guildJoinedHandler(a))

	// Bot left guild.
	a.s.AddHandler(guildLeaveHandler(a))

	// Member joined guild.
	a.s.AddHandler(memberJoinedHandler(a))

	// Every gateway event counts towards the event metric.
	a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != "" {
			monitoring.TotalDiscordEvents.WithLabelValues(e.Type).Inc()
		} else {
			monitoring.TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	})

	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash Controllers
		map[string]commandController{
			setupCmd.Name:        setupController,
			panelCmd.Name:        panelController,
			welcomeSetupCmd.Name: welcomeSetupController,
			backupCmd.Name:       backupController,
			statsCmd.Name:        statsController,
			banCmd.Name:          banController,
			unbanCmd.Name:        unbanController,
			muteCmd.Name:         muteController,
			unmuteCmd.Name:       unmuteController,
			warnCmd.Name:         warnController,
			warningsCmd.Name:     warningsController,
			delWarnCmd.Name:      delWarnController,
			clearWarnsCmd.Name:   clearWarnsController,
		},
		// Button Controllers, keyed by custom ID prefix.
		map[string]componentController{
			ticketing.OpenButtonPrefix: openTicketButton,
			ticketing.CloseButtonID:    closeTicketButton,
			backupConfirmButtonPrefix:  backupConfirmButton,
			backupCancelButtonPrefix:   backupCancelButton,
		},
		// Modal Controllers, keyed by custom ID prefix.
		map[string]componentController{
			panelModalPrefix: panelModalController,
		}))
}

// commands are all slash commands registered per guild.
var commands = []*discordgo.ApplicationCommand{
	setupCmd,
	panelCmd,
	welcomeSetupCmd,
	backupCmd,
	statsCmd,
	banCmd,
	unbanCmd,
	muteCmd,
	unmuteCmd,
	warnCmd,
	warningsCmd,
	delWarnCmd,
	clearWarnsCmd,
}

func (a *App) registerSlashCommands() {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		a.l.Error("Error getting guilds", slog.String(logging.KeyError, err.Error()))
		return
	}

	// Register slash commands for each guild.
	for _, g := range guilds {
		for _, cmd := range commands {
			created, err := a.s.ApplicationCommandCreate(config.ApplicationId, g.ID, cmd)
			if err != nil {
				a.l.Error("Error creating command",
					slog.String(logging.KeyGuild, g.ID),
					slog.String(logging.KeyCommand, cmd.Name),
					slog.String(logging.KeyError, err.Error()),
				)
				continue
			}
			a.registeredCommands[g.ID] = append(a.registeredCommands[g.ID], created)
		}
	}
}

func (a *App) unregisterSlashCommands() {
	// Delete slash commands for each guild.
	for guildID, cmds := range a.registeredCommands {
		for _, cmd := range cmds {
			if err := a.s.ApplicationCommandDelete(config.ApplicationId, guildID, cmd.ID); err != nil {
				a.l.Error("Error deleting command",
					slog.String(logging.KeyGuild, guildID),
					slog.String(logging.KeyCommand, cmd.Name),
					slog.String(logging.KeyError, err.Error()),
				)
			}
		}
	}
}

func (a *App) Log() *slog.Logger {
	return a.l
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) GuildDal() dataaccess.GuildDal {
	return a.guildDal
}

func (a *App) TicketDal() dataaccess.TicketDal {
	return a.ticketDal
}

func (a *App) ModerationDal() dataaccess.ModerationDal {
	return a.moderationDal
}

func (a *App) SnapshotDal() dataaccess.SnapshotDal {
	return a.snapshotDal
}

func (a *App) TicketManager() *ticketing.Manager {
	return a.tickets
}

func (a *App) BackupManager() *backup.Manager {
	return a.backups
}

func (a *App) PendingRestores() *pendingRestores {
	return a.restores
}

func (a *App) StartedAt() time.Time {
	return a.startedAt
}
