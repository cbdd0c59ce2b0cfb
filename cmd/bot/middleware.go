package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/edwin961/DragonsBot/cmd/bot/monitoring"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/edwin961/DragonsBot/pkg/request"
	"github.com/gorilla/mux"
)

// commandController is the handler for one slash command.
type commandController func(a IApp, i *discordgo.InteractionCreate) error

// componentController is the handler for one button press or modal
// submission. The full custom ID is passed through so tagged actions can
// carry an argument after their prefix.
type componentController func(a IApp, i *discordgo.InteractionCreate, customID string) error

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(handler Controller, a IApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		// Recover from any panics that occur in the handler.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				cw.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(cw).Encode(request.NewMessage(request.ErrInternalServer.Error())); err != nil {
					a.Log().Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
				}
			}
		}()

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path // If the route does not define a path, use the URL path.
			}
		} else {
			path = r.URL.Path // If the route is nil, use the URL path.
		}

		defer func() {
			// Run the deferred function after the request has been handled, as the status code will not be available until then.
			monitoring.HttpTotalRequests.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Inc()
			monitoring.HttpRequestDuration.WithLabelValues(path, r.Method, fmt.Sprintf("%d", cw.StatusCode())).Observe(time.Since(now).Seconds())
		}()

		handler(cw, r)
	}
}

// interactionHandler routes every interaction. Slash commands dispatch on the
// command name; buttons and modals dispatch on their custom ID prefix, so a
// panel posted before a restart still routes after one.
func interactionHandler(
	a IApp,
	controllers map[string]commandController,
	buttons map[string]componentController,
	modals map[string]componentController,
) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			handleCommand(a, i, controllers)
		case discordgo.InteractionMessageComponent:
			handleComponent(a, i, i.MessageComponentData().CustomID, buttons)
		case discordgo.InteractionModalSubmit:
			handleComponent(a, i, i.ModalSubmitData().CustomID, modals)
		}
	}
}

func handleCommand(a IApp, i *discordgo.InteractionCreate, controllers map[string]commandController) {
	name := i.ApplicationCommandData().Name
	a.Log().Debug("Handling interaction " + name)

	controller, ok := controllers[name]
	if !ok {
		a.Log().Error("No controller found for command", slog.String(logging.KeyCommand, name))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		return
	}

	now := time.Now().UTC()
	defer func() {
		monitoring.DiscordCommandDuration.WithLabelValues(name).Observe(time.Since(now).Seconds())
	}()

	if err := controller(a, i); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing command %s", name),
			slog.String(logging.KeyError, err.Error()))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func handleComponent(a IApp, i *discordgo.InteractionCreate, customID string, controllers map[string]componentController) {
	a.Log().Debug("Handling component " + customID)

	var controller componentController
	var prefix string
	for p, c := range controllers {
		if strings.HasPrefix(customID, p) {
			controller = c
			prefix = p
			break
		}
	}
	if controller == nil {
		a.Log().Error("No controller found for component", slog.String(logging.KeyCommand, customID))
		return
	}

	now := time.Now().UTC()
	defer func() {
		monitoring.DiscordCommandDuration.WithLabelValues(prefix).Observe(time.Since(now).Seconds())
	}()

	if err := controller(a, i, customID); err != nil {
		a.Log().Error(fmt.Sprintf("Error processing component %s", customID),
			slog.String(logging.KeyError, err.Error()))

		if err := respondSlashError(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
	}
}
