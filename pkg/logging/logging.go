package logging

import (
	"log/slog"
	"os"
)

const (
	// KeyAppName is the key for the application name.
	KeyAppName = `app`

	// KeyError is the key for an error.
	KeyError = `err`

	// KeyDal is the key for the data access layer.
	KeyDal = `dal`

	// KeyGuild is the key for a guild ID.
	KeyGuild = `guild`

	// KeyUser is the key for a user ID.
	KeyUser = `user`

	// KeyChannel is the key for a channel ID.
	KeyChannel = `channel`

	// KeyCommand is the key for a command name.
	KeyCommand = `command`
)

// Name is the name of the application that the logger is for.
type Name string

// Config is the configuration for a logger.
type Config struct {
	// appName is the name of the application.
	appName string
}

// NewConfig creates a new logging config.
func NewConfig(name Name) *Config {
	return &Config{
		appName: string(name),
	}
}

// CommonLogger creates the common logger for the application.
func CommonLogger(c *Config) (*slog.Logger, error) {
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))

	l = l.With(
		slog.String(KeyAppName, c.appName),
	)

	slog.SetDefault(l)
	return l, nil
}
