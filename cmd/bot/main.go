package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/edwin961/DragonsBot/cmd/bot/config"
	"github.com/edwin961/DragonsBot/pkg/logging"
)

func main() {
	config.Parse(slog.Default())
	a, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}
	a.l.Info("Starting application")
	if err := a.Run(); err != nil {
		a.l.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
