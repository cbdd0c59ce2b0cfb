//go:build wireinject
// +build wireinject

package main

import (
	"github.com/edwin961/DragonsBot/cmd/bot/config"
	"github.com/edwin961/DragonsBot/pkg/dataaccess"
	"github.com/edwin961/DragonsBot/pkg/logging"
	"github.com/google/wire"
	"github.com/gorilla/mux"
)

func InitializeApp() (*App, error) {
	wire.Build(
		wire.Value(logging.Name(config.AppName)),
		logging.NewConfig,
		logging.CommonLogger,
		mux.NewRouter,
		newMongoClient,
		dataaccess.NewGuildDal,
		dataaccess.NewTicketDal,
		dataaccess.NewModerationDal,
		dataaccess.NewSnapshotDal,
		NewApp,
	)
	return new(App), nil
}
