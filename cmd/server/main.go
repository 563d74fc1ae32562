package main

import (
	"fmt"

	"engagement-tracker/internal/config"
	"engagement-tracker/internal/database"
	"engagement-tracker/internal/logging"
	"engagement-tracker/internal/server"
)

func main() {
	cfg := config.Load()
	logging.SetupNamed(cfg.LogLevel, cfg.LogFormat)
	logger := logging.New("server")

	database.Init(cfg)

	r := server.NewRouter(cfg,
		database.NewProjectRepo(database.DB),
		database.NewUserRepo(database.DB),
	)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	logger.Info("starting server", "addr", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
