package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cppla/expertqa/config"
	"github.com/cppla/expertqa/routes"
	"github.com/cppla/expertqa/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase()

	if err := utils.PromoteBootstrapAdmins(db, cfg.AdminUsernames); err != nil {
		utils.Sugar.Errorf("bootstrap admin promotion failed: %v", err)
	}

	r := routes.SetupRouter(db)

	// Lift lapsed temporary bans in the background until shutdown
	ctx, stop := context.WithCancel(context.Background())
	utils.StartBanSweeper(ctx, db, time.Duration(cfg.BanSweepIntervalMinutes)*time.Minute)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r, stop); err != nil && !errors.Is(err, http.ErrServerClosed) {
		utils.Sugar.Errorf("server stopped with error: %v", err)
	}
	stop()
}
