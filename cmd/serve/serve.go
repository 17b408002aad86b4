// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package serve

import (
	"context"
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
	"github.com/stratastor/logger"

	"github.com/stratastor/netfix/config"
	"github.com/stratastor/netfix/internal/constants"
	"github.com/stratastor/netfix/pkg/lifecycle"
	"github.com/stratastor/netfix/pkg/server"
)

var detached bool

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Netfix server",
		Run:   runServe,
	}

	cmd.Flags().BoolVarP(&detached, "detach", "d", false, "Run as a daemon")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) {
	lcfg := config.NewLoggerConfig(config.GetConfig())
	log, err := logger.NewTag(lcfg, "serve")
	if err != nil {
		panic(err)
	}

	nc := config.GetConfig()
	pidFile := constants.NetfixPIDFilePath
	if err := lifecycle.EnsureSingleInstance(pidFile); err != nil {
		log.Error("Failed to start", "error", err)
		os.Exit(1)
	}

	if detached {
		ctx := &daemon.Context{
			PidFileName: pidFile,
			PidFilePerm: 0644,
			LogFileName: nc.Logs.Path,
			LogFilePerm: 0640,
			WorkDir:     "/",
			Umask:       027,
			Args:        []string{"netfix", "serve"},
		}

		d, err := ctx.Reborn()
		if err != nil {
			log.Error("Failed to start daemon", "error", err)
			os.Exit(1)
		}

		if d != nil {
			log.Info("Netfix is running as a daemon")
			return
		}
		defer ctx.Release()
	}

	startServer()
}

func startServer() {
	lcfg := config.NewLoggerConfig(config.GetConfig())
	log, err := logger.NewTag(lcfg, "serve")
	if err != nil {
		panic(err)
	}
	cfg := config.GetConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lifecycle.RegisterContextCanceller(cancel)
	lifecycle.RegisterShutdownHook(func() {
		log.Info("Shutting down server...")
		if err := server.Shutdown(ctx); err != nil {
			log.Error("Error during server shutdown", "error", err)
		}
	})
	go lifecycle.HandleSignals(ctx)

	log.Info("Starting Netfix server", "port", cfg.Server.Port)
	if err := server.Start(ctx, cfg.Server.Port); err != nil {
		log.Error("Failed to start server", "error", err)
	}
}
