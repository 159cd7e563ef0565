package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lightsync/internal/daemon"
	"lightsync/internal/db"
	"lightsync/internal/logger"
	"lightsync/internal/repository"
	"lightsync/internal/secret"
	"lightsync/internal/sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Start the daemon and sync all enabled folders",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	folders := repository.NewFolderStore(database)
	servers := repository.NewServerStore(database)
	meta := repository.NewMetadataStore(database)
	logs := repository.NewLogStore(database)
	sessions := repository.NewSessionStore(database)
	secrets := secret.NewKeyring()

	manager := sync.NewManager(cfg, folders, servers, meta, logs, sessions, secrets)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		return err
	}

	all, err := folders.GetAll()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		logger.Log.Info("no folders configured, use 'lightsync folder add' to add one")
	}

	srv := daemon.NewServer(manager, folders, servers, logs, sessions, secrets, cfg.DaemonPort)
	srv.Start()

	logger.Log.Info("lightsync daemon started",
		zap.Int("folders", len(all)),
		zap.Int("port", cfg.DaemonPort))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Stop(shutdownCtx)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
