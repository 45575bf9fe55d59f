package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/automerge-trellis/pkg/persist"
	"github.com/astromechza/automerge-trellis/pkg/relay"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	var addr, dbPath, renderDir string
	var backupInterval, syncInterval time.Duration
	cmd := &cobra.Command{
		Use:          "trellis-relay",
		Short:        "Host boards for peers over websockets",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(addr, dbPath, renderDir, backupInterval, syncInterval)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "the address to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "trellis-relay.sqlite3", "sqlite database boards are backed up to")
	cmd.Flags().StringVar(&renderDir, "render", "", "on shutdown, render each board's history as svg into this directory")
	cmd.Flags().DurationVar(&backupInterval, "backup-interval", 5*time.Second, "how often changed boards are backed up")
	cmd.Flags().DurationVar(&syncInterval, "sync-interval", time.Second, "how often peers are sent outstanding changes")
	return cmd.Execute()
}

func serve(addr, dbPath, renderDir string, backupInterval, syncInterval time.Duration) error {
	slog.Info("Opening database", "path", dbPath)
	snapshots, err := persist.OpenSnapshots(dbPath)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := relay.New(ctx, snapshots)
	if err != nil {
		return err
	}
	s.SyncInterval = syncInterval

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.BackupContinuously(ctx, backupInterval)
	}()

	httpServer := &http.Server{Addr: addr, Handler: s.Handler()}
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
			cancel()
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
	}
	cancel()
	_ = httpServer.Close()
	wg.Wait()

	if renderDir != "" {
		if err := os.MkdirAll(renderDir, 0o755); err != nil {
			return err
		}
		s.RenderHistories(renderDir)
	}
	return nil
}
