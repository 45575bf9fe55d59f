package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/astromechza/automerge-trellis/pkg/peersync"
)

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newSyncCommand(flags *rootFlags) *cobra.Command {
	var file, relay string
	var interval time.Duration
	c := &cobra.Command{
		Use:   "sync",
		Short: "Keep a board in sync with a relay until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(file); err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()
			baseUrl, err := url.Parse(relay)
			if err != nil {
				return fmt.Errorf("bad relay url: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()

			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				if conn, err := peersync.Dial(ctx, baseUrl, a.store.DocID()); err != nil {
					slog.Error("failed to connect", "err", err)
				} else if err := peersync.Sync(ctx, conn, a.store, "relay", interval); err != nil {
					slog.Error("failed to sync", "err", err)
				}
				select {
				case <-t.C:
				case <-ctx.Done():
					slog.Info("stopping sync")
					return nil
				}
			}
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "board file (defaults to the last opened board)")
	c.Flags().StringVar(&relay, "relay", "http://127.0.0.1:8080", "relay base url")
	c.Flags().DurationVar(&interval, "interval", time.Second, "how often to flush outgoing changes")
	return c
}

func newWatchCommand(flags *rootFlags) *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "watch <other-board-file>",
		Short: "Merge another copy of the board every time it changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(file); err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()

			other, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to watch: %w", err)
			}
			defer watcher.Close()
			// editors and our own autosave replace files, so watch the directory
			if err := watcher.Add(filepath.Dir(other)); err != nil {
				return fmt.Errorf("failed to watch %s: %w", other, err)
			}

			ctx, cancel := signalContext()
			defer cancel()
			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if ev.Name != other || !ev.Has(fsnotify.Write|fsnotify.Create) {
						continue
					}
					raw, err := os.ReadFile(other)
					if err != nil {
						slog.Error("failed to read", "path", other, "err", err)
						continue
					}
					if err := a.store.MergeDocument(raw); err != nil {
						slog.Error("failed to merge", "path", other, "err", err)
						continue
					}
					slog.Info("merged", "path", other)
					printBoard(cmd.OutOrStdout(), a.store.GetState())
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					slog.Error("watch error", "err", err)
				case <-ctx.Done():
					return nil
				}
			}
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "board file (defaults to the last opened board)")
	return c
}
