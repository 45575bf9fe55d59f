package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/astromechza/automerge-trellis/pkg/persist"
	"github.com/astromechza/automerge-trellis/pkg/session"
	"github.com/astromechza/automerge-trellis/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	return newRootCommand().Execute()
}

type app struct {
	session *session.Session
	files   *persist.Files
	store   *store.Store
}

type rootFlags struct {
	dir         string
	sessionPath string
	verbose     bool
}

func defaultDir(elem ...string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(append([]string{home}, elem...)...)
}

func newRootCommand() *cobra.Command {
	flags := new(rootFlags)
	root := &cobra.Command{
		Use:           "trellis",
		Short:         "Collaborative boards on a replicated document",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if flags.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().StringVar(&flags.dir, "dir", defaultDir("Documents", "Trellis"), "directory boards are saved in")
	root.PersistentFlags().StringVar(&flags.sessionPath, "session", defaultDir(".config", "trellis", "session.yaml"), "session file")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newNewCommand(flags),
		newShowCommand(flags),
		newDispatchCommand(flags),
		newForkCommand(flags),
		newMergeCommand(flags),
		newOpenIDCommand(flags),
		newHistoryCommand(flags),
		newSyncCommand(flags),
		newWatchCommand(flags),
		newNameCommand(flags),
	)
	return root
}

// setup loads the session and save directory and returns an empty store.
func setup(flags *rootFlags) (*app, error) {
	sess, err := session.Load(flags.sessionPath, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return nil, err
	}
	files, err := persist.NewFiles(flags.dir)
	if err != nil {
		return nil, err
	}
	s := store.New(store.Config{Session: sess})
	return &app{session: sess, files: files, store: s}, nil
}

// open loads path into the store, falling back to the last opened board.
func (a *app) open(path string) error {
	if path == "" {
		path = a.session.LastFileOpened
	}
	if path == "" {
		return fmt.Errorf("no board given and no board opened before")
	}
	if err := persist.Open(a.store, path); err != nil {
		return err
	}
	return a.remember(path)
}

func (a *app) remember(path string) error {
	a.session.LastFileOpened = path
	return a.session.Save()
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
