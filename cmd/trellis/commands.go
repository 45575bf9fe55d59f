package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/astromechza/automerge-trellis/pkg/board"
	"github.com/astromechza/automerge-trellis/pkg/viz"
)

func newNewCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a board with starter content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()
			if err := a.store.NewDocument(); err != nil {
				return err
			}
			path, err := a.files.PathFor(a.store.DocID())
			if err != nil {
				return err
			}
			if err := a.remember(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newShowCommand(flags *rootFlags) *cobra.Command {
	var at int
	c := &cobra.Command{
		Use:   "show [board-file]",
		Short: "Print a board, optionally as of a past revision",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(optionalArg(args)); err != nil {
				return err
			}
			if at >= 0 {
				if err := a.store.Dispatch(board.TimeTravel{Index: at}); err != nil {
					return err
				}
			}
			printBoard(cmd.OutOrStdout(), a.store.GetState())
			return nil
		},
	}
	c.Flags().IntVar(&at, "at", -1, "revision index to show instead of the live board")
	return c
}

func newDispatchCommand(flags *rootFlags) *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "dispatch <action-json>...",
		Short: `Dispatch actions such as '{"type":"CREATE_LIST","title":"Backlog"}'`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(file); err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()
			for _, raw := range args {
				action, err := board.DecodeAction([]byte(raw))
				if err != nil {
					return err
				}
				if err := a.store.Dispatch(action); err != nil {
					return err
				}
			}
			printBoard(cmd.OutOrStdout(), a.store.GetState())
			return nil
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "board file (defaults to the last opened board)")
	return c
}

func newForkCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "fork [board-file]",
		Short: "Copy a board under a new doc id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(optionalArg(args)); err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()
			if err := a.store.ForkDocument(); err != nil {
				return err
			}
			path, err := a.files.PathFor(a.store.DocID())
			if err != nil {
				return err
			}
			if err := a.remember(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newMergeCommand(flags *rootFlags) *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "merge <other-board-file>",
		Short: "Merge another copy of the board into this one",
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
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if err := a.store.MergeDocument(raw); err != nil {
				return err
			}
			printBoard(cmd.OutOrStdout(), a.store.GetState())
			return nil
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "board file (defaults to the last opened board)")
	return c
}

func newOpenIDCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "open-id <doc-id>",
		Short: "Open a board shared by doc id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			defer a.files.Autosave(a.store)()
			path, err := a.files.OpenDocID(a.store, args[0])
			if err != nil {
				return err
			}
			if _, err := a.files.SaveStore(a.store); err != nil {
				return err
			}
			if err := a.remember(path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func newHistoryCommand(flags *rootFlags) *cobra.Command {
	var svgPath string
	var dot bool
	c := &cobra.Command{
		Use:   "history [board-file]",
		Short: "List or render the change history of a board",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if err := a.open(optionalArg(args)); err != nil {
				return err
			}
			revs, err := a.store.History()
			if err != nil {
				return err
			}
			switch {
			case svgPath != "":
				if err := viz.RenderHistoryToFile(revs, svgPath); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "file://"+svgPath)
			case dot:
				return viz.WriteDot(revs, cmd.OutOrStdout())
			default:
				printHistory(cmd.OutOrStdout(), revs)
			}
			return nil
		},
	}
	c.Flags().StringVar(&svgPath, "svg", "", "render the history graph to this svg file")
	c.Flags().BoolVar(&dot, "dot", false, "print the history graph as graphviz source")
	return c
}

func newNameCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "name [peer-name]",
		Short: "Show or set the name stamped on your changes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				a.session.PeerName = args[0]
			}
			if err := a.session.Save(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.session.Author())
			return nil
		},
	}
}

