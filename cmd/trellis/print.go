package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/astromechza/automerge-trellis/pkg/board"
)

func printBoard(w io.Writer, doc *board.Document) {
	fmt.Fprintf(w, "%s  %q\n", doc.DocID, doc.BoardTitle)
	for _, l := range doc.AllLists() {
		fmt.Fprintf(w, "\n== %s (%s)\n", l.Title, l.ID)
		for _, c := range doc.CardsByList(l.ID) {
			fmt.Fprintf(w, "  [%d] %s (%s)%s\n", c.Order, c.Title, c.ID, assignees(c))
			for _, m := range doc.CommentsByCard(c.ID) {
				fmt.Fprintf(w, "        %s, %s: %s\n", m.Author, m.CreatedAt.Format("2006-01-02 15:04"), m.Body)
			}
		}
	}
}

func assignees(c *board.Card) string {
	var names []string
	for person, assigned := range c.Assigned {
		if assigned {
			names = append(names, "@"+person)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	return " " + strings.Join(names, " ")
}

func printHistory(w io.Writer, revs []board.Revision) {
	for _, rev := range revs {
		fmt.Fprintf(w, "%4d %s %-12s %-24s %s\n", rev.Index, rev.Hash[:8], rev.Author, rev.Action, rev.Time.Format("2006-01-02 15:04:05"))
	}
}
