package viz

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync/atomic"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/astromechza/automerge-trellis/pkg/board"
)

func label(rev board.Revision) string {
	author := rev.Author
	if author == "" {
		author = "?"
	}
	action := string(rev.Action)
	if action == "" {
		action = "-"
	}
	return fmt.Sprintf("#%d %s %s@%d %s", rev.Index, short(rev.Hash), author, rev.Seq, action)
}

func short(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// RenderHistorySvg draws the change graph of a board: one node per revision, edges
// from each dependency to its dependent.
func RenderHistorySvg(revs []board.Revision, w io.Writer) error {
	g := graphviz.New()
	defer g.Close()

	graph, err := g.Graph()
	if err != nil {
		return fmt.Errorf("failed to setup graph: %w", err)
	}
	defer graph.Close()

	nodeMap := make(map[string]*cgraph.Node)
	var edgeCounter uint64
	for _, rev := range revs {
		n, err := graph.CreateNode(rev.Hash)
		if err != nil {
			return fmt.Errorf("failed to create node: %w", err)
		}
		n.SetLabel(label(rev))
		nodeMap[rev.Hash] = n

		for _, hash := range rev.Deps {
			dep, ok := nodeMap[hash]
			if !ok {
				return fmt.Errorf("dependency %s of %s is not in the history", short(hash), short(rev.Hash))
			}
			if _, err := graph.CreateEdge(strconv.Itoa(int(atomic.AddUint64(&edgeCounter, 1))), dep, n); err != nil {
				return fmt.Errorf("failed to create edge: %w", err)
			}
		}
	}

	var buff bytes.Buffer
	if err := g.Render(graph, graphviz.SVG, &buff); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	if _, err := w.Write(buff.Bytes()); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}
	return nil
}

func RenderHistoryToFile(revs []board.Revision, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputPath, err)
	}
	defer f.Close()
	return RenderHistorySvg(revs, f)
}

// WriteDot writes the same graph as graphviz source.
func WriteDot(revs []board.Revision, w io.Writer) error {
	if _, err := fmt.Fprintln(w, `digraph "history" {`); err != nil {
		return err
	}
	for _, rev := range revs {
		if _, err := fmt.Fprintf(w, "    %q [label=%q]\n", rev.Hash, label(rev)); err != nil {
			return err
		}
		for _, hash := range rev.Deps {
			if _, err := fmt.Fprintf(w, "    %q -> %q\n", hash, rev.Hash); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}
