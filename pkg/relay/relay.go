// Package relay hosts boards for peers that cannot reach each other directly. It keeps
// each board as a bare replicated document, persists it to sqlite and syncs any number
// of peers over websockets.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/astromechza/automerge-trellis/pkg/board"
	"github.com/astromechza/automerge-trellis/pkg/engine"
	"github.com/astromechza/automerge-trellis/pkg/peersync"
	"github.com/astromechza/automerge-trellis/pkg/persist"
	"github.com/astromechza/automerge-trellis/pkg/viz"
)

// replica guards one hosted board. Peers sync against it concurrently.
type replica struct {
	mu  sync.Mutex
	doc *engine.Automerge
}

func (r *replica) SyncMessage(peer string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.GenerateSyncMessage(peer)
}

func (r *replica) ReceiveSyncMessage(peer string, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.ApplyDeltas(peer, msg)
}

func (r *replica) ForgetPeer(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.ForgetPeer(peer)
}

func (r *replica) revisions() ([]board.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Revisions()
}

func (r *replica) save() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.doc.Save()
}

type Server struct {
	snapshots    *persist.Snapshots
	boards       *sync.Map
	peerCounter  atomic.Uint64
	SyncInterval time.Duration
}

// New loads every stored board from snapshots.
func New(ctx context.Context, snapshots *persist.Snapshots) (*Server, error) {
	s := &Server{snapshots: snapshots, boards: new(sync.Map), SyncInterval: time.Second}
	stored, err := snapshots.All(ctx)
	if err != nil {
		return nil, err
	}
	for id, raw := range stored {
		doc, err := engine.Load(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to load board %s: %w", id, err)
		}
		s.boards.Store(id, &replica{doc: doc})
	}
	slog.Info("loaded boards", "count", len(stored))
	return s, nil
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})
	r.Methods(http.MethodGet).Path("/boards/{board}/latest").HandlerFunc(s.getBoard)
	r.Methods(http.MethodGet).Path("/boards/{board}/sync").HandlerFunc(s.syncBoard)
	return r
}

func (s *Server) getBoard(writer http.ResponseWriter, request *http.Request) {
	raw, ok := s.boards.Load(mux.Vars(request)["board"])
	if !ok {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	writer.Header().Add("Content-Type", "application/octet-stream")
	if _, err := writer.Write(raw.(*replica).save()); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func (s *Server) syncBoard(writer http.ResponseWriter, request *http.Request) {
	id := mux.Vars(request)["board"]
	raw, loaded := s.boards.LoadOrStore(id, &replica{doc: engine.New()})
	if !loaded {
		slog.Info("hosting new board", "board", id)
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		slog.Error("failed to upgrade", "err", err)
		return
	}

	peer := fmt.Sprintf("peer-%d", s.peerCounter.Add(1))
	if err := peersync.Sync(request.Context(), conn, raw.(*replica), peer, s.SyncInterval); err != nil {
		slog.Error("failed to sync", "board", id, "peer", peer, "err", err)
	}
}

// Backup writes every board whose content changed since the last backup.
func (s *Server) Backup(ctx context.Context) {
	s.boards.Range(func(id, raw any) bool {
		changed, err := s.snapshots.Put(ctx, id.(string), raw.(*replica).save())
		if err != nil {
			slog.Error("failed to backup board in database", "board", id, "err", err)
		} else if changed {
			slog.Info("backed up", "board", id)
		}
		return true
	})
}

// BackupContinuously runs Backup every interval until ctx is done, then once more.
func (s *Server) BackupContinuously(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Backup(ctx)
		case <-ctx.Done():
			s.Backup(context.Background())
			return
		}
	}
}

// RenderHistories writes the change graph of every hosted board to dir as <board>.svg.
func (s *Server) RenderHistories(dir string) {
	s.boards.Range(func(id, raw any) bool {
		revs, err := raw.(*replica).revisions()
		if err != nil {
			slog.Error("failed to read history", "board", id, "err", err)
			return true
		}
		path := filepath.Join(dir, id.(string)+".svg")
		if err := viz.RenderHistoryToFile(revs, path); err != nil {
			slog.Error("failed to render", "board", id, "err", err)
		} else {
			slog.Info("rendered", "board", id, "path", "file://"+path)
		}
		return true
	})
}
