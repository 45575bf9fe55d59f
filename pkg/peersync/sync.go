package peersync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Replica is one side of a sync session. Messages received from a peer must go
// through the replica's normal entry point so that remote changes land atomically.
type Replica interface {
	SyncMessage(peer string) ([]byte, bool)
	ReceiveSyncMessage(peer string, msg []byte) error
	ForgetPeer(peer string)
}

func readAndReceiveMessage(conn *websocket.Conn, r Replica, peer string) error {
	mt, p, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	switch mt {
	case websocket.BinaryMessage:
		if err := r.ReceiveSyncMessage(peer, p); err != nil {
			return fmt.Errorf("failed to receive message: %w", err)
		}
	default:
	}
	return nil
}

// flush writes every message the replica currently has for peer.
func flush(conn *websocket.Conn, r Replica, peer string) error {
	for {
		msg, ok := r.SyncMessage(peer)
		if !ok {
			return nil
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
			return fmt.Errorf("failed to write message: %w", err)
		}
	}
}

// Sync exchanges sync messages with peer over conn until ctx is cancelled or the
// connection fails. Outgoing messages are flushed after every received message and at
// least once per interval. The connection is closed on return.
func Sync(ctx context.Context, conn *websocket.Conn, r Replica, peer string, interval time.Duration) error {
	slog.Info("syncing", "peer", peer)
	defer r.ForgetPeer(peer)

	inner, cancel := context.WithCancel(ctx)
	defer cancel()

	kick := make(chan struct{}, 1)
	errs := make(chan error, 2)
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		for {
			if err := readAndReceiveMessage(conn, r, peer); err != nil {
				errs <- err
				return
			}
			select {
			case kick <- struct{}{}:
			default:
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.Close()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			if err := flush(conn, r, peer); err != nil {
				errs <- err
				return
			}
			select {
			case <-t.C:
			case <-kick:
			case <-inner.Done():
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second),
				)
				return
			}
		}
	}()

	wg.Wait()
	close(errs)
	err := <-errs
	if err == nil || ctx.Err() != nil {
		return nil
	}
	if websocket.IsCloseError(errors.Unwrap(err), websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.Info("peer closed", "peer", peer)
		return nil
	}
	return err
}

// Dial opens the sync socket of a board on a relay at base (http or https).
func Dial(ctx context.Context, base *url.URL, docID string) (*websocket.Conn, error) {
	u := base.JoinPath("boards", docID, "sync")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return conn, nil
}
