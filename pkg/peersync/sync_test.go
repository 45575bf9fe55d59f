package peersync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astromechza/automerge-trellis/pkg/board"
	"github.com/astromechza/automerge-trellis/pkg/session"
	"github.com/astromechza/automerge-trellis/pkg/store"
)

func newStore(name string) *store.Store {
	return store.New(store.Config{Session: &session.Session{PeerName: name}})
}

func TestSyncConvergesTwoStores(t *testing.T) {
	a := newStore("Amelia")
	require.NoError(t, a.NewDocument())
	b := newStore("Marco")
	require.NoError(t, b.OpenDocID("abcdef-01"))

	serverDone := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			serverDone <- err
			return
		}
		serverDone <- Sync(ctx, conn, b, "client", 10*time.Millisecond)
	}))
	defer srv.Close()

	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	conn, err := Dial(ctx, base, "abcdef-01")
	require.NoError(t, err)

	clientDone := make(chan error, 1)
	go func() {
		clientDone <- Sync(ctx, conn, a, "server", 10*time.Millisecond)
	}()

	require.NoError(t, a.Dispatch(board.UpdateBoardTitle{Value: "shared"}))
	require.Eventually(t, func() bool {
		return b.LiveState().BoardTitle == "shared" && len(b.Lists()) == 3
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Dispatch(board.CreateList{Title: "from marco"}))
	require.Eventually(t, func() bool {
		return len(a.Lists()) == 4
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-clientDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client sync did not stop")
	}
	select {
	case err := <-serverDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server sync did not stop")
	}
}

func TestDialFailure(t *testing.T) {
	base, err := url.Parse("http://127.0.0.1:1")
	require.NoError(t, err)
	_, err = Dial(context.Background(), base, "abcdef")
	assert.Error(t, err)
}
