package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/forumly-api/internal/dto"
)

type fakeStreamConn struct {
	closeOnce sync.Once
	closed    chan struct{}
	written   chan dto.ChatMessageResponse
	pings     chan struct{}
}

func newFakeStreamConn() *fakeStreamConn {
	return &fakeStreamConn{
		closed:  make(chan struct{}),
		written: make(chan dto.ChatMessageResponse, 8),
		pings:   make(chan struct{}, 8),
	}
}

func (c *fakeStreamConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("connection closed")
}

func (c *fakeStreamConn) WriteJSON(v interface{}) error {
	message, ok := v.(dto.ChatMessageResponse)
	if !ok {
		return errors.New("unexpected payload")
	}
	c.written <- message
	return nil
}

func (c *fakeStreamConn) WriteMessage(messageType int, data []byte) error {
	select {
	case c.pings <- struct{}{}:
	default:
	}
	return nil
}

func (c *fakeStreamConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func serveInBackground(t *testing.T, ctx context.Context, hub *ChatHub, conn *fakeStreamConn, roomID, userID uint) <-chan struct{} {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Serve(ctx, conn, roomID, userID)
	}()
	require.Eventually(t, func() bool { return hub.Subscribers(roomID) == 1 }, time.Second, 10*time.Millisecond)
	return done
}

func receive(t *testing.T, conn *fakeStreamConn) dto.ChatMessageResponse {
	t.Helper()
	select {
	case message := <-conn.written:
		return message
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chat message")
		return dto.ChatMessageResponse{}
	}
}

func TestChatHubDeliversToRoomSubscribers(t *testing.T) {
	hub := NewChatHub(nil, "", nil, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	member := newFakeStreamConn()
	done := serveInBackground(t, ctx, hub, member, 7, 1)

	hub.Publish(ctx, dto.ChatMessageResponse{ID: 1, RoomID: 8, Content: "elsewhere", MessageType: "text"})
	hub.Publish(ctx, dto.ChatMessageResponse{ID: 2, RoomID: 7, Content: "hello", MessageType: "text"})

	message := receive(t, member)
	require.Equal(t, uint(2), message.ID)
	require.Equal(t, "hello", message.Content)

	require.NoError(t, member.Close())
	<-done
	require.Zero(t, hub.Subscribers(7))
}

func TestChatHubFansOutAcrossNodes(t *testing.T) {
	server := miniredis.RunT(t)
	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewChatHub(clientA, "forumly", nil, testLogger())
	nodeB := NewChatHub(clientB, "forumly", nil, testLogger())
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	local := newFakeStreamConn()
	remote := newFakeStreamConn()
	serveInBackground(t, ctx, nodeA, local, 3, 1)
	serveInBackground(t, ctx, nodeB, remote, 3, 2)

	nodeA.Publish(ctx, dto.ChatMessageResponse{ID: 11, RoomID: 3, Content: "across nodes", MessageType: "text"})

	require.Equal(t, "across nodes", receive(t, local).Content)
	require.Equal(t, "across nodes", receive(t, remote).Content)

	// node A ignores its own event coming back from redis
	select {
	case extra := <-local.written:
		t.Fatalf("unexpected duplicate delivery: %+v", extra)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestChatHubStopsOnContextCancel(t *testing.T) {
	hub := NewChatHub(nil, "", nil, testLogger())
	hub.pingInterval = 10 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())

	conn := newFakeStreamConn()
	done := serveInBackground(t, ctx, hub, conn, 1, 1)

	select {
	case <-conn.pings:
	case <-time.After(time.Second):
		t.Fatal("expected keepalive ping")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serve did not return after cancel")
	}
	require.Zero(t, hub.Subscribers(1))
}
