package hub

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/service"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/player"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/room"
	"ctchen222/tictactoe-ai/pkg/proto"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	written   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		written: make(chan []byte, 16),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType == websocket.TextMessage {
		c.written <- data
	}
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, errors.New("connection closed")
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case data := <-c.written:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return nil
}

func newTestHub(t *testing.T) (*Hub, service.GameService) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	h, svc, _ := startTestHub(t, ctx)
	return h, svc
}

// startTestHub runs a hub until ctx is cancelled. The returned channel is
// closed once Run returns.
func startTestHub(t *testing.T, ctx context.Context) (*Hub, service.GameService, <-chan struct{}) {
	t.Helper()
	store := repository.NewMemoryKVStore()
	tokens := service.NewTokenIssuer("test-secret", time.Hour)
	svc := service.NewGameService(
		repository.NewMemoryGameRepository(),
		repository.NewScoreRepository(store),
		repository.NewPreferenceRepository(store),
		bot.NewBotMoveCalculator(bot.NewEngine(rand.NewPCG(5, 6))),
		tokens,
	)

	h := NewHub(svc, room.Options{HeartbeatInterval: time.Hour})
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()
	return h, svc, stopped
}

func registerPlayer(t *testing.T, h *Hub, playerID string) (*fakeConn, string) {
	t.Helper()
	conn := newFakeConn()
	h.Register() <- &types.RegistrationRequest{
		Player:     player.NewPlayer(playerID, conn),
		Difficulty: "easy",
		Ctx:        context.Background(),
	}

	assignment := conn.next(t)
	require.Equal(t, proto.TypeAssignment, assignment["type"])
	gameID, _ := assignment["gameId"].(string)
	require.NotEmpty(t, gameID)
	conn.next(t)
	return conn, gameID
}

func (h *Hub) hasRoom(id string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.localRooms[id]
	return ok
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	h, svc := newTestHub(t)
	conn := newFakeConn()

	h.Register() <- &types.RegistrationRequest{
		Player:     player.NewPlayer("player-1", conn),
		Difficulty: "easy",
		Ctx:        context.Background(),
	}

	assignment := conn.next(t)
	assert.Equal(t, proto.TypeAssignment, assignment["type"])
	assert.Equal(t, "X", assignment["mark"])
	assert.Equal(t, "easy", assignment["difficulty"])
	gameID, _ := assignment["gameId"].(string)
	token, _ := assignment["token"].(string)
	require.NotEmpty(t, gameID)
	assert.NoError(t, svc.VerifyToken(token, gameID))

	update := conn.next(t)
	assert.Equal(t, proto.TypeUpdate, update["type"])
	assert.Equal(t, "X", update["next"])

	assert.Eventually(t, func() bool { return h.RoomCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.RoomCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RegisterRejectsUnknownDifficulty(t *testing.T) {
	h, _ := newTestHub(t)
	conn := newFakeConn()

	h.Register() <- &types.RegistrationRequest{
		Player:     player.NewPlayer("player-2", conn),
		Difficulty: "nightmare",
	}

	msg := conn.next(t)
	assert.Equal(t, proto.TypeError, msg["type"])

	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Fatal("connection was not closed")
	}
	assert.Equal(t, 0, h.RoomCount())
}

func TestHub_UnregisterRemovesOnlyDisconnectedRoom(t *testing.T) {
	h, _ := newTestHub(t)

	firstConn, firstID := registerPlayer(t, h, "shared-id")
	_, secondID := registerPlayer(t, h, "shared-id")
	require.NotEqual(t, firstID, secondID)
	assert.Eventually(t, func() bool { return h.RoomCount() == 2 }, time.Second, 10*time.Millisecond)

	firstConn.Close()
	assert.Eventually(t, func() bool { return !h.hasRoom(firstID) }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, h.hasRoom(secondID))
	assert.Equal(t, 1, h.RoomCount())
}

func TestHub_RunClosesRoomsOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _, stopped := startTestHub(t, ctx)

	conn, gameID := registerPlayer(t, h, "player-3")
	require.True(t, h.hasRoom(gameID))

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}

	select {
	case <-conn.closed:
	default:
		t.Fatal("connection was not closed")
	}
	assert.Equal(t, 0, h.RoomCount())
}
