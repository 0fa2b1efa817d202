package server

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/controller"
	"ctchen222/tictactoe-ai/internal/api/service"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/hub"
	"ctchen222/tictactoe-ai/internal/repository"
	"ctchen222/tictactoe-ai/internal/room"
	"ctchen222/tictactoe-ai/pkg/proto"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryKVStore()
	svc := service.NewGameService(
		repository.NewMemoryGameRepository(),
		repository.NewScoreRepository(store),
		repository.NewPreferenceRepository(store),
		bot.NewBotMoveCalculator(bot.NewEngine(rand.NewPCG(9, 9))),
		service.NewTokenIssuer("test-secret", time.Hour),
	)

	h := hub.NewHub(svc, room.Options{HeartbeatInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(NewServer(h, controller.NewGameController(svc), "medium").Engine())
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_WebSocketRejectsUnknownDifficulty(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws?difficulty=nightmare")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_WebSocketGame(t *testing.T) {
	srv := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?difficulty=hard"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var assignment proto.PlayerAssignmentMessage
	require.NoError(t, conn.ReadJSON(&assignment))
	assert.Equal(t, proto.TypeAssignment, assignment.Type)
	assert.Equal(t, "X", string(assignment.Mark))
	assert.Equal(t, "hard", assignment.Difficulty)
	assert.NotEmpty(t, assignment.GameID)

	var update proto.ServerToClientMessage
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, proto.TypeUpdate, update.Type)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "position": 4}))

	update = proto.ServerToClientMessage{}
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, proto.TypeUpdate, update.Type)
	assert.Equal(t, "X", string(update.Board[1][1]))
	require.NotNil(t, update.LastMove)
	assert.Equal(t, "O", string(update.Board[*update.LastMove/3][*update.LastMove%3]))

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "move", "position": 4}))
	update = proto.ServerToClientMessage{}
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, proto.TypeError, update.Type)
}
