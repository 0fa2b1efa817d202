package server

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/controller"
	"ctchen222/tictactoe-ai/internal/api/response"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/hub"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/player"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub               *hub.Hub
	gameController    *controller.GameController
	defaultDifficulty string
	upgrader          websocket.Upgrader
	engine            *gin.Engine
}

func NewServer(h *hub.Hub, gameController *controller.GameController, defaultDifficulty string) *Server {
	s := &Server{
		hub:               h,
		gameController:    gameController,
		defaultDifficulty: defaultDifficulty,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.newEngine()
	return s
}

// Engine returns the HTTP handler serving the REST API and the websocket.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok"})
	})
	s.gameController.RegisterRoutes(r.Group("/api"))
	r.GET("/ws", s.handleWebSocket)
	return r
}

// handleWebSocket's only responsibility is to upgrade the connection and
// pass a registration request to the hub.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	difficulty := c.DefaultQuery("difficulty", s.defaultDifficulty)
	if _, err := bot.ParseDifficulty(difficulty); err != nil {
		span.SetStatus(codes.Error, "Unknown difficulty")
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	playerID := c.Query("playerId")
	if playerID == "" {
		playerID = uuid.New().String()
	}
	span.SetAttributes(attribute.String("player.id", playerID), attribute.String("game.difficulty", difficulty))

	p := player.NewPlayer(playerID, conn)

	// The request context is cancelled when this handler returns.
	s.hub.Register() <- &types.RegistrationRequest{
		Player:     p,
		Difficulty: difficulty,
		Ctx:        context.WithoutCancel(ctx),
	}
}
