package room

import (
	"context"
	"ctchen222/tictactoe-ai/internal/bot"
	"ctchen222/tictactoe-ai/internal/game"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/player"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("room")

// GameService is the part of the game service a room drives.
type GameService interface {
	Play(ctx context.Context, id string, index int) (*game.GameStateDTO, error)
	ProxyMove(ctx context.Context, id string, difficulty bot.Difficulty) (*game.GameStateDTO, error)
	Restart(ctx context.Context, id string) (*game.GameStateDTO, error)
}

// Options tunes the timing of a room.
type Options struct {
	// MoveTimeout is how long the player may think before the engine
	// plays for them. Zero disables it.
	MoveTimeout       time.Duration
	HeartbeatInterval time.Duration
	// ThinkDelay holds back the computer's reply so the player sees
	// their own move first.
	ThinkDelay time.Duration
}

// Room represents one websocket game between a player and the computer.
type Room struct {
	ID            string
	Player        *player.Player
	service       GameService
	opts          Options
	mu            sync.Mutex
	incomingMoves chan *types.PlayerMove
	unregister    chan<- *Room
	hubDone       <-chan struct{}
	Done          chan struct{}
	pumpDone      chan struct{}
	closeOnce     sync.Once
}

// NewRoom creates a new game room for the stored game id.
func NewRoom(id string, p *player.Player, service GameService, opts Options) *Room {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = 10 * time.Second
	}
	return &Room{
		ID:            id,
		Player:        p,
		service:       service,
		opts:          opts,
		incomingMoves: make(chan *types.PlayerMove, 10),
		Done:          make(chan struct{}),
		pumpDone:      make(chan struct{}),
	}
}

// Start launches the read pump and the game loop. The room is sent to
// unregister once its connection ends, unless hubDone is closed first.
func (r *Room) Start(unregister chan<- *Room, hubDone <-chan struct{}) {
	r.unregister = unregister
	r.hubDone = hubDone
	go r.ReadPump(r.Player)
	go r.run()
}

// Close stops the game loop. It is safe to call more than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.Done)
	})
}

// Wait blocks until the read pump of a started room has returned.
func (r *Room) Wait() {
	<-r.pumpDone
}

// IncomingMoves returns the channel for incoming player moves.
func (r *Room) IncomingMoves() chan<- *types.PlayerMove {
	return r.incomingMoves
}

// run is the main game loop for the room.
func (r *Room) run() {
	ctx := context.Background()
	moveTimer := time.NewTimer(time.Hour)
	moveTimer.Stop()
	pingTicker := time.NewTicker(r.opts.HeartbeatInterval)

	defer func() {
		moveTimer.Stop()
		pingTicker.Stop()
	}()

	// A new room always waits for the player's first move.
	r.armMoveTimer(moveTimer, true)

	for {
		select {
		case <-r.Done:
			slog.Info("Room run goroutine stopping.", "room.id", r.ID)
			return

		case move := <-r.incomingMoves:
			moveTimer.Stop()
			if state := r.HandleMessage(ctx, move.Player, move.Message); state != nil {
				r.armMoveTimer(moveTimer, !state.Outcome.IsTerminal())
			} else {
				r.armMoveTimer(moveTimer, true)
			}

		case <-moveTimer.C:
			state := r.handleTimeout(ctx)
			r.armMoveTimer(moveTimer, state != nil && !state.Outcome.IsTerminal())

		case <-pingTicker.C:
			r.mu.Lock()
			p := r.Player
			connected := p.Status == player.StatusConnected
			r.mu.Unlock()

			if connected {
				if err := p.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					slog.Warn("Failed to send ping to player, assuming disconnect", "player.id", p.ID, "error", err)
				}
			}
		}
	}
}

func (r *Room) armMoveTimer(t *time.Timer, waiting bool) {
	if r.opts.MoveTimeout <= 0 || !waiting {
		t.Stop()
		return
	}
	t.Reset(r.opts.MoveTimeout)
}
