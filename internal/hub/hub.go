package hub

import (
	"context"
	"ctchen222/tictactoe-ai/internal/api/service"
	"ctchen222/tictactoe-ai/internal/hub/types"
	"ctchen222/tictactoe-ai/internal/room"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("hub")

// Hub manages the rooms of all websocket players.
type Hub struct {
	mu          sync.RWMutex
	localRooms  map[string]*room.Room
	register    chan *types.RegistrationRequest
	unregister  chan *room.Room
	done        <-chan struct{}
	gameService service.GameService
	roomOptions room.Options
}

// NewHub creates a new hub.
func NewHub(gameService service.GameService, roomOptions room.Options) *Hub {
	return &Hub{
		localRooms:  make(map[string]*room.Room),
		register:    make(chan *types.RegistrationRequest),
		unregister:  make(chan *room.Room),
		gameService: gameService,
		roomOptions: roomOptions,
	}
}

// Run processes registrations until ctx is cancelled, then closes every room.
func (h *Hub) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Hub is running")
	h.done = ctx.Done()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			slog.Info("Hub stopped")
			return

		case req := <-h.register:
			reqCtx := req.Ctx
			if reqCtx == nil {
				reqCtx = ctx
			}
			h.registerGame(reqCtx, req)

		case r := <-h.unregister:
			h.removeRoom(r)
		}
	}
}

// Register returns the register channel.
func (h *Hub) Register() chan<- *types.RegistrationRequest {
	return h.register
}

// Unregister returns the unregister channel.
func (h *Hub) Unregister() chan<- *room.Room {
	return h.unregister
}

// RoomCount reports the number of open rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.localRooms)
}

// removeRoom drops r by its game id. A newer room stored under the same
// id is left alone.
func (h *Hub) removeRoom(r *room.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r.Close()
	if current, ok := h.localRooms[r.ID]; ok && current == r {
		delete(h.localRooms, r.ID)
		slog.Info("Room closed due to no players", "room.id", r.ID, "player.id", r.Player.ID)
	}
}

// closeAll closes every room and waits for their read pumps to exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	rooms := make([]*room.Room, 0, len(h.localRooms))
	for roomID, r := range h.localRooms {
		r.Player.Conn.Close()
		r.Close()
		rooms = append(rooms, r)
		delete(h.localRooms, roomID)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.Wait()
	}
}
