package player

import "time"

// Status is the connection state of a player.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// Player represents the human side of a room.
type Player struct {
	ID         string
	Conn       Connection
	Status     Status
	LastSeen   time.Time
	Difficulty string
}

// NewPlayer creates a connected player.
func NewPlayer(id string, conn Connection) *Player {
	return &Player{
		ID:       id,
		Conn:     conn,
		Status:   StatusConnected,
		LastSeen: time.Now(),
	}
}

// Disconnect marks the player as gone.
func (p *Player) Disconnect() {
	p.Status = StatusDisconnected
	p.LastSeen = time.Now()
}
