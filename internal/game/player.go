package game

import (
	"sync"

	"github.com/google/uuid"
)

const (
	defaultAvatarColor     = "#FF5733"
	defaultAvatarAccessory = "none"
)

// Sender delivers one protocol line to a client. Send must never
// block: it enqueues on the connection's bounded outbound queue and
// reports false when the connection is gone or the queue overflowed.
type Sender interface {
	Send(line string) bool
}

// Player is one connected client's identity. The id is generated
// server-side and never reused. Scores are not stored here: the score
// ledger belongs to the Room the player is currently in.
type Player struct {
	ID string

	mu        sync.RWMutex
	name      string
	color     string
	accessory string

	out Sender
}

func NewPlayer(out Sender) *Player {
	return &Player{
		ID:        uuid.NewString(),
		color:     defaultAvatarColor,
		accessory: defaultAvatarAccessory,
		out:       out,
	}
}

func (p *Player) SetName(name string) {
	p.mu.Lock()
	p.name = name
	p.mu.Unlock()
}

func (p *Player) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Player) SetAvatar(color, accessory string) {
	p.mu.Lock()
	p.color = color
	if accessory != "" {
		p.accessory = accessory
	}
	p.mu.Unlock()
}

func (p *Player) Avatar() (color, accessory string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.color, p.accessory
}

// Send enqueues one line for this player.
func (p *Player) Send(line string) bool {
	return p.out.Send(line)
}
