package game

import (
	"fmt"
	"math/rand"
	"sync"

	"go.uber.org/zap"

	"github.com/inkwell-games/scribble-server/internal/protocol"
)

// =============================================================================
// ROOM REGISTRY
// =============================================================================

// Registry is the concurrent mapping from room code to live Room.
// Codes are unique among live rooms only; a destroyed room's code goes
// back into circulation.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	timing Timing
}

func NewRegistry(timing Timing) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		timing: timing,
	}
}

// Create allocates a room under a fresh four-digit code.
func (reg *Registry) Create(cfg Config) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	code := reg.generateCodeLocked()
	room := newRoom(code, cfg, reg.timing, reg)
	reg.rooms[code] = room

	zap.S().Infof("[Create] room=%s private=%v maxPlayers=%d rounds=%d drawTime=%d",
		code, cfg.Private, cfg.MaxPlayers, cfg.Rounds, cfg.DrawTime)
	return room
}

// Get looks up a live room by code.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	return room, ok
}

// ListPublic reports every public room with its occupancy. Room locks
// are taken one at a time after the registry snapshot, never nested
// under the registry lock.
func (reg *Registry) ListPublic() []protocol.RoomInfo {
	reg.mu.RLock()
	snapshot := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		snapshot = append(snapshot, room)
	}
	reg.mu.RUnlock()

	infos := make([]protocol.RoomInfo, 0, len(snapshot))
	for _, room := range snapshot {
		if info, private := room.Info(); !private {
			infos = append(infos, info)
		}
	}
	return infos
}

// Count reports the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// remove drops an emptied room. Called by the room itself after its
// roster hits zero and its timers are cancelled.
func (reg *Registry) remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
	zap.S().Infof("[remove] room=%s destroyed", code)
}

// generateCodeLocked draws four-digit codes until one is free.
func (reg *Registry) generateCodeLocked() string {
	for {
		code := fmt.Sprintf("%04d", rand.Intn(10000))
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}
