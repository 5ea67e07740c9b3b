package player

import (
	"sync"

	"github.com/google/uuid"
)

// List holds the players of every active session, keyed by session ID.
type List struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player
}

// NewList returns an empty List.
func NewList() *List {
	return &List{players: make(map[uuid.UUID]*Player)}
}

// Add adds a player to the list. It returns false if a player with the same ID was already present.
func (l *List) Add(p *Player) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.players[p.ID()]; ok {
		return false
	}
	l.players[p.ID()] = p
	return true
}

// Player returns the player of the session with the ID passed.
func (l *List) Player(id uuid.UUID) (*Player, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.players[id]
	return p, ok
}

// Remove removes the player of a session from the list and closes it.
func (l *List) Remove(id uuid.UUID) (*Player, bool) {
	l.mu.Lock()
	p, ok := l.players[id]
	delete(l.players, id)
	l.mu.Unlock()

	if ok {
		p.Close()
	}
	return p, ok
}

// All returns all players in the list.
func (l *List) All() []*Player {
	l.mu.RLock()
	defer l.mu.RUnlock()
	players := make([]*Player, 0, len(l.players))
	for _, p := range l.players {
		players = append(players, p)
	}
	return players
}

// Len returns the number of players in the list.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.players)
}
