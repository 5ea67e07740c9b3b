// Package session ties live connections to the players tracked for them, splicing interception stages into
// the pipeline of each connection's transport.
package session

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/heretere/hac/player"
)

// Handle identifies one live connection. Its ID is generated when the handle is created and is never
// reused, not even for the same player reconnecting.
type Handle struct {
	id        uuid.UUID
	name      string
	runtimeID uint64
	spawn     player.Spawn
	transport any

	closed atomic.Bool
}

// NewHandle returns a Handle for a connection of the player with the name and entity runtime ID passed. The
// spawn is the state negotiated when the session started, and transport is the connection itself.
func NewHandle(name string, runtimeID uint64, spawn player.Spawn, transport any) *Handle {
	return &Handle{
		id:        uuid.New(),
		name:      name,
		runtimeID: runtimeID,
		spawn:     spawn,
		transport: transport,
	}
}

func (h *Handle) ID() uuid.UUID       { return h.id }
func (h *Handle) Name() string        { return h.name }
func (h *Handle) RuntimeID() uint64   { return h.runtimeID }
func (h *Handle) Spawn() player.Spawn { return h.spawn }
func (h *Handle) Transport() any      { return h.transport }

// Close marks the handle closed. It returns true only for the first call.
func (h *Handle) Close() bool {
	return h.closed.CompareAndSwap(false, true)
}

// Closed reports if the handle was closed.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}
