package player

import (
	"sync"

	"github.com/df-mc/dragonfly/server/event"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/heretere/hac/assert"
	hevent "github.com/heretere/hac/event"
)

// Player tracks the physical state of one connected player across its two most recent movements. The
// state is updated from the goroutine handling the player's connection, and may be read from any other
// goroutine through View or Snapshot.
type Player struct {
	id        uuid.UUID
	name      string
	runtimeID uint64

	mu       sync.RWMutex
	current  State
	previous State
	closed   bool
	// seq is incremented by every update of the states.
	seq uint64

	hMu sync.RWMutex
	h   Handler
}

// New returns a Player for the session ID passed, with both its current and previous state seeded from
// the spawn.
func New(id uuid.UUID, name string, runtimeID uint64, spawn Spawn) *Player {
	s := spawn.state()
	return &Player{
		id:        id,
		name:      name,
		runtimeID: runtimeID,
		current:   s,
		previous:  s,
		h:         NopHandler{},
	}
}

// ID returns the ID of the session the player is connected through.
func (p *Player) ID() uuid.UUID {
	return p.id
}

// Name returns the display name of the player.
func (p *Player) Name() string {
	return p.name
}

// RuntimeID returns the entity runtime ID the server assigned to the player.
func (p *Player) RuntimeID() uint64 {
	return p.runtimeID
}

// ApplyMovement moves the player to a new location. The current state is copied into the previous state
// before the location, direction and ground state are replaced, and the velocity is recomputed from the two
// locations. ApplyMovement returns false if the player was closed.
func (p *Player) ApplyMovement(x, y, z, yaw, pitch float64, onGround bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	p.applyMovement(x, y, z, yaw, pitch, onGround)
	return true
}

func (p *Player) applyMovement(x, y, z, yaw, pitch float64, onGround bool) {
	p.previous = p.current
	p.current.location = mgl64.Vec3{x, y, z}
	p.current.velocity = p.current.location.Sub(p.previous.location)
	p.current.direction = mgl64.Vec2{yaw, pitch}
	p.current.onGround = onGround
	p.seq++
}

// ApplyPosture toggles the posture flag of the current state matching the action. Invalid actions are
// ignored. ApplyPosture returns false if nothing was changed.
func (p *Player) ApplyPosture(a hevent.Action) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	return p.applyPosture(a)
}

func (p *Player) applyPosture(a hevent.Action) bool {
	s := &p.current
	switch a {
	case hevent.ActionStartSneaking:
		s.sneaking = true
	case hevent.ActionStopSneaking:
		s.sneaking = false
	case hevent.ActionStartSprinting:
		s.sprinting = true
	case hevent.ActionStopSprinting:
		s.sprinting = false
	case hevent.ActionStartGliding:
		s.elytraFlying = true
	case hevent.ActionStopGliding:
		s.elytraFlying = false
	case hevent.ActionStartFlying:
		s.flying = true
	case hevent.ActionStopFlying:
		s.flying = false
	default:
		return false
	}
	p.seq++
	return true
}

// Move moves the player like ApplyMovement and calls its handler for the movement. If the handler cancels
// it, the states the player had before the movement are restored and Move returns false. Movements of a
// closed player are ignored.
func (p *Player) Move(mv hevent.Movement) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	current, previous := p.current, p.previous
	p.applyMovement(mv.Position[0], mv.Position[1], mv.Position[2], mv.Yaw, mv.Pitch, mv.OnGround)
	seq := p.seq
	p.mu.Unlock()

	if p.HandleMovement(mv) {
		return true
	}
	p.restore(seq, current, previous)
	return false
}

// ChangePosture applies a posture change like ApplyPosture and calls the handler of the player for it. If
// the handler cancels it, the current state is restored and ChangePosture returns false. Changes that do
// not change the state do not reach the handler.
func (p *Player) ChangePosture(a hevent.Action) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	current, previous := p.current, p.previous
	if !p.applyPosture(a) {
		p.mu.Unlock()
		return true
	}
	seq := p.seq
	p.mu.Unlock()

	if p.HandlePosture(a) {
		return true
	}
	p.restore(seq, current, previous)
	return false
}

// restore puts back the states passed if the player was not updated after the update numbered seq.
func (p *Player) restore(seq uint64, current, previous State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.seq != seq {
		return
	}
	p.current, p.previous = current, previous
	p.seq++
}

// Teleport places the player at a position assigned by the server. Both states are reseeded, so the
// velocity of the movement after a teleport is measured from the teleport position.
func (p *Player) Teleport(pos mgl64.Vec3, yaw, pitch float64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}

	p.current.location = pos
	p.current.velocity = mgl64.Vec3{}
	p.current.direction = mgl64.Vec2{yaw, pitch}
	p.previous = p.current
	p.seq++
	return true
}

// Current returns the live current state of the player. It may only be used from the goroutine updating
// the player and must not be retained past the next update.
func (p *Player) Current() *State {
	assert.IsTrue(!p.Closed(), "current state of %v accessed after close", p.id)
	return &p.current
}

// Previous returns the live previous state of the player, under the same terms as Current.
func (p *Player) Previous() *State {
	assert.IsTrue(!p.Closed(), "previous state of %v accessed after close", p.id)
	return &p.previous
}

// View calls f with the current and previous state while holding the lock of the player, so that neither
// changes during the call. f must not retain the states or call back into the player.
func (p *Player) View(f func(current, previous *State)) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f(&p.current, &p.previous)
}

// Snapshot returns copies of the current and previous state, taken together.
func (p *Player) Snapshot() (current, previous State) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current, p.previous
}

// Handle sets the handler called for the movement and posture changes of the player. Passing nil resets it
// to a NopHandler.
func (p *Player) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	p.hMu.Lock()
	defer p.hMu.Unlock()
	p.h = h
}

// Handler returns the handler of the player.
func (p *Player) Handler() Handler {
	p.hMu.RLock()
	defer p.hMu.RUnlock()
	return p.h
}

// Closed reports if the player was closed.
func (p *Player) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close closes the player. Updates made after Close are ignored. Only the first call has any effect, and
// it returns true.
func (p *Player) Close() bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.closed = true
	p.mu.Unlock()

	p.Handler().HandleQuit(p)
	return true
}

// HandleMovement calls the handler of the player for a movement it just made, returning false if the
// handler cancelled it.
func (p *Player) HandleMovement(mv hevent.Movement) bool {
	ctx := event.C(p)
	p.Handler().HandleMovement(ctx, mv)
	return !ctx.Cancelled()
}

// HandlePosture calls the handler of the player for a posture change, returning false if the handler
// cancelled it.
func (p *Player) HandlePosture(a hevent.Action) bool {
	ctx := event.C(p)
	p.Handler().HandlePosture(ctx, a)
	return !ctx.Cancelled()
}
