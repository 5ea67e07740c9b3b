package player

import (
	"github.com/df-mc/dragonfly/server/event"
	hevent "github.com/heretere/hac/event"
)

// Handler handles the updates of a Player. Handlers are called on the goroutine of the player's connection
// after the state of the player was updated, so Player.Current and Player.Previous already reflect the
// update.
type Handler interface {
	// HandleMovement handles the player moving. Cancelling ctx drops the packet the movement came from.
	HandleMovement(ctx *event.Context[*Player], mv hevent.Movement)
	// HandlePosture handles the player changing its posture. Cancelling ctx drops the packet the change came
	// from.
	HandlePosture(ctx *event.Context[*Player], a hevent.Action)
	// HandleQuit handles the player being closed.
	HandleQuit(p *Player)
}

// NopHandler implements Handler without doing anything.
type NopHandler struct{}

func (NopHandler) HandleMovement(*event.Context[*Player], hevent.Movement) {}
func (NopHandler) HandlePosture(*event.Context[*Player], hevent.Action)    {}
func (NopHandler) HandleQuit(*Player)                                      {}
