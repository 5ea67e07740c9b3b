// Package pipeline implements the ordered stage chain packets of a single connection flow through. A host
// transport builds a Pipeline with its own stages; other code may later splice additional stages in
// between them without changing the order or behaviour of the stages that were already present.
package pipeline

import (
	"errors"
	"slices"
	"sync"

	"github.com/heretere/hac/oerror"
)

// Direction is the direction a packet travels in.
type Direction uint8

const (
	// Inbound packets travel from the client to the server.
	Inbound Direction = iota
	// Outbound packets travel from the server to the client.
	Outbound
)

// String ...
func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

var (
	ErrStageNotFound  = errors.New("stage not found")
	ErrDuplicateStage = errors.New("stage already exists")
)

// Handler handles packets flowing through a stage.
type Handler interface {
	HandlePacket(ctx *Context)
}

// HandlerFunc is a function implementing Handler.
type HandlerFunc func(ctx *Context)

// HandlePacket ...
func (f HandlerFunc) HandlePacket(ctx *Context) {
	f(ctx)
}

type stage struct {
	name string
	h    Handler
}

// Pipeline holds the inbound and outbound stage chains of one connection. Packets are fired through it
// on the I/O goroutine of the connection, while stages may be added or removed from any goroutine.
type Pipeline struct {
	mu     sync.RWMutex
	stages [2][]stage
}

// New returns an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// AddLast appends a stage to the end of the chain of the direction passed.
func (p *Pipeline) AddLast(dir Direction, name string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index(dir, name) != -1 {
		return oerror.New("add %s stage %q: %w", dir, name, ErrDuplicateStage)
	}
	p.stages[dir] = append(p.stages[dir], stage{name: name, h: h})
	return nil
}

// AddBefore inserts a stage directly before the stage named base. The relative order of all existing
// stages is left untouched.
func (p *Pipeline) AddBefore(dir Direction, base, name string, h Handler) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.index(dir, name) != -1 {
		return oerror.New("add %s stage %q: %w", dir, name, ErrDuplicateStage)
	}
	i := p.index(dir, base)
	if i == -1 {
		return oerror.New("add %s stage %q before %q: %w", dir, name, base, ErrStageNotFound)
	}
	// A new slice is built so that Fire calls that already captured the old one are unaffected.
	p.stages[dir] = slices.Insert(slices.Clone(p.stages[dir]), i, stage{name: name, h: h})
	return nil
}

// Remove removes the stage with the name passed. It returns false if no such stage existed.
func (p *Pipeline) Remove(dir Direction, name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.index(dir, name)
	if i == -1 {
		return false
	}
	p.stages[dir] = slices.Delete(slices.Clone(p.stages[dir]), i, i+1)
	return true
}

// Has returns true if a stage with the name passed exists.
func (p *Pipeline) Has(dir Direction, name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.index(dir, name) != -1
}

// Names returns the names of the stages of a direction in the order packets flow through them.
func (p *Pipeline) Names(dir Direction) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.stages[dir]))
	for i, s := range p.stages[dir] {
		names[i] = s.name
	}
	return names
}

// Fire passes a raw packet through every stage of the direction passed, in order. It returns the packet
// that should be delivered and true, or false if one of the stages dropped it.
func (p *Pipeline) Fire(dir Direction, pk []byte) ([]byte, bool) {
	p.mu.RLock()
	stages := p.stages[dir]
	p.mu.RUnlock()

	ctx := newContext(pk)
	defer releaseContext(ctx)

	for _, s := range stages {
		s.h.HandlePacket(ctx)
		if ctx.dropped {
			return nil, false
		}
	}
	return ctx.pk, true
}

func (p *Pipeline) index(dir Direction, name string) int {
	return slices.IndexFunc(p.stages[dir], func(s stage) bool {
		return s.name == name
	})
}
