package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/internal"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/player"
	"github.com/heretere/hac/version"
	"github.com/sirupsen/logrus"
)

// ErrAttached is returned when attaching a handle that is already attached.
var ErrAttached = errors.New("connection already attached")

// Options controls which directions of a connection are intercepted.
type Options struct {
	// Inbound enables decoding packets sent by the client, which drives the tracked player state.
	Inbound bool
	// Outbound enables decoding packets sent by the server, which reseeds the player state on teleports.
	Outbound bool
}

// DefaultOptions returns Options with both directions intercepted.
func DefaultOptions() Options {
	return Options{Inbound: true, Outbound: true}
}

// Interceptor splices interception stages into the pipelines of connections, decoding their packets with
// the bound adapter and applying them to the player tracked for each connection.
type Interceptor struct {
	adapter version.Adapter
	players *player.List
	log     *logrus.Logger
	opts    Options

	mu     sync.Mutex
	points map[uuid.UUID]pipeline.Point
}

// NewInterceptor returns an Interceptor decoding packets with the adapter passed and tracking players in
// the list passed.
func NewInterceptor(a version.Adapter, players *player.List, log *logrus.Logger, opts Options) *Interceptor {
	return &Interceptor{
		adapter: a,
		players: players,
		log:     log,
		opts:    opts,
		points:  make(map[uuid.UUID]pipeline.Point),
	}
}

// Attach starts intercepting the connection of a handle and returns the player tracked for it. If the
// stages cannot be spliced into the connection's pipeline, the error is logged and returned, no player is
// tracked, and the connection is left as it was.
func (i *Interceptor) Attach(h *Handle) (*player.Player, error) {
	log := i.log.WithField("conn", h.ID())

	i.mu.Lock()
	defer i.mu.Unlock()
	if h.Closed() {
		return nil, oerror.New("attach %v: connection closed", h.ID())
	}
	if _, ok := i.points[h.ID()]; ok {
		return nil, oerror.New("attach %v: %w", h.ID(), ErrAttached)
	}

	p := player.New(h.ID(), h.Name(), h.RuntimeID(), h.Spawn())
	pt, err := i.splice(h, p, log)
	if err != nil {
		log.Errorf("unable to intercept connection of %s, continuing without interception: %v", h.Name(), err)
		return nil, err
	}
	i.points[h.ID()] = pt
	i.players.Add(p)

	log.Debugf("intercepting connection of %s (protocol %d)", h.Name(), i.adapter.ID())
	return p, nil
}

func (i *Interceptor) splice(h *Handle, p *player.Player, log *logrus.Entry) (pipeline.Point, error) {
	pt, err := i.adapter.InterceptionPoint(h.Transport())
	if err != nil {
		return pt, err
	}
	pl := pt.Pipeline()
	if i.opts.Inbound {
		if err := pl.AddBefore(pipeline.Inbound, pt.InboundAnchor, pipeline.StageInterceptInbound, i.inbound(h, p, log)); err != nil {
			return pt, err
		}
	}
	if i.opts.Outbound {
		if err := pl.AddBefore(pipeline.Outbound, pt.OutboundAnchor, pipeline.StageInterceptOutbound, i.outbound(h, p, log)); err != nil {
			pl.Remove(pipeline.Inbound, pipeline.StageInterceptInbound)
			return pt, err
		}
	}
	return pt, nil
}

// inbound returns the stage handling packets sent by the client. Packets always continue down the pipeline
// unless a handler of the player cancels the movement or posture change they carry.
func (i *Interceptor) inbound(h *Handle, p *player.Player, log *logrus.Entry) pipeline.Handler {
	return pipeline.HandlerFunc(func(ctx *pipeline.Context) {
		ev, err := i.adapter.Decode(ctx.Packet(), false)
		if err != nil {
			i.logDecodeFailure(log, pipeline.Inbound, ctx.Packet(), err)
			return
		}
		if !dispatch(h, p, ev) {
			ctx.Drop()
		}
	})
}

// dispatch applies an event to the player and runs its handler, returning false if the handler cancelled
// the event. Events naming another entity than the player are not applied.
func dispatch(h *Handle, p *player.Player, ev event.Event) bool {
	switch ev := ev.(type) {
	case event.Movement:
		if !ownEntity(h, ev.EntityRuntimeID) {
			return true
		}
		return p.Move(ev)
	case event.PostureChange:
		if !ownEntity(h, ev.EntityRuntimeID) {
			return true
		}
		return p.ChangePosture(ev.Action)
	case event.Batch:
		keep := true
		for _, e := range ev {
			if !dispatch(h, p, e) {
				keep = false
			}
		}
		return keep
	}
	return true
}

// ownEntity reports if a runtime ID decoded from a client packet refers to the player of the connection.
// Packets that carry no runtime ID decode to 0.
func ownEntity(h *Handle, rid uint64) bool {
	return rid == 0 || rid == h.RuntimeID()
}

// outbound returns the stage handling packets sent by the server. It never changes the packets.
func (i *Interceptor) outbound(h *Handle, p *player.Player, log *logrus.Entry) pipeline.Handler {
	return pipeline.HandlerFunc(func(ctx *pipeline.Context) {
		ev, err := i.adapter.Decode(ctx.Packet(), true)
		if err != nil {
			i.logDecodeFailure(log, pipeline.Outbound, ctx.Packet(), err)
			return
		}
		if tp, ok := ev.(event.Teleport); ok && tp.EntityRuntimeID == h.RuntimeID() {
			p.Teleport(tp.Position, tp.Yaw, tp.Pitch)
		}
	})
}

func (i *Interceptor) logDecodeFailure(log *logrus.Entry, dir pipeline.Direction, raw []byte, err error) {
	fields := internal.Fields()
	if h, _, herr := version.ReadHeader(raw); herr == nil {
		fields.Set("packet", h.PacketID)
	}
	fields.Set("direction", dir)
	fields.Set("len", len(raw))
	fields.Set("protocol", i.adapter.ID())
	log.Warnf("unable to decode packet, forwarding it unchanged: %v %s", err, internal.FormatFields(fields))
}

// Synthesize encodes an event and writes it directly to the connection of a handle, in the direction
// passed. A teleport of the player sent to the client also reseeds the tracked player state.
func (i *Interceptor) Synthesize(h *Handle, dir pipeline.Direction, ev event.Event) error {
	if ev == nil {
		return oerror.New("synthesize: nil event")
	}
	if h.Closed() {
		return oerror.New("synthesize %v: connection closed", ev.Kind())
	}
	c, ok := h.Transport().(pipeline.Carrier)
	if !ok {
		return oerror.New("synthesize %v: %w: %T", ev.Kind(), version.ErrUnsupportedTransport, h.Transport())
	}
	raw, err := i.adapter.Encode(ev, dir == pipeline.Outbound)
	if err != nil {
		return oerror.New("synthesize %v: %w", ev.Kind(), err)
	}
	if err := c.Inject(dir, raw); err != nil {
		return oerror.New("synthesize %v: %w", ev.Kind(), err)
	}
	if tp, ok := ev.(event.Teleport); ok && dir == pipeline.Outbound && tp.EntityRuntimeID == h.RuntimeID() {
		if p, ok := i.players.Player(h.ID()); ok {
			p.Teleport(tp.Position, tp.Yaw, tp.Pitch)
		}
	}
	return nil
}

// Detach stops intercepting the connection of a handle: the spliced stages are removed, the player tracked
// for it is removed and closed, and the handle is closed. Calls after the first do nothing and return false.
func (i *Interceptor) Detach(h *Handle) bool {
	if !h.Close() {
		return false
	}
	i.mu.Lock()
	pt, ok := i.points[h.ID()]
	delete(i.points, h.ID())
	i.mu.Unlock()

	if ok {
		pl := pt.Pipeline()
		pl.Remove(pipeline.Inbound, pipeline.StageInterceptInbound)
		pl.Remove(pipeline.Outbound, pipeline.StageInterceptOutbound)
	}
	if p, ok := i.players.Remove(h.ID()); ok {
		i.log.WithField("conn", h.ID()).Debugf("stopped tracking %s", p.Name())
	}
	return true
}

// Attached reports if the connection of a handle is being intercepted.
func (i *Interceptor) Attached(h *Handle) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.points[h.ID()]
	return ok
}

// Adapter returns the adapter packets are decoded with.
func (i *Interceptor) Adapter() version.Adapter {
	return i.adapter
}
