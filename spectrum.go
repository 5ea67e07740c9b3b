package hac

import (
	"bytes"
	"sync/atomic"

	"github.com/cooldogedev/spectrum/session"
	"github.com/getsentry/sentry-go"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/player"
	hsession "github.com/heretere/hac/session"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// ClientDecode holds the IDs of the client packets spectrum must decode for the Processor to see them.
var ClientDecode = []uint32{
	packet.IDMovePlayer,
	packet.IDPlayerAction,
	packet.IDPlayerAuthInput,
}

var _ session.Processor = &Processor{}

// Processor intercepts a session of a spectrum proxy. Packets spectrum decodes are encoded again to pass
// them through the pipeline of the session, and packets it forwards encoded pass through as they are.
type Processor struct {
	session.NopProcessor

	h        *HAC
	name     string
	conn     pipeline.Carrier
	gameData func() (minecraft.GameData, bool)

	closed atomic.Bool
	handle atomic.Pointer[hsession.Handle]
}

// NewProcessor returns a Processor for a session of a spectrum proxy. Interception starts once the game
// data of the session is known, and starts over with the game data of the new server after a transfer.
// Spectrum decodes packets with the current protocol, so the adapter bound must be the one of the latest
// package.
func (h *HAC) NewProcessor(s *session.Session) *Processor {
	return h.newProcessor(s.Client().IdentityData().DisplayName, &spectrumConn{s: s, pl: newHostPipeline()}, func() (minecraft.GameData, bool) {
		srv := s.Server()
		if srv == nil {
			return minecraft.GameData{}, false
		}
		return srv.GameData(), true
	})
}

func (h *HAC) newProcessor(name string, conn pipeline.Carrier, gameData func() (minecraft.GameData, bool)) *Processor {
	return &Processor{h: h, name: name, conn: conn, gameData: gameData}
}

func (p *Processor) ProcessStartGame(_ *session.Context, gd *minecraft.GameData) {
	p.start(*gd)
}

// ProcessPostTransfer intercepts the session again with the game data of the server it was transferred
// to. The player tracked before the transfer is closed.
func (p *Processor) ProcessPostTransfer(_ *session.Context, _ *string, _ *string) {
	gd, ok := p.gameData()
	if !ok {
		return
	}
	p.release()
	p.start(gd)
}

func (p *Processor) ProcessDisconnection(_ *session.Context, _ *string) {
	p.closed.Store(true)
	p.release()
}

// start attaches a new handle for the game data passed, unless the session was already disconnected.
func (p *Processor) start(gd minecraft.GameData) {
	if p.closed.Load() {
		return
	}
	handle := hsession.NewHandle(p.name, gd.EntityRuntimeID, player.Spawn{
		Position: version.Vec64(gd.PlayerPosition),
		Yaw:      float64(gd.Yaw),
		Pitch:    float64(gd.Pitch),
	}, p.conn)
	if _, err := p.h.OnConnectionEstablished(handle); err != nil {
		return
	}
	p.handle.Store(handle)
	// The session may have been disconnected while attaching, in which case nothing else releases it.
	if p.closed.Load() {
		p.release()
	}
}

func (p *Processor) release() {
	if handle := p.handle.Swap(nil); handle != nil {
		p.h.OnConnectionClosed(handle)
	}
}

func (p *Processor) ProcessClient(ctx *session.Context, pk *packet.Packet) {
	p.process(ctx, pk, pipeline.Inbound)
}

func (p *Processor) ProcessServer(ctx *session.Context, pk *packet.Packet) {
	p.process(ctx, pk, pipeline.Outbound)
}

func (p *Processor) ProcessClientEncoded(ctx *session.Context, pk *[]byte) {
	p.processEncoded(ctx, pk, pipeline.Inbound)
}

func (p *Processor) ProcessServerEncoded(ctx *session.Context, pk *[]byte) {
	p.processEncoded(ctx, pk, pipeline.Outbound)
}

func (p *Processor) process(ctx *session.Context, pk *packet.Packet, dir pipeline.Direction) {
	if p.handle.Load() == nil {
		return
	}
	defer p.recoverPanic(*pk)

	raw := version.Marshal(*pk)
	out, ok := p.conn.Pipeline().Fire(dir, raw)
	if !ok {
		ctx.Cancel()
		return
	}
	if bytes.Equal(out, raw) {
		return
	}
	modified, err := version.Unmarshal(out, dir == pipeline.Outbound)
	if err != nil {
		p.h.log.Errorf("unable to decode rewritten %T: %v", *pk, err)
		return
	}
	*pk = modified
}

func (p *Processor) processEncoded(ctx *session.Context, pk *[]byte, dir pipeline.Direction) {
	if p.handle.Load() == nil {
		return
	}
	defer p.recoverPanic(*pk)

	out, ok := p.conn.Pipeline().Fire(dir, *pk)
	if !ok {
		ctx.Cancel()
		return
	}
	*pk = out
}

// recoverPanic reports a panic raised while processing a packet to sentry, so that the session carries on.
func (p *Processor) recoverPanic(pk any) {
	v := recover()
	if v == nil {
		return
	}
	p.h.log.Errorf("panic processing %T: %v", pk, v)
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("conn_type", "spectrum")
		scope.SetTag("player", p.name)
	})
	hub.Recover(oerror.New("%v", v))
}

// Handle returns the handle of the intercepted session, or nil if interception has not started.
func (p *Processor) Handle() *hsession.Handle {
	return p.handle.Load()
}

// spectrumConn carries the pipeline of a spectrum session.
type spectrumConn struct {
	s  *session.Session
	pl *pipeline.Pipeline
}

func (c *spectrumConn) Pipeline() *pipeline.Pipeline {
	return c.pl
}

func (c *spectrumConn) Inject(dir pipeline.Direction, raw []byte) error {
	pk, err := version.Unmarshal(raw, dir == pipeline.Outbound)
	if err != nil {
		return err
	}
	if dir == pipeline.Outbound {
		return c.s.Client().WritePacket(pk)
	}
	if srv := c.s.Server(); srv != nil {
		return srv.WritePacket(pk)
	}
	return oerror.New("inject %T: session has no server connection", pk)
}

// newHostPipeline returns a pipeline with the packet handler stages of the host, which interception stages
// are spliced in front of.
func newHostPipeline() *pipeline.Pipeline {
	pl := pipeline.New()
	_ = pl.AddLast(pipeline.Inbound, pipeline.StagePacketHandler, &packetStats{})
	_ = pl.AddLast(pipeline.Outbound, pipeline.StagePacketHandler, &packetStats{})
	return pl
}
