// Package hac implements a movement tracking proxy for Minecraft: Bedrock Edition. It intercepts the
// packets of every connection, decodes them with the adapter of the protocol the server speaks, and keeps
// the current and previous physical state of each player for anti-cheat detections to read.
package hac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/player"
	"github.com/heretere/hac/session"
	"github.com/heretere/hac/version"
	"github.com/heretere/hac/version/latest"
	"github.com/heretere/hac/version/v419"
	"github.com/heretere/hac/version/v527"
	"github.com/heretere/hac/version/v766"
	"github.com/sirupsen/logrus"
)

// detectTimeout is how long New waits for the remote server to answer a ping.
const detectTimeout = 5 * time.Second

// Options holds the values HAC is created with.
type Options struct {
	// Protocol is the protocol version of the server. If 0, it is detected by pinging RemoteAddr.
	Protocol int32
	// RemoteAddr is the address of the server connections are proxied to.
	RemoteAddr string
	// Interception controls which directions of each connection are intercepted.
	Interception session.Options
}

// HAC tracks the players of every intercepted connection.
type HAC struct {
	log     *logrus.Logger
	opts    Options
	adapter version.Adapter
	players *player.List
	ic      *session.Interceptor
}

// DefaultRegistry returns a registry holding every adapter implemented.
func DefaultRegistry() *version.Registry {
	reg, err := version.NewRegistry(v419.New(), v527.New(), v766.New(), latest.New())
	if err != nil {
		panic(err)
	}
	return reg
}

// New resolves the adapter for the protocol of the server and binds it for the rest of the process. New
// fails if the protocol cannot be detected or no adapter in the registry implements it.
func New(log *logrus.Logger, reg *version.Registry, opts Options) (*HAC, error) {
	id := opts.Protocol
	if id == 0 {
		ctx, cancel := context.WithTimeout(context.Background(), detectTimeout)
		defer cancel()

		detected, name, err := version.Detect(ctx, opts.RemoteAddr)
		if err != nil {
			return nil, oerror.New("detect protocol of %v: %w", opts.RemoteAddr, err)
		}
		log.Infof("%v is running %s (protocol %d)", opts.RemoteAddr, name, detected)
		id = detected
	}

	a, err := reg.Resolve(id)
	if err != nil {
		return nil, err
	}
	if err := version.Bind(a); err != nil {
		return nil, err
	}
	log.Infof("using protocol adapter for %s (%d)", a.Name(), a.ID())

	players := player.NewList()
	return &HAC{
		log:     log,
		opts:    opts,
		adapter: a,
		players: players,
		ic:      session.NewInterceptor(a, players, log, opts.Interception),
	}, nil
}

// OnConnectionEstablished starts intercepting a connection. If interception cannot be set up, the error is
// returned and the connection should carry on without it.
func (h *HAC) OnConnectionEstablished(handle *session.Handle) (*player.Player, error) {
	return h.ic.Attach(handle)
}

// OnConnectionClosed stops intercepting a connection and releases its player. It may be called more than
// once for the same connection.
func (h *HAC) OnConnectionClosed(handle *session.Handle) {
	h.ic.Detach(handle)
}

// Player returns the player tracked for the connection with the session ID passed.
func (h *HAC) Player(id uuid.UUID) (*player.Player, bool) {
	return h.players.Player(id)
}

// Players returns every player currently tracked.
func (h *HAC) Players() []*player.Player {
	return h.players.All()
}

// Adapter returns the protocol adapter bound.
func (h *HAC) Adapter() version.Adapter {
	return h.adapter
}

// Synthesize writes an event to a connection as a packet in the direction passed.
func (h *HAC) Synthesize(handle *session.Handle, dir pipeline.Direction, ev event.Event) error {
	return h.ic.Synthesize(handle, dir, ev)
}

// Log returns the logger of HAC.
func (h *HAC) Log() *logrus.Logger {
	return h.log
}
