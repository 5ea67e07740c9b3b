package hac

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/player"
	"github.com/heretere/hac/session"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sirupsen/logrus"
)

// proxyConn is a connection proxied by Listen. Packets are forwarded as raw bytes, passing through the
// pipeline of the connection on the way.
type proxyConn struct {
	client *minecraft.Conn
	server *minecraft.Conn

	pl    *pipeline.Pipeline
	stats [2]*packetStats
}

func newProxyConn(client, server *minecraft.Conn, listener *minecraft.Listener, proto minecraft.Protocol, log *logrus.Entry) *proxyConn {
	c := &proxyConn{
		client: client,
		server: server,
		pl:     pipeline.New(),
		stats:  [2]*packetStats{{}, {}},
	}
	limiter := newRateLimiter(proto, func() {
		log.Warnf("%s was removed from the server due to exceeding the packet rate limit", client.IdentityData().DisplayName)
		go func() { _ = listener.Disconnect(client, "Packet rate limit exceeded.") }()
	})
	_ = c.pl.AddLast(pipeline.Inbound, pipeline.StageRateLimit, limiter)
	_ = c.pl.AddLast(pipeline.Inbound, pipeline.StagePacketHandler, c.stats[pipeline.Inbound])
	_ = c.pl.AddLast(pipeline.Outbound, pipeline.StagePacketHandler, c.stats[pipeline.Outbound])
	return c
}

func (c *proxyConn) Pipeline() *pipeline.Pipeline {
	return c.pl
}

// Inject writes a raw packet to the server if dir is Inbound, or to the client if it is Outbound, without
// passing it through the pipeline.
func (c *proxyConn) Inject(dir pipeline.Direction, raw []byte) error {
	dst := c.server
	if dir == pipeline.Outbound {
		dst = c.client
	}
	_, err := dst.Write(raw)
	return err
}

// forward reads packets from src and writes them to dst until either fails.
func (c *proxyConn) forward(dir pipeline.Direction, src, dst *minecraft.Conn) error {
	for {
		raw, err := src.ReadBytes()
		if err != nil {
			return err
		}
		out, ok := c.pl.Fire(dir, raw)
		if !ok {
			continue
		}
		if _, err := dst.Write(out); err != nil {
			return err
		}
	}
}

// Listen accepts connections on localAddr and proxies them to the remote server, intercepting each of them
// until the context is cancelled. The proxy speaks the protocol of the adapter bound to both sides, so
// Listen fails if that adapter does not implement a protocol gophertunnel connections can speak.
func (h *HAC) Listen(ctx context.Context, localAddr string) error {
	proto, ok := h.wireProtocol()
	if !ok {
		return oerror.New("%w: the proxy cannot speak protocol %d", version.ErrUnsupportedVersion, h.adapter.ID())
	}
	var accepted []minecraft.Protocol
	if proto.ID() != protocol.CurrentProtocol {
		accepted = []minecraft.Protocol{proto}
	}
	prov, err := minecraft.NewForeignStatusProvider(h.opts.RemoteAddr)
	if err != nil {
		return oerror.New("status provider for %v: %w", h.opts.RemoteAddr, err)
	}
	listener, err := minecraft.ListenConfig{
		StatusProvider:      prov,
		AllowUnknownPackets: true,
		AllowInvalidPackets: true,
		AcceptedProtocols:   accepted,
	}.Listen("raknet", localAddr)
	if err != nil {
		return oerror.New("listen on %v: %w", localAddr, err)
	}
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()
	h.log.Infof("listening on %v and directing connections to %v", localAddr, h.opts.RemoteAddr)

	for {
		c, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return oerror.New("accept: %w", err)
		}
		go h.handleConn(ctx, c.(*minecraft.Conn), listener, proto)
	}
}

// handleConn proxies a connection accepted by the listener passed to the remote server.
func (h *HAC) handleConn(ctx context.Context, conn *minecraft.Conn, listener *minecraft.Listener, proto minecraft.Protocol) {
	hub := sentry.CurrentHub().Clone()
	name := conn.IdentityData().DisplayName
	log := h.log.WithField("player", name)
	defer h.recoverConn(hub, log, func() { _ = listener.Disconnect(conn, "internal proxy error") })

	clientData := conn.ClientData()
	clientData.ThirdPartyName = name
	serverConn, err := minecraft.Dialer{
		ClientData:   clientData,
		IdentityData: conn.IdentityData(),
		Protocol:     proto,
	}.DialContext(ctx, "raknet", h.opts.RemoteAddr)
	if err != nil {
		log.Errorf("unable to connect to %v: %v", h.opts.RemoteAddr, err)
		_ = listener.Disconnect(conn, "unable to reach the server")
		return
	}
	defer serverConn.Close()

	errs := make(chan error, 2)
	go func() { errs <- conn.StartGame(serverConn.GameData()) }()
	go func() { errs <- serverConn.DoSpawn() }()
	for range 2 {
		if err := <-errs; err != nil {
			log.Errorf("unable to spawn: %v", err)
			_ = listener.Disconnect(conn, "unable to spawn")
			return
		}
	}

	gd := serverConn.GameData()
	pc := newProxyConn(conn, serverConn, listener, proto, log)
	handle := session.NewHandle(name, gd.EntityRuntimeID, player.Spawn{
		Position: version.Vec64(gd.PlayerPosition),
		Yaw:      float64(gd.Yaw),
		Pitch:    float64(gd.Pitch),
	}, pc)
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("conn", handle.ID().String())
		scope.SetTag("player", name)
	})
	// A connection that cannot be intercepted is still proxied.
	_, _ = h.OnConnectionEstablished(handle)
	defer h.OnConnectionClosed(handle)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer h.recoverConn(hub, log, nil)
		defer serverConn.Close()
		defer listener.Disconnect(conn, "connection lost")
		if err := pc.forward(pipeline.Inbound, conn, serverConn); err != nil {
			log.Debugf("client connection closed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		defer h.recoverConn(hub, log, nil)
		defer serverConn.Close()
		defer listener.Disconnect(conn, "connection lost")
		err := pc.forward(pipeline.Outbound, serverConn, conn)
		var disc minecraft.DisconnectError
		if errors.As(err, &disc) {
			_ = listener.Disconnect(conn, disc.Error())
		}
	}()
	wg.Wait()

	log.Debugf("connection closed after %d packets in, %d packets out", pc.stats[pipeline.Inbound].packets.Load(), pc.stats[pipeline.Outbound].packets.Load())
}

// recoverConn recovers a panic on a goroutine of one connection and reports it to sentry, so that it never
// takes down other connections.
func (h *HAC) recoverConn(hub *sentry.Hub, log *logrus.Entry, after func()) {
	v := recover()
	if v == nil {
		return
	}
	log.Errorf("connection panic: %v", v)
	hub.Recover(oerror.New("%v", v))
	hub.Flush(5 * time.Second)
	if after != nil {
		after()
	}
}

// wireProtocol returns the gophertunnel protocol of the adapter bound, if it has one.
func (h *HAC) wireProtocol() (minecraft.Protocol, bool) {
	if w, ok := h.adapter.(version.WireAdapter); ok {
		return w.Protocol(), true
	}
	return nil, false
}
