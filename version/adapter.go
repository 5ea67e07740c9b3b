// Package version abstracts the wire format of the Bedrock protocol. Each supported protocol version is
// implemented as an independent Adapter in its own package, and exactly one of them is bound for the
// lifetime of the process, chosen by the protocol the server speaks.
package version

import (
	"errors"

	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/sandertv/gophertunnel/minecraft"
)

var (
	// ErrDecode is returned when a packet of a type an adapter decodes is structurally corrupt.
	ErrDecode = errors.New("malformed packet")
	// ErrUnsupportedEvent is returned when an adapter cannot express an event on its wire format.
	ErrUnsupportedEvent = errors.New("event not supported by protocol version")
	// ErrUnsupportedTransport is returned when a transport does not have the shape an adapter expects.
	ErrUnsupportedTransport = errors.New("unsupported transport")
	// ErrUnsupportedVersion is returned when no adapter exists for a protocol version.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)

// Adapter translates between the raw packets of one protocol version and version-independent events.
// Adapters hold no per-connection state and may be used from any number of goroutines at once.
type Adapter interface {
	// ID returns the protocol number the adapter implements.
	ID() int32
	// Name returns the game version the protocol belongs to, such as "1.19.0".
	Name() string

	// Decode decodes a raw packet, header included. fromServer is true for packets sent by the server.
	// Packets the adapter does not interpret are returned as event.PassThrough holding raw unchanged. An
	// error wrapping ErrDecode is only returned if the body of a packet the adapter interprets is corrupt.
	Decode(raw []byte, fromServer bool) (event.Event, error)
	// Encode encodes an event into a raw packet sent by the server if fromServer is true, or by the
	// client otherwise.
	Encode(ev event.Event, fromServer bool) ([]byte, error)
	// InterceptionPoint locates where interception stages are spliced into the pipeline of a transport.
	InterceptionPoint(transport any) (pipeline.Point, error)
}

// WireAdapter is implemented by adapters of a protocol gophertunnel connections can speak, which lets hosts
// built on those connections negotiate it with clients and servers.
type WireAdapter interface {
	Adapter
	// Protocol returns the gophertunnel protocol the adapter decodes.
	Protocol() minecraft.Protocol
}

// LocatePoint returns the interception point of a transport that carries a pipeline holding an inbound
// stage named inbound and an outbound stage named outbound.
func LocatePoint(transport any, inbound, outbound string) (pipeline.Point, error) {
	c, ok := transport.(pipeline.Carrier)
	if !ok {
		return pipeline.Point{}, oerror.New("%w: %T does not carry a pipeline", ErrUnsupportedTransport, transport)
	}
	p := c.Pipeline()
	if p == nil {
		return pipeline.Point{}, oerror.New("%w: %T has no pipeline", ErrUnsupportedTransport, transport)
	}
	if !p.Has(pipeline.Inbound, inbound) {
		return pipeline.Point{}, oerror.New("%w: no inbound stage %q", ErrUnsupportedTransport, inbound)
	}
	if !p.Has(pipeline.Outbound, outbound) {
		return pipeline.Point{}, oerror.New("%w: no outbound stage %q", ErrUnsupportedTransport, outbound)
	}
	return pipeline.Point{Carrier: c, InboundAnchor: inbound, OutboundAnchor: outbound}, nil
}
