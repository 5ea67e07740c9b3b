package version

import (
	"bytes"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/heretere/hac/internal"
	"github.com/heretere/hac/oerror"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// ReadHeader reads the header of a raw packet. The reader returned is positioned at the start of the body.
func ReadHeader(raw []byte) (packet.Header, *bytes.Reader, error) {
	r := bytes.NewReader(raw)
	var h packet.Header
	if err := h.Read(r); err != nil {
		return h, nil, oerror.New("%w: read header: %v", ErrDecode, err)
	}
	return h, r, nil
}

// ReadBody decodes the body of a packet of the current protocol by calling f with a protocol reader over r.
// Reading past the end of the body, or leaving bytes unread, results in an error wrapping ErrDecode.
func ReadBody(r *bytes.Reader, f func(io protocol.IO)) error {
	return ReadBodyProto(minecraft.DefaultProtocol, r, f)
}

// ReadBodyProto decodes the body of a packet like ReadBody, using the reader of the protocol passed.
func ReadBodyProto(proto minecraft.Protocol, r *bytes.Reader, f func(io protocol.IO)) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = oerror.New("%w: %v", ErrDecode, v)
		}
	}()
	f(proto.NewReader(r, 0, false))
	if r.Len() != 0 {
		return oerror.New("%w: %d unread bytes", ErrDecode, r.Len())
	}
	return nil
}

// WritePacket encodes a packet with the ID passed, writing the body with f.
func WritePacket(id uint32, f func(io protocol.IO)) []byte {
	return WritePacketProto(minecraft.DefaultProtocol, id, f)
}

// WritePacketProto encodes a packet like WritePacket, using the writer of the protocol passed.
func WritePacketProto(proto minecraft.Protocol, id uint32, f func(io protocol.IO)) []byte {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	defer internal.BufferPool.Put(buf)
	buf.Reset()

	h := packet.Header{PacketID: id}
	_ = h.Write(buf)
	f(proto.NewWriter(buf, 0))
	return bytes.Clone(buf.Bytes())
}

// Marshal encodes a gophertunnel packet into its raw form.
func Marshal(pk packet.Packet) []byte {
	return WritePacket(pk.ID(), pk.Marshal)
}

// MarshalProto encodes a packet into its raw form in the protocol passed.
func MarshalProto(proto minecraft.Protocol, pk packet.Packet) []byte {
	return WritePacketProto(proto, pk.ID(), pk.Marshal)
}

// Unmarshal decodes a raw packet into a gophertunnel packet of the current protocol.
func Unmarshal(raw []byte, fromServer bool) (packet.Packet, error) {
	return UnmarshalProto(minecraft.DefaultProtocol, raw, fromServer)
}

// UnmarshalProto decodes a raw packet into a packet of the pool of the protocol passed.
func UnmarshalProto(proto minecraft.Protocol, raw []byte, fromServer bool) (packet.Packet, error) {
	h, r, err := ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	pkFunc, ok := proto.Packets(!fromServer)[h.PacketID]
	if !ok {
		return nil, oerror.New("%w: unknown packet %d", ErrDecode, h.PacketID)
	}
	pk := pkFunc()
	if err := ReadBodyProto(proto, r, pk.Marshal); err != nil {
		return nil, fmt.Errorf("decode %T: %w", pk, err)
	}
	return pk, nil
}

// Finite reports if none of the values passed are NaN or infinite.
func Finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Vec64 converts a float32 vector read from the wire.
func Vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Vec32 converts a vector to the float32 form written to the wire.
func Vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}
