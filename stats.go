package hac

import (
	"sync/atomic"

	"github.com/heretere/hac/pipeline"
)

// packetStats counts the packets and bytes passing through one direction of a connection.
type packetStats struct {
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (s *packetStats) HandlePacket(ctx *pipeline.Context) {
	s.packets.Add(1)
	s.bytes.Add(uint64(len(ctx.Packet())))
}
