package v419

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

const (
	idMovePlayer   = 0x13
	idPlayerAction = 0x24
)

const (
	modeNormal = iota
	modeReset
	modeTeleport
	modeRotation
)

// movePlayer is the MovePlayer packet as of 1.16.100, the first version to carry the tick of the movement.
type movePlayer struct {
	entityRuntimeID uint64
	position        mgl32.Vec3
	pitch           float32
	yaw             float32
	headYaw         float32
	mode            byte
	onGround        bool
	riddenRuntimeID uint64
	teleportCause   int32
	teleportSource  int32
	tick            uint64
}

func (pk *movePlayer) marshal(io protocol.IO) {
	io.Varuint64(&pk.entityRuntimeID)
	io.Vec3(&pk.position)
	io.Float32(&pk.pitch)
	io.Float32(&pk.yaw)
	io.Float32(&pk.headYaw)
	io.Uint8(&pk.mode)
	io.Bool(&pk.onGround)
	io.Varuint64(&pk.riddenRuntimeID)
	if pk.mode == modeTeleport {
		io.Int32(&pk.teleportCause)
		io.Int32(&pk.teleportSource)
	}
	io.Varuint64(&pk.tick)
}

// playerAction is the PlayerAction packet as of 1.16.100. It has no result position yet.
type playerAction struct {
	entityRuntimeID uint64
	actionType      int32
	blockPosition   protocol.BlockPos
	blockFace       int32
}

func (pk *playerAction) marshal(io protocol.IO) {
	io.Varuint64(&pk.entityRuntimeID)
	io.Varint32(&pk.actionType)
	io.UBlockPos(&pk.blockPosition)
	io.Varint32(&pk.blockFace)
}
