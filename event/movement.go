package event

import "github.com/go-gl/mathgl/mgl64"

// Movement is sent by the client every time it reports its position and rotation.
type Movement struct {
	// EntityRuntimeID is the runtime ID of the entity that moved.
	EntityRuntimeID uint64
	// Position is the position reported by the client.
	Position mgl64.Vec3
	// Yaw and Pitch are the rotation of the entity in degrees.
	Yaw, Pitch float64
	// OnGround specifies if the client claims to be standing on a block.
	OnGround bool
}

// Kind ...
func (Movement) Kind() Kind {
	return KindMovement
}

// Teleport is sent by the server when it sets the position of an entity, such as on spawn, when correcting
// the client or when teleporting it.
type Teleport struct {
	EntityRuntimeID uint64
	Position        mgl64.Vec3
	Yaw, Pitch      float64
}

// Kind ...
func (Teleport) Kind() Kind {
	return KindTeleport
}
