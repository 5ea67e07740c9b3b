package player

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// width is the width of a player's bounding box.
	width = 0.6
	// height is the height of a player's bounding box when standing.
	height = 1.8
)

// State is the physical state of a player as of one movement. A State is only ever changed by the Player
// holding it.
type State struct {
	location  mgl64.Vec3
	velocity  mgl64.Vec3
	direction mgl64.Vec2

	onGround     bool
	sneaking     bool
	sprinting    bool
	elytraFlying bool
	flying       bool
}

// Location returns the position of the player exactly as it was sent by the client.
func (s *State) Location() mgl64.Vec3 {
	return s.location
}

// Velocity returns the difference between this location and the one before it.
func (s *State) Velocity() mgl64.Vec3 {
	return s.velocity
}

// Direction returns the yaw and pitch of the player, in that order.
func (s *State) Direction() mgl64.Vec2 {
	return s.direction
}

func (s *State) Yaw() float64   { return s.direction[0] }
func (s *State) Pitch() float64 { return s.direction[1] }

func (s *State) OnGround() bool     { return s.onGround }
func (s *State) Sneaking() bool     { return s.sneaking }
func (s *State) Sprinting() bool    { return s.sprinting }
func (s *State) ElytraFlying() bool { return s.elytraFlying }
func (s *State) Flying() bool       { return s.flying }

// BBox returns the bounding box of the player, treating the location as the position of its feet.
func (s *State) BBox() cube.BBox {
	return cube.Box(-width/2, 0, -width/2, width/2, height, width/2).Translate(s.location)
}
