package player

import "github.com/go-gl/mathgl/mgl64"

// Spawn is the state a player starts out with, as assigned by the server when the session was negotiated.
type Spawn struct {
	Position   mgl64.Vec3
	Yaw, Pitch float64

	Sneaking  bool
	Sprinting bool
	Flying    bool
}

func (s Spawn) state() State {
	return State{
		location:  s.Position,
		direction: mgl64.Vec2{s.Yaw, s.Pitch},
		onGround:  true,
		sneaking:  s.Sneaking,
		sprinting: s.Sprinting,
		flying:    s.Flying,
	}
}
