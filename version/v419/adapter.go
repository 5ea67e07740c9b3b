// Package v419 implements the wire format of protocol 419, used by Minecraft: Bedrock Edition 1.16.100.
package v419

import (
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/version"
)

const (
	// ID is the protocol number of 1.16.100.
	ID = 419
	// Name is the game version protocol 419 belongs to.
	Name = "1.16.100"
)

// maxAction is the highest PlayerAction type that exists in 1.16.100.
const maxAction = 27

// actions holds the posture changes PlayerAction carries in 1.16.100. Flying is not sent by the client in
// this version.
var actions = map[int32]event.Action{
	9:  event.ActionStartSprinting,
	10: event.ActionStopSprinting,
	11: event.ActionStartSneaking,
	12: event.ActionStopSneaking,
	15: event.ActionStartGliding,
	16: event.ActionStopGliding,
}

var actionIDs = func() map[event.Action]int32 {
	m := make(map[event.Action]int32, len(actions))
	for id, a := range actions {
		m[a] = id
	}
	return m
}()

// Adapter translates packets of protocol 419.
type Adapter struct{}

// New returns an Adapter for protocol 419.
func New() Adapter { return Adapter{} }

func (Adapter) ID() int32    { return ID }
func (Adapter) Name() string { return Name }

func (Adapter) Decode(raw []byte, fromServer bool) (event.Event, error) {
	h, r, err := version.ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	pass := event.PassThrough{PacketID: h.PacketID, Payload: raw}

	switch h.PacketID {
	case idMovePlayer:
		pk := &movePlayer{}
		if err := version.ReadBody(r, pk.marshal); err != nil {
			return nil, err
		}
		if !version.Finite(pk.position[0], pk.position[1], pk.position[2], pk.yaw, pk.pitch) {
			return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
		}
		if fromServer {
			if pk.mode != modeTeleport && pk.mode != modeReset {
				return pass, nil
			}
			return event.Teleport{
				EntityRuntimeID: pk.entityRuntimeID,
				Position:        version.Vec64(pk.position),
				Yaw:             float64(pk.yaw),
				Pitch:           float64(pk.pitch),
			}, nil
		}
		return event.Movement{
			EntityRuntimeID: pk.entityRuntimeID,
			Position:        version.Vec64(pk.position),
			Yaw:             float64(pk.yaw),
			Pitch:           float64(pk.pitch),
			OnGround:        pk.onGround,
		}, nil
	case idPlayerAction:
		if fromServer {
			return pass, nil
		}
		pk := &playerAction{}
		if err := version.ReadBody(r, pk.marshal); err != nil {
			return nil, err
		}
		a, ok := actions[pk.actionType]
		if !ok && pk.actionType >= 0 && pk.actionType <= maxAction {
			// Breaking blocks, jumping and the like are not tracked.
			return pass, nil
		}
		return event.PostureChange{EntityRuntimeID: pk.entityRuntimeID, Action: a}, nil
	}
	return pass, nil
}

func (Adapter) Encode(ev event.Event, fromServer bool) ([]byte, error) {
	switch ev := ev.(type) {
	case event.PassThrough:
		return ev.Payload, nil
	case event.Movement:
		pk := &movePlayer{
			entityRuntimeID: ev.EntityRuntimeID,
			position:        version.Vec32(ev.Position),
			pitch:           float32(ev.Pitch),
			yaw:             float32(ev.Yaw),
			headYaw:         float32(ev.Yaw),
			mode:            modeNormal,
			onGround:        ev.OnGround,
		}
		return version.WritePacket(idMovePlayer, pk.marshal), nil
	case event.Teleport:
		pk := &movePlayer{
			entityRuntimeID: ev.EntityRuntimeID,
			position:        version.Vec32(ev.Position),
			pitch:           float32(ev.Pitch),
			yaw:             float32(ev.Yaw),
			headYaw:         float32(ev.Yaw),
			mode:            modeTeleport,
		}
		return version.WritePacket(idMovePlayer, pk.marshal), nil
	case event.PostureChange:
		id, ok := actionIDs[ev.Action]
		if !ok || fromServer {
			return nil, oerror.New("%w: %v %v", version.ErrUnsupportedEvent, ev.Kind(), ev.Action)
		}
		pk := &playerAction{entityRuntimeID: ev.EntityRuntimeID, actionType: id}
		return version.WritePacket(idPlayerAction, pk.marshal), nil
	}
	return nil, oerror.New("%w: %T", version.ErrUnsupportedEvent, ev)
}

func (Adapter) InterceptionPoint(transport any) (pipeline.Point, error) {
	return version.LocatePoint(transport, pipeline.StagePacketHandler, pipeline.StagePacketHandler)
}
