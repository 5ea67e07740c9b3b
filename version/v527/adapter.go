// Package v527 implements the wire format of protocol 527, used by Minecraft: Bedrock Edition 1.19.0.
package v527

import (
	"bytes"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/version"
)

const (
	// ID is the protocol number of 1.19.0.
	ID = 527
	// Name is the game version protocol 527 belongs to.
	Name = "1.19.0"
)

const (
	actionStartSprint = 9
	actionStopSprint  = 10
	actionStartSneak  = 11
	actionStopSneak   = 12
	actionStartGlide  = 15
	actionStopGlide   = 16
	// actionStopItemUseOn is the last PlayerAction type that exists in 1.19.0.
	actionStopItemUseOn = 29
)

// Adapter translates packets of protocol 527.
type Adapter struct{}

// New returns an Adapter for protocol 527.
func New() Adapter { return Adapter{} }

func (Adapter) ID() int32    { return ID }
func (Adapter) Name() string { return Name }

func (Adapter) Decode(raw []byte, fromServer bool) (event.Event, error) {
	h, r, err := version.ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	switch {
	case h.PacketID == idMovePlayer:
		return decodeMovePlayer(r, raw, fromServer)
	case h.PacketID == idPlayerAction && !fromServer:
		return decodePlayerAction(r, raw)
	}
	return event.PassThrough{PacketID: h.PacketID, Payload: raw}, nil
}

func decodeMovePlayer(r *bytes.Reader, raw []byte, fromServer bool) (event.Event, error) {
	pk := &movePlayer{}
	if err := version.ReadBody(r, pk.marshal); err != nil {
		return nil, err
	}
	if !version.Finite(pk.position[0], pk.position[1], pk.position[2], pk.yaw, pk.pitch) {
		return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
	}
	pos, yaw, pitch := version.Vec64(pk.position), float64(pk.yaw), float64(pk.pitch)
	switch {
	case !fromServer:
		return event.Movement{EntityRuntimeID: pk.entityRuntimeID, Position: pos, Yaw: yaw, Pitch: pitch, OnGround: pk.onGround}, nil
	case pk.mode == modeTeleport || pk.mode == modeReset:
		return event.Teleport{EntityRuntimeID: pk.entityRuntimeID, Position: pos, Yaw: yaw, Pitch: pitch}, nil
	}
	return event.PassThrough{PacketID: idMovePlayer, Payload: raw}, nil
}

func decodePlayerAction(r *bytes.Reader, raw []byte) (event.Event, error) {
	pk := &playerAction{}
	if err := version.ReadBody(r, pk.marshal); err != nil {
		return nil, err
	}
	a := event.ActionInvalid
	switch pk.actionType {
	case actionStartSprint:
		a = event.ActionStartSprinting
	case actionStopSprint:
		a = event.ActionStopSprinting
	case actionStartSneak:
		a = event.ActionStartSneaking
	case actionStopSneak:
		a = event.ActionStopSneaking
	case actionStartGlide:
		a = event.ActionStartGliding
	case actionStopGlide:
		a = event.ActionStopGliding
	default:
		if pk.actionType >= 0 && pk.actionType <= actionStopItemUseOn {
			return event.PassThrough{PacketID: idPlayerAction, Payload: raw}, nil
		}
	}
	return event.PostureChange{EntityRuntimeID: pk.entityRuntimeID, Action: a}, nil
}

func (Adapter) Encode(ev event.Event, fromServer bool) ([]byte, error) {
	switch ev := ev.(type) {
	case event.PassThrough:
		return ev.Payload, nil
	case event.Movement:
		return encodeMovePlayer(ev.EntityRuntimeID, ev.Position, ev.Yaw, ev.Pitch, modeNormal, ev.OnGround), nil
	case event.Teleport:
		return encodeMovePlayer(ev.EntityRuntimeID, ev.Position, ev.Yaw, ev.Pitch, modeTeleport, false), nil
	case event.PostureChange:
		if fromServer {
			break
		}
		pk := &playerAction{entityRuntimeID: ev.EntityRuntimeID}
		switch ev.Action {
		case event.ActionStartSprinting:
			pk.actionType = actionStartSprint
		case event.ActionStopSprinting:
			pk.actionType = actionStopSprint
		case event.ActionStartSneaking:
			pk.actionType = actionStartSneak
		case event.ActionStopSneaking:
			pk.actionType = actionStopSneak
		case event.ActionStartGliding:
			pk.actionType = actionStartGlide
		case event.ActionStopGliding:
			pk.actionType = actionStopGlide
		default:
			return nil, oerror.New("%w: posture change %v", version.ErrUnsupportedEvent, ev.Action)
		}
		return version.WritePacket(idPlayerAction, pk.marshal), nil
	}
	return nil, oerror.New("%w: %T", version.ErrUnsupportedEvent, ev)
}

func encodeMovePlayer(rid uint64, pos mgl64.Vec3, yaw, pitch float64, mode byte, onGround bool) []byte {
	pk := &movePlayer{
		entityRuntimeID: rid,
		position:        version.Vec32(pos),
		pitch:           float32(pitch),
		yaw:             float32(yaw),
		headYaw:         float32(yaw),
		mode:            mode,
		onGround:        onGround,
	}
	return version.WritePacket(idMovePlayer, pk.marshal)
}

func (Adapter) InterceptionPoint(transport any) (pipeline.Point, error) {
	return version.LocatePoint(transport, pipeline.StagePacketHandler, pipeline.StagePacketHandler)
}
