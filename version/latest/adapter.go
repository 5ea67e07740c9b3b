// Package latest implements the wire format of the protocol gophertunnel currently targets. Packets are
// decoded through gophertunnel's own packet types.
package latest

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

// ID is the protocol number implemented by the adapter.
const ID = protocol.CurrentProtocol

// actions maps PlayerAction types to the posture changes they represent.
var actions = map[int32]event.Action{
	protocol.PlayerActionStartSprint: event.ActionStartSprinting,
	protocol.PlayerActionStopSprint:  event.ActionStopSprinting,
	protocol.PlayerActionStartSneak:  event.ActionStartSneaking,
	protocol.PlayerActionStopSneak:   event.ActionStopSneaking,
	protocol.PlayerActionStartGlide:  event.ActionStartGliding,
	protocol.PlayerActionStopGlide:   event.ActionStopGliding,
	protocol.PlayerActionStartFlying: event.ActionStartFlying,
	protocol.PlayerActionStopFlying:  event.ActionStopFlying,
}

// knownActions holds every PlayerAction type of the protocol. Known types that are not posture changes are
// passed through undecoded.
var knownActions = func() map[int32]struct{} {
	m := make(map[int32]struct{})
	for a := int32(protocol.PlayerActionStartBreak); a <= protocol.PlayerActionStopFlying; a++ {
		m[a] = struct{}{}
	}
	m[protocol.PlayerActionStartUsingItem] = struct{}{}
	return m
}()

// inputFlags lists the PlayerAuthInput flags that toggle a posture, in the order they are applied.
var inputFlags = [...]struct {
	flag   int
	action event.Action
}{
	{packet.InputFlagStartSneaking, event.ActionStartSneaking},
	{packet.InputFlagStopSneaking, event.ActionStopSneaking},
	{packet.InputFlagStartSprinting, event.ActionStartSprinting},
	{packet.InputFlagStopSprinting, event.ActionStopSprinting},
	{packet.InputFlagStartGliding, event.ActionStartGliding},
	{packet.InputFlagStopGliding, event.ActionStopGliding},
	{packet.InputFlagStartFlying, event.ActionStartFlying},
	{packet.InputFlagStopFlying, event.ActionStopFlying},
}

// Adapter translates packets of the current protocol.
type Adapter struct{}

// New returns an Adapter for the current protocol.
func New() Adapter { return Adapter{} }

func (Adapter) ID() int32    { return ID }
func (Adapter) Name() string { return protocol.CurrentVersion }

// Protocol ...
func (Adapter) Protocol() minecraft.Protocol { return minecraft.DefaultProtocol }

func (Adapter) Decode(raw []byte, fromServer bool) (event.Event, error) {
	h, r, err := version.ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	pass := event.PassThrough{PacketID: h.PacketID, Payload: raw}

	switch h.PacketID {
	case packet.IDMovePlayer:
		pk := &packet.MovePlayer{}
		if err := version.ReadBody(r, pk.Marshal); err != nil {
			return nil, err
		}
		if !version.Finite(pk.Position[0], pk.Position[1], pk.Position[2], pk.Yaw, pk.Pitch) {
			return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
		}
		if !fromServer {
			return movement(pk.EntityRuntimeID, pk.Position, pk.Yaw, pk.Pitch, pk.OnGround), nil
		}
		if pk.Mode == packet.MoveModeTeleport || pk.Mode == packet.MoveModeReset {
			return event.Teleport{
				EntityRuntimeID: pk.EntityRuntimeID,
				Position:        version.Vec64(pk.Position),
				Yaw:             float64(pk.Yaw),
				Pitch:           float64(pk.Pitch),
			}, nil
		}
	case packet.IDPlayerAction:
		if fromServer {
			break
		}
		pk := &packet.PlayerAction{}
		if err := version.ReadBody(r, pk.Marshal); err != nil {
			return nil, err
		}
		a, ok := actions[pk.ActionType]
		if _, known := knownActions[pk.ActionType]; !ok && known {
			return pass, nil
		}
		return event.PostureChange{EntityRuntimeID: pk.EntityRuntimeID, Action: a}, nil
	case packet.IDPlayerAuthInput:
		if fromServer {
			break
		}
		pk := &packet.PlayerAuthInput{}
		if err := version.ReadBody(r, pk.Marshal); err != nil {
			return nil, err
		}
		return decodeInput(pk)
	}
	return pass, nil
}

// decodeInput splits a PlayerAuthInput packet into the movement and the posture toggles it carries. The
// packet has no runtime ID: it always concerns the player sending it, so events carry a runtime ID of 0.
func decodeInput(pk *packet.PlayerAuthInput) (event.Event, error) {
	if !version.Finite(pk.Position[0], pk.Position[1], pk.Position[2], pk.Yaw, pk.Pitch) {
		return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
	}
	onGround := pk.InputData.Load(packet.InputFlagVerticalCollision) && pk.Delta[1] <= 0

	batch := event.Batch{movement(0, pk.Position, pk.Yaw, pk.Pitch, onGround)}
	for _, f := range inputFlags {
		if pk.InputData.Load(f.flag) {
			batch = append(batch, event.PostureChange{Action: f.action})
		}
	}
	return batch, nil
}

func (Adapter) Encode(ev event.Event, fromServer bool) ([]byte, error) {
	switch ev := ev.(type) {
	case event.PassThrough:
		return ev.Payload, nil
	case event.Movement:
		return version.Marshal(&packet.MovePlayer{
			EntityRuntimeID: ev.EntityRuntimeID,
			Position:        version.Vec32(ev.Position),
			Pitch:           float32(ev.Pitch),
			Yaw:             float32(ev.Yaw),
			HeadYaw:         float32(ev.Yaw),
			Mode:            packet.MoveModeNormal,
			OnGround:        ev.OnGround,
		}), nil
	case event.Teleport:
		return version.Marshal(&packet.MovePlayer{
			EntityRuntimeID: ev.EntityRuntimeID,
			Position:        version.Vec32(ev.Position),
			Pitch:           float32(ev.Pitch),
			Yaw:             float32(ev.Yaw),
			HeadYaw:         float32(ev.Yaw),
			Mode:            packet.MoveModeTeleport,
		}), nil
	case event.PostureChange:
		for id, a := range actions {
			if a == ev.Action && !fromServer {
				return version.Marshal(&packet.PlayerAction{EntityRuntimeID: ev.EntityRuntimeID, ActionType: id}), nil
			}
		}
	}
	return nil, oerror.New("%w: %T", version.ErrUnsupportedEvent, ev)
}

func (Adapter) InterceptionPoint(transport any) (pipeline.Point, error) {
	return version.LocatePoint(transport, pipeline.StagePacketHandler, pipeline.StagePacketHandler)
}

func movement(rid uint64, pos mgl32.Vec3, yaw, pitch float32, onGround bool) event.Movement {
	return event.Movement{
		EntityRuntimeID: rid,
		Position:        version.Vec64(pos),
		Yaw:             float64(yaw),
		Pitch:           float64(pitch),
		OnGround:        onGround,
	}
}
