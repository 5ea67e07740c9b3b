// Package v766 implements the wire format of protocol 766, used by Minecraft: Bedrock Edition 1.21.50.
// Packets are decoded through the packet pool of legacy-version, which holds the 1.21.50 layout of every
// packet that changed since.
package v766

import (
	"sync"

	"github.com/akmalfairuz/legacy-version/legacyver"
	"github.com/akmalfairuz/legacy-version/legacyver/legacypacket"
	"github.com/akmalfairuz/legacy-version/legacyver/proto"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/oerror"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

const (
	// ID is the protocol number of 1.21.50.
	ID = proto.ID766
	// Name is the game version protocol 766 belongs to.
	Name = "1.21.50"
)

// wire loads the block and item mappings of 1.21.50 the first time it is needed.
var wire = sync.OnceValue(func() *legacyver.Protocol {
	return legacyver.New766(false)
})

// Adapter translates packets of protocol 766.
type Adapter struct{}

// New returns an Adapter for protocol 766.
func New() Adapter { return Adapter{} }

func (Adapter) ID() int32    { return ID }
func (Adapter) Name() string { return Name }

// Protocol returns the legacy-version protocol of 1.21.50, which gophertunnel listeners and dialers can
// negotiate with 1.21.50 clients and servers.
func (Adapter) Protocol() minecraft.Protocol { return wire() }

func (Adapter) Decode(raw []byte, fromServer bool) (event.Event, error) {
	h, _, err := version.ReadHeader(raw)
	if err != nil {
		return nil, err
	}
	pass := event.PassThrough{PacketID: h.PacketID, Payload: raw}
	if !interpreted(h.PacketID, fromServer) {
		return pass, nil
	}

	pk, err := version.UnmarshalProto(wire(), raw, fromServer)
	if err != nil {
		return nil, err
	}
	switch pk := pk.(type) {
	case *packet.MovePlayer:
		if !version.Finite(pk.Position[0], pk.Position[1], pk.Position[2], pk.Yaw, pk.Pitch) {
			return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
		}
		pos, yaw, pitch := version.Vec64(pk.Position), float64(pk.Yaw), float64(pk.Pitch)
		if !fromServer {
			return event.Movement{EntityRuntimeID: pk.EntityRuntimeID, Position: pos, Yaw: yaw, Pitch: pitch, OnGround: pk.OnGround}, nil
		}
		if pk.Mode == packet.MoveModeTeleport || pk.Mode == packet.MoveModeReset {
			return event.Teleport{EntityRuntimeID: pk.EntityRuntimeID, Position: pos, Yaw: yaw, Pitch: pitch}, nil
		}
	case *packet.PlayerAction:
		a, ok := posture(pk.ActionType)
		if !ok && known(pk.ActionType) {
			return pass, nil
		}
		return event.PostureChange{EntityRuntimeID: pk.EntityRuntimeID, Action: a}, nil
	case *legacypacket.PlayerAuthInput:
		return decodeInput(pk)
	}
	return pass, nil
}

// interpreted reports if packets with the ID passed are decoded into anything other than a PassThrough.
func interpreted(id uint32, fromServer bool) bool {
	switch id {
	case packet.IDMovePlayer:
		return true
	case packet.IDPlayerAction, packet.IDPlayerAuthInput:
		return !fromServer
	}
	return false
}

// decodeInput splits the 1.21.50 PlayerAuthInput into the movement and posture toggles it carries. Like the
// current protocol, the packet concerns only the player sending it and has no runtime ID.
func decodeInput(pk *legacypacket.PlayerAuthInput) (event.Event, error) {
	if !version.Finite(pk.Position[0], pk.Position[1], pk.Position[2], pk.Yaw, pk.Pitch) {
		return nil, oerror.New("%w: non-finite movement", version.ErrDecode)
	}
	batch := event.Batch{event.Movement{
		Position: version.Vec64(pk.Position),
		Yaw:      float64(pk.Yaw),
		Pitch:    float64(pk.Pitch),
		OnGround: pk.InputData.Load(packet.InputFlagVerticalCollision) && pk.Delta[1] <= 0,
	}}
	for _, toggle := range [...]struct {
		start, stop int
		on, off     event.Action
	}{
		{packet.InputFlagStartSneaking, packet.InputFlagStopSneaking, event.ActionStartSneaking, event.ActionStopSneaking},
		{packet.InputFlagStartSprinting, packet.InputFlagStopSprinting, event.ActionStartSprinting, event.ActionStopSprinting},
		{packet.InputFlagStartGliding, packet.InputFlagStopGliding, event.ActionStartGliding, event.ActionStopGliding},
		{packet.InputFlagStartFlying, packet.InputFlagStopFlying, event.ActionStartFlying, event.ActionStopFlying},
	} {
		if pk.InputData.Load(toggle.start) {
			batch = append(batch, event.PostureChange{Action: toggle.on})
		}
		if pk.InputData.Load(toggle.stop) {
			batch = append(batch, event.PostureChange{Action: toggle.off})
		}
	}
	return batch, nil
}

// posture returns the posture change a PlayerAction type represents.
func posture(action int32) (event.Action, bool) {
	switch action {
	case protocol.PlayerActionStartSneak:
		return event.ActionStartSneaking, true
	case protocol.PlayerActionStopSneak:
		return event.ActionStopSneaking, true
	case protocol.PlayerActionStartSprint:
		return event.ActionStartSprinting, true
	case protocol.PlayerActionStopSprint:
		return event.ActionStopSprinting, true
	case protocol.PlayerActionStartGlide:
		return event.ActionStartGliding, true
	case protocol.PlayerActionStopGlide:
		return event.ActionStopGliding, true
	case protocol.PlayerActionStartFlying:
		return event.ActionStartFlying, true
	case protocol.PlayerActionStopFlying:
		return event.ActionStopFlying, true
	}
	return event.ActionInvalid, false
}

// known reports if a PlayerAction type exists in 1.21.50.
func known(action int32) bool {
	return (action >= protocol.PlayerActionStartBreak && action <= protocol.PlayerActionStopFlying) ||
		action == protocol.PlayerActionStartUsingItem
}

func (Adapter) Encode(ev event.Event, fromServer bool) ([]byte, error) {
	switch ev := ev.(type) {
	case event.PassThrough:
		return ev.Payload, nil
	case event.Movement:
		return encodeMove(ev.EntityRuntimeID, version.Vec32(ev.Position), ev.Yaw, ev.Pitch, packet.MoveModeNormal, ev.OnGround), nil
	case event.Teleport:
		return encodeMove(ev.EntityRuntimeID, version.Vec32(ev.Position), ev.Yaw, ev.Pitch, packet.MoveModeTeleport, false), nil
	case event.PostureChange:
		if fromServer {
			break
		}
		for action := int32(protocol.PlayerActionStartBreak); action <= protocol.PlayerActionStopFlying; action++ {
			if a, ok := posture(action); ok && a == ev.Action {
				return version.MarshalProto(wire(), &packet.PlayerAction{EntityRuntimeID: ev.EntityRuntimeID, ActionType: action}), nil
			}
		}
	}
	return nil, oerror.New("%w: %T", version.ErrUnsupportedEvent, ev)
}

func encodeMove(rid uint64, pos mgl32.Vec3, yaw, pitch float64, mode byte, onGround bool) []byte {
	return version.MarshalProto(wire(), &packet.MovePlayer{
		EntityRuntimeID: rid,
		Position:        pos,
		Pitch:           float32(pitch),
		Yaw:             float32(yaw),
		HeadYaw:         float32(yaw),
		Mode:            mode,
		OnGround:        onGround,
	})
}

func (Adapter) InterceptionPoint(transport any) (pipeline.Point, error) {
	return version.LocatePoint(transport, pipeline.StagePacketHandler, pipeline.StagePacketHandler)
}
