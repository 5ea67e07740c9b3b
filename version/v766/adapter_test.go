package v766

import (
	"bytes"
	"errors"
	"testing"

	"github.com/akmalfairuz/legacy-version/legacyver/legacypacket"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/heretere/hac/event"
	"github.com/heretere/hac/version"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
)

func authInput(pos mgl32.Vec3, flags ...int) []byte {
	pk := &legacypacket.PlayerAuthInput{
		Position:  pos,
		Yaw:       90,
		Pitch:     10,
		InputData: protocol.NewBitset(packet.PlayerAuthInputBitsetSize),
		Tick:      40,
	}
	for _, f := range flags {
		pk.InputData.Set(f)
	}
	return version.MarshalProto(wire(), pk)
}

func TestAdapterProtocol(t *testing.T) {
	a := New()
	if a.ID() != 766 || a.Protocol().ID() != 766 || a.Name() != a.Protocol().Ver() {
		t.Fatalf("adapter %d %q speaks protocol %d %q", a.ID(), a.Name(), a.Protocol().ID(), a.Protocol().Ver())
	}
	var _ version.WireAdapter = a
}

func TestDecodeAuthInput(t *testing.T) {
	raw := authInput(mgl32.Vec3{5, 70, 5}, packet.InputFlagVerticalCollision, packet.InputFlagStartSneaking, packet.InputFlagStopGliding)
	ev, err := New().Decode(raw, false)
	if err != nil {
		t.Fatal(err)
	}
	batch, ok := ev.(event.Batch)
	if !ok || len(batch) != 3 {
		t.Fatalf("decoded %#v, want a batch of three events", ev)
	}
	if mv := batch[0].(event.Movement); mv.Position != (mgl64.Vec3{5, 70, 5}) || mv.Yaw != 90 || !mv.OnGround {
		t.Fatalf("unexpected movement %#v", mv)
	}
	if batch[1] != (event.PostureChange{Action: event.ActionStartSneaking}) || batch[2] != (event.PostureChange{Action: event.ActionStopGliding}) {
		t.Fatalf("unexpected posture changes %#v", batch[1:])
	}

	// The auth input of a server is never interpreted.
	if ev, err := New().Decode(raw, true); err != nil || ev.Kind() != event.KindPassThrough {
		t.Fatalf("server auth input decoded to %#v, %v", ev, err)
	}
}

func TestDecodeAuthInputTruncated(t *testing.T) {
	raw := authInput(mgl32.Vec3{})
	if _, err := New().Decode(raw[:len(raw)-4], false); !errors.Is(err, version.ErrDecode) {
		t.Fatalf("truncated auth input error = %v, want ErrDecode", err)
	}
}

func TestDecodePlayerAction(t *testing.T) {
	tests := []struct {
		action int32
		want   event.Event
	}{
		{protocol.PlayerActionStartSprint, event.PostureChange{EntityRuntimeID: 3, Action: event.ActionStartSprinting}},
		{protocol.PlayerActionStopFlying, event.PostureChange{EntityRuntimeID: 3, Action: event.ActionStopFlying}},
		{500, event.PostureChange{EntityRuntimeID: 3, Action: event.ActionInvalid}},
	}
	for _, tt := range tests {
		raw := version.MarshalProto(wire(), &packet.PlayerAction{EntityRuntimeID: 3, ActionType: tt.action})
		ev, err := New().Decode(raw, false)
		if err != nil {
			t.Fatalf("action %d: %v", tt.action, err)
		}
		if ev != tt.want {
			t.Fatalf("action %d decoded to %#v, want %#v", tt.action, ev, tt.want)
		}
	}

	raw := version.MarshalProto(wire(), &packet.PlayerAction{EntityRuntimeID: 3, ActionType: protocol.PlayerActionStartUsingItem})
	if ev, _ := New().Decode(raw, false); ev.Kind() != event.KindPassThrough {
		t.Fatalf("start using item decoded to %#v, want pass through", ev)
	}
}

func TestTeleportRoundTrip(t *testing.T) {
	a := New()
	raw, err := a.Encode(event.Teleport{EntityRuntimeID: 1, Position: mgl64.Vec3{0, 90, 0}, Yaw: 180}, true)
	if err != nil {
		t.Fatal(err)
	}
	ev, err := a.Decode(raw, true)
	if err != nil {
		t.Fatal(err)
	}
	if tp, ok := ev.(event.Teleport); !ok || tp.Position != (mgl64.Vec3{0, 90, 0}) || tp.Yaw != 180 {
		t.Fatalf("decoded %#v, want teleport to (0, 90, 0)", ev)
	}

	raw, err = a.Encode(event.Movement{EntityRuntimeID: 1, Position: mgl64.Vec3{1, 2, 3}}, false)
	if err != nil {
		t.Fatal(err)
	}
	if ev, _ := a.Decode(raw, true); ev.Kind() != event.KindPassThrough {
		t.Fatalf("normal server movement decoded to %v, want pass through", ev.Kind())
	}
}

func TestEncodePosture(t *testing.T) {
	a := New()
	raw, err := a.Encode(event.PostureChange{EntityRuntimeID: 2, Action: event.ActionStartFlying}, false)
	if err != nil {
		t.Fatal(err)
	}
	if ev, err := a.Decode(raw, false); err != nil || ev != (event.PostureChange{EntityRuntimeID: 2, Action: event.ActionStartFlying}) {
		t.Fatalf("decoded %#v, %v", ev, err)
	}
	for _, ev := range []event.Event{
		event.PostureChange{Action: event.ActionInvalid},
		event.Batch{},
	} {
		if _, err := a.Encode(ev, false); !errors.Is(err, version.ErrUnsupportedEvent) {
			t.Fatalf("Encode(%#v) error = %v, want ErrUnsupportedEvent", ev, err)
		}
	}
	if _, err := a.Encode(event.PostureChange{Action: event.ActionStartSneaking}, true); !errors.Is(err, version.ErrUnsupportedEvent) {
		t.Fatalf("server posture change error = %v, want ErrUnsupportedEvent", err)
	}
}

func TestDecodeUnknownPacket(t *testing.T) {
	raw := version.MarshalProto(wire(), &packet.SetTime{Time: 100})
	ev, err := New().Decode(raw, true)
	if err != nil {
		t.Fatal(err)
	}
	if pt, ok := ev.(event.PassThrough); !ok || pt.PacketID != packet.IDSetTime || !bytes.Equal(pt.Payload, raw) {
		t.Fatalf("decoded %#v, want the raw packet unchanged", ev)
	}
}
