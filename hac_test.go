package hac

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/akmalfairuz/legacy-version/legacyver/legacypacket"
	"github.com/akmalfairuz/legacy-version/legacyver/proto"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/heretere/hac/pipeline"
	"github.com/heretere/hac/player"
	"github.com/heretere/hac/session"
	"github.com/heretere/hac/version"
	"github.com/heretere/hac/version/latest"
	"github.com/heretere/hac/version/v766"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"github.com/sirupsen/logrus"
)

func newHAC(t *testing.T) *HAC {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	h, err := New(log, DefaultRegistry(), Options{Protocol: latest.ID, Interception: session.DefaultOptions()})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

type hostConn struct{ pl *pipeline.Pipeline }

func (c hostConn) Pipeline() *pipeline.Pipeline             { return c.pl }
func (c hostConn) Inject(pipeline.Direction, []byte) error { return nil }

func TestNewBindsAdapter(t *testing.T) {
	h := newHAC(t)
	if h.Adapter().ID() != latest.ID || version.Active().ID() != latest.ID {
		t.Fatalf("bound protocol %d, want %d", h.Adapter().ID(), latest.ID)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	if _, err := New(log, DefaultRegistry(), Options{Protocol: 1}); !errors.Is(err, version.ErrUnsupportedVersion) {
		t.Fatalf("unknown protocol: got %v, want ErrUnsupportedVersion", err)
	}
	if _, err := New(log, DefaultRegistry(), Options{Protocol: 527}); !errors.Is(err, version.ErrAlreadyBound) {
		t.Fatalf("second protocol: got %v, want ErrAlreadyBound", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	ids := DefaultRegistry().IDs()
	if len(ids) != 4 || ids[0] != 419 || ids[1] != 527 || ids[2] != 766 || ids[3] != latest.ID {
		t.Fatalf("registry holds %v", ids)
	}
}

func TestConnectionLifecycle(t *testing.T) {
	h := newHAC(t)
	conn := hostConn{pl: newHostPipeline()}
	handle := session.NewHandle("Steve", 1, player.Spawn{Position: mgl64.Vec3{0, 64, 0}}, conn)

	p, err := h.OnConnectionEstablished(handle)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := h.Player(handle.ID()); !ok || got != p {
		t.Fatal("player not available by session ID")
	}

	input := &packet.PlayerAuthInput{
		Position:  mgl32.Vec3{0, 65, 0},
		InputData: protocol.NewBitset(packet.PlayerAuthInputBitsetSize),
	}
	input.InputData.Set(packet.InputFlagStartSneaking)
	if _, ok := conn.pl.Fire(pipeline.Inbound, version.Marshal(input)); !ok {
		t.Fatal("input packet dropped")
	}
	cur := p.Current()
	if cur.Location() != (mgl64.Vec3{0, 65, 0}) || cur.Velocity() != (mgl64.Vec3{0, 1, 0}) || !cur.Sneaking() {
		t.Fatalf("unexpected state %+v", *cur)
	}

	h.OnConnectionClosed(handle)
	h.OnConnectionClosed(handle)
	if len(h.Players()) != 0 || !p.Closed() {
		t.Fatal("player still tracked after close")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	exceeded := 0
	r := newRateLimiter(minecraft.DefaultProtocol, func() { exceeded++ })
	r.now = func() time.Time { return now }
	r.lastReset = now

	pl := pipeline.New()
	_ = pl.AddLast(pipeline.Inbound, pipeline.StageRateLimit, r)

	latency := version.Marshal(&packet.NetworkStackLatency{})
	for i := 0; i < maxNormalPackets*2; i++ {
		if _, ok := pl.Fire(pipeline.Inbound, latency); !ok {
			t.Fatalf("latency packet %d dropped", i)
		}
	}

	text := []byte{packet.IDText}
	for i := 0; i < maxNormalPackets; i++ {
		if _, ok := pl.Fire(pipeline.Inbound, text); !ok {
			t.Fatalf("packet %d dropped below the limit", i)
		}
	}
	if _, ok := pl.Fire(pipeline.Inbound, text); ok {
		t.Fatal("packet over the limit forwarded")
	}
	pl.Fire(pipeline.Inbound, text)
	if exceeded != 1 {
		t.Fatalf("limit exceeded callback called %d times, want 1", exceeded)
	}

	now = now.Add(rateLimitInterval)
	if _, ok := pl.Fire(pipeline.Inbound, text); !ok {
		t.Fatal("packet dropped after the limit was reset")
	}
}

func TestRateLimiterSpammablePackets(t *testing.T) {
	r := newRateLimiter(minecraft.DefaultProtocol, func() {})
	useItem := func(requestID int32) []byte {
		return version.Marshal(&packet.InventoryTransaction{
			LegacyRequestID: requestID,
			TransactionData: &protocol.UseItemTransactionData{ActionType: protocol.UseItemActionClickAir},
		})
	}
	for _, tc := range []struct {
		name      string
		raw       []byte
		spammable bool
	}{
		{"latency", version.Marshal(&packet.NetworkStackLatency{}), true},
		{"swing", version.Marshal(&packet.Animate{ActionType: packet.AnimateActionSwingArm, EntityRuntimeID: 1}), true},
		{"critical hit", version.Marshal(&packet.Animate{ActionType: packet.AnimateActionCriticalHit, EntityRuntimeID: 1}), false},
		{"use item", useItem(0), true},
		{"legacy request", useItem(-2), false},
		{"normal transaction", version.Marshal(&packet.InventoryTransaction{TransactionData: &protocol.NormalTransactionData{}}), false},
		{"text", version.Marshal(&packet.Text{TextType: packet.TextTypeChat, SourceName: "Steve", Message: "hi"}), false},
		{"truncated swing", []byte{packet.IDAnimate}, false},
	} {
		if got := r.spammable(tc.raw); got != tc.spammable {
			t.Errorf("%s: spammable = %v, want %v", tc.name, got, tc.spammable)
		}
	}
}

func TestRateLimiterLegacyTransactions(t *testing.T) {
	wire := v766.New().Protocol()
	r := newRateLimiter(wire, func() {})
	useItem := version.MarshalProto(wire, &legacypacket.InventoryTransaction{
		TransactionData: &proto.UseItemTransactionData{ActionType: protocol.UseItemActionClickAir},
	})
	if !r.spammable(useItem) {
		t.Fatal("1.21.50 use item transaction counted towards the normal limit")
	}
	legacy := version.MarshalProto(wire, &legacypacket.InventoryTransaction{
		LegacyRequestID: -2,
		TransactionData: &proto.UseItemTransactionData{ActionType: protocol.UseItemActionClickAir},
	})
	if r.spammable(legacy) {
		t.Fatal("1.21.50 transaction with a legacy request exempt from the normal limit")
	}
}

func TestPacketStats(t *testing.T) {
	s := &packetStats{}
	pl := pipeline.New()
	_ = pl.AddLast(pipeline.Outbound, pipeline.StagePacketHandler, s)
	pl.Fire(pipeline.Outbound, []byte{1, 2, 3})
	pl.Fire(pipeline.Outbound, []byte{4})
	if s.packets.Load() != 2 || s.bytes.Load() != 4 {
		t.Fatalf("counted %d packets and %d bytes", s.packets.Load(), s.bytes.Load())
	}
}
