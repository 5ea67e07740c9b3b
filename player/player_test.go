package player

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/df-mc/dragonfly/server/event"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	hevent "github.com/heretere/hac/event"
)

func newPlayer() *Player {
	return New(uuid.New(), "Steve", 1, Spawn{})
}

func TestInitialState(t *testing.T) {
	p := New(uuid.New(), "Steve", 1, Spawn{Position: mgl64.Vec3{4, 65, 4}, Yaw: 90, Sneaking: true})
	cur, prev := p.Snapshot()
	if cur != prev {
		t.Fatalf("current %+v and previous %+v differ after spawn", cur, prev)
	}
	if cur.Location() != (mgl64.Vec3{4, 65, 4}) || cur.Velocity() != (mgl64.Vec3{}) || cur.Yaw() != 90 {
		t.Fatalf("unexpected initial state %+v", cur)
	}
	if !cur.OnGround() || !cur.Sneaking() || cur.Sprinting() || cur.Flying() {
		t.Fatalf("unexpected initial flags %+v", cur)
	}
}

func TestMovementFromSpawn(t *testing.T) {
	p := newPlayer()
	p.ApplyMovement(0, 1, 0, 0, 0, true)

	if loc := p.Current().Location(); loc != (mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("current location = %v, want (0, 1, 0)", loc)
	}
	if vel := p.Current().Velocity(); vel != (mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("current velocity = %v, want (0, 1, 0)", vel)
	}
	if loc := p.Previous().Location(); loc != (mgl64.Vec3{}) {
		t.Fatalf("previous location = %v, want (0, 0, 0)", loc)
	}
}

func TestRepeatedMovementHasNoVelocity(t *testing.T) {
	p := newPlayer()
	p.ApplyMovement(1, 0, 0, 0, 0, true)
	p.ApplyMovement(1, 0, 0, 0, 0, true)
	if vel := p.Current().Velocity(); vel != (mgl64.Vec3{}) {
		t.Fatalf("velocity = %v, want zero", vel)
	}
}

func TestMovementSequences(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	p := newPlayer()
	for i := 0; i < 1000; i++ {
		before, _ := p.Snapshot()
		p.ApplyMovement(r.NormFloat64()*100, r.NormFloat64()*100, r.NormFloat64()*100, r.Float64()*360-180, r.Float64()*180-90, r.Intn(2) == 0)

		cur, prev := p.Snapshot()
		if prev != before {
			t.Fatalf("movement %d: previous %+v, want %+v", i, prev, before)
		}
		if cur.Velocity() != cur.Location().Sub(prev.Location()) {
			t.Fatalf("movement %d: velocity %v, locations %v and %v", i, cur.Velocity(), cur.Location(), prev.Location())
		}
		if p.Current() == p.Previous() {
			t.Fatal("current and previous share storage")
		}
	}
}

func TestPostureLeavesMotionAlone(t *testing.T) {
	p := newPlayer()
	p.ApplyMovement(3, 64, 3, 45, 10, true)
	p.ApplyMovement(4, 64, 3, 50, 10, false)
	cur, prev := p.Snapshot()

	actions := []hevent.Action{
		hevent.ActionStartSneaking, hevent.ActionStartSprinting, hevent.ActionStartGliding, hevent.ActionStartFlying,
		hevent.ActionInvalid, hevent.ActionStopSneaking, hevent.ActionStopFlying,
	}
	for _, a := range actions {
		p.ApplyPosture(a)
	}
	cur2, prev2 := p.Snapshot()
	if prev2 != prev {
		t.Fatalf("previous changed from %+v to %+v", prev, prev2)
	}
	if cur2.Location() != cur.Location() || cur2.Velocity() != cur.Velocity() || cur2.Direction() != cur.Direction() {
		t.Fatalf("motion changed from %+v to %+v", cur, cur2)
	}
	if cur2.Sneaking() || !cur2.Sprinting() || !cur2.ElytraFlying() || cur2.Flying() {
		t.Fatalf("unexpected flags %+v", cur2)
	}
	if p.ApplyPosture(hevent.ActionInvalid) {
		t.Fatal("invalid action reported a change")
	}
}

func TestTeleportReseeds(t *testing.T) {
	p := newPlayer()
	p.ApplyMovement(10, 10, 10, 0, 0, false)
	p.Teleport(mgl64.Vec3{100, 70, 100}, 90, 0)

	cur, prev := p.Snapshot()
	if cur != prev || cur.Location() != (mgl64.Vec3{100, 70, 100}) || cur.Velocity() != (mgl64.Vec3{}) {
		t.Fatalf("unexpected state after teleport: %+v / %+v", cur, prev)
	}
	p.ApplyMovement(100, 71, 100, 90, 0, false)
	if vel := p.Current().Velocity(); vel != (mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("velocity after teleport = %v, want (0, 1, 0)", vel)
	}
}

func TestClose(t *testing.T) {
	p := newPlayer()
	quits := 0
	p.Handle(quitCounter{n: &quits})

	if !p.Close() || p.Close() {
		t.Fatal("only the first Close should report closing")
	}
	if quits != 1 {
		t.Fatalf("HandleQuit called %d times, want 1", quits)
	}
	if p.ApplyMovement(1, 1, 1, 0, 0, true) || p.ApplyPosture(hevent.ActionStartSneaking) {
		t.Fatal("update applied after close")
	}
	cur, _ := p.Snapshot()
	if cur.Location() != (mgl64.Vec3{}) || cur.Sneaking() {
		t.Fatalf("state changed after close: %+v", cur)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected Current to panic after close")
		}
	}()
	p.Current()
}

func TestHandlerCancellation(t *testing.T) {
	p := newPlayer()
	if !p.HandleMovement(hevent.Movement{}) {
		t.Fatal("NopHandler cancelled a movement")
	}
	p.Handle(cancelSneak{})
	if p.HandlePosture(hevent.ActionStartSneaking) {
		t.Fatal("sneaking was not cancelled")
	}
	if !p.HandlePosture(hevent.ActionStartSprinting) {
		t.Fatal("sprinting was cancelled")
	}
}

func TestCancelledMovementIsReverted(t *testing.T) {
	p := newPlayer()
	p.ApplyMovement(1, 64, 1, 10, 0, true)
	p.ApplyMovement(2, 64, 1, 20, 0, true)
	cur, prev := p.Snapshot()

	p.Handle(cancelAll{})
	if p.Move(hevent.Movement{Position: mgl64.Vec3{0, 50, 0}}) {
		t.Fatal("cancelled movement reported as kept")
	}
	if c, pr := p.Snapshot(); c != cur || pr != prev {
		t.Fatalf("states after cancelled movement %+v / %+v, want %+v / %+v", c, pr, cur, prev)
	}

	p.Handle(nil)
	if !p.Move(hevent.Movement{Position: mgl64.Vec3{3, 64, 1}, OnGround: true}) {
		t.Fatal("movement cancelled by NopHandler")
	}
	if c, pr := p.Snapshot(); pr != cur || c.Velocity() != (mgl64.Vec3{1, 0, 0}) {
		t.Fatalf("movement after a cancelled one measured from %v", pr.Location())
	}
}

func TestCancelledPostureIsReverted(t *testing.T) {
	p := newPlayer()
	p.Handle(cancelSneak{})
	if p.ChangePosture(hevent.ActionStartSneaking) {
		t.Fatal("cancelled posture change reported as kept")
	}
	if p.Current().Sneaking() {
		t.Fatal("cancelled sneak left the player sneaking")
	}
	if !p.ChangePosture(hevent.ActionStartSprinting) || !p.Current().Sprinting() {
		t.Fatal("sprinting was not applied")
	}
	// Invalid actions change nothing and never reach the handler.
	p.Handle(cancelAll{})
	if !p.ChangePosture(hevent.ActionInvalid) {
		t.Fatal("invalid action reached the handler")
	}
}

func TestCancelDoesNotUndoLaterUpdates(t *testing.T) {
	p := newPlayer()
	p.Handle(teleportAndCancel{})
	p.Move(hevent.Movement{Position: mgl64.Vec3{0, 50, 0}})

	cur, prev := p.Snapshot()
	if cur != prev || cur.Location() != (mgl64.Vec3{9, 9, 9}) {
		t.Fatalf("teleport made by the handler was undone: %+v / %+v", cur, prev)
	}
}

func TestSnapshotIsNeverTorn(t *testing.T) {
	p := newPlayer()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			f := float64(i)
			p.ApplyMovement(f, f*2, -f, 0, 0, true)
		}
	}()
	for i := 0; i < 5000; i++ {
		cur, prev := p.Snapshot()
		if cur.Velocity() != cur.Location().Sub(prev.Location()) {
			t.Fatalf("torn snapshot: %+v / %+v", cur, prev)
		}
		p.View(func(cur, prev *State) {
			if cur.Velocity() != cur.Location().Sub(prev.Location()) {
				t.Errorf("torn view: %+v / %+v", *cur, *prev)
			}
		})
	}
	wg.Wait()
}

func TestList(t *testing.T) {
	l := NewList()
	a, b := newPlayer(), newPlayer()
	if !l.Add(a) || !l.Add(b) || l.Add(a) {
		t.Fatal("unexpected Add results")
	}
	if got, ok := l.Player(a.ID()); !ok || got != a {
		t.Fatal("player a not found")
	}
	if l.Len() != 2 || len(l.All()) != 2 {
		t.Fatalf("Len() = %d, want 2", l.Len())
	}
	if _, ok := l.Remove(a.ID()); !ok || !a.Closed() {
		t.Fatal("Remove did not remove and close player a")
	}
	if _, ok := l.Remove(a.ID()); ok {
		t.Fatal("second Remove reported a player")
	}
	if b.Closed() || l.Len() != 1 {
		t.Fatal("removing a affected b")
	}
}

func TestBBox(t *testing.T) {
	p := New(uuid.New(), "Steve", 1, Spawn{Position: mgl64.Vec3{0.5, 64, 0.5}})
	box := p.Current().BBox()
	if !box.Min().ApproxEqual(mgl64.Vec3{0.2, 64, 0.2}) || !box.Max().ApproxEqual(mgl64.Vec3{0.8, 65.8, 0.8}) {
		t.Fatalf("unexpected bounding box %v - %v", box.Min(), box.Max())
	}
}

type quitCounter struct {
	NopHandler
	n *int
}

func (q quitCounter) HandleQuit(*Player) { *q.n++ }

type cancelSneak struct{ NopHandler }

func (cancelSneak) HandlePosture(ctx *event.Context[*Player], a hevent.Action) {
	if a == hevent.ActionStartSneaking {
		ctx.Cancel()
	}
}

type cancelAll struct{ NopHandler }

func (cancelAll) HandleMovement(ctx *event.Context[*Player], _ hevent.Movement) { ctx.Cancel() }
func (cancelAll) HandlePosture(ctx *event.Context[*Player], _ hevent.Action)    { ctx.Cancel() }

type teleportAndCancel struct{ NopHandler }

func (teleportAndCancel) HandleMovement(ctx *event.Context[*Player], _ hevent.Movement) {
	ctx.Val().Teleport(mgl64.Vec3{9, 9, 9}, 0, 0)
	ctx.Cancel()
}
