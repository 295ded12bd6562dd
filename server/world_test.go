package server

import (
	"errors"
	"testing"
)

func TestSpawnAssignsUniqueIDs(t *testing.T) {
	w := NewWorld(100, 100)
	a := w.Spawn(1, Vec2{X: 50, Y: 50})
	b := w.Spawn(2, Vec2{X: 50, Y: 50})
	if a == b || a != 1 || b != 2 {
		t.Fatalf("ids = %d, %d", a, b)
	}
	if w.Len() != 2 {
		t.Fatalf("Len = %d, want 2", w.Len())
	}
	o, ok := w.FindByOwner(2)
	if !ok || o.ID != b {
		t.Fatalf("FindByOwner = %+v %v", o, ok)
	}
	if !o.Dirty {
		t.Fatalf("spawned object should be dirty")
	}
}

func TestApplyMovement(t *testing.T) {
	w := NewWorld(100, 100)
	id := w.Spawn(1, Vec2{X: 50, Y: 50})
	w.EndTick()

	if err := w.ApplyMovement(id, Vec2{X: 3, Y: -4}, 5); err != nil {
		t.Fatalf("apply: %v", err)
	}
	o, _ := w.Get(id)
	if o.Position != (Vec2{X: 53, Y: 46}) || o.Magnitude != 5 || !o.Dirty {
		t.Fatalf("object = %+v", o)
	}

	w.EndTick()
	o, _ = w.Get(id)
	if o.Position != (Vec2{X: 53, Y: 46}) || o.Magnitude != 0 || o.Dirty {
		t.Fatalf("after EndTick = %+v", o)
	}

	if err := w.ApplyMovement(99, Vec2{}, 1); !errors.Is(err, ErrUnknownObject) {
		t.Fatalf("err = %v, want ErrUnknownObject", err)
	}
}

func TestApplyMovementClampsToBounds(t *testing.T) {
	w := NewWorld(100, 100)
	id := w.Spawn(1, Vec2{X: 2, Y: 98})
	if err := w.ApplyMovement(id, Vec2{X: -10, Y: 10}, 10); err != nil {
		t.Fatalf("apply: %v", err)
	}
	o, _ := w.Get(id)
	if o.Position != (Vec2{X: 0, Y: 100}) {
		t.Fatalf("position = %+v, want (0,100)", o.Position)
	}
}

func TestAllAndEndTick(t *testing.T) {
	w := NewWorld(100, 100)
	for i := 1; i <= 3; i++ {
		w.Spawn(SessionID(i), Vec2{})
	}
	w.EndTick()
	for i, o := range w.All() {
		if o.ID != ObjectID(i+1) || o.Dirty {
			t.Fatalf("all[%d] = %+v", i, o)
		}
	}
	if _, ok := w.Get(4); ok {
		t.Fatalf("unexpected object 4")
	}
}
