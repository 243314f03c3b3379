package prism

import (
	"reflect"
	"testing"
)

func typeOf[T any]() reflect.Type {
	var zero T
	return reflect.TypeOf(zero)
}

type posComp struct{ X, Y int }
type velComp struct{ Dx, Dy int }
type tagComp struct{ Label string }

func TestAddAndReadComponents(t *testing.T) {
	ecs := MakeEcs()

	e1 := ecs.addEntity(posComp{X: 1, Y: 2})
	e2 := ecs.addEntity(posComp{X: 3, Y: 4}, velComp{Dx: 1, Dy: 1})

	if !ecs.hasEntity(e1) || !ecs.hasEntity(e2) {
		t.Fatalf("entities not registered")
	}

	val, ok := ecs.readComponent(e1, typeOf[posComp]())
	if !ok {
		t.Fatalf("missing pos on e1")
	}
	if got := val.Interface().(posComp); got.X != 1 || got.Y != 2 {
		t.Errorf("e1 pos = %+v", got)
	}

	if _, ok := ecs.readComponent(e1, typeOf[velComp]()); ok {
		t.Errorf("e1 should not have vel")
	}
	if _, ok := ecs.readComponent(e2, typeOf[velComp]()); !ok {
		t.Errorf("e2 should have vel")
	}
}

func TestAddComponentsMovesArchetype(t *testing.T) {
	ecs := MakeEcs()

	eid := ecs.addEntity(posComp{X: 5, Y: 6})
	ecs.addComponents(eid, velComp{Dx: 7, Dy: 8})

	pos, ok := ecs.readComponent(eid, typeOf[posComp]())
	if !ok {
		t.Fatalf("pos lost after archetype move")
	}
	if got := pos.Interface().(posComp); got.X != 5 || got.Y != 6 {
		t.Errorf("pos = %+v after move", got)
	}

	vel, ok := ecs.readComponent(eid, typeOf[velComp]())
	if !ok {
		t.Fatalf("vel missing after add")
	}
	if got := vel.Interface().(velComp); got.Dx != 7 {
		t.Errorf("vel = %+v", got)
	}
}

func TestRemoveComponents(t *testing.T) {
	ecs := MakeEcs()

	eid := ecs.addEntity(posComp{X: 1}, velComp{Dx: 2})
	ecs.removeComponents(eid, velComp{})

	if ecs.hasComponent(eid, typeOf[velComp]()) {
		t.Errorf("vel still present after remove")
	}
	if !ecs.hasComponent(eid, typeOf[posComp]()) {
		t.Errorf("pos lost on remove of vel")
	}
}

func TestRemoveEntity(t *testing.T) {
	ecs := MakeEcs()

	e1 := ecs.addEntity(posComp{X: 1})
	e2 := ecs.addEntity(posComp{X: 2})
	ecs.removeEntity(e1)

	if ecs.hasEntity(e1) {
		t.Errorf("e1 still alive")
	}
	if !ecs.hasEntity(e2) {
		t.Errorf("e2 destroyed collaterally")
	}
	val, _ := ecs.readComponent(e2, typeOf[posComp]())
	if got := val.Interface().(posComp); got.X != 2 {
		t.Errorf("e2 pos corrupted after swap-remove: %+v", got)
	}
}

// Query iteration must replay in the same order every time: archetypes in
// creation order, entities in insertion order.
func TestQueryOrderDeterministic(t *testing.T) {
	world := NewWorld()

	var created []EntityId
	for i := 0; i < 8; i++ {
		eid, err := world.CreateEntity("", NoEntity)
		if err != nil {
			t.Fatal(err)
		}
		if err := AddComponent(world, eid, posComp{X: i}); err != nil {
			t.Fatal(err)
		}
		// Half the entities land in a second archetype.
		if i%2 == 1 {
			if err := AddComponent(world, eid, tagComp{Label: "odd"}); err != nil {
				t.Fatal(err)
			}
		}
		created = append(created, eid)
	}

	collect := func() []EntityId {
		var seen []EntityId
		MakeQuery1[posComp](world).Map(func(eid EntityId, p *posComp) bool {
			seen = append(seen, eid)
			return true
		})
		return seen
	}

	first := collect()
	if len(first) != 8 {
		t.Fatalf("query matched %d of 8", len(first))
	}
	for run := 0; run < 20; run++ {
		again := collect()
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("iteration order changed on run %d: %v vs %v", run, first, again)
			}
		}
	}
}

func TestQueryEarlyStop(t *testing.T) {
	world := NewWorld()
	for i := 0; i < 5; i++ {
		eid, _ := world.CreateEntity("", NoEntity)
		AddComponent(world, eid, posComp{X: i})
	}

	n := 0
	MakeQuery1[posComp](world).Map(func(EntityId, *posComp) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Errorf("early stop visited %d", n)
	}
}

func TestQuery3MatchesSupersetOnly(t *testing.T) {
	world := NewWorld()

	full, _ := world.CreateEntity("", NoEntity)
	AddComponent(world, full, posComp{X: 1})
	AddComponent(world, full, velComp{Dx: 2})
	AddComponent(world, full, tagComp{Label: "full"})

	partial, _ := world.CreateEntity("", NoEntity)
	AddComponent(world, partial, posComp{X: 3})
	AddComponent(world, partial, velComp{Dx: 4})

	var seen []EntityId
	MakeQuery3[posComp, velComp, tagComp](world).Map(func(eid EntityId, p *posComp, v *velComp, tag *tagComp) bool {
		if p.X != 1 || v.Dx != 2 || tag.Label != "full" {
			t.Errorf("wrong columns for %v: %+v %+v %+v", eid, p, v, tag)
		}
		seen = append(seen, eid)
		return true
	})
	if len(seen) != 1 || seen[0] != full {
		t.Errorf("query matched %v, want only %v", seen, full)
	}
}

func TestQuery2Count(t *testing.T) {
	world := NewWorld()
	for i := 0; i < 4; i++ {
		eid, _ := world.CreateEntity("", NoEntity)
		AddComponent(world, eid, posComp{X: i})
		if i < 3 {
			AddComponent(world, eid, velComp{Dx: i})
		}
	}

	if n := MakeQuery2[posComp, velComp](world).Count(); n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
	if n := MakeQuery2[posComp, tagComp](world).Count(); n != 0 {
		t.Errorf("Count = %d, want 0 for unmatched pair", n)
	}
}

func TestQueryPointersMutate(t *testing.T) {
	world := NewWorld()
	eid, _ := world.CreateEntity("", NoEntity)
	AddComponent(world, eid, posComp{X: 1})

	MakeQuery1[posComp](world).Map(func(_ EntityId, p *posComp) bool {
		p.X = 42
		return true
	})

	got, _ := GetComponent[posComp](world, eid)
	if got.X != 42 {
		t.Errorf("mutation through query pointer lost, X = %d", got.X)
	}
}
