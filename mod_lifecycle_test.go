package prism

import (
	"testing"
	"time"
)

func TestLifetimeExpiry(t *testing.T) {
	world := NewWorld()
	shortLived, _ := world.CreateEntity("spark", NoEntity)
	if err := AddComponent(world, shortLived, LifetimeComponent{TimeLeft: 0.5}); err != nil {
		t.Fatal(err)
	}
	longLived, _ := world.CreateEntity("ember", NoEntity)
	if err := AddComponent(world, longLived, LifetimeComponent{TimeLeft: 10}); err != nil {
		t.Fatal(err)
	}

	scene := &SceneState{Loaded: &LoadedScene{World: world}}
	clock := &Time{Dt: 300 * time.Millisecond}
	log := NewNopLogger()

	lifetimeSystem(scene, clock, &log)
	if !world.Exists(shortLived) || !world.Exists(longLived) {
		t.Fatal("no entity should expire after 0.3s")
	}

	lifetimeSystem(scene, clock, &log)
	if world.Exists(shortLived) {
		t.Error("entity with 0.5s lifetime should be gone after 0.6s")
	}
	if !world.Exists(longLived) {
		t.Error("entity with 10s lifetime removed early")
	}
}

func TestLifetimeIgnoresZeroDt(t *testing.T) {
	world := NewWorld()
	eid, _ := world.CreateEntity("spark", NoEntity)
	if err := AddComponent(world, eid, LifetimeComponent{TimeLeft: 0.1}); err != nil {
		t.Fatal(err)
	}

	scene := &SceneState{Loaded: &LoadedScene{World: world}}
	log := NewNopLogger()

	lifetimeSystem(scene, &Time{Dt: 0}, &log)
	if !world.Exists(eid) {
		t.Error("zero dt must not tick lifetimes")
	}
}
