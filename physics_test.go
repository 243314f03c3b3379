package prism

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCollidersSnapshotScaling(t *testing.T) {
	world := NewWorld()

	parent, _ := world.CreateEntity("parent", NoEntity)
	parentTr := identityTransform()
	parentTr.Scale = mgl32.Vec3{2, 3, 4}
	AddComponent(world, parent, parentTr)

	ball, _ := world.CreateEntity("ball", parent)
	AddComponent(world, ball, identityTransform())
	AddComponent(world, ball, ColliderComponent{Shape: ColliderSphere, Radius: 1})

	crate, _ := world.CreateEntity("crate", parent)
	AddComponent(world, crate, identityTransform())
	AddComponent(world, crate, ColliderComponent{Shape: ColliderBox, HalfExtents: mgl32.Vec3{1, 1, 1}})

	snapshot := CollidersSnapshot(world)
	if len(snapshot) != 2 {
		t.Fatalf("snapshot has %d colliders", len(snapshot))
	}

	byEntity := map[EntityId]WorldCollider{}
	for _, col := range snapshot {
		byEntity[col.Entity] = col
	}

	// Spheres take the largest scale component; boxes scale componentwise.
	if got := byEntity[ball].Radius; got != 4 {
		t.Errorf("sphere radius = %v, want 4", got)
	}
	if got := byEntity[crate].HalfExtents; got != (mgl32.Vec3{2, 3, 4}) {
		t.Errorf("box extents = %v", got)
	}
}

func TestCollidersSnapshotWorldPosition(t *testing.T) {
	world := NewWorld()
	parent, _ := world.CreateEntity("parent", NoEntity)
	parentTr := identityTransform()
	parentTr.Position = mgl32.Vec3{10, 0, 0}
	AddComponent(world, parent, parentTr)

	child, _ := world.CreateEntity("child", parent)
	childTr := identityTransform()
	childTr.Position = mgl32.Vec3{0, 5, 0}
	AddComponent(world, child, childTr)
	AddComponent(world, child, ColliderComponent{Shape: ColliderSphere, Radius: 1})

	snapshot := CollidersSnapshot(world)
	if len(snapshot) != 1 {
		t.Fatalf("snapshot has %d colliders", len(snapshot))
	}
	if got := snapshot[0].Position; got != (mgl32.Vec3{10, 5, 0}) {
		t.Errorf("world position = %v", got)
	}
}

func TestCollisionCallbacksFanOut(t *testing.T) {
	callbacks := &CollisionCallbacks{}

	var order []string
	callbacks.OnCollide(func(a, b EntityId) {
		order = append(order, "first")
		if a != 1 || b != 2 {
			t.Errorf("handler got %d, %d", a, b)
		}
	})
	callbacks.OnCollide(func(a, b EntityId) {
		order = append(order, "second")
	})

	callbacks.Notify(1, 2)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("handlers ran as %v", order)
	}
}
