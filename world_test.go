package prism

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func approxVec3(t *testing.T, got, want mgl32.Vec3, what string) {
	t.Helper()
	const eps = 1e-4
	for i := 0; i < 3; i++ {
		if math.Abs(float64(got[i]-want[i])) > eps {
			t.Fatalf("%s = %v, want %v", what, got, want)
		}
	}
}

func TestCreateEntityUnknownParent(t *testing.T) {
	world := NewWorld()
	if _, err := world.CreateEntity("orphan", EntityId(999)); err == nil {
		t.Fatal("expected error for unknown parent")
	}
}

func TestEntityByName(t *testing.T) {
	world := NewWorld()
	eid, _ := world.CreateEntity("player", NoEntity)

	got, ok := world.EntityByName("player")
	if !ok || got != eid {
		t.Fatalf("EntityByName = %v, %v", got, ok)
	}
	if _, ok := world.EntityByName("Player"); ok {
		t.Error("name matching must be case-sensitive")
	}
}

func TestDuplicateComponentRejected(t *testing.T) {
	world := NewWorld()
	eid, _ := world.CreateEntity("e", NoEntity)

	if err := AddComponent(world, eid, identityTransform()); err != nil {
		t.Fatal(err)
	}
	err := AddComponent(world, eid, identityTransform())
	var dup *DuplicateComponentError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateComponentError, got %v", err)
	}

	// The first instance survives untouched.
	if !HasComponent[TransformComponent](world, eid) {
		t.Error("original component lost")
	}
}

func TestDestroyEntityCascades(t *testing.T) {
	world := NewWorld()
	root, _ := world.CreateEntity("root", NoEntity)
	child, _ := world.CreateEntity("child", root)
	grandchild, _ := world.CreateEntity("grandchild", child)
	bystander, _ := world.CreateEntity("bystander", NoEntity)

	world.DestroyEntity(root)

	for _, eid := range []EntityId{root, child, grandchild} {
		if world.Exists(eid) {
			t.Errorf("entity %d survived cascade", eid)
		}
	}
	if !world.Exists(bystander) {
		t.Error("bystander destroyed")
	}
	if _, ok := world.EntityByName("grandchild"); ok {
		t.Error("destroyed name still resolvable")
	}
}

func TestSetParentRejectsCycle(t *testing.T) {
	world := NewWorld()
	a, _ := world.CreateEntity("a", NoEntity)
	b, _ := world.CreateEntity("b", a)
	c, _ := world.CreateEntity("c", b)

	err := world.SetParent(a, c)
	var cyc *CyclicParentError
	if !errors.As(err, &cyc) {
		t.Fatalf("expected CyclicParentError, got %v", err)
	}
	if err := world.SetParent(a, a); err == nil {
		t.Fatal("self-parenting accepted")
	}

	// Legal reattach still works.
	if err := world.SetParent(c, a); err != nil {
		t.Fatalf("legal reparent failed: %v", err)
	}
	if parent, _ := world.Parent(c); parent != a {
		t.Errorf("parent of c = %d, want %d", parent, a)
	}
}

func TestWorldTransformComposition(t *testing.T) {
	world := NewWorld()
	parent, _ := world.CreateEntity("parent", NoEntity)
	child, _ := world.CreateEntity("child", parent)

	parentTr := identityTransform()
	parentTr.Position = mgl32.Vec3{10, 0, 0}
	parentTr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	parentTr.Scale = mgl32.Vec3{2, 2, 2}
	AddComponent(world, parent, parentTr)

	childTr := identityTransform()
	childTr.Position = mgl32.Vec3{1, 0, 0}
	AddComponent(world, child, childTr)

	got := world.WorldTransform(child)
	// Child offset scaled to 2 on x, then rotated 90° about Y: +x maps to -z.
	approxVec3(t, got.Position, mgl32.Vec3{10, 0, -2}, "child world position")
	approxVec3(t, got.Scale, mgl32.Vec3{2, 2, 2}, "child world scale")
}

func TestWorldTransformWithoutComponent(t *testing.T) {
	world := NewWorld()
	parent, _ := world.CreateEntity("parent", NoEntity)
	child, _ := world.CreateEntity("child", parent)

	parentTr := identityTransform()
	parentTr.Position = mgl32.Vec3{3, 4, 5}
	AddComponent(world, parent, parentTr)

	// Child contributes identity when it has no transform.
	got := world.WorldTransform(child)
	approxVec3(t, got.Position, mgl32.Vec3{3, 4, 5}, "identity child position")
}

func TestRemoveComponentGeneric(t *testing.T) {
	world := NewWorld()
	eid, _ := world.CreateEntity("e", NoEntity)
	AddComponent(world, eid, identityTransform())
	AddComponent(world, eid, LightComponent{Intensity: 1})

	RemoveComponent[LightComponent](world, eid)
	if HasComponent[LightComponent](world, eid) {
		t.Error("light still present")
	}
	if !HasComponent[TransformComponent](world, eid) {
		t.Error("transform removed collaterally")
	}
	// Removing twice is a no-op.
	RemoveComponent[LightComponent](world, eid)
}
