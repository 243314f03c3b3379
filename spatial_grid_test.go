package prism

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func sphereCollider(eid EntityId, pos mgl32.Vec3, radius float32) WorldCollider {
	return WorldCollider{
		Entity:   eid,
		Shape:    ColliderSphere,
		Radius:   radius,
		Position: pos,
		Rotation: mgl32.QuatIdent(),
	}
}

func TestAabbOverlaps(t *testing.T) {
	a := Aabb{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}
	b := Aabb{Min: mgl32.Vec3{0.5, 0.5, 0.5}, Max: mgl32.Vec3{2, 2, 2}}
	c := Aabb{Min: mgl32.Vec3{5, 5, 5}, Max: mgl32.Vec3{6, 6, 6}}

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Error("overlapping boxes not detected")
	}
	if a.Overlaps(c) {
		t.Error("distant boxes overlap")
	}
	// Touching faces count as overlap.
	d := Aabb{Min: mgl32.Vec3{1, 0, 0}, Max: mgl32.Vec3{2, 1, 1}}
	if !a.Overlaps(d) {
		t.Error("touching boxes not detected")
	}
}

func TestColliderAabbRotatedBox(t *testing.T) {
	col := WorldCollider{
		Shape:       ColliderBox,
		HalfExtents: mgl32.Vec3{1, 0.1, 0.1},
		Position:    mgl32.Vec3{0, 0, 0},
		Rotation:    mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}),
	}
	box := ColliderAabb(col)
	// A 90° yaw swaps the long axis from x to z; the bound must cover it.
	if box.Max.Z() < 0.9 {
		t.Errorf("rotated extent not covered: max = %v", box.Max)
	}
	if box.Max.X() > 0.2 {
		t.Errorf("x bound should shrink after rotation: max = %v", box.Max)
	}
}

func TestCandidatePairs(t *testing.T) {
	grid := NewSpatialHashGrid(2.0)
	colliders := []WorldCollider{
		sphereCollider(1, mgl32.Vec3{0, 0, 0}, 1),
		sphereCollider(2, mgl32.Vec3{1, 0, 0}, 1),   // overlaps 1
		sphereCollider(3, mgl32.Vec3{50, 0, 0}, 1),  // isolated
		sphereCollider(4, mgl32.Vec3{0.5, 0, 0}, 1), // overlaps 1 and 2
	}

	pairs := CandidatePairs(colliders, grid)
	want := [][2]EntityId{{1, 2}, {1, 4}, {2, 4}}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestCandidatePairsDeterministic(t *testing.T) {
	grid := NewSpatialHashGrid(2.0)
	var colliders []WorldCollider
	for i := 0; i < 20; i++ {
		colliders = append(colliders, sphereCollider(EntityId(i+1), mgl32.Vec3{float32(i) * 0.4, 0, 0}, 1))
	}

	first := CandidatePairs(colliders, grid)
	for run := 0; run < 10; run++ {
		again := CandidatePairs(colliders, grid)
		if len(first) != len(again) {
			t.Fatalf("pair count changed: %d vs %d", len(first), len(again))
		}
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("pair order changed on run %d", run)
			}
		}
	}
}

func TestSpatialGridQueryDedup(t *testing.T) {
	grid := NewSpatialHashGrid(1.0)
	// Box spanning many cells registers once per cell but queries once.
	big := Aabb{Min: mgl32.Vec3{-3, -3, -3}, Max: mgl32.Vec3{3, 3, 3}}
	grid.Insert(7, big)

	hits := grid.Query(big)
	if len(hits) != 1 || hits[0] != 7 {
		t.Errorf("query = %v", hits)
	}
}
