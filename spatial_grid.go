package prism

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Aabb is an axis-aligned world-space bounding box.
type Aabb struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (a Aabb) Overlaps(b Aabb) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// ColliderAabb bounds a world-space collider. Boxes are bounded
// conservatively under rotation by summing the absolute rotated extents per
// axis.
func ColliderAabb(col WorldCollider) Aabb {
	switch col.Shape {
	case ColliderBox:
		rot := col.Rotation.Mat4()
		var half mgl32.Vec3
		for i := 0; i < 3; i++ {
			var sum float32
			for j := 0; j < 3; j++ {
				sum += float32(math.Abs(float64(rot.At(i, j)))) * col.HalfExtents[j]
			}
			half[i] = sum
		}
		return Aabb{Min: col.Position.Sub(half), Max: col.Position.Add(half)}
	default:
		r := mgl32.Vec3{col.Radius, col.Radius, col.Radius}
		return Aabb{Min: col.Position.Sub(r), Max: col.Position.Add(r)}
	}
}

// SpatialHashGrid is the broadphase index over collider bounds. Cells are
// uniform cubes; an entity registers in every cell its box touches.
type SpatialHashGrid struct {
	cellSize float32
	cells    map[uint64][]EntityId
}

func NewSpatialHashGrid(cellSize float32) *SpatialHashGrid {
	return &SpatialHashGrid{
		cellSize: cellSize,
		cells:    make(map[uint64][]EntityId),
	}
}

func (grid *SpatialHashGrid) Clear() {
	clear(grid.cells)
}

func (grid *SpatialHashGrid) Insert(id EntityId, box Aabb) {
	minX, maxX := grid.cellIndex(box.Min.X()), grid.cellIndex(box.Max.X())
	minY, maxY := grid.cellIndex(box.Min.Y()), grid.cellIndex(box.Max.Y())
	minZ, maxZ := grid.cellIndex(box.Min.Z()), grid.cellIndex(box.Max.Z())

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				key := grid.hashKey(x, y, z)
				grid.cells[key] = append(grid.cells[key], id)
			}
		}
	}
}

// Query lists entities whose cells intersect the box, deduplicated.
// Candidates, not exact overlaps; callers narrow against actual bounds.
func (grid *SpatialHashGrid) Query(box Aabb) []EntityId {
	minX, maxX := grid.cellIndex(box.Min.X()), grid.cellIndex(box.Max.X())
	minY, maxY := grid.cellIndex(box.Min.Y()), grid.cellIndex(box.Max.Y())
	minZ, maxZ := grid.cellIndex(box.Min.Z()), grid.cellIndex(box.Max.Z())

	seen := make(map[EntityId]struct{})
	var results []EntityId

	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			for z := minZ; z <= maxZ; z++ {
				for _, id := range grid.cells[grid.hashKey(x, y, z)] {
					if _, ok := seen[id]; !ok {
						seen[id] = struct{}{}
						results = append(results, id)
					}
				}
			}
		}
	}
	return results
}

func (grid *SpatialHashGrid) cellIndex(pos float32) int {
	return int(math.Floor(float64(pos / grid.cellSize)))
}

func (grid *SpatialHashGrid) hashKey(x, y, z int) uint64 {
	const p1 = 73856093
	const p2 = 19349663
	const p3 = 83492791
	return uint64(x*p1 ^ y*p2 ^ z*p3)
}

// CandidatePairs runs the broadphase over a collider snapshot: every pair
// whose bounds overlap, each pair once with the lower entity id first, sorted
// so external consumers see a stable order.
func CandidatePairs(colliders []WorldCollider, grid *SpatialHashGrid) [][2]EntityId {
	grid.Clear()

	bounds := make(map[EntityId]Aabb, len(colliders))
	for _, col := range colliders {
		box := ColliderAabb(col)
		bounds[col.Entity] = box
		grid.Insert(col.Entity, box)
	}

	seen := make(map[[2]EntityId]struct{})
	var pairs [][2]EntityId
	for _, col := range colliders {
		box := bounds[col.Entity]
		for _, other := range grid.Query(box) {
			if other == col.Entity {
				continue
			}
			pair := [2]EntityId{col.Entity, other}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if _, dup := seen[pair]; dup {
				continue
			}
			if !box.Overlaps(bounds[other]) {
				continue
			}
			seen[pair] = struct{}{}
			pairs = append(pairs, pair)
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}
