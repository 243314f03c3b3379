package prism

import (
	"github.com/go-gl/mathgl/mgl32"
)

// The core does not resolve collisions. Entities with a ColliderComponent
// expose shape plus world transform for an external collision system to
// query, and the engine accepts collision notifications back through
// registered callbacks.

// WorldCollider is one collider's world-space snapshot.
type WorldCollider struct {
	Entity      EntityId
	Shape       ColliderShape
	Radius      float32    // world-scaled, sphere
	HalfExtents mgl32.Vec3 // world-scaled, box
	Position    mgl32.Vec3
	Rotation    mgl32.Quat
	Friction    float32
	Restitution float32
	IsTrigger   bool
}

// CollidersSnapshot lists every collider with its current world transform
// applied, in deterministic query order. Sphere radii scale by the largest
// world-scale component; box extents scale componentwise.
func CollidersSnapshot(world *World) []WorldCollider {
	var res []WorldCollider
	MakeQuery2[TransformComponent, ColliderComponent](world).Map(func(eid EntityId, tr *TransformComponent, col *ColliderComponent) bool {
		worldTr := world.WorldTransform(eid)
		res = append(res, WorldCollider{
			Entity: eid,
			Shape:  col.Shape,
			Radius: col.Radius * maxComponent(worldTr.Scale),
			HalfExtents: mgl32.Vec3{
				col.HalfExtents.X() * worldTr.Scale.X(),
				col.HalfExtents.Y() * worldTr.Scale.Y(),
				col.HalfExtents.Z() * worldTr.Scale.Z(),
			},
			Position:    worldTr.Position,
			Rotation:    worldTr.Rotation,
			Friction:    col.Friction,
			Restitution: col.Restitution,
			IsTrigger:   col.IsTrigger,
		})
		return true
	})
	return res
}

func maxComponent(v mgl32.Vec3) float32 {
	m := v.X()
	if v.Y() > m {
		m = v.Y()
	}
	if v.Z() > m {
		m = v.Z()
	}
	return m
}

// CollisionHandler receives the pair of entities an external system reports
// as colliding.
type CollisionHandler func(entityA, entityB EntityId)

// CollisionCallbacks is the notification channel from an external collision
// system into the engine. Installed as an App resource.
type CollisionCallbacks struct {
	handlers []CollisionHandler
}

func (c *CollisionCallbacks) OnCollide(handler CollisionHandler) {
	c.handlers = append(c.handlers, handler)
}

// Notify fans a reported collision out to every registered handler, in
// registration order.
func (c *CollisionCallbacks) Notify(entityA, entityB EntityId) {
	for _, handler := range c.handlers {
		handler(entityA, entityB)
	}
}

// Broadphase is the per-frame broadphase result: the collider snapshot and
// the candidate overlap pairs, refreshed each PostUpdate. External collision
// systems narrow these and report back through CollisionCallbacks.
type Broadphase struct {
	Colliders []WorldCollider
	Pairs     [][2]EntityId

	grid *SpatialHashGrid
}

// PhysicsBoundaryModule installs the collision callback resource and the
// broadphase refresh system.
type PhysicsBoundaryModule struct {
	// CellSize tunes the broadphase grid; zero picks a default suited to
	// unit-scale objects.
	CellSize float32
}

func (m PhysicsBoundaryModule) Install(app *App, cmd *Commands) {
	cellSize := m.CellSize
	if cellSize == 0 {
		cellSize = 2.0
	}
	cmd.AddResources(
		&CollisionCallbacks{},
		&Broadphase{grid: NewSpatialHashGrid(cellSize)},
	)
	cmd.UseSystem(System(broadphaseSystem).InStage(PostUpdate))
}

func broadphaseSystem(scene *SceneState, broadphase *Broadphase) {
	if scene.Loaded == nil {
		broadphase.Colliders = nil
		broadphase.Pairs = nil
		return
	}
	broadphase.Colliders = CollidersSnapshot(scene.Loaded.World)
	broadphase.Pairs = CandidatePairs(broadphase.Colliders, broadphase.grid)
}
