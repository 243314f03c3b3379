package prism

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

// NoEntity is the nil entity id. Used as the parent of root entities.
const NoEntity = EntityId(0)

// World owns all entities and their components. Entities carry a display
// name and an optional parent; the parent relation is a weak back-reference
// for transform composition, while destruction cascades to descendants so no
// dangling parent ids survive. All mutation happens on the loading/render
// thread per the engine's frame model.
type World struct {
	ecs *Ecs

	names    map[EntityId]string
	byName   map[string]EntityId
	parents  map[EntityId]EntityId
	children map[EntityId][]EntityId
	roots    []EntityId
}

func NewWorld() *World {
	ecs := MakeEcs()
	return &World{
		ecs:      &ecs,
		names:    make(map[EntityId]string),
		byName:   make(map[string]EntityId),
		parents:  make(map[EntityId]EntityId),
		children: make(map[EntityId][]EntityId),
	}
}

// CreateEntity adds a named entity under the given parent (NoEntity for a
// root). The parent must already exist, which keeps the hierarchy acyclic by
// construction.
func (w *World) CreateEntity(name string, parent EntityId) (EntityId, error) {
	if parent != NoEntity && !w.ecs.hasEntity(parent) {
		return NoEntity, fmt.Errorf("create entity %q: parent %d does not exist", name, parent)
	}

	eid := w.ecs.addEntity()
	w.names[eid] = name
	if name != "" {
		w.byName[name] = eid
	}
	if parent == NoEntity {
		w.roots = append(w.roots, eid)
	} else {
		w.parents[eid] = parent
		w.children[parent] = append(w.children[parent], eid)
	}
	return eid, nil
}

// DestroyEntity removes the entity and, recursively, all of its descendants.
func (w *World) DestroyEntity(eid EntityId) {
	if !w.ecs.hasEntity(eid) {
		return
	}

	for _, child := range slices.Clone(w.children[eid]) {
		w.DestroyEntity(child)
	}

	if parent, ok := w.parents[eid]; ok {
		if i := slices.Index(w.children[parent], eid); i >= 0 {
			w.children[parent] = slices.Delete(w.children[parent], i, i+1)
		}
	} else if i := slices.Index(w.roots, eid); i >= 0 {
		w.roots = slices.Delete(w.roots, i, i+1)
	}

	if name := w.names[eid]; name != "" && w.byName[name] == eid {
		delete(w.byName, name)
	}
	delete(w.names, eid)
	delete(w.parents, eid)
	delete(w.children, eid)
	w.ecs.removeEntity(eid)
}

// SetParent reattaches an entity, rejecting moves that would introduce a
// parent cycle.
func (w *World) SetParent(eid EntityId, parent EntityId) error {
	if !w.ecs.hasEntity(eid) {
		return fmt.Errorf("set parent: entity %d does not exist", eid)
	}
	if parent != NoEntity && !w.ecs.hasEntity(parent) {
		return fmt.Errorf("set parent: parent %d does not exist", parent)
	}

	for cursor := parent; cursor != NoEntity; cursor = w.parents[cursor] {
		if cursor == eid {
			return &CyclicParentError{Entity: w.names[eid]}
		}
	}

	if old, ok := w.parents[eid]; ok {
		if i := slices.Index(w.children[old], eid); i >= 0 {
			w.children[old] = slices.Delete(w.children[old], i, i+1)
		}
	} else if i := slices.Index(w.roots, eid); i >= 0 {
		w.roots = slices.Delete(w.roots, i, i+1)
	}

	if parent == NoEntity {
		delete(w.parents, eid)
		w.roots = append(w.roots, eid)
	} else {
		w.parents[eid] = parent
		w.children[parent] = append(w.children[parent], eid)
	}
	return nil
}

func (w *World) Exists(eid EntityId) bool { return w.ecs.hasEntity(eid) }

func (w *World) Name(eid EntityId) string { return w.names[eid] }

// EntityByName resolves a display name to an id. Names are case-sensitive
// exact matches.
func (w *World) EntityByName(name string) (EntityId, bool) {
	eid, ok := w.byName[name]
	return eid, ok
}

func (w *World) Parent(eid EntityId) (EntityId, bool) {
	parent, ok := w.parents[eid]
	return parent, ok
}

func (w *World) Children(eid EntityId) []EntityId {
	return slices.Clone(w.children[eid])
}

// Entities lists every live entity in creation order.
func (w *World) Entities() []EntityId {
	res := make([]EntityId, 0, len(w.names))
	var walk func(EntityId)
	walk = func(eid EntityId) {
		res = append(res, eid)
		for _, child := range w.children[eid] {
			walk(child)
		}
	}
	for _, root := range w.roots {
		walk(root)
	}
	slices.Sort(res)
	return res
}

func (w *World) EntityCount() int { return len(w.names) }

// AddComponent attaches a component, enforcing at most one instance per kind.
func AddComponent[T any](w *World, eid EntityId, component T) error {
	if !w.ecs.hasEntity(eid) {
		return fmt.Errorf("add component: entity %d does not exist", eid)
	}
	compType := reflect.TypeOf(component)
	if w.ecs.hasComponent(eid, compType) {
		return &DuplicateComponentError{Entity: eid, Kind: compType.Name()}
	}
	w.ecs.addComponents(eid, component)
	return nil
}

// GetComponent returns a pointer into the component's storage column. The
// pointer stays valid until the entity's component set changes.
func GetComponent[T any](w *World, eid EntityId) (*T, bool) {
	var zero T
	val, ok := w.ecs.readComponent(eid, reflect.TypeOf(zero))
	if !ok {
		return nil, false
	}
	return val.Addr().Interface().(*T), true
}

// HasComponent reports whether the entity carries a component of kind T.
func HasComponent[T any](w *World, eid EntityId) bool {
	var zero T
	return w.ecs.hasComponent(eid, reflect.TypeOf(zero))
}

// RemoveComponent detaches the component of kind T, if attached.
func RemoveComponent[T any](w *World, eid EntityId) {
	var zero T
	if w.ecs.hasComponent(eid, reflect.TypeOf(zero)) {
		w.ecs.removeComponents(eid, zero)
	}
}

// WorldTransform composes local transforms from the root down to the entity.
// Position: parentPos + parentRot * (parentScale * localPos). Rotation:
// parentRot * localRot. Scale: componentwise product. Entities without a
// TransformComponent contribute the identity.
func (w *World) WorldTransform(eid EntityId) TransformComponent {
	local := identityTransform()
	if tr, ok := GetComponent[TransformComponent](w, eid); ok {
		local = *tr
	}

	parent, ok := w.parents[eid]
	if !ok {
		return local
	}
	parentWorld := w.WorldTransform(parent)
	return composeTransforms(parentWorld, local)
}

func identityTransform() TransformComponent {
	return TransformComponent{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func composeTransforms(parent, local TransformComponent) TransformComponent {
	scaledLocalPos := mgl32.Vec3{
		local.Position.X() * parent.Scale.X(),
		local.Position.Y() * parent.Scale.Y(),
		local.Position.Z() * parent.Scale.Z(),
	}
	return TransformComponent{
		Position: parent.Position.Add(parent.Rotation.Rotate(scaledLocalPos)),
		Rotation: parent.Rotation.Mul(local.Rotation).Normalize(),
		Scale: mgl32.Vec3{
			parent.Scale.X() * local.Scale.X(),
			parent.Scale.Y() * local.Scale.Y(),
			parent.Scale.Z() * local.Scale.Z(),
		},
	}
}
