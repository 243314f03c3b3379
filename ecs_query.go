package prism

import (
	"reflect"
)

// Typed queries over the World. A query matches every entity whose component
// set is a superset of the query's type list and hands out direct pointers to
// the matching columns. Map is lazy and restartable: the callback returns
// false to stop early, and calling Map again replays from the start in the
// same deterministic order.
type Query1[A any] struct{ world *World }
type Query2[A, B any] struct{ world *World }
type Query3[A, B, C any] struct{ world *World }

func MakeQuery1[A any](w *World) Query1[A]             { return Query1[A]{world: w} }
func MakeQuery2[A, B any](w *World) Query2[A, B]       { return Query2[A, B]{world: w} }
func MakeQuery3[A, B, C any](w *World) Query3[A, B, C] { return Query3[A, B, C]{world: w} }

func (q Query1[A]) Map(m func(EntityId, *A) bool) {
	ecs := q.world.ecs
	id1 := identifyComponent[A](ecs)

	for _, archId := range ecs.archetypeOrder {
		arch := ecs.archetypes[archId]

		arg1CompData, ok := arch.componentData[id1]
		if !ok {
			continue
		}
		comps1 := arg1CompData.([]A)

		for _, entityId := range arch.order {
			row := arch.entities[entityId]
			if !m(entityId, &comps1[row]) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool) {
	ecs := q.world.ecs
	id1 := identifyComponent[A](ecs)
	id2 := identifyComponent[B](ecs)

	for _, archId := range ecs.archetypeOrder {
		arch := ecs.archetypes[archId]

		arg1CompData, ok := arch.componentData[id1]
		if !ok {
			continue
		}
		arg2CompData, ok := arch.componentData[id2]
		if !ok {
			continue
		}
		comps1 := arg1CompData.([]A)
		comps2 := arg2CompData.([]B)

		for _, entityId := range arch.order {
			row := arch.entities[entityId]
			if !m(entityId, &comps1[row], &comps2[row]) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool) {
	ecs := q.world.ecs
	id1 := identifyComponent[A](ecs)
	id2 := identifyComponent[B](ecs)
	id3 := identifyComponent[C](ecs)

	for _, archId := range ecs.archetypeOrder {
		arch := ecs.archetypes[archId]

		arg1CompData, ok := arch.componentData[id1]
		if !ok {
			continue
		}
		arg2CompData, ok := arch.componentData[id2]
		if !ok {
			continue
		}
		arg3CompData, ok := arch.componentData[id3]
		if !ok {
			continue
		}
		comps1 := arg1CompData.([]A)
		comps2 := arg2CompData.([]B)
		comps3 := arg3CompData.([]C)

		for _, entityId := range arch.order {
			row := arch.entities[entityId]
			if !m(entityId, &comps1[row], &comps2[row], &comps3[row]) {
				return
			}
		}
	}
}

// Count runs the query to completion and reports the number of matches.
func (q Query2[A, B]) Count() int {
	n := 0
	q.Map(func(EntityId, *A, *B) bool {
		n++
		return true
	})
	return n
}

func identifyComponent[A any](ecs *Ecs) componentId {
	var a A
	return ecs.getComponentId(reflect.TypeOf(a))
}
