package prism

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxFrameLights bounds the number of lights bound to a single draw. When a
// scene exceeds it, each draw gets a deterministic subset: directional lights
// first, then the nearest lights to the drawn object, ties broken by entity
// id ascending.
const MaxFrameLights = 8

// FrameLight is a light's per-frame snapshot. Position and direction come
// from the owning entity's world transform at frame-build time; nothing is
// cached across frames.
type FrameLight struct {
	Entity    EntityId
	Type      LightType
	Color     [3]float32
	Intensity float32
	Range     float32
	InnerCone float32
	OuterCone float32
	Position  mgl32.Vec3
	Direction mgl32.Vec3
}

// DrawCommand is one fully resolved draw: mesh, complete material state, and
// the lights selected for this object.
type DrawCommand struct {
	Entity   EntityId
	Mesh     AssetId
	Material AssetId
	Bindings MaterialBindings
	Model    mgl32.Mat4
	Depth    float32 // camera-space depth, drives the transparent sort
	Lights   []FrameLight
}

// SkyDraw is the distinguished single sky draw, issued after the opaque set
// and before the transparent set so opaque geometry occludes the sky while
// transparent geometry blends over it.
type SkyDraw struct {
	Texture  AssetId
	Exposure float32
}

// FramePlan is the ordered command sequence for one frame. Execution order
// is the struct order: opaque draws, sky, transparent draws, post chain. An
// empty plan (NoFrame true) means no camera renders this frame; that is a
// no-op, not an error.
type FramePlan struct {
	NoFrame    bool
	Camera     EntityId
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Exposure   float32

	Opaque      []DrawCommand
	Sky         *SkyDraw
	Transparent []DrawCommand
	Post        []PostEffect

	// Skipped collects per-draw degradations (invalid materials); the frame
	// carries on without them.
	Skipped []error
}

// BuildFrame produces the frame's command sequence from the current World
// state. Pure over its inputs: same World, camera, and registry produce the
// same plan. The renderer holds no per-frame state beyond what the executor
// keeps for redundant-state elision.
func BuildFrame(scene *LoadedScene, reg *AssetRegistry, aspect float32) *FramePlan {
	world := scene.World

	cam, camWorld, ok := activeMainCamera(scene)
	if !ok {
		return &FramePlan{NoFrame: true}
	}

	plan := &FramePlan{
		Camera:     scene.MainCamera,
		View:       cam.ViewMatrix(camWorld),
		Projection: cam.ProjectionMatrix(aspect),
		Exposure:   scene.Exposure,
		Post:       scene.PostChain,
	}

	lights := collectLights(world)

	MakeQuery2[TransformComponent, MeshRendererComponent](world).Map(func(eid EntityId, tr *TransformComponent, mr *MeshRendererComponent) bool {
		material, ok := reg.Material(mr.Material)
		if !ok {
			plan.Skipped = append(plan.Skipped, &InvalidMaterialError{Material: mr.MaterialName})
			return true
		}
		bindings, err := material.Bind(reg)
		if err != nil {
			plan.Skipped = append(plan.Skipped, err)
			return true
		}

		worldTr := world.WorldTransform(eid)
		model := modelMatrix(worldTr)
		viewPos := plan.View.Mul4x1(worldTr.Position.Vec4(1))

		cmd := DrawCommand{
			Entity:   eid,
			Mesh:     mr.Mesh,
			Material: mr.Material,
			Bindings: bindings,
			Model:    model,
			Depth:    -viewPos.Z(), // positive in front of the camera
			Lights:   selectLights(lights, worldTr.Position),
		}

		if bindings.Pipeline.Blend {
			plan.Transparent = append(plan.Transparent, cmd)
		} else {
			plan.Opaque = append(plan.Opaque, cmd)
		}
		return true
	})

	// Opaque order carries no correctness requirement; group by shader then
	// material so the executor's state cache does less work.
	sort.SliceStable(plan.Opaque, func(i, j int) bool {
		a, b := plan.Opaque[i], plan.Opaque[j]
		if a.Bindings.Shader != b.Bindings.Shader {
			return a.Bindings.Shader < b.Bindings.Shader
		}
		return a.Material < b.Material
	})

	// Back-to-front is a correctness requirement: blending does not commute.
	// Non-increasing depth, ties keep query order.
	sort.SliceStable(plan.Transparent, func(i, j int) bool {
		return plan.Transparent[i].Depth > plan.Transparent[j].Depth
	})

	if scene.Sky != NoAsset {
		plan.Sky = &SkyDraw{Texture: scene.Sky, Exposure: scene.Exposure}
	}

	return plan
}

// activeMainCamera applies the frame camera policy: the scene-designated
// main camera renders; if it has been destroyed or deactivated at runtime the
// frame is a no-op.
func activeMainCamera(scene *LoadedScene) (*CameraComponent, TransformComponent, bool) {
	if scene.MainCamera == NoEntity {
		return nil, TransformComponent{}, false
	}
	cam, ok := GetComponent[CameraComponent](scene.World, scene.MainCamera)
	if !ok || !cam.Active {
		return nil, TransformComponent{}, false
	}
	return cam, scene.World.WorldTransform(scene.MainCamera), true
}

// collectLights snapshots every light entity with its current world
// transform, in deterministic query order.
func collectLights(world *World) []FrameLight {
	var lights []FrameLight
	MakeQuery2[TransformComponent, LightComponent](world).Map(func(eid EntityId, tr *TransformComponent, light *LightComponent) bool {
		worldTr := world.WorldTransform(eid)
		lights = append(lights, FrameLight{
			Entity:    eid,
			Type:      light.Type,
			Color:     light.Color,
			Intensity: light.Intensity,
			Range:     light.Range,
			InnerCone: light.InnerCone,
			OuterCone: light.OuterCone,
			Position:  worldTr.Position,
			Direction: worldTr.Rotation.Rotate(mgl32.Vec3{0, 0, -1}),
		})
		return true
	})
	return lights
}

// selectLights picks at most MaxFrameLights for an object at the given
// position. Directional lights rank before positional ones; positional
// lights rank by distance to the object; equal ranks fall back to entity id,
// so the subset is stable across frames for unchanged positions.
func selectLights(lights []FrameLight, objectPos mgl32.Vec3) []FrameLight {
	if len(lights) == 0 {
		return nil
	}

	ranked := make([]FrameLight, len(lights))
	copy(ranked, lights)
	distance := func(l FrameLight) float32 {
		if l.Type == LightTypeDirectional {
			return -1
		}
		return l.Position.Sub(objectPos).Len()
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		di, dj := distance(ranked[i]), distance(ranked[j])
		if di != dj {
			return di < dj
		}
		return ranked[i].Entity < ranked[j].Entity
	})

	if len(ranked) > MaxFrameLights {
		ranked = ranked[:MaxFrameLights]
	}
	return ranked
}

func modelMatrix(tr TransformComponent) mgl32.Mat4 {
	translate := mgl32.Translate3D(tr.Position.X(), tr.Position.Y(), tr.Position.Z())
	rotate := tr.Rotation.Mat4()
	scale := mgl32.Scale3D(tr.Scale.X(), tr.Scale.Y(), tr.Scale.Z())
	return translate.Mul4(rotate).Mul4(scale)
}

// pipelineKey identifies a compiled render pipeline: one per shader and
// fixed-function state combination.
type pipelineKey struct {
	Shader AssetId
	State  PipelineState
}

// pipelineCache elides redundant pipeline binds during plan execution. Apply
// reports whether the executor must re-bind; comparison is structural, so two
// draws sharing a shader and identical fixed-function state never rebind.
type pipelineCache struct {
	bound    pipelineKey
	hasBound bool
}

func (c *pipelineCache) Apply(key pipelineKey) bool {
	if c.hasBound && c.bound == key {
		return false
	}
	c.bound = key
	c.hasBound = true
	return true
}

func (c *pipelineCache) Reset() {
	c.hasBound = false
}
