package prism

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Record is an untyped scene fragment, one component's worth of key-value
// data as parsed from the scene document. Unknown keys are ignored so newer
// documents keep loading on older engines.
type Record map[string]any

// TransformComponent is an entity's local transform. The world transform is
// derived by composing along the parent chain, never stored.
type TransformComponent struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// MeshRendererComponent references a mesh and a material by handle. Names in
// the scene document are resolved against the asset manifest at load time.
type MeshRendererComponent struct {
	Mesh     AssetId
	Material AssetId

	// Names retained for round-trip serialization.
	MeshName     string
	MaterialName string
}

type ProjectionKind uint8

const (
	ProjectionPerspective ProjectionKind = iota
	ProjectionOrthographic
)

// Documented camera defaults applied when a record omits the field.
const (
	DefaultCameraFov  = float32(60)
	DefaultCameraNear = float32(0.1)
	DefaultCameraFar  = float32(1000)
	DefaultOrthoSize  = float32(10)
)

type CameraComponent struct {
	Projection ProjectionKind
	Fov        float32 // vertical field of view in degrees (perspective)
	Near       float32
	Far        float32
	OrthoSize  float32 // half-height of the view volume (orthographic)
	Active     bool
}

// ViewMatrix derives the camera view from the owning entity's world
// transform.
func (c *CameraComponent) ViewMatrix(world TransformComponent) mgl32.Mat4 {
	forward := world.Rotation.Rotate(mgl32.Vec3{0, 0, -1})
	up := world.Rotation.Rotate(mgl32.Vec3{0, 1, 0})
	return mgl32.LookAtV(world.Position, world.Position.Add(forward), up)
}

func (c *CameraComponent) ProjectionMatrix(aspect float32) mgl32.Mat4 {
	if c.Projection == ProjectionOrthographic {
		h := c.OrthoSize
		w := h * aspect
		return mgl32.Ortho(-w, w, -h, h, c.Near, c.Far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.Fov), aspect, c.Near, c.Far)
}

type LightType uint8

const (
	LightTypeDirectional LightType = iota
	LightTypePoint
	LightTypeSpot
)

func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	}
	return fmt.Sprintf("light(%d)", uint8(t))
}

// LightComponent holds the light's radiometric parameters. Position and
// direction are not stored here; the renderer derives them from the owning
// entity's world transform every draw.
type LightComponent struct {
	Type      LightType
	Color     [3]float32
	Intensity float32
	Range     float32 // point/spot falloff distance
	InnerCone float32 // degrees, spot only
	OuterCone float32 // degrees, spot only
}

type ColliderShape uint8

const (
	ColliderSphere ColliderShape = iota
	ColliderBox
)

// ColliderComponent exposes shape data for an external collision system.
// The core never resolves collisions itself.
type ColliderComponent struct {
	Shape       ColliderShape
	Radius      float32    // sphere
	HalfExtents mgl32.Vec3 // box
	Friction    float32
	Restitution float32
	IsTrigger   bool
}

// componentSpec is one entry of the closed component-type dispatch table.
// Per-frame behavior for these kinds lives in systems; the table carries the
// construction side.
type componentSpec struct {
	decode func(w *World, eid EntityId, rec Record, assets AssetResolver, entity string) error
}

// componentRegistry maps scene type tags to the closed component set. A tag
// outside this table fails with UnknownComponentTypeError and aborts the
// offending entity's component list.
var componentRegistry = map[string]componentSpec{
	"transform":     {decode: decodeTransform},
	"mesh_renderer": {decode: decodeMeshRenderer},
	"camera":        {decode: decodeCamera},
	"light":         {decode: decodeLight},
	"collider":      {decode: decodeCollider},
}

func decodeTransform(w *World, eid EntityId, rec Record, _ AssetResolver, _ string) error {
	comp := identityTransform()
	comp.Position = recVec3(rec, "position", comp.Position)
	comp.Scale = recVec3(rec, "scale", comp.Scale)
	euler := recVec3(rec, "rotation", mgl32.Vec3{})
	comp.Rotation = mgl32.AnglesToQuat(
		mgl32.DegToRad(euler.X()),
		mgl32.DegToRad(euler.Y()),
		mgl32.DegToRad(euler.Z()),
		mgl32.XYZ,
	)
	// "quat" is the lossless form the scene exporter writes; it wins over
	// the authoring-friendly euler key when both are present.
	if quat := recVec4(rec, "quat", [4]float32{0, 0, 0, 1}); rec["quat"] != nil {
		comp.Rotation = mgl32.Quat{W: quat[3], V: mgl32.Vec3{quat[0], quat[1], quat[2]}}
	}
	return AddComponent(w, eid, comp)
}

func decodeMeshRenderer(w *World, eid EntityId, rec Record, assets AssetResolver, entity string) error {
	meshName := recString(rec, "mesh", "")
	materialName := recString(rec, "material", "")

	mesh, ok := assets.Resolve(AssetKindMesh, meshName)
	if !ok {
		return &UnresolvedAssetReferenceError{Kind: AssetKindMesh, Name: meshName, Entity: entity}
	}
	material, ok := assets.Resolve(AssetKindMaterial, materialName)
	if !ok {
		return &UnresolvedAssetReferenceError{Kind: AssetKindMaterial, Name: materialName, Entity: entity}
	}

	return AddComponent(w, eid, MeshRendererComponent{
		Mesh:         mesh,
		Material:     material,
		MeshName:     meshName,
		MaterialName: materialName,
	})
}

func decodeCamera(w *World, eid EntityId, rec Record, _ AssetResolver, _ string) error {
	comp := CameraComponent{
		Projection: ProjectionPerspective,
		Fov:        DefaultCameraFov,
		Near:       DefaultCameraNear,
		Far:        DefaultCameraFar,
		OrthoSize:  DefaultOrthoSize,
		Active:     true,
	}
	if recString(rec, "projection", "perspective") == "orthographic" {
		comp.Projection = ProjectionOrthographic
	}
	comp.Fov = recFloat(rec, "fov", comp.Fov)
	comp.Near = recFloat(rec, "near", comp.Near)
	comp.Far = recFloat(rec, "far", comp.Far)
	comp.OrthoSize = recFloat(rec, "ortho_size", comp.OrthoSize)
	comp.Active = recBool(rec, "active", comp.Active)
	return AddComponent(w, eid, comp)
}

func decodeLight(w *World, eid EntityId, rec Record, _ AssetResolver, entity string) error {
	comp := LightComponent{
		Type:      LightTypePoint,
		Color:     [3]float32{1, 1, 1},
		Intensity: 1,
		Range:     10,
		InnerCone: 25,
		OuterCone: 35,
	}
	switch tag := recString(rec, "light_type", "point"); tag {
	case "directional":
		comp.Type = LightTypeDirectional
	case "point":
		comp.Type = LightTypePoint
	case "spot":
		comp.Type = LightTypeSpot
	default:
		return fmt.Errorf("entity %q: unknown light type %q", entity, tag)
	}
	color := recVec3(rec, "color", mgl32.Vec3{1, 1, 1})
	comp.Color = [3]float32{color.X(), color.Y(), color.Z()}
	comp.Intensity = recFloat(rec, "intensity", comp.Intensity)
	comp.Range = recFloat(rec, "range", comp.Range)
	comp.InnerCone = recFloat(rec, "inner_cone", comp.InnerCone)
	comp.OuterCone = recFloat(rec, "outer_cone", comp.OuterCone)
	return AddComponent(w, eid, comp)
}

func decodeCollider(w *World, eid EntityId, rec Record, _ AssetResolver, entity string) error {
	comp := ColliderComponent{
		Shape:  ColliderSphere,
		Radius: 0.5,
		HalfExtents: mgl32.Vec3{
			0.5, 0.5, 0.5,
		},
	}
	switch tag := recString(rec, "shape", "sphere"); tag {
	case "sphere":
		comp.Shape = ColliderSphere
	case "box":
		comp.Shape = ColliderBox
	default:
		return fmt.Errorf("entity %q: unknown collider shape %q", entity, tag)
	}
	comp.Radius = recFloat(rec, "radius", comp.Radius)
	comp.HalfExtents = recVec3(rec, "half_extents", comp.HalfExtents)
	comp.Friction = recFloat(rec, "friction", comp.Friction)
	comp.Restitution = recFloat(rec, "restitution", comp.Restitution)
	comp.IsTrigger = recBool(rec, "trigger", comp.IsTrigger)
	return AddComponent(w, eid, comp)
}

// Record field helpers. YAML hands numbers over as int, float64, or strings
// of either; everything funnels through these so per-component decoders stay
// declarative. Missing or mistyped keys fall back to the given default.

func recString(rec Record, key string, def string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return def
}

func recBool(rec Record, key string, def bool) bool {
	if v, ok := rec[key].(bool); ok {
		return v
	}
	return def
}

func recFloat(rec Record, key string, def float32) float32 {
	v, ok := rec[key]
	if !ok {
		return def
	}
	return anyToFloat(v, def)
}

func recVec3(rec Record, key string, def mgl32.Vec3) mgl32.Vec3 {
	raw, ok := rec[key].([]any)
	if !ok {
		// A scalar is broadcast to all three lanes, handy for uniform scale.
		if v, scalar := rec[key].(float64); scalar {
			f := float32(v)
			return mgl32.Vec3{f, f, f}
		}
		if v, scalar := rec[key].(int); scalar {
			f := float32(v)
			return mgl32.Vec3{f, f, f}
		}
		return def
	}
	if len(raw) != 3 {
		return def
	}
	return mgl32.Vec3{
		anyToFloat(raw[0], def.X()),
		anyToFloat(raw[1], def.Y()),
		anyToFloat(raw[2], def.Z()),
	}
}

func recVec4(rec Record, key string, def [4]float32) [4]float32 {
	raw, ok := rec[key].([]any)
	if !ok || len(raw) != 4 {
		return def
	}
	return [4]float32{
		anyToFloat(raw[0], def[0]),
		anyToFloat(raw[1], def[1]),
		anyToFloat(raw[2], def[2]),
		anyToFloat(raw[3], def[3]),
	}
}

func anyToFloat(v any, def float32) float32 {
	switch n := v.(type) {
	case float64:
		return float32(n)
	case float32:
		return n
	case int:
		return float32(n)
	case int64:
		return float32(n)
	}
	return def
}
