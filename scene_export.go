package prism

// ExportScene serializes a loaded scene back into the scene-file shape.
// Reloading the result through LoadScene yields an equivalent World: same
// entities, components, and asset references. Used to validate that the
// deserialization contract is lossless, and by tooling that wants to persist
// a mutated World.
func ExportScene(scene *LoadedScene, reg *AssetRegistry) *SceneFile {
	world := scene.World
	out := &SceneFile{
		Assets: AssetManifest{
			Shaders:   make(map[string]string),
			Meshes:    make(map[string]string),
			Textures:  make(map[string]string),
			Materials: make(map[string]MaterialRecord),
		},
		Metadata: SceneMetadata{
			Sky:        scene.SkyName,
			MainCamera: world.Name(scene.MainCamera),
			Exposure:   scene.Exposure,
		},
	}

	for _, name := range reg.Names(AssetKindShader) {
		id, _ := reg.Resolve(AssetKindShader, name)
		asset, _ := reg.Shader(id)
		out.Assets.Shaders[name] = asset.Path
	}
	for _, name := range reg.Names(AssetKindMesh) {
		id, _ := reg.Resolve(AssetKindMesh, name)
		asset, _ := reg.Mesh(id)
		out.Assets.Meshes[name] = asset.Path
	}
	for _, name := range reg.Names(AssetKindTexture) {
		id, _ := reg.Resolve(AssetKindTexture, name)
		asset, _ := reg.Texture(id)
		out.Assets.Textures[name] = asset.Path
	}
	for _, name := range reg.Names(AssetKindMaterial) {
		id, _ := reg.Resolve(AssetKindMaterial, name)
		material, _ := reg.Material(id)
		out.Assets.Materials[name] = exportMaterial(material)
	}

	for _, eid := range exportOrder(world) {
		out.Entities = append(out.Entities, exportEntity(world, eid))
	}

	for _, effect := range scene.PostChain {
		out.PostProcessing = append(out.PostProcessing, effect.Name)
	}

	return out
}

// exportOrder walks roots depth-first so every parent precedes its children,
// matching the loader's backward-only parent resolution.
func exportOrder(world *World) []EntityId {
	var res []EntityId
	var walk func(EntityId)
	walk = func(eid EntityId) {
		res = append(res, eid)
		for _, child := range world.Children(eid) {
			walk(child)
		}
	}
	for _, root := range world.roots {
		walk(root)
	}
	return res
}

func exportEntity(world *World, eid EntityId) EntityRecord {
	rec := EntityRecord{Name: world.Name(eid)}
	if parent, ok := world.Parent(eid); ok {
		rec.Parent = world.Name(parent)
	}

	if tr, ok := GetComponent[TransformComponent](world, eid); ok {
		rec.Components = append(rec.Components, Record{
			"type":     "transform",
			"position": vec3Any(tr.Position.X(), tr.Position.Y(), tr.Position.Z()),
			"quat":     []any{tr.Rotation.V.X(), tr.Rotation.V.Y(), tr.Rotation.V.Z(), tr.Rotation.W},
			"scale":    vec3Any(tr.Scale.X(), tr.Scale.Y(), tr.Scale.Z()),
		})
	}
	if mr, ok := GetComponent[MeshRendererComponent](world, eid); ok {
		rec.Components = append(rec.Components, Record{
			"type":     "mesh_renderer",
			"mesh":     mr.MeshName,
			"material": mr.MaterialName,
		})
	}
	if cam, ok := GetComponent[CameraComponent](world, eid); ok {
		projection := "perspective"
		if cam.Projection == ProjectionOrthographic {
			projection = "orthographic"
		}
		rec.Components = append(rec.Components, Record{
			"type":       "camera",
			"projection": projection,
			"fov":        cam.Fov,
			"near":       cam.Near,
			"far":        cam.Far,
			"ortho_size": cam.OrthoSize,
			"active":     cam.Active,
		})
	}
	if light, ok := GetComponent[LightComponent](world, eid); ok {
		rec.Components = append(rec.Components, Record{
			"type":       "light",
			"light_type": light.Type.String(),
			"color":      vec3Any(light.Color[0], light.Color[1], light.Color[2]),
			"intensity":  light.Intensity,
			"range":      light.Range,
			"inner_cone": light.InnerCone,
			"outer_cone": light.OuterCone,
		})
	}
	if col, ok := GetComponent[ColliderComponent](world, eid); ok {
		shape := "sphere"
		if col.Shape == ColliderBox {
			shape = "box"
		}
		rec.Components = append(rec.Components, Record{
			"type":         "collider",
			"shape":        shape,
			"radius":       col.Radius,
			"half_extents": vec3Any(col.HalfExtents.X(), col.HalfExtents.Y(), col.HalfExtents.Z()),
			"friction":     col.Friction,
			"restitution":  col.Restitution,
			"trigger":      col.IsTrigger,
		})
	}
	return rec
}

func exportMaterial(material Material) MaterialRecord {
	rec := MaterialRecord{Pipeline: exportPipeline(material.Pipeline())}

	switch m := material.(type) {
	case *TintedMaterial:
		rec.Type = "tinted"
		rec.Shader = m.ShaderName()
		rec.Tint = m.Tint[:]
	case *TexturedMaterial:
		rec.Type = "textured"
		rec.Shader = m.ShaderName()
		rec.Textures = map[string]string{"base_color": m.BaseColorName}
	case *LitMaterial:
		rec.Type = "lit"
		rec.Shader = m.ShaderName()
		rec.Textures = make(map[string]string, len(m.SlotNames))
		for slot, name := range m.SlotNames {
			rec.Textures[slot] = name
		}
		rec.Factors = map[string]float32{
			"roughness": m.Factors.Roughness,
			"metalness": m.Factors.Metalness,
			"emission":  m.Factors.Emission,
		}
	}
	return rec
}

// exportPipeline writes every field explicitly so the reloaded state matches
// regardless of the defaults in effect.
func exportPipeline(state PipelineState) PipelineRecord {
	cull := map[CullMode]string{CullNone: "none", CullFront: "front", CullBack: "back"}[state.Cull]
	depthFunc := map[CompareFunc]string{
		CompareNever: "never", CompareLess: "less", CompareLessEqual: "lequal",
		CompareGreater: "greater", CompareGreaterEqual: "gequal", CompareEqual: "equal",
		CompareNotEqual: "notequal", CompareAlways: "always",
	}[state.DepthCompare]
	srcBlend := blendFactorTag(state.SrcBlend)
	dstBlend := blendFactorTag(state.DstBlend)
	colorWrite := colorMaskTag(state.ColorWrite)

	return PipelineRecord{
		Cull:       &cull,
		DepthTest:  ptr(state.DepthTest),
		DepthWrite: ptr(state.DepthWrite),
		DepthFunc:  &depthFunc,
		Blend:      ptr(state.Blend),
		SrcBlend:   &srcBlend,
		DstBlend:   &dstBlend,
		ColorWrite: &colorWrite,
	}
}

func blendFactorTag(factor BlendFactor) string {
	switch factor {
	case BlendZero:
		return "zero"
	case BlendOne:
		return "one"
	case BlendSrcAlpha:
		return "src_alpha"
	case BlendOneMinusSrcAlpha:
		return "one_minus_src_alpha"
	}
	return "zero"
}

func colorMaskTag(mask ColorMask) string {
	if mask == 0 {
		return "none"
	}
	var tag string
	if mask&ColorMaskRed != 0 {
		tag += "r"
	}
	if mask&ColorMaskGreen != 0 {
		tag += "g"
	}
	if mask&ColorMaskBlue != 0 {
		tag += "b"
	}
	if mask&ColorMaskAlpha != 0 {
		tag += "a"
	}
	return tag
}

func vec3Any(x, y, z float32) []any { return []any{x, y, z} }

func ptr[T any](v T) *T { return &v }
