package prism

import (
	"errors"
	"fmt"
	"slices"
)

// LoadedScene is the product of a successful load: a populated World plus
// the render-relevant scene metadata, with every asset reference resolved to
// a registry handle. The World outlives the SceneFile it came from.
type LoadedScene struct {
	World      *World
	MainCamera EntityId
	Sky        AssetId
	SkyName    string
	Exposure   float32
	PostChain  []PostEffect
}

// LoadScene turns a parsed scene description into a populated AssetRegistry
// and World, in that order: every asset must be resolvable before any
// component referencing it is constructed.
//
// The load is all-or-nothing at the World level. Fatal errors (unresolved
// assets, unresolved or cyclic parents, a missing designated main camera)
// discard the partially built World and surface once, aggregated in the
// report. Per-entity recoverable issues (unknown component tags, duplicate
// components, unknown post effects) are collected and reported without
// aborting.
func LoadScene(scene *SceneFile, reg *AssetRegistry, log Logger) (*LoadedScene, *LoadReport) {
	report := &LoadReport{}

	loadManifest(scene, reg, report)
	if report.Failed() {
		return nil, report
	}

	world := NewWorld()
	loadEntities(scene, world, reg, report)

	loaded := &LoadedScene{
		World:    world,
		Exposure: scene.Metadata.Exposure,
	}
	applyMetadata(scene, loaded, reg, report)

	if report.Failed() {
		// Discard the partial World; callers only ever see a complete one.
		return nil, report
	}

	log.Infof("scene loaded: %d entities, %d recoverable issues",
		world.EntityCount(), len(report.Issues))
	return loaded, report
}

// loadManifest populates the registry from the asset manifest. Entries load
// in sorted name order per kind so repeated loads of the same document behave
// identically.
func loadManifest(scene *SceneFile, reg *AssetRegistry, report *LoadReport) {
	for _, name := range sortedKeys(scene.Assets.Shaders) {
		if _, err := reg.Load(AssetKindShader, name, scene.Assets.Shaders[name]); err != nil {
			report.fatalf(err)
		}
	}
	for _, name := range sortedKeys(scene.Assets.Meshes) {
		if _, err := reg.Load(AssetKindMesh, name, scene.Assets.Meshes[name]); err != nil {
			report.fatalf(err)
		}
	}
	for _, name := range sortedKeys(scene.Assets.Textures) {
		if _, err := reg.Load(AssetKindTexture, name, scene.Assets.Textures[name]); err != nil {
			report.fatalf(err)
		}
	}
	if report.Failed() {
		return
	}

	// Materials come last; they reference shaders and textures by name.
	for _, name := range sortedKeys(scene.Assets.Materials) {
		material, err := buildMaterial(name, scene.Assets.Materials[name], reg)
		if err != nil {
			report.fatalf(err)
			continue
		}
		reg.AddMaterial(name, material)
	}
}

// buildMaterial constructs one manifest material: shader and texture names
// resolve against what the registry holds so far, pipeline fields default to
// cull=back, depth_test=on, blending=off unless overridden.
func buildMaterial(name string, rec MaterialRecord, reg *AssetRegistry) (Material, error) {
	shader, ok := reg.Resolve(AssetKindShader, rec.Shader)
	if !ok {
		return nil, &UnresolvedAssetReferenceError{Kind: AssetKindShader, Name: rec.Shader, Entity: "material " + name}
	}

	state, err := resolvePipeline(rec.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("material %q: %w", name, err)
	}

	resolveSlot := func(slot string) (AssetId, string, error) {
		texName, declared := rec.Textures[slot]
		if !declared {
			return NoAsset, "", &UnresolvedAssetReferenceError{Kind: AssetKindTexture, Name: slot, Entity: "material " + name}
		}
		id, ok := reg.Resolve(AssetKindTexture, texName)
		if !ok {
			return NoAsset, "", &UnresolvedAssetReferenceError{Kind: AssetKindTexture, Name: texName, Entity: "material " + name}
		}
		return id, texName, nil
	}

	switch rec.Type {
	case "tinted":
		tint := [4]float32{1, 1, 1, 1}
		for i, v := range rec.Tint {
			if i >= 4 {
				break
			}
			tint[i] = v
		}
		return NewTintedMaterial(name, shader, rec.Shader, tint, state), nil

	case "textured":
		id, texName, err := resolveSlot("base_color")
		if err != nil {
			return nil, err
		}
		return NewTexturedMaterial(name, shader, rec.Shader, id, texName, state), nil

	case "lit":
		slots := make(map[string]AssetId, len(litTextureSlots))
		slotNames := make(map[string]string, len(litTextureSlots))
		for _, slot := range litTextureSlots {
			id, texName, err := resolveSlot(slot)
			if err != nil {
				return nil, err
			}
			slots[slot] = id
			slotNames[slot] = texName
		}
		factors := MaterialFactors{
			Roughness: factorOr(rec.Factors, "roughness", 1),
			Metalness: factorOr(rec.Factors, "metalness", 0),
			Emission:  factorOr(rec.Factors, "emission", 0),
		}
		return NewLitMaterial(name, shader, rec.Shader, slots, slotNames, factors, state), nil
	}

	return nil, fmt.Errorf("material %q declares unknown type %q", name, rec.Type)
}

func factorOr(factors map[string]float32, key string, def float32) float32 {
	if v, ok := factors[key]; ok {
		return v
	}
	return def
}

// loadEntities creates entities in document order. Parent references resolve
// by name against entities created earlier in the document; a forward or
// unknown reference is fatal. Component records dispatch through the closed
// type-tag table.
func loadEntities(scene *SceneFile, world *World, reg *AssetRegistry, report *LoadReport) {
	for _, rec := range scene.Entities {
		parent := NoEntity
		if rec.Parent != "" {
			resolved, ok := world.EntityByName(rec.Parent)
			if !ok {
				report.fatalf(&UnresolvedParentReferenceError{Entity: rec.Name, Parent: rec.Parent})
				continue
			}
			parent = resolved
		}

		if _, exists := world.EntityByName(rec.Name); exists && rec.Name != "" {
			report.reportf(fmt.Errorf("duplicate entity name %q, later references bind to the first", rec.Name))
		}

		eid, err := world.CreateEntity(rec.Name, parent)
		if err != nil {
			report.fatalf(err)
			continue
		}

		loadComponents(rec, world, eid, reg, report)
	}
}

func loadComponents(rec EntityRecord, world *World, eid EntityId, reg *AssetRegistry, report *LoadReport) {
	for _, compRec := range rec.Components {
		tag := recString(compRec, "type", "")
		spec, known := componentRegistry[tag]
		if !known {
			// Unknown tag aborts this entity's remaining component list,
			// not the whole scene.
			report.reportf(&UnknownComponentTypeError{Entity: rec.Name, Tag: tag})
			return
		}

		err := spec.decode(world, eid, compRec, reg, rec.Name)
		switch {
		case err == nil:
		case isDuplicateComponent(err):
			report.reportf(err)
		default:
			report.fatalf(err)
		}
	}
}

func isDuplicateComponent(err error) bool {
	var dup *DuplicateComponentError
	return errors.As(err, &dup)
}

// applyMetadata resolves the sky texture, designates the main camera, and
// fixes the post-processing chain.
func applyMetadata(scene *SceneFile, loaded *LoadedScene, reg *AssetRegistry, report *LoadReport) {
	if scene.Metadata.Sky != "" {
		sky, ok := reg.Resolve(AssetKindTexture, scene.Metadata.Sky)
		if !ok {
			report.fatalf(&UnresolvedAssetReferenceError{Kind: AssetKindTexture, Name: scene.Metadata.Sky, Entity: "scene sky"})
		} else {
			loaded.Sky = sky
			loaded.SkyName = scene.Metadata.Sky
		}
	}

	loaded.MainCamera = selectMainCamera(scene, loaded.World, report)
	loaded.PostChain = resolvePostChain(scene.PostProcessing, report)
}

// selectMainCamera applies the main-camera policy: a designated name must
// exist and carry a camera; with no designation the first camera in document
// order becomes main; a scene with zero cameras is valid (headless) and
// yields NoEntity.
func selectMainCamera(scene *SceneFile, world *World, report *LoadReport) EntityId {
	name := scene.Metadata.MainCamera
	if name != "" {
		eid, ok := world.EntityByName(name)
		if !ok || !HasComponent[CameraComponent](world, eid) {
			report.fatalf(&MissingMainCameraError{Name: name})
			return NoEntity
		}
		return eid
	}

	// Query iteration follows archetype creation order, which diverges from
	// document order once cameras sit in different archetypes. Walk entities
	// by ascending id instead.
	for _, eid := range world.Entities() {
		if HasComponent[CameraComponent](world, eid) {
			return eid
		}
	}
	return NoEntity
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
