package prism

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestShader(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "basic.wgsl")
	src := `
@vertex fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 1.0);
}
@fragment fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func writeTestPng(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tex.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.Set(i%2, i/2, color.RGBA{R: uint8(64 * i), G: 128, B: 200, A: 255})
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func testSceneDoc(t *testing.T) string {
	shader := writeTestShader(t)
	tex := writeTestPng(t)
	return fmt.Sprintf(`
assets:
  shaders:
    basic: %q
  meshes:
    cube: "builtin:cube"
    sphere: "builtin:sphere"
  textures:
    checker: %q
    sky: %q
  materials:
    red:
      type: tinted
      shader: basic
      tint: [1, 0, 0, 1]
    glass:
      type: tinted
      shader: basic
      tint: [1, 1, 1, 0.4]
      pipeline:
        blend: true
    crate:
      type: textured
      shader: basic
      textures:
        base_color: checker

entities:
  - name: main_camera
    components:
      - type: transform
        position: [0, 0, 5]
      - type: camera
        fov: 70

  - name: sun
    components:
      - type: transform
        rotation: [-45, 0, 0]
      - type: light
        light_type: directional
        intensity: 2

  - name: crate_root
    components:
      - type: transform
        position: [0, 0, 0]
      - type: mesh_renderer
        mesh: cube
        material: crate
      - type: collider
        shape: box
        half_extents: [0.5, 0.5, 0.5]

  - name: crate_lid
    parent: crate_root
    components:
      - type: transform
        position: [0, 1, 0]
      - type: mesh_renderer
        mesh: cube
        material: red

  - name: window_pane
    components:
      - type: transform
        position: [0, 0, -3]
      - type: mesh_renderer
        mesh: cube
        material: glass

scene:
  sky: sky
  main_camera: main_camera
  exposure: 1.5

postprocessing:
  - tonemap
  - vignette
`, shader, tex, tex)
}

func loadTestScene(t *testing.T) (*LoadedScene, *AssetRegistry) {
	t.Helper()
	scene, err := ParseScene([]byte(testSceneDoc(t)))
	require.NoError(t, err)

	reg := NewAssetRegistry()
	loaded, report := LoadScene(scene, reg, NewNopLogger())
	require.False(t, report.Failed(), "load failed: %v", report)
	require.NotNil(t, loaded)
	return loaded, reg
}

func TestLoadSceneFull(t *testing.T) {
	loaded, reg := loadTestScene(t)
	world := loaded.World

	assert.Equal(t, 5, world.EntityCount())
	assert.Equal(t, float32(1.5), loaded.Exposure)
	assert.NotEqual(t, NoAsset, loaded.Sky)
	assert.Equal(t, "sky", loaded.SkyName)

	cam, ok := world.EntityByName("main_camera")
	require.True(t, ok)
	assert.Equal(t, cam, loaded.MainCamera)
	camComp, ok := GetComponent[CameraComponent](world, cam)
	require.True(t, ok)
	assert.Equal(t, float32(70), camComp.Fov)
	assert.Equal(t, DefaultCameraNear, camComp.Near)
	assert.True(t, camComp.Active)

	lid, ok := world.EntityByName("crate_lid")
	require.True(t, ok)
	root, _ := world.EntityByName("crate_root")
	parent, ok := world.Parent(lid)
	require.True(t, ok)
	assert.Equal(t, root, parent)

	mr, ok := GetComponent[MeshRendererComponent](world, lid)
	require.True(t, ok)
	assert.Equal(t, "red", mr.MaterialName)
	_, ok = reg.Material(mr.Material)
	assert.True(t, ok, "material handle must resolve")

	require.Len(t, loaded.PostChain, 2)
	assert.Equal(t, "tonemap", loaded.PostChain[0].Name)
	assert.Equal(t, "vignette", loaded.PostChain[1].Name)
	assert.Equal(t, float32(0.75), loaded.PostChain[1].Params["radius"])
}

// Loading the same document twice must produce identical worlds, down to
// entity iteration order.
func TestLoadSceneDeterministic(t *testing.T) {
	doc := testSceneDoc(t)

	type row struct {
		Name     string
		Material string
	}
	load := func() []row {
		scene, err := ParseScene([]byte(doc))
		require.NoError(t, err)
		loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
		require.False(t, report.Failed())

		var rows []row
		MakeQuery2[TransformComponent, MeshRendererComponent](loaded.World).Map(func(eid EntityId, _ *TransformComponent, mr *MeshRendererComponent) bool {
			rows = append(rows, row{Name: loaded.World.Name(eid), Material: mr.MaterialName})
			return true
		})
		return rows
	}

	first := load()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, load())
	}
}

func TestLoadSceneUnresolvedAssetIsFatal(t *testing.T) {
	shader := writeTestShader(t)
	doc := fmt.Sprintf(`
assets:
  shaders:
    basic: %q
  meshes:
    cube: "builtin:cube"
  materials:
    red: {type: tinted, shader: basic}
entities:
  - name: thing
    components:
      - type: mesh_renderer
        mesh: missing_mesh
        material: red
`, shader)

	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	assert.Nil(t, loaded, "partial world must not escape")
	require.True(t, report.Failed())

	var unresolved *UnresolvedAssetReferenceError
	require.True(t, errors.As(report.Err(), &unresolved))
	assert.Equal(t, AssetKindMesh, unresolved.Kind)
	assert.Equal(t, "missing_mesh", unresolved.Name)
}

func TestLoadSceneMaterialMissingShaderIsFatal(t *testing.T) {
	doc := `
assets:
  materials:
    red: {type: tinted, shader: nope}
entities: []
`
	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	assert.Nil(t, loaded)
	assert.True(t, report.Failed())
}

func TestLoadSceneUnknownComponentRecoverable(t *testing.T) {
	doc := `
entities:
  - name: weird
    components:
      - type: frobnicator
      - type: transform
        position: [1, 2, 3]
  - name: fine
    components:
      - type: transform
`
	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	require.False(t, report.Failed(), "unknown component must not be fatal")
	require.NotNil(t, loaded)

	var unknown *UnknownComponentTypeError
	found := false
	for _, issue := range report.Issues {
		if errors.As(issue, &unknown) {
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, "frobnicator", unknown.Tag)

	// The unknown tag aborts the rest of that entity's component list.
	weird, ok := loaded.World.EntityByName("weird")
	require.True(t, ok)
	assert.False(t, HasComponent[TransformComponent](loaded.World, weird))

	fine, _ := loaded.World.EntityByName("fine")
	assert.True(t, HasComponent[TransformComponent](loaded.World, fine))
}

func TestLoadSceneDuplicateComponentRecoverable(t *testing.T) {
	doc := `
entities:
  - name: doubled
    components:
      - type: transform
        position: [1, 0, 0]
      - type: transform
        position: [9, 9, 9]
`
	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	require.False(t, report.Failed())
	require.NotEmpty(t, report.Issues)

	eid, _ := loaded.World.EntityByName("doubled")
	tr, ok := GetComponent[TransformComponent](loaded.World, eid)
	require.True(t, ok)
	assert.Equal(t, float32(1), tr.Position.X(), "first declaration wins")
}

func TestLoadSceneForwardParentIsFatal(t *testing.T) {
	doc := `
entities:
  - name: child
    parent: parent_later
  - name: parent_later
`
	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	assert.Nil(t, loaded)
	require.True(t, report.Failed())
	var unresolved *UnresolvedParentReferenceError
	assert.True(t, errors.As(report.Err(), &unresolved))
}

func TestLoadSceneMainCameraPolicies(t *testing.T) {
	t.Run("designated missing is fatal", func(t *testing.T) {
		doc := `
entities:
  - name: cam
    components:
      - {type: camera}
scene:
  main_camera: other_cam
`
		scene, err := ParseScene([]byte(doc))
		require.NoError(t, err)
		loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
		assert.Nil(t, loaded)
		require.True(t, report.Failed())
		var missing *MissingMainCameraError
		assert.True(t, errors.As(report.Err(), &missing))
	})

	t.Run("no designation picks first camera", func(t *testing.T) {
		doc := `
entities:
  - name: cam_a
    components:
      - {type: camera}
  - name: cam_b
    components:
      - {type: camera}
`
		scene, err := ParseScene([]byte(doc))
		require.NoError(t, err)
		loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
		require.False(t, report.Failed())
		camA, _ := loaded.World.EntityByName("cam_a")
		assert.Equal(t, camA, loaded.MainCamera)
	})

	t.Run("first camera wins across archetypes", func(t *testing.T) {
		// cam_a ends up in {Camera, Transform} while cam_b stays in the
		// earlier-created {Camera} archetype; document order must still
		// decide, not archetype order.
		doc := `
entities:
  - name: cam_a
    components:
      - {type: camera}
      - type: transform
        position: [0, 1, 0]
  - name: cam_b
    components:
      - {type: camera}
`
		scene, err := ParseScene([]byte(doc))
		require.NoError(t, err)
		loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
		require.False(t, report.Failed())
		camA, _ := loaded.World.EntityByName("cam_a")
		assert.Equal(t, camA, loaded.MainCamera)
	})

	t.Run("zero cameras is valid", func(t *testing.T) {
		doc := `
entities:
  - name: empty
`
		scene, err := ParseScene([]byte(doc))
		require.NoError(t, err)
		loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
		require.False(t, report.Failed())
		assert.Equal(t, NoEntity, loaded.MainCamera)

		plan := BuildFrame(loaded, NewAssetRegistry(), 1)
		assert.True(t, plan.NoFrame)
	})
}

func TestLoadSceneUnknownPostEffectSkipped(t *testing.T) {
	doc := `
entities: []
postprocessing:
  - tonemap
  - sharpen_ultra
`
	scene, err := ParseScene([]byte(doc))
	require.NoError(t, err)

	loaded, report := LoadScene(scene, NewAssetRegistry(), NewNopLogger())
	require.False(t, report.Failed())
	require.Len(t, loaded.PostChain, 1)
	assert.Equal(t, "tonemap", loaded.PostChain[0].Name)
	assert.NotEmpty(t, report.Issues)
}

func TestParseSceneMalformed(t *testing.T) {
	_, err := ParseScene([]byte("entities: [not: {valid"))
	var parse *ParseError
	require.True(t, errors.As(err, &parse))
}

func TestParseSceneFileMissing(t *testing.T) {
	_, err := ParseSceneFile(filepath.Join(t.TempDir(), "nope.yaml"))
	var parse *ParseError
	require.True(t, errors.As(err, &parse))
}
