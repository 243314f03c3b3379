package prism

import (
	"testing"
)

func TestLoadIsIdempotentByName(t *testing.T) {
	reg := NewAssetRegistry()

	first, err := reg.Load(AssetKindMesh, "cube", "builtin:cube")
	if err != nil {
		t.Fatal(err)
	}
	// Same name, different path: the cached handle wins, no reload.
	second, err := reg.Load(AssetKindMesh, "cube", "builtin:sphere")
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("reload returned a new handle: %v vs %v", first, second)
	}

	mesh, ok := reg.Mesh(first)
	if !ok {
		t.Fatal("mesh payload missing")
	}
	if mesh.Path != "builtin:cube" {
		t.Errorf("payload replaced on second load: %q", mesh.Path)
	}
}

func TestResolveDoesNotLoad(t *testing.T) {
	reg := NewAssetRegistry()
	if _, ok := reg.Resolve(AssetKindMesh, "cube"); ok {
		t.Fatal("resolve invented a handle")
	}

	id, _ := reg.Load(AssetKindMesh, "cube", "builtin:cube")
	got, ok := reg.Resolve(AssetKindMesh, "cube")
	if !ok || got != id {
		t.Errorf("resolve after load = %v, %v", got, ok)
	}
}

func TestLoadMeshUnknownBuiltin(t *testing.T) {
	reg := NewAssetRegistry()
	if _, err := reg.Load(AssetKindMesh, "bad", "builtin:dodecahedron"); err == nil {
		t.Fatal("unknown builtin accepted")
	}
}

func TestLoadMissingTexture(t *testing.T) {
	reg := NewAssetRegistry()
	if _, err := reg.Load(AssetKindTexture, "tex", "/does/not/exist.png"); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestProceduralMeshesWellFormed(t *testing.T) {
	for _, name := range []string{"cube", "skybox", "sphere", "plane", "quad"} {
		vertices, indices, err := proceduralMesh("builtin:" + name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(vertices) == 0 || len(indices) == 0 {
			t.Fatalf("%s: empty mesh", name)
		}
		if len(indices)%3 != 0 {
			t.Errorf("%s: index count %d not triangles", name, len(indices))
		}
		for _, idx := range indices {
			if int(idx) >= len(vertices) {
				t.Fatalf("%s: index %d out of range (%d vertices)", name, idx, len(vertices))
			}
		}
	}
}

func TestNamesPerKind(t *testing.T) {
	reg := NewAssetRegistry()
	reg.AddTexture("a", []uint8{0, 0, 0, 255}, 1, 1)
	reg.AddTexture("b", []uint8{0, 0, 0, 255}, 1, 1)

	names := reg.Names(AssetKindTexture)
	if len(names) != 2 {
		t.Errorf("names = %v", names)
	}
	if len(reg.Names(AssetKindMesh)) != 0 {
		t.Error("kinds must not bleed into each other")
	}
}

func TestMaterialNameReverseLookup(t *testing.T) {
	reg := NewAssetRegistry()
	id := reg.AddMaterial("gold", NewTintedMaterial("gold", AssetId("s"), "s", [4]float32{1, 0.8, 0, 1}, DefaultPipelineState()))
	if got := reg.MaterialName(id); got != "gold" {
		t.Errorf("MaterialName = %q", got)
	}
	if got := reg.MaterialName(AssetId("unknown")); got != "" {
		t.Errorf("unknown handle resolved to %q", got)
	}
}
