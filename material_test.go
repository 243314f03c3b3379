package prism

import (
	"errors"
	"testing"
)

func TestDefaultPipelineState(t *testing.T) {
	state := DefaultPipelineState()
	if state.Cull != CullBack || !state.DepthTest || !state.DepthWrite || state.Blend {
		t.Errorf("unexpected defaults: %+v", state)
	}
	if state.ColorWrite != ColorMaskAll {
		t.Errorf("color write = %v", state.ColorWrite)
	}
}

func TestTransparentBlendState(t *testing.T) {
	state := TransparentBlendState()
	if !state.Blend || state.DepthWrite {
		t.Errorf("transparent state = %+v", state)
	}
	if state.SrcBlend != BlendSrcAlpha || state.DstBlend != BlendOneMinusSrcAlpha {
		t.Errorf("blend factors = %v/%v", state.SrcBlend, state.DstBlend)
	}
	if !state.DepthTest {
		t.Error("transparents still depth-test against opaques")
	}
}

func TestTintedMaterialBind(t *testing.T) {
	reg := NewAssetRegistry()
	mat := NewTintedMaterial("red", AssetId("s"), "s", [4]float32{1, 0, 0, 1}, DefaultPipelineState())

	bindings, err := mat.Bind(reg)
	if err != nil {
		t.Fatal(err)
	}
	if bindings.Tint != [4]float32{1, 0, 0, 1} {
		t.Errorf("tint = %v", bindings.Tint)
	}
	if len(bindings.Textures) != 0 {
		t.Errorf("tinted material bound textures: %v", bindings.Textures)
	}
}

func TestTexturedMaterialBindMissingSlot(t *testing.T) {
	reg := NewAssetRegistry()
	mat := NewTexturedMaterial("crate", AssetId("s"), "s", AssetId("ghost"), "ghost", DefaultPipelineState())

	_, err := mat.Bind(reg)
	var invalid *InvalidMaterialError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMaterialError, got %v", err)
	}
	if invalid.Slot != "base_color" {
		t.Errorf("slot = %q", invalid.Slot)
	}

	tex := reg.AddTexture("wood", []uint8{100, 80, 50, 255}, 1, 1)
	mat.BaseColor = tex
	bindings, err := mat.Bind(reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(bindings.Textures) != 1 || bindings.Textures[0].Texture != tex {
		t.Errorf("bindings = %+v", bindings.Textures)
	}
}

func TestLitMaterialBindRequiresAllSlots(t *testing.T) {
	reg := NewAssetRegistry()

	slots := map[string]AssetId{}
	slotNames := map[string]string{}
	for _, slot := range litTextureSlots {
		slots[slot] = reg.AddTexture("tex_"+slot, []uint8{0, 0, 0, 255}, 1, 1)
		slotNames[slot] = "tex_" + slot
	}

	mat := NewLitMaterial("pbr", AssetId("s"), "s", slots, slotNames,
		MaterialFactors{Roughness: 0.4, Metalness: 1}, DefaultPipelineState())
	bindings, err := mat.Bind(reg)
	if err != nil {
		t.Fatal(err)
	}
	if len(bindings.Textures) != len(litTextureSlots) {
		t.Fatalf("bound %d slots", len(bindings.Textures))
	}
	// Slots bind in the fixed declared order.
	for i, slot := range litTextureSlots {
		if bindings.Textures[i].Slot != slot {
			t.Errorf("slot %d = %q, want %q", i, bindings.Textures[i].Slot, slot)
		}
	}
	if bindings.Factors.Roughness != 0.4 {
		t.Errorf("factors = %+v", bindings.Factors)
	}

	delete(mat.Slots, "normal")
	_, err = mat.Bind(reg)
	var invalid *InvalidMaterialError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidMaterialError, got %v", err)
	}
	if invalid.Slot != "normal" {
		t.Errorf("slot = %q", invalid.Slot)
	}
}
