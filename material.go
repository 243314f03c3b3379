package prism

type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type CompareFunc uint8

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareLessEqual
	CompareGreater
	CompareGreaterEqual
	CompareEqual
	CompareNotEqual
	CompareAlways
)

type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
)

type ColorMask uint8

const (
	ColorMaskRed   ColorMask = 1 << 0
	ColorMaskGreen ColorMask = 1 << 1
	ColorMaskBlue  ColorMask = 1 << 2
	ColorMaskAlpha ColorMask = 1 << 3
	ColorMaskAll   ColorMask = ColorMaskRed | ColorMaskGreen | ColorMaskBlue | ColorMaskAlpha
)

// PipelineState is the fixed-function rasterizer, depth, and blend
// configuration bound with a draw. Pure value type: the renderer compares
// states with == to elide redundant state changes, so every field must stay
// comparable.
type PipelineState struct {
	Cull         CullMode
	DepthTest    bool
	DepthCompare CompareFunc
	DepthWrite   bool
	ColorWrite   ColorMask
	Blend        bool
	SrcBlend     BlendFactor
	DstBlend     BlendFactor
}

// DefaultPipelineState is what a material gets when the scene document does
// not override pipeline fields: back-face culling, depth testing and writing
// on, blending off.
func DefaultPipelineState() PipelineState {
	return PipelineState{
		Cull:         CullBack,
		DepthTest:    true,
		DepthCompare: CompareLess,
		DepthWrite:   true,
		ColorWrite:   ColorMaskAll,
		Blend:        false,
		SrcBlend:     BlendOne,
		DstBlend:     BlendZero,
	}
}

// TransparentBlendState is the usual alpha-over configuration applied when a
// material enables blending without naming factors.
func TransparentBlendState() PipelineState {
	state := DefaultPipelineState()
	state.Blend = true
	state.DepthWrite = false
	state.SrcBlend = BlendSrcAlpha
	state.DstBlend = BlendOneMinusSrcAlpha
	return state
}

// TextureBinding pairs a shader slot name with a resolved texture handle.
type TextureBinding struct {
	Slot    string
	Texture AssetId
}

// MaterialBindings is the complete bound state a material establishes. Bind
// never assumes any previously bound state; everything a variant's shader
// needs appears here.
type MaterialBindings struct {
	Shader   AssetId
	Pipeline PipelineState
	Tint     [4]float32
	Factors  MaterialFactors
	Textures []TextureBinding
}

type MaterialFactors struct {
	Roughness float32
	Metalness float32
	Emission  float32
}

// Material binds a shader and resource set to a fixed pipeline
// configuration. The variant set is closed: tinted (uniform color only),
// textured (one base-color texture), lit (full PBR texture set).
type Material interface {
	Name() string
	Shader() AssetId
	Pipeline() PipelineState
	RequiredTextureSlots() []string
	// Bind resolves the variant's full state. A declared slot without a
	// loaded texture fails with InvalidMaterialError; the renderer skips the
	// affected draws instead of failing the frame.
	Bind(reg *AssetRegistry) (MaterialBindings, error)
}

type materialBase struct {
	name       string
	shader     AssetId
	shaderName string
	state      PipelineState
}

func (m *materialBase) Name() string            { return m.name }
func (m *materialBase) Shader() AssetId         { return m.shader }
func (m *materialBase) ShaderName() string      { return m.shaderName }
func (m *materialBase) Pipeline() PipelineState { return m.state }

// TintedMaterial renders with a single uniform color.
type TintedMaterial struct {
	materialBase
	Tint [4]float32
}

func NewTintedMaterial(name string, shader AssetId, shaderName string, tint [4]float32, state PipelineState) *TintedMaterial {
	return &TintedMaterial{
		materialBase: materialBase{name: name, shader: shader, shaderName: shaderName, state: state},
		Tint:         tint,
	}
}

func (m *TintedMaterial) RequiredTextureSlots() []string { return nil }

func (m *TintedMaterial) Bind(reg *AssetRegistry) (MaterialBindings, error) {
	return MaterialBindings{
		Shader:   m.shader,
		Pipeline: m.state,
		Tint:     m.Tint,
	}, nil
}

// TexturedMaterial renders with one base-color texture.
type TexturedMaterial struct {
	materialBase
	BaseColor     AssetId
	BaseColorName string
}

func NewTexturedMaterial(name string, shader AssetId, shaderName string, baseColor AssetId, baseColorName string, state PipelineState) *TexturedMaterial {
	return &TexturedMaterial{
		materialBase:  materialBase{name: name, shader: shader, shaderName: shaderName, state: state},
		BaseColor:     baseColor,
		BaseColorName: baseColorName,
	}
}

func (m *TexturedMaterial) RequiredTextureSlots() []string { return []string{"base_color"} }

func (m *TexturedMaterial) Bind(reg *AssetRegistry) (MaterialBindings, error) {
	if _, ok := reg.Texture(m.BaseColor); !ok {
		return MaterialBindings{}, &InvalidMaterialError{Material: m.name, Slot: "base_color"}
	}
	return MaterialBindings{
		Shader:   m.shader,
		Pipeline: m.state,
		Tint:     [4]float32{1, 1, 1, 1},
		Textures: []TextureBinding{{Slot: "base_color", Texture: m.BaseColor}},
	}, nil
}

// litTextureSlots is the full PBR slot set, in bind order.
var litTextureSlots = []string{"albedo", "normal", "roughness", "metalness", "ao", "emission"}

// LitMaterial renders with the full PBR texture set plus scalar factors.
type LitMaterial struct {
	materialBase
	Slots     map[string]AssetId
	SlotNames map[string]string
	Factors   MaterialFactors
}

func NewLitMaterial(name string, shader AssetId, shaderName string, slots map[string]AssetId, slotNames map[string]string, factors MaterialFactors, state PipelineState) *LitMaterial {
	return &LitMaterial{
		materialBase: materialBase{name: name, shader: shader, shaderName: shaderName, state: state},
		Slots:        slots,
		SlotNames:    slotNames,
		Factors:      factors,
	}
}

func (m *LitMaterial) RequiredTextureSlots() []string { return litTextureSlots }

func (m *LitMaterial) Bind(reg *AssetRegistry) (MaterialBindings, error) {
	bindings := MaterialBindings{
		Shader:   m.shader,
		Pipeline: m.state,
		Tint:     [4]float32{1, 1, 1, 1},
		Factors:  m.Factors,
	}
	for _, slot := range litTextureSlots {
		id, declared := m.Slots[slot]
		if !declared || id == NoAsset {
			return MaterialBindings{}, &InvalidMaterialError{Material: m.name, Slot: slot}
		}
		if _, ok := reg.Texture(id); !ok {
			return MaterialBindings{}, &InvalidMaterialError{Material: m.name, Slot: slot}
		}
		bindings.Textures = append(bindings.Textures, TextureBinding{Slot: slot, Texture: id})
	}
	return bindings, nil
}
