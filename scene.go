package prism

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SceneFile is the externally authored scene description: an asset manifest,
// an ordered entity list with nested component records, and scene metadata.
// Asset and entity names are the only cross-reference mechanism; matches are
// case-sensitive and exact.
type SceneFile struct {
	Assets         AssetManifest  `yaml:"assets"`
	Entities       []EntityRecord `yaml:"entities"`
	Metadata       SceneMetadata  `yaml:"scene"`
	PostProcessing []string       `yaml:"postprocessing"`
}

type AssetManifest struct {
	Shaders   map[string]string         `yaml:"shaders"`
	Meshes    map[string]string         `yaml:"meshes"`
	Textures  map[string]string         `yaml:"textures"`
	Materials map[string]MaterialRecord `yaml:"materials"`
}

// MaterialRecord declares one material entry of the manifest.
type MaterialRecord struct {
	Type     string             `yaml:"type"` // tinted | textured | lit
	Shader   string             `yaml:"shader"`
	Tint     []float32          `yaml:"tint"`
	Textures map[string]string  `yaml:"textures"` // slot -> texture name
	Factors  map[string]float32 `yaml:"factors"`
	Pipeline PipelineRecord     `yaml:"pipeline"`
}

// PipelineRecord overrides individual PipelineState fields. Pointer fields
// distinguish "absent, use the default" from an explicit false/zero.
type PipelineRecord struct {
	Cull       *string `yaml:"cull"`       // none | front | back
	DepthTest  *bool   `yaml:"depth_test"`
	DepthWrite *bool   `yaml:"depth_write"`
	DepthFunc  *string `yaml:"depth_func"` // less | lequal | greater | gequal | equal | notequal | always | never
	Blend      *bool   `yaml:"blend"`
	SrcBlend   *string `yaml:"src_blend"` // zero | one | src_alpha | one_minus_src_alpha
	DstBlend   *string `yaml:"dst_blend"`
	ColorWrite *string `yaml:"color_write"` // e.g. "rgba", "rgb", "none"
}

type EntityRecord struct {
	Name       string   `yaml:"name"`
	Parent     string   `yaml:"parent"`
	Components []Record `yaml:"components"`
}

type SceneMetadata struct {
	Sky        string  `yaml:"sky"` // texture name, empty for no sky draw
	MainCamera string  `yaml:"main_camera"`
	Exposure   float32 `yaml:"exposure"`
}

// ParseScene decodes a scene document. A malformed document yields a
// ParseError before any World mutation.
func ParseScene(data []byte) (*SceneFile, error) {
	var scene SceneFile
	if err := yaml.Unmarshal(data, &scene); err != nil {
		return nil, &ParseError{Err: err}
	}
	if scene.Metadata.Exposure == 0 {
		scene.Metadata.Exposure = 1
	}
	return &scene, nil
}

// ParseSceneFile reads and decodes a scene document from disk.
func ParseSceneFile(path string) (*SceneFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	scene, err := ParseScene(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return scene, nil
}

// resolvePipeline applies record overrides on top of the defaults.
func resolvePipeline(rec PipelineRecord) (PipelineState, error) {
	state := DefaultPipelineState()

	if rec.Cull != nil {
		switch *rec.Cull {
		case "none":
			state.Cull = CullNone
		case "front":
			state.Cull = CullFront
		case "back":
			state.Cull = CullBack
		default:
			return state, fmt.Errorf("unknown cull mode %q", *rec.Cull)
		}
	}
	if rec.DepthTest != nil {
		state.DepthTest = *rec.DepthTest
	}
	if rec.DepthWrite != nil {
		state.DepthWrite = *rec.DepthWrite
	}
	if rec.DepthFunc != nil {
		fn, err := parseCompareFunc(*rec.DepthFunc)
		if err != nil {
			return state, err
		}
		state.DepthCompare = fn
	}
	if rec.Blend != nil {
		state.Blend = *rec.Blend
		if state.Blend {
			// Alpha-over defaults unless the record names factors.
			state.SrcBlend = BlendSrcAlpha
			state.DstBlend = BlendOneMinusSrcAlpha
			state.DepthWrite = false
			if rec.DepthWrite != nil {
				state.DepthWrite = *rec.DepthWrite
			}
		}
	}
	if rec.SrcBlend != nil {
		factor, err := parseBlendFactor(*rec.SrcBlend)
		if err != nil {
			return state, err
		}
		state.SrcBlend = factor
	}
	if rec.DstBlend != nil {
		factor, err := parseBlendFactor(*rec.DstBlend)
		if err != nil {
			return state, err
		}
		state.DstBlend = factor
	}
	if rec.ColorWrite != nil {
		state.ColorWrite = parseColorMask(*rec.ColorWrite)
	}
	return state, nil
}

func parseCompareFunc(tag string) (CompareFunc, error) {
	switch tag {
	case "never":
		return CompareNever, nil
	case "less":
		return CompareLess, nil
	case "lequal":
		return CompareLessEqual, nil
	case "greater":
		return CompareGreater, nil
	case "gequal":
		return CompareGreaterEqual, nil
	case "equal":
		return CompareEqual, nil
	case "notequal":
		return CompareNotEqual, nil
	case "always":
		return CompareAlways, nil
	}
	return CompareLess, fmt.Errorf("unknown depth function %q", tag)
}

func parseBlendFactor(tag string) (BlendFactor, error) {
	switch tag {
	case "zero":
		return BlendZero, nil
	case "one":
		return BlendOne, nil
	case "src_alpha":
		return BlendSrcAlpha, nil
	case "one_minus_src_alpha":
		return BlendOneMinusSrcAlpha, nil
	}
	return BlendZero, fmt.Errorf("unknown blend factor %q", tag)
}

func parseColorMask(tag string) ColorMask {
	var mask ColorMask
	for _, r := range tag {
		switch r {
		case 'r':
			mask |= ColorMaskRed
		case 'g':
			mask |= ColorMaskGreen
		case 'b':
			mask |= ColorMaskBlue
		case 'a':
			mask |= ColorMaskAlpha
		}
	}
	return mask
}
