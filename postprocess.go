package prism

import "fmt"

// PostEffect is one full-screen pass configuration. The effect set is
// closed; a scene selects effects by name and the chain runs in declaration
// order, each pass reading the previous pass's output.
type PostEffect struct {
	Name   string
	Params map[string]float32
}

// knownPostEffects is the closed effect set with default parameters. The
// configuration is fixed at scene-load time, not per frame.
var knownPostEffects = map[string]func() PostEffect{
	"tonemap": func() PostEffect {
		return PostEffect{Name: "tonemap", Params: map[string]float32{"white_point": 1}}
	},
	"bloom": func() PostEffect {
		return PostEffect{Name: "bloom", Params: map[string]float32{"threshold": 1, "strength": 0.6}}
	},
	"fxaa": func() PostEffect {
		return PostEffect{Name: "fxaa", Params: map[string]float32{"span_max": 8}}
	},
	"vignette": func() PostEffect {
		return PostEffect{Name: "vignette", Params: map[string]float32{"radius": 0.75, "softness": 0.45}}
	},
}

// resolvePostChain maps declared effect names onto the closed set. Unknown
// names are reported and skipped, never fatal.
func resolvePostChain(names []string, report *LoadReport) []PostEffect {
	var chain []PostEffect
	for _, name := range names {
		ctor, ok := knownPostEffects[name]
		if !ok {
			report.reportf(fmt.Errorf("unknown post-processing effect %q, skipped", name))
			continue
		}
		chain = append(chain, ctor())
	}
	return chain
}
