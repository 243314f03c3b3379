package prism

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// postRenderer executes a resolved post-processing chain. The scene renders
// into an offscreen color target, then each effect runs as a full-screen pass
// reading the previous pass's output; the last effect writes to the surface.
type postRenderer struct {
	pipelines map[string]*wgpu.RenderPipeline
	failed    map[string]bool
	sampler   *wgpu.Sampler

	targets [2]postTarget
	width   uint32
	height  uint32
}

type postTarget struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type postUniforms struct {
	Params [4]float32
	Texel  [4]float32 // x,y = 1/width, 1/height
}

func newPostRenderer(gpu *GpuState) *postRenderer {
	// Edge clamping matters here: fxaa and bloom sample neighbor texels and
	// must not wrap around the screen.
	sampler, err := gpu.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Post Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	return &postRenderer{
		pipelines: make(map[string]*wgpu.RenderPipeline),
		failed:    make(map[string]bool),
		sampler:   sampler,
	}
}

// sceneTarget returns the offscreen view the scene pass should render into,
// (re)allocating the ping-pong targets to match the surface size.
func (p *postRenderer) sceneTarget(gpu *GpuState) *wgpu.TextureView {
	width, height := gpu.surfaceConfig.Width, gpu.surfaceConfig.Height
	if p.width != width || p.height != height {
		p.releaseTargets()
		for i := range p.targets {
			p.targets[i] = createPostTarget(gpu)
		}
		p.width, p.height = width, height
	}
	return p.targets[0].view
}

func (p *postRenderer) releaseTargets() {
	for i, t := range p.targets {
		if t.view != nil {
			t.view.Release()
			t.texture.Release()
		}
		p.targets[i] = postTarget{}
	}
}

func createPostTarget(gpu *GpuState) postTarget {
	texture, err := gpu.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Post Target",
		Size: wgpu.Extent3D{
			Width:              gpu.surfaceConfig.Width,
			Height:             gpu.surfaceConfig.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        gpu.surfaceConfig.Format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		panic(err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return postTarget{texture: texture, view: view}
}

// run encodes one full-screen pass per effect. The first pass reads the
// scene target; the last pass writes to surfaceView. Returns the transient
// uniform buffers so the caller can release them after submit.
func (p *postRenderer) run(encoder *wgpu.CommandEncoder, chain []PostEffect, surfaceView *wgpu.TextureView, gpu *GpuState, log Logger) []*wgpu.Buffer {
	type boundEffect struct {
		effect   PostEffect
		pipeline *wgpu.RenderPipeline
	}

	// Resolve pipelines up front so the last runnable pass targets the
	// surface. A fully failed chain degrades to a plain blit; the scene
	// already rendered offscreen and still has to reach the screen.
	var passes []boundEffect
	for _, effect := range chain {
		if pipeline, ok := p.pipeline(effect.Name, gpu, log); ok {
			passes = append(passes, boundEffect{effect: effect, pipeline: pipeline})
		}
	}
	if len(passes) == 0 {
		blit, ok := p.pipeline("blit", gpu, log)
		if !ok {
			return nil
		}
		passes = append(passes, boundEffect{effect: PostEffect{Name: "blit"}, pipeline: blit})
	}

	var scratch []*wgpu.Buffer

	src := 0
	for i, ps := range passes {
		effect, pipeline := ps.effect, ps.pipeline

		dst := surfaceView
		last := i == len(passes)-1
		if !last {
			dst = p.targets[1-src].view
		}

		uniformBuf := createUniformBuffer("Post Uniforms", postUniforms{
			Params: postParamsVec(effect),
			Texel:  [4]float32{1 / float32(p.width), 1 / float32(p.height)},
		}, gpu)
		scratch = append(scratch, uniformBuf)

		bindGroup, err := gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Post Bind Group",
			Layout: pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: uniformBuf, Size: wgpu.WholeSize},
				{Binding: 1, TextureView: p.targets[src].view},
				{Binding: 2, Sampler: p.sampler},
			},
		})
		if err != nil {
			log.Errorf("post bind group: %v", err)
			continue
		}

		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:    dst,
					LoadOp:  wgpu.LoadOpClear,
					StoreOp: wgpu.StoreOpStore,
				},
			},
		})
		pass.SetPipeline(pipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Draw(3, 1, 0, 0)
		pass.End()
		pass.Release()
		bindGroup.Release()

		src = 1 - src
	}
	return scratch
}

func (p *postRenderer) pipeline(name string, gpu *GpuState, log Logger) (*wgpu.RenderPipeline, bool) {
	if pipeline, ok := p.pipelines[name]; ok {
		return pipeline, true
	}
	if p.failed[name] {
		return nil, false
	}
	source, ok := postShaderSources[name]
	if !ok {
		// resolvePostChain filters unknown names before the chain reaches
		// the executor, so this is an engine bug.
		log.Errorf("post effect %q has no shader", name)
		p.failed[name] = true
		return nil, false
	}

	pipeline, err := createPostPipeline("Post "+name, postShaderCommon+source, gpu)
	if err != nil {
		log.Errorf("post effect %q: %v", name, err)
		p.failed[name] = true
		return nil, false
	}
	p.pipelines[name] = pipeline
	return pipeline, true
}

// createPostPipeline builds the full-screen pass pipeline: no vertex buffers
// (the triangle comes from the vertex index), no depth, no culling.
func createPostPipeline(name string, shaderCode string, gpu *GpuState) (*wgpu.RenderPipeline, error) {
	shader, err := gpu.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderCode},
	})
	if err != nil {
		return nil, &ShaderCompileError{Shader: name, Err: err}
	}
	defer shader.Release()

	pipeline, err := gpu.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: name,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    gpu.surfaceConfig.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count:                  1,
			Mask:                   0xFFFFFFFF,
			AlphaToCoverageEnabled: false,
		},
	})
	if err != nil {
		return nil, &ShaderCompileError{Shader: name, Err: err}
	}
	return pipeline, nil
}

// postParamsVec packs an effect's named parameters into the uniform vec4 in
// the slot order its shader expects.
func postParamsVec(effect PostEffect) [4]float32 {
	var params [4]float32
	switch effect.Name {
	case "tonemap":
		params[0] = effect.Params["white_point"]
	case "bloom":
		params[0] = effect.Params["threshold"]
		params[1] = effect.Params["strength"]
	case "fxaa":
		params[0] = effect.Params["span_max"]
	case "vignette":
		params[0] = effect.Params["radius"]
		params[1] = effect.Params["softness"]
	}
	return params
}

// Shared full-screen triangle vertex stage and bindings. Each effect source
// appends its fragment stage.
const postShaderCommon = `
struct PostUniforms {
    params: vec4<f32>,
    texel: vec4<f32>,
};

@group(0) @binding(0) var<uniform> u: PostUniforms;
@group(0) @binding(1) var src_texture: texture_2d<f32>;
@group(0) @binding(2) var src_sampler: sampler;

struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) idx: u32) -> VsOut {
    var out: VsOut;
    let xy = vec2<f32>(f32((idx << 1u) & 2u), f32(idx & 2u));
    out.pos = vec4<f32>(xy * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2<f32>(xy.x, 1.0 - xy.y);
    return out;
}
`

var postShaderSources = map[string]string{
	// Passthrough, used when no effect in the chain could build.
	"blit": `
@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    return textureSample(src_texture, src_sampler, in.uv);
}
`,
	// Extended Reinhard; params.x is the white point.
	"tonemap": `
@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let c = textureSample(src_texture, src_sampler, in.uv).rgb;
    let w  = max(u.params.x, 0.001);
    let mapped = c * (1.0 + c / (w * w)) / (1.0 + c);
    return vec4<f32>(mapped, 1.0);
}
`,
	// Single-pass approximation: 3x3 thresholded neighborhood added back onto
	// the source. params.x threshold, params.y strength.
	"bloom": `
@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let base = textureSample(src_texture, src_sampler, in.uv).rgb;
    var glow = vec3<f32>(0.0);
    for (var y = -1; y <= 1; y += 1) {
        for (var x = -1; x <= 1; x += 1) {
            let offset = vec2<f32>(f32(x), f32(y)) * u.texel.xy * 2.0;
            let s = textureSampleLevel(src_texture, src_sampler, in.uv + offset, 0.0).rgb;
            let luma = dot(s, vec3<f32>(0.299, 0.587, 0.114));
            glow += s * max(luma - u.params.x, 0.0);
        }
    }
    return vec4<f32>(base + glow * (u.params.y / 9.0), 1.0);
}
`,
	// Luma-gradient antialiasing; params.x caps the sample span in texels.
	// Level-0 sampling throughout keeps the control flow legal for WGSL.
	"fxaa": `
fn luma(c: vec3<f32>) -> f32 {
    return dot(c, vec3<f32>(0.299, 0.587, 0.114));
}

fn tap(uv: vec2<f32>) -> vec3<f32> {
    return textureSampleLevel(src_texture, src_sampler, uv, 0.0).rgb;
}

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let texel = u.texel.xy;
    let cm = tap(in.uv);
    let lm = luma(cm);
    let ln = luma(tap(in.uv + vec2<f32>(0.0, -texel.y)));
    let ls = luma(tap(in.uv + vec2<f32>(0.0, texel.y)));
    let lw = luma(tap(in.uv + vec2<f32>(-texel.x, 0.0)));
    let le = luma(tap(in.uv + vec2<f32>(texel.x, 0.0)));

    let l_min = min(lm, min(min(ln, ls), min(lw, le)));
    let l_max = max(lm, max(max(ln, ls), max(lw, le)));
    if (l_max - l_min < max(0.0312, l_max * 0.125)) {
        return vec4<f32>(cm, 1.0);
    }

    var dir = vec2<f32>(-((ln + ls) - (lw + le)), (lw + le) - (ln + ls));
    let reduce = max((ln + ls + lw + le) * 0.25 * 0.125, 1.0 / 128.0);
    let rcp = 1.0 / (min(abs(dir.x), abs(dir.y)) + reduce);
    dir = clamp(dir * rcp, vec2<f32>(-u.params.x), vec2<f32>(u.params.x)) * texel;

    let a = 0.5 * (tap(in.uv + dir * (1.0 / 3.0 - 0.5)) + tap(in.uv + dir * (2.0 / 3.0 - 0.5)));
    let b = a * 0.5 + 0.25 * (tap(in.uv - dir * 0.5) + tap(in.uv + dir * 0.5));

    let lb = luma(b);
    if (lb < l_min || lb > l_max) {
        return vec4<f32>(a, 1.0);
    }
    return vec4<f32>(b, 1.0);
}
`,
	// params.x radius (distance where falloff starts), params.y softness.
	"vignette": `
@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let c = textureSample(src_texture, src_sampler, in.uv);
    let dist = distance(in.uv, vec2<f32>(0.5));
    let fade = 1.0 - smoothstep(u.params.x - u.params.y, u.params.x, dist);
    return vec4<f32>(c.rgb * fade, c.a);
}
`,
}
