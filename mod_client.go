package prism

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// FrameState carries the current frame's plan from the build system to the
// executor.
type FrameState struct {
	Plan *FramePlan
}

// ClientModule owns the window, the GPU device, and the render systems. Not
// installed in headless mode; everything up to FramePlan construction works
// without it.
type ClientModule struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string
}

func (m ClientModule) Install(app *App, cmd *Commands) {
	width, height := m.WindowWidth, m.WindowHeight
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 720
	}
	title := m.WindowTitle
	if title == "" {
		title = "prism"
	}

	window := createWindowState(width, height, title)
	gpu := createGpuState(window)

	app.addResources(window, gpu, newFrameRenderer(gpu), &FrameState{})

	cmd.UseSystem(System(windowEventsSystem).InStage(Prelude))
	cmd.UseSystem(System(buildFrameSystem).InStage(PreRender))
	cmd.UseSystem(System(executeFrameSystem).InStage(Render))
}

func windowEventsSystem(window *WindowState, gpu *GpuState, cmd *Commands) {
	glfw.PollEvents()

	if window.windowGlfw.ShouldClose() {
		cmd.Quit()
		return
	}

	width, height := window.windowGlfw.GetFramebufferSize()
	if width > 0 && height > 0 && (width != window.WindowWidth || height != window.WindowHeight) {
		window.WindowWidth = width
		window.WindowHeight = height
		gpu.surfaceConfig.Width = uint32(width)
		gpu.surfaceConfig.Height = uint32(height)
		gpu.surface.Configure(gpu.adapter, gpu.device, gpu.surfaceConfig)
		gpu.depthView.Release()
		gpu.depthView = createDepthTexture(gpu)
	}
}

func buildFrameSystem(scene *SceneState, window *WindowState, reg *AssetRegistry, frame *FrameState) {
	if scene.Loaded == nil {
		frame.Plan = &FramePlan{NoFrame: true}
		return
	}
	frame.Plan = BuildFrame(scene.Loaded, reg, window.Aspect())
}

type gpuMesh struct {
	vertexBuf  *wgpu.Buffer
	indexBuf   *wgpu.Buffer
	indexCount uint32
}

// frameRenderer executes FramePlans. It owns the GPU-side caches: pipelines,
// mesh buffers, texture views. Cache keys are asset handles, so a reloaded
// scene reuses whatever assets it shares with the previous one.
type frameRenderer struct {
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	meshes    map[AssetId]gpuMesh
	textures  map[AssetId]*wgpu.TextureView
	sampler   *wgpu.Sampler

	// failed shaders are reported once, then their draws skip silently
	failed map[pipelineKey]bool

	stateCache pipelineCache

	skyPipeline *wgpu.RenderPipeline
	skyMesh     gpuMesh

	post *postRenderer
}

func newFrameRenderer(gpu *GpuState) *frameRenderer {
	sampler, err := gpu.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Default Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		panic(err)
	}
	return &frameRenderer{
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		meshes:    make(map[AssetId]gpuMesh),
		textures:  make(map[AssetId]*wgpu.TextureView),
		sampler:   sampler,
		failed:    make(map[pipelineKey]bool),
		post:      newPostRenderer(gpu),
	}
}

// gpuLight is the packed per-light uniform block. Vec4 fields keep the layout
// 16-byte aligned for WGSL.
type gpuLight struct {
	Position  mgl32.Vec4 // xyz position, w = light type
	Direction mgl32.Vec4 // xyz direction, w = range
	Color     mgl32.Vec4 // rgb color, w = intensity
	Cone      mgl32.Vec4 // x = inner cone, y = outer cone
}

type drawUniforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Tint       [4]float32
	CameraPos  [4]float32
	Factors    [4]float32 // roughness, metalness, emission, exposure
	Counts     [4]float32 // x = bound light count
	Lights     [MaxFrameLights]gpuLight
}

type skyUniforms struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	Params     [4]float32 // x = exposure
}

func executeFrameSystem(frame *FrameState, gpu *GpuState, renderer *frameRenderer, reg *AssetRegistry, log *Logger) {
	plan := frame.Plan
	if plan == nil || plan.NoFrame {
		return
	}
	for _, skip := range plan.Skipped {
		(*log).Warnf("skipping draw: %v", skip)
	}
	if err := renderer.execute(plan, gpu, reg, *log); err != nil {
		(*log).Errorf("frame dropped: %v", err)
	}
}

func (r *frameRenderer) execute(plan *FramePlan, gpu *GpuState, reg *AssetRegistry, log Logger) error {
	surfaceTexture, err := gpu.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := gpu.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	// With an active post chain the scene renders offscreen and the chain's
	// final pass writes the surface; without one the scene targets the
	// surface directly.
	sceneView := view
	if len(plan.Post) > 0 {
		sceneView = r.post.sceneTarget(gpu)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       sceneView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.01, G: 0.01, B: 0.02, A: 1.0},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            gpu.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})

	// Execution order is the plan order: opaque, sky, transparent. The state
	// cache resets per frame, then elides every draw whose pipeline state
	// matches the previous one.
	r.stateCache.Reset()

	var scratch []*wgpu.Buffer
	defer func() {
		for _, buf := range scratch {
			buf.Release()
		}
	}()

	camPos := plan.View.Inv().Col(3).Vec3()

	drawAll := func(cmds []DrawCommand) {
		for _, cmd := range cmds {
			buf := r.drawCommand(pass, &cmd, plan, camPos, gpu, reg, log)
			if buf != nil {
				scratch = append(scratch, buf)
			}
		}
	}
	drawAll(plan.Opaque)
	if plan.Sky != nil {
		if buf := r.drawSky(pass, plan, gpu, reg, log); buf != nil {
			scratch = append(scratch, buf)
		}
	}
	drawAll(plan.Transparent)

	pass.End()
	pass.Release()

	if len(plan.Post) > 0 {
		scratch = append(scratch, r.post.run(encoder, plan.Post, view, gpu, log)...)
	}

	cmdBuf, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer cmdBuf.Release()

	gpu.queue.Submit(cmdBuf)
	gpu.surface.Present()
	return nil
}

func (r *frameRenderer) drawCommand(pass *wgpu.RenderPassEncoder, cmd *DrawCommand, plan *FramePlan, camPos mgl32.Vec3, gpu *GpuState, reg *AssetRegistry, log Logger) *wgpu.Buffer {
	pipeline, ok := r.pipeline(cmd.Bindings.Shader, cmd.Bindings.Pipeline, gpu, reg, log)
	if !ok {
		return nil
	}
	mesh, ok := r.mesh(cmd.Mesh, gpu, reg)
	if !ok {
		log.Warnf("draw references unloaded mesh %v", cmd.Mesh)
		return nil
	}

	uniforms := drawUniforms{
		Model:      cmd.Model,
		View:       plan.View,
		Projection: plan.Projection,
		Tint:       cmd.Bindings.Tint,
		CameraPos:  [4]float32{camPos.X(), camPos.Y(), camPos.Z(), 0},
		Factors: [4]float32{
			cmd.Bindings.Factors.Roughness,
			cmd.Bindings.Factors.Metalness,
			cmd.Bindings.Factors.Emission,
			plan.Exposure,
		},
		Counts: [4]float32{float32(len(cmd.Lights))},
	}
	for i, light := range cmd.Lights {
		uniforms.Lights[i] = gpuLight{
			Position:  light.Position.Vec4(float32(light.Type)),
			Direction: light.Direction.Vec4(light.Range),
			Color:     mgl32.Vec4{light.Color[0], light.Color[1], light.Color[2], light.Intensity},
			Cone:      mgl32.Vec4{light.InnerCone, light.OuterCone, 0, 0},
		}
	}

	uniformBuf := createUniformBuffer("Draw Uniforms", uniforms, gpu)

	// Bind group convention shared with the scene shaders: binding 0 is the
	// uniform block, bindings 1..N the material's texture slots in declared
	// order, binding N+1 the sampler when any texture is bound.
	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: uniformBuf, Size: wgpu.WholeSize},
	}
	for i, tex := range cmd.Bindings.Textures {
		texView, ok := r.texture(tex.Texture, gpu, reg)
		if !ok {
			log.Warnf("material texture slot %q references unloaded texture", tex.Slot)
			uniformBuf.Release()
			return nil
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding:     uint32(1 + i),
			TextureView: texView,
		})
	}
	if len(cmd.Bindings.Textures) > 0 {
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(1 + len(cmd.Bindings.Textures)),
			Sampler: r.sampler,
		})
	}

	bindGroup, err := gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Draw Bind Group",
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		log.Errorf("bind group creation failed: %v", err)
		uniformBuf.Release()
		return nil
	}
	defer bindGroup.Release()

	if r.stateCache.Apply(pipelineKey{Shader: cmd.Bindings.Shader, State: cmd.Bindings.Pipeline}) {
		pass.SetPipeline(pipeline)
	}
	pass.SetVertexBuffer(0, mesh.vertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(mesh.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DrawIndexed(mesh.indexCount, 1, 0, 0, 0)
	return uniformBuf
}

func (r *frameRenderer) drawSky(pass *wgpu.RenderPassEncoder, plan *FramePlan, gpu *GpuState, reg *AssetRegistry, log Logger) *wgpu.Buffer {
	if r.skyPipeline == nil {
		pipeline, err := createRenderPipeline("Sky Pipeline", skyShaderSource, skyPipelineState(), gpu)
		if err != nil {
			log.Errorf("sky pipeline: %v", err)
			return nil
		}
		r.skyPipeline = pipeline

		vertices, indices, err := proceduralMesh(builtinMeshPrefix + "skybox")
		if err != nil {
			panic(err)
		}
		vertexBuf, indexBuf := createVertexIndexBuffers(vertices, indices, gpu.device)
		r.skyMesh = gpuMesh{vertexBuf: vertexBuf, indexBuf: indexBuf, indexCount: uint32(len(indices))}
	}

	texView, ok := r.texture(plan.Sky.Texture, gpu, reg)
	if !ok {
		log.Warnf("sky references unloaded texture %v", plan.Sky.Texture)
		return nil
	}

	uniformBuf := createUniformBuffer("Sky Uniforms", skyUniforms{
		View:       plan.View,
		Projection: plan.Projection,
		Params:     [4]float32{plan.Sky.Exposure},
	}, gpu)

	bindGroup, err := gpu.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Sky Bind Group",
		Layout: r.skyPipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: texView},
			{Binding: 2, Sampler: r.sampler},
		},
	})
	if err != nil {
		log.Errorf("sky bind group: %v", err)
		uniformBuf.Release()
		return nil
	}
	defer bindGroup.Release()

	r.stateCache.Apply(pipelineKey{State: skyPipelineState()})
	pass.SetPipeline(r.skyPipeline)
	pass.SetVertexBuffer(0, r.skyMesh.vertexBuf, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(r.skyMesh.indexBuf, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DrawIndexed(r.skyMesh.indexCount, 1, 0, 0, 0)
	return uniformBuf
}

func (r *frameRenderer) pipeline(shader AssetId, state PipelineState, gpu *GpuState, reg *AssetRegistry, log Logger) (*wgpu.RenderPipeline, bool) {
	key := pipelineKey{Shader: shader, State: state}
	if pipeline, ok := r.pipelines[key]; ok {
		return pipeline, true
	}
	if r.failed[key] {
		return nil, false
	}

	asset, ok := reg.Shader(shader)
	if !ok {
		log.Warnf("draw references unloaded shader %v", shader)
		r.failed[key] = true
		return nil, false
	}
	pipeline, err := createRenderPipeline(asset.Name, asset.Listing, state, gpu)
	if err != nil {
		log.Errorf("%v", err)
		r.failed[key] = true
		return nil, false
	}
	r.pipelines[key] = pipeline
	return pipeline, true
}

func (r *frameRenderer) mesh(id AssetId, gpu *GpuState, reg *AssetRegistry) (gpuMesh, bool) {
	if mesh, ok := r.meshes[id]; ok {
		return mesh, true
	}
	asset, ok := reg.Mesh(id)
	if !ok {
		return gpuMesh{}, false
	}
	vertexBuf, indexBuf := createVertexIndexBuffers(asset.Vertices, asset.Indices, gpu.device)
	mesh := gpuMesh{vertexBuf: vertexBuf, indexBuf: indexBuf, indexCount: uint32(len(asset.Indices))}
	r.meshes[id] = mesh
	return mesh, true
}

func (r *frameRenderer) texture(id AssetId, gpu *GpuState, reg *AssetRegistry) (*wgpu.TextureView, bool) {
	if view, ok := r.textures[id]; ok {
		return view, true
	}
	asset, ok := reg.Texture(id)
	if !ok {
		return nil, false
	}
	view := createTextureFromAsset(&asset, gpu)
	r.textures[id] = view
	return view, true
}

func skyPipelineState() PipelineState {
	state := DefaultPipelineState()
	state.Cull = CullNone
	state.DepthCompare = CompareLessEqual
	state.DepthWrite = false
	return state
}

// skyShaderSource samples an equirectangular sky texture by view direction.
// The vertex stage pins depth to the far plane so opaque geometry occludes
// the sky.
const skyShaderSource = `
struct SkyUniforms {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    params: vec4<f32>,
};

@group(0) @binding(0) var<uniform> u: SkyUniforms;
@group(0) @binding(1) var sky_texture: texture_2d<f32>;
@group(0) @binding(2) var sky_sampler: sampler;

struct VsOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) dir: vec3<f32>,
};

@vertex
fn vs_main(
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VsOut {
    var out: VsOut;
    let rot = mat3x3<f32>(u.view[0].xyz, u.view[1].xyz, u.view[2].xyz);
    let clip = u.proj * vec4<f32>(rot * position, 1.0);
    out.pos = clip.xyww;
    out.dir = position;
    return out;
}

const PI: f32 = 3.14159265;

@fragment
fn fs_main(in: VsOut) -> @location(0) vec4<f32> {
    let d = normalize(in.dir);
    let eq_uv = vec2<f32>(
        atan2(d.z, d.x) / (2.0 * PI) + 0.5,
        0.5 - asin(clamp(d.y, -1.0, 1.0)) / PI,
    );
    let color = textureSample(sky_texture, sky_sampler, eq_uv).rgb * u.params.x;
    return vec4<f32>(color, 1.0);
}
`
