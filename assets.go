package prism

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
)

type AssetId string

// NoAsset is the nil asset handle.
const NoAsset = AssetId("")

type AssetKind string

const (
	AssetKindShader   AssetKind = "shader"
	AssetKindMesh     AssetKind = "mesh"
	AssetKindTexture  AssetKind = "texture"
	AssetKindSampler  AssetKind = "sampler"
	AssetKindMaterial AssetKind = "material"
)

// AssetResolver is the lookup interface the scene loader hands to component
// decoders. Satisfied by *AssetRegistry.
type AssetResolver interface {
	Resolve(kind AssetKind, name string) (AssetId, bool)
}

type ShaderAsset struct {
	Name    string
	Path    string
	Listing string // WGSL source
}

type MeshAsset struct {
	Name     string
	Path     string
	Vertices []Vertex
	Indices  []uint16
}

type TextureFormat uint32

const (
	TextureFormatRGBA8Unorm TextureFormat = 0x00000012
)

type TextureAsset struct {
	Name   string
	Path   string
	Texels []uint8
	Width  uint32
	Height uint32
	Format TextureFormat
}

type SamplerAsset struct {
	Name string
}

// Vertex is the engine's interleaved vertex layout. The tags drive the wgpu
// vertex buffer layout derivation.
type Vertex struct {
	Position [3]float32 `prism:"layout" format:"float32x3" location:"0"`
	Normal   [3]float32 `prism:"layout" format:"float32x3" location:"1"`
	UV       [2]float32 `prism:"layout" format:"float32x2" location:"2"`
}

// AssetRegistry resolves names to GPU-backed resource handles and owns the
// CPU-side asset payloads. Loads are idempotent by (kind, name): a second
// Load with a name already present returns the cached handle without touching
// the path again. One registry instance is created at engine start and passed
// explicitly into the scene loader and renderer; there is no global state.
// Reentrant lookups are fine; concurrent loads from several goroutines are
// not part of the contract.
type AssetRegistry struct {
	handles map[AssetKind]map[string]AssetId

	shaders   map[AssetId]ShaderAsset
	meshes    map[AssetId]MeshAsset
	textures  map[AssetId]TextureAsset
	samplers  map[AssetId]SamplerAsset
	materials map[AssetId]Material
}

func NewAssetRegistry() *AssetRegistry {
	handles := make(map[AssetKind]map[string]AssetId)
	for _, kind := range []AssetKind{AssetKindShader, AssetKindMesh, AssetKindTexture, AssetKindSampler, AssetKindMaterial} {
		handles[kind] = make(map[string]AssetId)
	}
	return &AssetRegistry{
		handles:   handles,
		shaders:   make(map[AssetId]ShaderAsset),
		meshes:    make(map[AssetId]MeshAsset),
		textures:  make(map[AssetId]TextureAsset),
		samplers:  make(map[AssetId]SamplerAsset),
		materials: make(map[AssetId]Material),
	}
}

// Resolve maps a name to an existing handle without loading anything.
func (reg *AssetRegistry) Resolve(kind AssetKind, name string) (AssetId, bool) {
	id, ok := reg.handles[kind][name]
	return id, ok
}

// Load fetches the named asset from the given path, or returns the cached
// handle when the name is already loaded. This is the only retry-like
// behavior in the engine.
func (reg *AssetRegistry) Load(kind AssetKind, name string, path string) (AssetId, error) {
	if id, ok := reg.handles[kind][name]; ok {
		return id, nil
	}

	switch kind {
	case AssetKindShader:
		return reg.loadShader(name, path)
	case AssetKindMesh:
		return reg.loadMesh(name, path)
	case AssetKindTexture:
		return reg.loadTexture(name, path)
	case AssetKindSampler:
		id := makeAssetId()
		reg.samplers[id] = SamplerAsset{Name: name}
		reg.handles[AssetKindSampler][name] = id
		return id, nil
	}
	return NoAsset, fmt.Errorf("load %q: kind %q is not loadable from a path", name, kind)
}

func (reg *AssetRegistry) loadShader(name string, path string) (AssetId, error) {
	listing, err := os.ReadFile(path)
	if err != nil {
		return NoAsset, fmt.Errorf("load shader %q: %w", name, err)
	}

	id := makeAssetId()
	reg.shaders[id] = ShaderAsset{
		Name:    name,
		Path:    path,
		Listing: string(listing),
	}
	reg.handles[AssetKindShader][name] = id
	return id, nil
}

// loadMesh resolves "builtin:" paths to procedurally generated primitives.
// Model file parsing lives outside the core; external formats arrive through
// AddMesh.
func (reg *AssetRegistry) loadMesh(name string, path string) (AssetId, error) {
	vertices, indices, err := proceduralMesh(path)
	if err != nil {
		return NoAsset, fmt.Errorf("load mesh %q: %w", name, err)
	}
	return reg.AddMesh(name, path, vertices, indices), nil
}

func (reg *AssetRegistry) loadTexture(name string, path string) (AssetId, error) {
	file, err := os.Open(path)
	if err != nil {
		return NoAsset, fmt.Errorf("load texture %q: %w", name, err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return NoAsset, fmt.Errorf("load texture %q: %w", name, err)
	}

	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(bounds)
		xdraw.Draw(rgba, bounds, img, bounds.Min, xdraw.Src)
	}

	id := makeAssetId()
	reg.textures[id] = TextureAsset{
		Name:   name,
		Path:   path,
		Texels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Format: TextureFormatRGBA8Unorm,
	}
	reg.handles[AssetKindTexture][name] = id
	return id, nil
}

// AddMesh registers in-memory mesh data under a name, bypassing any file IO.
func (reg *AssetRegistry) AddMesh(name string, path string, vertices []Vertex, indices []uint16) AssetId {
	if id, ok := reg.handles[AssetKindMesh][name]; ok {
		return id
	}
	id := makeAssetId()
	reg.meshes[id] = MeshAsset{
		Name:     name,
		Path:     path,
		Vertices: vertices,
		Indices:  indices,
	}
	reg.handles[AssetKindMesh][name] = id
	return id
}

// AddTexture registers raw RGBA texels under a name.
func (reg *AssetRegistry) AddTexture(name string, texels []uint8, width, height uint32) AssetId {
	if id, ok := reg.handles[AssetKindTexture][name]; ok {
		return id
	}
	id := makeAssetId()
	reg.textures[id] = TextureAsset{
		Name:   name,
		Texels: texels,
		Width:  width,
		Height: height,
		Format: TextureFormatRGBA8Unorm,
	}
	reg.handles[AssetKindTexture][name] = id
	return id
}

// AddMaterial registers a constructed material. Materials are built by the
// scene loader from manifest entries, not loaded from files.
func (reg *AssetRegistry) AddMaterial(name string, material Material) AssetId {
	if id, ok := reg.handles[AssetKindMaterial][name]; ok {
		return id
	}
	id := makeAssetId()
	reg.materials[id] = material
	reg.handles[AssetKindMaterial][name] = id
	return id
}

func (reg *AssetRegistry) Shader(id AssetId) (ShaderAsset, bool) {
	asset, ok := reg.shaders[id]
	return asset, ok
}

func (reg *AssetRegistry) Mesh(id AssetId) (MeshAsset, bool) {
	asset, ok := reg.meshes[id]
	return asset, ok
}

func (reg *AssetRegistry) Texture(id AssetId) (TextureAsset, bool) {
	asset, ok := reg.textures[id]
	return asset, ok
}

func (reg *AssetRegistry) Material(id AssetId) (Material, bool) {
	material, ok := reg.materials[id]
	return material, ok
}

// MaterialName reverse-resolves a material handle for reporting and export.
func (reg *AssetRegistry) MaterialName(id AssetId) string {
	for name, handle := range reg.handles[AssetKindMaterial] {
		if handle == id {
			return name
		}
	}
	return ""
}

// Names lists the loaded names of one kind, for export and diagnostics.
func (reg *AssetRegistry) Names(kind AssetKind) []string {
	res := make([]string, 0, len(reg.handles[kind]))
	for name := range reg.handles[kind] {
		res = append(res, name)
	}
	return res
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// AssetRegistryModule installs a fresh registry as an App resource.
type AssetRegistryModule struct{}

func (AssetRegistryModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetRegistry())
}
