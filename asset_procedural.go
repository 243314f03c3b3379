package prism

import (
	"fmt"
	"math"
	"strings"
)

// Built-in procedural primitives, addressed from scene manifests with
// "builtin:" paths. Model file parsing is outside the core, so these cover
// the meshes a scene can reference without an external pipeline.

const builtinMeshPrefix = "builtin:"

func proceduralMesh(path string) ([]Vertex, []uint16, error) {
	name, ok := strings.CutPrefix(path, builtinMeshPrefix)
	if !ok {
		return nil, nil, fmt.Errorf("mesh path %q: external model formats are not handled by the core, use a %q path or AddMesh", path, builtinMeshPrefix)
	}

	switch name {
	case "cube":
		v, i := cubeMesh(0.5, false)
		return v, i, nil
	case "skybox":
		// Inward-facing unit cube, drawn around the camera.
		v, i := cubeMesh(0.5, true)
		return v, i, nil
	case "sphere":
		v, i := sphereMesh(0.5, 24, 16)
		return v, i, nil
	case "plane":
		v, i := planeMesh(5)
		return v, i, nil
	case "quad":
		v, i := planeMesh(0.5)
		return v, i, nil
	}
	return nil, nil, fmt.Errorf("unknown builtin mesh %q", name)
}

func cubeMesh(half float32, inward bool) ([]Vertex, []uint16) {
	type face struct {
		normal  [3]float32
		corners [4][3]float32
	}
	faces := []face{
		{normal: [3]float32{0, 0, 1}, corners: [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
		{normal: [3]float32{0, 0, -1}, corners: [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
		{normal: [3]float32{1, 0, 0}, corners: [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
		{normal: [3]float32{-1, 0, 0}, corners: [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
		{normal: [3]float32{0, 1, 0}, corners: [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
		{normal: [3]float32{0, -1, 0}, corners: [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	var vertices []Vertex
	var indices []uint16
	for _, f := range faces {
		base := uint16(len(vertices))
		for i, c := range f.corners {
			normal := f.normal
			if inward {
				normal = [3]float32{-normal[0], -normal[1], -normal[2]}
			}
			vertices = append(vertices, Vertex{
				Position: [3]float32{c[0] * half, c[1] * half, c[2] * half},
				Normal:   normal,
				UV:       uvs[i],
			})
		}
		if inward {
			indices = append(indices, base, base+2, base+1, base, base+3, base+2)
		} else {
			indices = append(indices, base, base+1, base+2, base, base+2, base+3)
		}
	}
	return vertices, indices
}

func sphereMesh(radius float32, segments, rings int) ([]Vertex, []uint16) {
	var vertices []Vertex
	var indices []uint16

	for ring := 0; ring <= rings; ring++ {
		phi := math.Pi * float64(ring) / float64(rings)
		y := math.Cos(phi)
		r := math.Sin(phi)
		for seg := 0; seg <= segments; seg++ {
			theta := 2 * math.Pi * float64(seg) / float64(segments)
			x := r * math.Cos(theta)
			z := r * math.Sin(theta)
			normal := [3]float32{float32(x), float32(y), float32(z)}
			vertices = append(vertices, Vertex{
				Position: [3]float32{normal[0] * radius, normal[1] * radius, normal[2] * radius},
				Normal:   normal,
				UV: [2]float32{
					float32(seg) / float32(segments),
					float32(ring) / float32(rings),
				},
			})
		}
	}

	stride := uint16(segments + 1)
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			a := uint16(ring)*stride + uint16(seg)
			b := a + stride
			indices = append(indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return vertices, indices
}

func planeMesh(half float32) ([]Vertex, []uint16) {
	vertices := []Vertex{
		{Position: [3]float32{-half, 0, half}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 1}},
		{Position: [3]float32{half, 0, half}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 1}},
		{Position: [3]float32{half, 0, -half}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{1, 0}},
		{Position: [3]float32{-half, 0, -half}, Normal: [3]float32{0, 1, 0}, UV: [2]float32{0, 0}},
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	return vertices, indices
}
