package stl

import (
	"math"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// patchLabel builds a label covering the given vertices of the mesh.
func patchLabel(t *testing.T, mesh *surface.Surface, verts []int) *label.Label {
	t.Helper()
	pos := make([][3]float64, len(verts))
	values := make([]float64, len(verts))
	for i, v := range verts {
		pos[i] = mesh.Coords[v]
		values[i] = 1
	}
	l, err := label.New(verts, pos, values, label.HemiLeft)
	require.NoError(t, err)
	return l
}

func TestTrianglesFromLabel(t *testing.T) {
	mesh := surface.Icosphere(2, 100)

	// A full-coverage label yields every face of the mesh.
	all := make([]int, mesh.NumVertices())
	for i := range all {
		all[i] = i
	}
	full, err := TrianglesFromLabel(mesh, patchLabel(t, mesh, all))
	require.NoError(t, err)
	assert.Len(t, full, len(mesh.Faces))

	// A sphere's face normals point away from the center.
	for _, tri := range full[:10] {
		cx := (tri.Vertex1[0] + tri.Vertex2[0] + tri.Vertex3[0]) / 3
		cy := (tri.Vertex1[1] + tri.Vertex2[1] + tri.Vertex3[1]) / 3
		cz := (tri.Vertex1[2] + tri.Vertex2[2] + tri.Vertex3[2]) / 3
		mag := float32(math.Sqrt(float64(cx*cx + cy*cy + cz*cz)))
		dot := (cx*tri.Normal[0] + cy*tri.Normal[1] + cz*tri.Normal[2]) / mag
		assert.Greater(t, dot, float32(0.5), "normal should point outward")
	}

	// A contiguous partial patch yields a strict subset; faces straddling
	// the patch boundary are excluded.
	near, err := mesh.GeodesicDistances(0, 40)
	require.NoError(t, err)
	patch := make([]int, 0, len(near))
	for v := range near {
		patch = append(patch, v)
	}
	sort.Ints(patch)
	partial, err := TrianglesFromLabel(mesh, patchLabel(t, mesh, patch))
	require.NoError(t, err)
	assert.NotEmpty(t, partial)
	assert.Less(t, len(partial), len(full))

	// A label too sparse to cover any full face yields nothing.
	sparse, err := TrianglesFromLabel(mesh, patchLabel(t, mesh, []int{0}))
	require.NoError(t, err)
	assert.Empty(t, sparse)
}

func TestWriteReadRoundTrip(t *testing.T) {
	mesh := surface.Icosphere(1, 50)
	verts := make([]int, mesh.NumVertices())
	for i := range verts {
		verts[i] = i
	}
	triangles, err := TrianglesFromLabel(mesh, patchLabel(t, mesh, verts))
	require.NoError(t, err)
	require.NotEmpty(t, triangles)

	path := filepath.Join(t.TempDir(), "patch.stl")
	require.NoError(t, Write(path, triangles, "neurolabel patch"))

	back, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, triangles, back)
}
