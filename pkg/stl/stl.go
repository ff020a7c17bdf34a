// Package stl exports cortical surface patches as binary STL meshes, so a
// label can be inspected in standard 3D tooling.
package stl

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// Triangle represents a single triangle in the STL mesh with its vertices
// and normal vector.
type Triangle struct {
	Normal  [3]float32
	Vertex1 [3]float32
	Vertex2 [3]float32
	Vertex3 [3]float32
}

// TrianglesFromLabel extracts the surface triangles fully contained in the
// label, i.e. faces whose three vertices all belong to the label's vertex
// set. Normals follow the face winding.
func TrianglesFromLabel(mesh *surface.Surface, l *label.Label) ([]Triangle, error) {
	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	set := l.VertexSet()
	var triangles []Triangle
	for _, f := range mesh.Faces {
		if !set.Contains(uint32(f[0])) || !set.Contains(uint32(f[1])) || !set.Contains(uint32(f[2])) {
			continue
		}
		triangles = append(triangles, newTriangle(mesh.Coords[f[0]], mesh.Coords[f[1]], mesh.Coords[f[2]]))
	}
	return triangles, nil
}

func newTriangle(a, b, c [3]float64) Triangle {
	var t Triangle
	for d := 0; d < 3; d++ {
		t.Vertex1[d] = float32(a[d])
		t.Vertex2[d] = float32(b[d])
		t.Vertex3[d] = float32(c[d])
	}

	// Face normal from the cross product of two edges.
	u := [3]float64{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	v := [3]float64{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	mag := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if mag > 0 {
		for d := 0; d < 3; d++ {
			t.Normal[d] = float32(n[d] / mag)
		}
	}
	return t
}

// Write stores triangles in the binary STL format: an 80-byte header, a
// little-endian triangle count, then one 50-byte record per triangle.
func Write(path string, triangles []Triangle, name string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stl: creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	var header [80]byte
	copy(header[:], name)
	if _, err := w.Write(header[:]); err != nil {
		f.Close()
		return fmt.Errorf("stl: %s: writing header: %w", path, err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(triangles))); err != nil {
		f.Close()
		return err
	}
	for _, t := range triangles {
		for _, vec := range [][3]float32{t.Normal, t.Vertex1, t.Vertex2, t.Vertex3} {
			if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
				f.Close()
				return fmt.Errorf("stl: %s: writing triangle: %w", path, err)
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint16(0)); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("stl: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("stl: closing %s: %w", path, err)
	}
	return nil
}

// Read loads a binary STL file back into triangles. Mainly useful for
// validating exports.
func Read(path string) ([]Triangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var header [80]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("stl: %s: reading header: %w", path, err)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("stl: %s: reading triangle count: %w", path, err)
	}
	triangles := make([]Triangle, count)
	for i := range triangles {
		vecs := make([][3]float32, 4)
		for j := range vecs {
			if err := binary.Read(r, binary.LittleEndian, &vecs[j]); err != nil {
				return nil, fmt.Errorf("stl: %s: reading triangle %d: %w", path, i, err)
			}
		}
		var attr uint16
		if err := binary.Read(r, binary.LittleEndian, &attr); err != nil {
			return nil, fmt.Errorf("stl: %s: reading triangle %d: %w", path, i, err)
		}
		triangles[i] = Triangle{Normal: vecs[0], Vertex1: vecs[1], Vertex2: vecs[2], Vertex3: vecs[3]}
	}
	return triangles, nil
}
