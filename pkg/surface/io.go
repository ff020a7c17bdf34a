package surface

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// triangleFileMagic is the 3-byte magic number of the FreeSurfer binary
// triangle surface format (0xFFFFFE).
const triangleFileMagic = 16777214

// Read loads a surface from a FreeSurfer binary triangle file. All
// multi-byte fields in the format are big-endian.
func Read(path string) (*Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("surface: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	magic, err := readInt24(r)
	if err != nil {
		return nil, fmt.Errorf("surface: %s: reading magic: %w", path, err)
	}
	if magic != triangleFileMagic {
		return nil, fmt.Errorf("surface: %s: bad magic %d, not a triangle file", path, magic)
	}

	// The creation comment is terminated by two newline bytes.
	if err := skipCreationComment(r); err != nil {
		return nil, fmt.Errorf("surface: %s: reading header comment: %w", path, err)
	}

	var nVert, nFace int32
	if err := binary.Read(r, binary.BigEndian, &nVert); err != nil {
		return nil, fmt.Errorf("surface: %s: reading vertex count: %w", path, err)
	}
	if err := binary.Read(r, binary.BigEndian, &nFace); err != nil {
		return nil, fmt.Errorf("surface: %s: reading face count: %w", path, err)
	}
	if nVert < 0 || nFace < 0 {
		return nil, fmt.Errorf("surface: %s: negative counts (%d vertices, %d faces)", path, nVert, nFace)
	}

	s := &Surface{
		Coords: make([][3]float64, nVert),
		Faces:  make([][3]int, nFace),
	}
	coords := make([]float32, 3*int(nVert))
	if err := binary.Read(r, binary.BigEndian, coords); err != nil {
		return nil, fmt.Errorf("surface: %s: reading coordinates: %w", path, err)
	}
	for i := 0; i < int(nVert); i++ {
		for d := 0; d < 3; d++ {
			s.Coords[i][d] = float64(coords[3*i+d])
		}
	}
	faces := make([]int32, 3*int(nFace))
	if err := binary.Read(r, binary.BigEndian, faces); err != nil {
		return nil, fmt.Errorf("surface: %s: reading faces: %w", path, err)
	}
	for i := 0; i < int(nFace); i++ {
		for d := 0; d < 3; d++ {
			s.Faces[i][d] = int(faces[3*i+d])
		}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("surface: %s: %w", path, err)
	}
	return s, nil
}

// Write stores the surface in the FreeSurfer binary triangle format.
func Write(path string, s *Surface, comment string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("surface: creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	if err := writeInt24(w, triangleFileMagic); err != nil {
		f.Close()
		return fmt.Errorf("surface: %s: writing magic: %w", path, err)
	}
	if _, err := w.WriteString(comment + "\n\n"); err != nil {
		f.Close()
		return fmt.Errorf("surface: %s: writing comment: %w", path, err)
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(s.Coords))); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(s.Faces))); err != nil {
		f.Close()
		return err
	}
	coords := make([]float32, 0, 3*len(s.Coords))
	for _, c := range s.Coords {
		coords = append(coords, float32(c[0]), float32(c[1]), float32(c[2]))
	}
	if err := binary.Write(w, binary.BigEndian, coords); err != nil {
		f.Close()
		return fmt.Errorf("surface: %s: writing coordinates: %w", path, err)
	}
	faces := make([]int32, 0, 3*len(s.Faces))
	for _, face := range s.Faces {
		faces = append(faces, int32(face[0]), int32(face[1]), int32(face[2]))
	}
	if err := binary.Write(w, binary.BigEndian, faces); err != nil {
		f.Close()
		return fmt.Errorf("surface: %s: writing faces: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("surface: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("surface: closing %s: %w", path, err)
	}
	return nil
}

func readInt24(r io.ByteReader) (int, error) {
	var v int
	for i := 0; i < 3; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v = v<<8 | int(b)
	}
	return v, nil
}

func writeInt24(w io.ByteWriter, v int) error {
	for shift := 16; shift >= 0; shift -= 8 {
		if err := w.WriteByte(byte(v >> shift)); err != nil {
			return err
		}
	}
	return nil
}

func skipCreationComment(r io.ByteReader) error {
	var prev byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if prev == '\n' && b == '\n' {
			return nil
		}
		prev = b
	}
}

// Icosphere builds a unit icosahedron subdivided n times and scaled to the
// given radius. It is a convenient stand-in for a registered spherical
// surface when no real subject data is available.
func Icosphere(subdivisions int, radius float64) *Surface {
	phi := (1 + math.Sqrt(5)) / 2

	coords := [][3]float64{
		{-1, phi, 0}, {1, phi, 0}, {-1, -phi, 0}, {1, -phi, 0},
		{0, -1, phi}, {0, 1, phi}, {0, -1, -phi}, {0, 1, -phi},
		{phi, 0, -1}, {phi, 0, 1}, {-phi, 0, -1}, {-phi, 0, 1},
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for iter := 0; iter < subdivisions; iter++ {
		midpoints := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if idx, ok := midpoints[key]; ok {
				return idx
			}
			m := [3]float64{
				(coords[a][0] + coords[b][0]) / 2,
				(coords[a][1] + coords[b][1]) / 2,
				(coords[a][2] + coords[b][2]) / 2,
			}
			coords = append(coords, m)
			midpoints[key] = len(coords) - 1
			return len(coords) - 1
		}
		next := make([][3]int, 0, 4*len(faces))
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca})
		}
		faces = next
	}

	// Project every vertex onto the sphere of the requested radius.
	for i, c := range coords {
		norm := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		for d := 0; d < 3; d++ {
			coords[i][d] = c[d] / norm * radius
		}
	}
	return &Surface{Coords: coords, Faces: faces}
}
