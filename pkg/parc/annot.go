// Package parc reads cortical parcellations: FreeSurfer .annot files
// assigning every surface vertex to a named anatomical region, and derives
// per-region labels from them.
package parc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ColorEntry is one region of a parcellation colortable. The RGB triple
// doubles as the region's identity: a vertex belongs to the region whose
// AnnotValue matches the vertex's annotation value.
type ColorEntry struct {
	Name         string
	R, G, B      int
	Transparency int
}

// AnnotValue returns the packed annotation value encoding this entry's color.
func (e ColorEntry) AnnotValue() int32 {
	return int32(e.R) | int32(e.G)<<8 | int32(e.B)<<16
}

// RGBA returns the entry's display color with components in [0, 1]. Alpha
// is derived from the stored transparency.
func (e ColorEntry) RGBA() [4]float64 {
	return [4]float64{
		float64(e.R) / 255,
		float64(e.G) / 255,
		float64(e.B) / 255,
		float64(255-e.Transparency) / 255,
	}
}

// ColorTable maps annotation values to named regions.
type ColorTable struct {
	// OrigTab is the name of the table the annotation was generated from.
	OrigTab string
	Entries []ColorEntry
}

// Annotation is the per-vertex content of an .annot file. Values[i] is the
// packed annotation value of vertex Vertices[i].
type Annotation struct {
	Vertices []int
	Values   []int32
	Table    *ColorTable
}

const (
	tagOldColortable  = 1
	colortableVersion = 2
)

// ReadAnnot parses a FreeSurfer .annot file (big-endian binary, with an
// embedded version-2 colortable).
func ReadAnnot(path string) (*Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parc: opening %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("parc: %s: reading entry count: %w", path, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("parc: %s: negative entry count %d", path, n)
	}
	a := &Annotation{
		Vertices: make([]int, n),
		Values:   make([]int32, n),
	}
	pairs := make([]int32, 2*int(n))
	if err := binary.Read(r, binary.BigEndian, pairs); err != nil {
		return nil, fmt.Errorf("parc: %s: reading vertex annotations: %w", path, err)
	}
	for i := 0; i < int(n); i++ {
		a.Vertices[i] = int(pairs[2*i])
		a.Values[i] = pairs[2*i+1]
	}

	var tag int32
	if err := binary.Read(r, binary.BigEndian, &tag); err != nil {
		// No colortable present.
		return a, nil
	}
	if tag != tagOldColortable {
		return nil, fmt.Errorf("parc: %s: unexpected tag %d", path, tag)
	}
	table, err := readColorTable(r)
	if err != nil {
		return nil, fmt.Errorf("parc: %s: reading colortable: %w", path, err)
	}
	a.Table = table
	return a, nil
}

func readColorTable(r *bufio.Reader) (*ColorTable, error) {
	var version int32
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, err
	}
	if version >= 0 {
		return nil, fmt.Errorf("old-format colortable (version %d) not supported", version)
	}
	if -version != colortableVersion {
		return nil, fmt.Errorf("unsupported colortable version %d", -version)
	}

	var maxEntries int32
	if err := binary.Read(r, binary.BigEndian, &maxEntries); err != nil {
		return nil, err
	}
	origTab, err := readCString(r)
	if err != nil {
		return nil, err
	}
	var numEntries int32
	if err := binary.Read(r, binary.BigEndian, &numEntries); err != nil {
		return nil, err
	}
	t := &ColorTable{
		OrigTab: origTab,
		Entries: make([]ColorEntry, 0, numEntries),
	}
	for i := int32(0); i < numEntries; i++ {
		var structure int32
		if err := binary.Read(r, binary.BigEndian, &structure); err != nil {
			return nil, err
		}
		name, err := readCString(r)
		if err != nil {
			return nil, err
		}
		var rgbt [4]int32
		if err := binary.Read(r, binary.BigEndian, &rgbt); err != nil {
			return nil, err
		}
		t.Entries = append(t.Entries, ColorEntry{
			Name:         name,
			R:            int(rgbt[0]),
			G:            int(rgbt[1]),
			B:            int(rgbt[2]),
			Transparency: int(rgbt[3]),
		})
	}
	return t, nil
}

// WriteAnnot stores an annotation, including its colortable when present,
// in the binary .annot format.
func WriteAnnot(path string, a *Annotation) error {
	if len(a.Vertices) != len(a.Values) {
		return fmt.Errorf("parc: %d vertices but %d annotation values", len(a.Vertices), len(a.Values))
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("parc: creating %s: %w", path, err)
	}
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.BigEndian, int32(len(a.Vertices))); err != nil {
		f.Close()
		return err
	}
	pairs := make([]int32, 0, 2*len(a.Vertices))
	for i, v := range a.Vertices {
		pairs = append(pairs, int32(v), a.Values[i])
	}
	if err := binary.Write(w, binary.BigEndian, pairs); err != nil {
		f.Close()
		return fmt.Errorf("parc: %s: writing vertex annotations: %w", path, err)
	}

	if a.Table != nil {
		if err := binary.Write(w, binary.BigEndian, int32(tagOldColortable)); err != nil {
			f.Close()
			return err
		}
		if err := writeColorTable(w, a.Table); err != nil {
			f.Close()
			return fmt.Errorf("parc: %s: writing colortable: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("parc: writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("parc: closing %s: %w", path, err)
	}
	return nil
}

func writeColorTable(w *bufio.Writer, t *ColorTable) error {
	if err := binary.Write(w, binary.BigEndian, int32(-colortableVersion)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(t.Entries))); err != nil {
		return err
	}
	if err := writeCString(w, t.OrigTab); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(t.Entries))); err != nil {
		return err
	}
	for i, e := range t.Entries {
		if err := binary.Write(w, binary.BigEndian, int32(i)); err != nil {
			return err
		}
		if err := writeCString(w, e.Name); err != nil {
			return err
		}
		rgbt := [4]int32{int32(e.R), int32(e.G), int32(e.B), int32(e.Transparency)}
		if err := binary.Write(w, binary.BigEndian, &rgbt); err != nil {
			return err
		}
	}
	return nil
}

// readCString reads a length-prefixed NUL-terminated string.
func readCString(r *bufio.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	// Drop the trailing NUL and anything after it.
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

func writeCString(w *bufio.Writer, s string) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(s)+1)); err != nil {
		return err
	}
	if _, err := w.WriteString(s); err != nil {
		return err
	}
	return w.WriteByte(0)
}
