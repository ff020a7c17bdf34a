// Package label implements cortical surface labels: named regions of a
// hemisphere's surface mesh defined by vertex indices with per-vertex
// positions and scalar values. Labels can be combined with Add, persisted
// to FreeSurfer-style .label files, and restricted against source
// estimates.
package label

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Hemi identifies the hemisphere a label belongs to.
type Hemi string

const (
	// HemiLeft is the left cortical hemisphere.
	HemiLeft Hemi = "lh"

	// HemiRight is the right cortical hemisphere.
	HemiRight Hemi = "rh"

	// HemiBoth marks an aggregate spanning both hemispheres.
	HemiBoth Hemi = "both"
)

// ErrPosMismatch is returned when two labels being added record different
// positions for the same vertex index in the same hemisphere. Positions for
// a given vertex are canonical mesh geometry, so divergence indicates
// corrupted input rather than a resolvable conflict.
var ErrPosMismatch = errors.New("label: conflicting positions for shared vertex")

// posTol is the absolute per-coordinate tolerance used when checking that
// both operands of an addition agree on a shared vertex's position.
const posTol = 1e-6

// Region is the common interface over single-hemisphere labels and
// both-hemisphere aggregates. Add never mutates its operands; combining a
// left- and a right-hemisphere label yields a *BothLabel.
type Region interface {
	// Hemisphere reports which hemisphere(s) the region covers.
	Hemisphere() Hemi

	// Len returns the total number of vertices in the region.
	Len() int

	// Add combines this region with another, returning a new region.
	Add(other Region) (Region, error)
}

// Label is a region of a single hemisphere's surface mesh. Vertices, Pos
// and Values are parallel slices of equal length; vertex indices are unique
// within a label.
type Label struct {
	// Vertices are indices into the hemisphere's surface mesh.
	Vertices []int

	// Pos holds the 3D position of each vertex, in the same order as Vertices.
	Pos [][3]float64

	// Values holds a scalar weight per vertex, in the same order as Vertices.
	Values []float64

	// Hemi is either HemiLeft or HemiRight.
	Hemi Hemi

	// Comment is free-text metadata carried through file round trips.
	Comment string

	// Name identifies the label, conventionally suffixed "-lh" or "-rh".
	Name string

	// Subject is the identifier of the subject whose mesh the vertex
	// indices refer to. Empty when unknown.
	Subject string
}

// New constructs a single-hemisphere label from parallel slices. It
// validates that the slices have equal length, that hemi is lh or rh, and
// that vertex indices are non-negative and unique.
func New(vertices []int, pos [][3]float64, values []float64, hemi Hemi) (*Label, error) {
	if hemi != HemiLeft && hemi != HemiRight {
		return nil, fmt.Errorf("label: invalid hemisphere %q", hemi)
	}
	if len(vertices) != len(pos) || len(vertices) != len(values) {
		return nil, fmt.Errorf("label: mismatched lengths: %d vertices, %d positions, %d values",
			len(vertices), len(pos), len(values))
	}
	seen := roaring.New()
	for _, v := range vertices {
		if v < 0 {
			return nil, fmt.Errorf("label: negative vertex index %d", v)
		}
		if seen.Contains(uint32(v)) {
			return nil, fmt.Errorf("label: duplicate vertex index %d", v)
		}
		seen.Add(uint32(v))
	}
	l := &Label{
		Vertices: append([]int(nil), vertices...),
		Pos:      append([][3]float64(nil), pos...),
		Values:   append([]float64(nil), values...),
		Hemi:     hemi,
	}
	return l, nil
}

// Len returns the number of vertices in the label.
func (l *Label) Len() int { return len(l.Vertices) }

// Hemisphere returns the label's hemisphere.
func (l *Label) Hemisphere() Hemi { return l.Hemi }

// Copy returns a deep copy of the label.
func (l *Label) Copy() *Label {
	c := *l
	c.Vertices = append([]int(nil), l.Vertices...)
	c.Pos = append([][3]float64(nil), l.Pos...)
	c.Values = append([]float64(nil), l.Values...)
	return &c
}

// FillValues sets every per-vertex value to v.
func (l *Label) FillValues(v float64) {
	for i := range l.Values {
		l.Values[i] = v
	}
}

// VertexSet returns the label's vertex indices as a roaring bitmap.
func (l *Label) VertexSet() *roaring.Bitmap {
	set := roaring.New()
	for _, v := range l.Vertices {
		set.Add(uint32(v))
	}
	return set
}

// Value returns the scalar value recorded for vertex index v, or false if
// the vertex is not part of the label.
func (l *Label) Value(v int) (float64, bool) {
	for i, lv := range l.Vertices {
		if lv == v {
			return l.Values[i], true
		}
	}
	return 0, false
}

// AlmostEqual reports whether two labels have the same comment, hemisphere,
// and vertex set, with positions and values equal element-wise to the given
// number of decimal places. Entries are compared after sorting both labels
// by vertex index, so it is insensitive to storage order.
func (l *Label) AlmostEqual(other *Label, decimal int) bool {
	if l.Comment != other.Comment || l.Hemi != other.Hemi {
		return false
	}
	if len(l.Vertices) != len(other.Vertices) {
		return false
	}
	tol := 0.5 * math.Pow(10, -float64(decimal))
	a := l.sortedByVertex()
	b := other.sortedByVertex()
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			return false
		}
		if math.Abs(a.Values[i]-b.Values[i]) > tol {
			return false
		}
		for d := 0; d < 3; d++ {
			if math.Abs(a.Pos[i][d]-b.Pos[i][d]) > tol {
				return false
			}
		}
	}
	return true
}

// sortedByVertex returns a copy of the label with entries ordered by
// ascending vertex index.
func (l *Label) sortedByVertex() *Label {
	c := l.Copy()
	order := make([]int, len(c.Vertices))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return c.Vertices[order[i]] < c.Vertices[order[j]]
	})
	sorted := &Label{
		Vertices: make([]int, len(order)),
		Pos:      make([][3]float64, len(order)),
		Values:   make([]float64, len(order)),
		Hemi:     c.Hemi,
		Comment:  c.Comment,
		Name:     c.Name,
		Subject:  c.Subject,
	}
	for i, idx := range order {
		sorted.Vertices[i] = c.Vertices[idx]
		sorted.Pos[i] = c.Pos[idx]
		sorted.Values[i] = c.Values[idx]
	}
	return sorted
}

// Add combines the label with another region. Same-hemisphere labels merge:
// the result's vertex set is the union, values on shared vertices are
// summed, and the receiver's entries keep their relative order at the front.
// Adding labels from opposite hemispheres yields a *BothLabel aggregate.
// Adding a *BothLabel merges the receiver into the aggregate's matching
// hemisphere.
func (l *Label) Add(other Region) (Region, error) {
	switch o := other.(type) {
	case *Label:
		if l.Hemi == o.Hemi {
			return mergeSameHemi(l, o)
		}
		lh, rh := l, o
		if l.Hemi == HemiRight {
			lh, rh = o, l
		}
		return &BothLabel{
			LH:      lh.Copy(),
			RH:      rh.Copy(),
			Comment: combineComments(l.Comment, o.Comment),
			Name:    combineNames(l.Name, o.Name),
		}, nil
	case *BothLabel:
		return o.addSingle(l)
	default:
		return nil, fmt.Errorf("label: cannot add region of type %T", other)
	}
}

// mergeSameHemi merges two labels of the same hemisphere. Shared vertices
// must agree on position within posTol.
func mergeSameHemi(a, b *Label) (*Label, error) {
	out := &Label{
		Vertices: append([]int(nil), a.Vertices...),
		Pos:      append([][3]float64(nil), a.Pos...),
		Values:   append([]float64(nil), a.Values...),
		Hemi:     a.Hemi,
		Comment:  combineComments(a.Comment, b.Comment),
		Name:     combineNames(a.Name, b.Name),
		Subject:  a.Subject,
	}

	aSet := a.VertexSet()
	if !aSet.Intersects(b.VertexSet()) {
		// Disjoint vertex sets: plain concatenation, a's entries first.
		out.Vertices = append(out.Vertices, b.Vertices...)
		out.Pos = append(out.Pos, b.Pos...)
		out.Values = append(out.Values, b.Values...)
		return out, nil
	}

	slot := make(map[int]int, len(a.Vertices))
	for i, v := range a.Vertices {
		slot[v] = i
	}
	for j, v := range b.Vertices {
		i, shared := slot[v]
		if !shared {
			out.Vertices = append(out.Vertices, v)
			out.Pos = append(out.Pos, b.Pos[j])
			out.Values = append(out.Values, b.Values[j])
			continue
		}
		for d := 0; d < 3; d++ {
			if math.Abs(a.Pos[i][d]-b.Pos[j][d]) > posTol {
				return nil, fmt.Errorf("%w: vertex %d", ErrPosMismatch, v)
			}
		}
		out.Values[i] += b.Values[j]
	}
	return out, nil
}

// BothLabel is an aggregate of one left- and one right-hemisphere label.
type BothLabel struct {
	// LH and RH are the per-hemisphere components.
	LH *Label
	RH *Label

	// Comment and Name are aggregate-level metadata.
	Comment string
	Name    string
}

// Len returns the combined vertex count of both components.
func (b *BothLabel) Len() int { return b.LH.Len() + b.RH.Len() }

// Hemisphere returns HemiBoth.
func (b *BothLabel) Hemisphere() Hemi { return HemiBoth }

// Add combines the aggregate with another region hemisphere-wise.
func (b *BothLabel) Add(other Region) (Region, error) {
	switch o := other.(type) {
	case *Label:
		return b.addSingle(o)
	case *BothLabel:
		lh, err := mergeSameHemi(b.LH, o.LH)
		if err != nil {
			return nil, err
		}
		rh, err := mergeSameHemi(b.RH, o.RH)
		if err != nil {
			return nil, err
		}
		return &BothLabel{
			LH:      lh,
			RH:      rh,
			Comment: combineComments(b.Comment, o.Comment),
			Name:    combineNames(b.Name, o.Name),
		}, nil
	default:
		return nil, fmt.Errorf("label: cannot add region of type %T", other)
	}
}

// addSingle merges a single-hemisphere label into the matching component,
// leaving the other component untouched.
func (b *BothLabel) addSingle(l *Label) (Region, error) {
	out := &BothLabel{
		LH:      b.LH.Copy(),
		RH:      b.RH.Copy(),
		Comment: combineComments(l.Comment, b.Comment),
		Name:    combineNames(l.Name, b.Name),
	}
	switch l.Hemi {
	case HemiLeft:
		merged, err := mergeSameHemi(l, b.LH)
		if err != nil {
			return nil, err
		}
		out.LH = merged
	case HemiRight:
		merged, err := mergeSameHemi(l, b.RH)
		if err != nil {
			return nil, err
		}
		out.RH = merged
	default:
		return nil, fmt.Errorf("label: invalid hemisphere %q", l.Hemi)
	}
	return out, nil
}

func combineComments(a, b string) string {
	if a == b {
		return a
	}
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " + " + b
}

func combineNames(a, b string) string {
	if a == b {
		return a
	}
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + " + " + b
}
