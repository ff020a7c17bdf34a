// Package stc handles source estimates: per-vertex, per-timepoint signals
// reconstructed over the cortical surface, stored in hemisphere-suffixed
// binary .stc files. Estimates can be restricted to a label's vertices and
// turned back into labels.
package stc

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"gonum.org/v1/gonum/mat"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// SourceEstimate is a signal over cortical surface vertices. Data has one
// row per vertex (left-hemisphere rows first, then right) and one column
// per time point. TMin and TStep are in seconds.
type SourceEstimate struct {
	TMin  float64
	TStep float64

	// LHVertices and RHVertices list the surface vertex indices covered by
	// the estimate, in row order of Data.
	LHVertices []int
	RHVertices []int

	Data *mat.Dense
}

// NumVertices returns the total number of vertices covered.
func (s *SourceEstimate) NumVertices() int {
	return len(s.LHVertices) + len(s.RHVertices)
}

// NumTimes returns the number of time points.
func (s *SourceEstimate) NumTimes() int {
	if s.Data == nil {
		return 0
	}
	_, c := s.Data.Dims()
	return c
}

// Times returns the time axis in seconds.
func (s *SourceEstimate) Times() []float64 {
	times := make([]float64, s.NumTimes())
	for i := range times {
		times[i] = s.TMin + float64(i)*s.TStep
	}
	return times
}

// Validate checks that Data's row count matches the vertex lists.
func (s *SourceEstimate) Validate() error {
	if s.Data == nil {
		return errors.New("stc: estimate has no data")
	}
	r, _ := s.Data.Dims()
	if r != s.NumVertices() {
		return fmt.Errorf("stc: %d data rows for %d vertices", r, s.NumVertices())
	}
	return nil
}

// InLabel restricts the estimate to the vertices of a region. For a
// single-hemisphere label, rows are selected in the estimate's vertex order
// from that hemisphere. For a both-hemisphere aggregate, the result is the
// left-hemisphere restriction stacked on top of the right-hemisphere
// restriction.
func (s *SourceEstimate) InLabel(r label.Region) (*SourceEstimate, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	switch l := r.(type) {
	case *label.Label:
		switch l.Hemi {
		case label.HemiLeft:
			verts, rows := selectRows(s.LHVertices, 0, l.VertexSet())
			return s.restricted(verts, nil, rows)
		case label.HemiRight:
			verts, rows := selectRows(s.RHVertices, len(s.LHVertices), l.VertexSet())
			return s.restricted(nil, verts, rows)
		default:
			return nil, fmt.Errorf("stc: label has invalid hemisphere %q", l.Hemi)
		}
	case *label.BothLabel:
		lhVerts, lhRows := selectRows(s.LHVertices, 0, l.LH.VertexSet())
		rhVerts, rhRows := selectRows(s.RHVertices, len(s.LHVertices), l.RH.VertexSet())
		return s.restricted(lhVerts, rhVerts, append(lhRows, rhRows...))
	default:
		return nil, fmt.Errorf("stc: cannot restrict to region of type %T", r)
	}
}

// selectRows picks the estimate vertices contained in set, preserving the
// estimate's order, and returns them with their global row indices.
func selectRows(vertices []int, rowOffset int, set *roaring.Bitmap) ([]int, []int) {
	var verts, rows []int
	for i, v := range vertices {
		if set.Contains(uint32(v)) {
			verts = append(verts, v)
			rows = append(rows, rowOffset+i)
		}
	}
	return verts, rows
}

// restricted builds a new estimate from a row selection of s.
func (s *SourceEstimate) restricted(lhVerts, rhVerts []int, rows []int) (*SourceEstimate, error) {
	if len(rows) == 0 {
		return nil, errors.New("stc: label has no vertices in the estimate")
	}
	nt := s.NumTimes()
	data := mat.NewDense(len(rows), nt, nil)
	for i, row := range rows {
		for j := 0; j < nt; j++ {
			data.Set(i, j, s.Data.At(row, j))
		}
	}
	return &SourceEstimate{
		TMin:       s.TMin,
		TStep:      s.TStep,
		LHVertices: lhVerts,
		RHVertices: rhVerts,
		Data:       data,
	}, nil
}

// LabelTimeCourses extracts the signal rows of a label from an estimate on
// disk. It returns the restricted data, the time axis in seconds, and the
// restricted vertex indices of the label's hemisphere.
func LabelTimeCourses(labelPath, stem string) (*mat.Dense, []float64, []int, error) {
	l, err := label.Read(labelPath)
	if err != nil {
		return nil, nil, nil, err
	}
	s, err := Read(stem)
	if err != nil {
		return nil, nil, nil, err
	}
	restricted, err := s.InLabel(l)
	if err != nil {
		return nil, nil, nil, err
	}
	verts := restricted.LHVertices
	if l.Hemi == label.HemiRight {
		verts = restricted.RHVertices
	}
	return restricted.Data, restricted.Times(), verts, nil
}

// ToLabels derives one label per hemisphere from the estimate's active
// vertices (those with any non-zero sample). The active set is dilated
// smooth times along the subject's white surface adjacency, matching the
// spreading behavior of surface-based activation maps.
func (s *SourceEstimate) ToLabels(subject string, smooth int, subjectsDir string) ([]*label.Label, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dir, err := subjects.Dir(subjectsDir)
	if err != nil {
		return nil, err
	}

	var out []*label.Label
	hemiVerts := map[label.Hemi][]int{
		label.HemiLeft:  s.LHVertices,
		label.HemiRight: s.RHVertices,
	}
	rowOffsets := map[label.Hemi]int{
		label.HemiLeft:  0,
		label.HemiRight: len(s.LHVertices),
	}
	for _, hemi := range []label.Hemi{label.HemiLeft, label.HemiRight} {
		verts := hemiVerts[hemi]
		if len(verts) == 0 {
			continue
		}
		active := roaring.New()
		for i, v := range verts {
			row := rowOffsets[hemi] + i
			for j := 0; j < s.NumTimes(); j++ {
				if s.Data.At(row, j) != 0 {
					active.Add(uint32(v))
					break
				}
			}
		}
		if active.IsEmpty() {
			continue
		}
		mesh, err := surface.Read(subjects.SurfPath(dir, subject, string(hemi), "white"))
		if err != nil {
			return nil, err
		}
		adj := mesh.Adjacency()
		for step := 0; step < smooth; step++ {
			grown := active.Clone()
			it := active.Iterator()
			for it.HasNext() {
				for _, nb := range adj[int(it.Next())] {
					grown.Add(uint32(nb))
				}
			}
			active = grown
		}

		lv := make([]int, 0, active.GetCardinality())
		it := active.Iterator()
		for it.HasNext() {
			lv = append(lv, int(it.Next()))
		}
		pos := make([][3]float64, len(lv))
		values := make([]float64, len(lv))
		for i, v := range lv {
			pos[i] = mesh.Coords[v]
			values[i] = 1.0
		}
		l, err := label.New(lv, pos, values, hemi)
		if err != nil {
			return nil, err
		}
		l.Name = fmt.Sprintf("%s-%s", subject, hemi)
		l.Comment = fmt.Sprintf("derived from source estimate of %s", subject)
		l.Subject = subject
		out = append(out, l)
	}
	return out, nil
}
