// Package morph projects labels between subjects' cortical surfaces. The
// label's values are spread over the source mesh by iterative neighbor
// smoothing, then transferred to the target mesh by nearest-neighbor lookup
// on the registered spheres (sphere.reg), which live in a common space
// across subjects.
package morph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"go.uber.org/zap"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// ErrZeroValues is returned when a label with all-zero values is morphed.
// Smoothing propagates weighted values, so an all-zero label carries no
// signal to project.
var ErrZeroValues = errors.New("morph: label values are all zero")

// TargetSpec restricts which target-subject vertices the morphed label may
// use. The zero value means all target vertices.
type TargetSpec struct {
	lh, rh  []int
	perHemi bool
}

// TargetDefault allows every vertex of the target surface.
func TargetDefault() TargetSpec { return TargetSpec{} }

// TargetShared applies the same candidate vertex list to both hemispheres.
func TargetShared(vertices []int) TargetSpec {
	return TargetSpec{lh: vertices, rh: vertices, perHemi: true}
}

// TargetPerHemi gives each hemisphere its own candidate vertex list.
func TargetPerHemi(lh, rh []int) TargetSpec {
	return TargetSpec{lh: lh, rh: rh, perHemi: true}
}

// forHemi resolves the candidate list for one hemisphere on a target
// surface with n vertices. Entries outside [0, n) are dropped.
func (ts TargetSpec) forHemi(hemi label.Hemi, n int) []int {
	if !ts.perHemi {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	src := ts.lh
	if hemi == label.HemiRight {
		src = ts.rh
	}
	verts := make([]int, 0, len(src))
	for _, v := range src {
		if v >= 0 && v < n {
			verts = append(verts, v)
		}
	}
	return verts
}

// Options tunes morphing.
type Options struct {
	// SubjectsDir overrides the SUBJECTS_DIR environment variable.
	SubjectsDir string

	// Surf names the target surface providing the morphed label's vertex
	// positions. Defaults to "white".
	Surf string

	// Logger receives progress events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Apply morphs a single-hemisphere label from one subject onto another,
// replacing the label's vertices, positions and values in place. smooth is
// the number of neighbor-smoothing iterations applied on the source mesh
// before projection.
func Apply(l *label.Label, fromSubject, toSubject string, smooth int, target TargetSpec, opts Options) error {
	if l.Hemi != label.HemiLeft && l.Hemi != label.HemiRight {
		return fmt.Errorf("morph: label has hemisphere %q, morph one hemisphere at a time", l.Hemi)
	}
	if smooth < 0 {
		return fmt.Errorf("morph: negative smoothing steps %d", smooth)
	}
	allZero := true
	for _, v := range l.Values {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return ErrZeroValues
	}
	if opts.Surf == "" {
		opts.Surf = "white"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir, err := subjects.Dir(opts.SubjectsDir)
	if err != nil {
		return err
	}
	hemi := string(l.Hemi)

	fromSphere, err := surface.Read(subjects.SurfPath(dir, fromSubject, hemi, "sphere.reg"))
	if err != nil {
		return err
	}
	toSphere, err := surface.Read(subjects.SurfPath(dir, toSubject, hemi, "sphere.reg"))
	if err != nil {
		return err
	}
	toSurf, err := surface.Read(subjects.SurfPath(dir, toSubject, hemi, opts.Surf))
	if err != nil {
		return err
	}
	if toSurf.NumVertices() != toSphere.NumVertices() {
		return fmt.Errorf("morph: %s surfaces of %s disagree on vertex count (%d sphere.reg, %d %s)",
			hemi, toSubject, toSphere.NumVertices(), toSurf.NumVertices(), opts.Surf)
	}

	vals, defined, err := smoothOnSurface(fromSphere, l, smooth)
	if err != nil {
		return err
	}
	logger.Debug("smoothed label on source surface",
		zap.String("from", fromSubject),
		zap.Int("steps", smooth),
		zap.Uint64("defined", defined.GetCardinality()))

	candidates := target.forHemi(l.Hemi, toSphere.NumVertices())
	nn := newNearestIndex(fromSphere.Coords)

	newVerts := make([]int, 0, len(l.Vertices))
	newVals := make([]float64, 0, len(l.Vertices))
	for _, v := range candidates {
		src := nn.nearest(toSphere.Coords[v])
		if !defined.Contains(uint32(src)) {
			continue
		}
		val := vals[src]
		if val == 0 {
			continue
		}
		newVerts = append(newVerts, v)
		newVals = append(newVals, val)
	}
	if len(newVerts) == 0 {
		return fmt.Errorf("morph: no target vertices received signal from %s", fromSubject)
	}
	sort.Sort(&vertValSorter{verts: newVerts, vals: newVals})

	newPos := make([][3]float64, len(newVerts))
	for i, v := range newVerts {
		newPos[i] = toSurf.Coords[v]
	}

	l.Vertices = newVerts
	l.Pos = newPos
	l.Values = newVals
	l.Subject = toSubject

	logger.Info("morphed label",
		zap.String("from", fromSubject),
		zap.String("to", toSubject),
		zap.String("hemi", hemi),
		zap.Int("vertices", len(newVerts)))
	return nil
}

// smoothOnSurface spreads the label's values over the mesh. Each iteration
// replaces every vertex's value with the mean of the defined values among
// itself and its neighbors, so the defined set dilates by one ring per step.
func smoothOnSurface(mesh *surface.Surface, l *label.Label, steps int) ([]float64, *roaring.Bitmap, error) {
	n := mesh.NumVertices()
	vals := make([]float64, n)
	defined := roaring.New()
	for i, v := range l.Vertices {
		if v >= n {
			return nil, nil, fmt.Errorf("morph: label vertex %d outside surface with %d vertices", v, n)
		}
		vals[v] = l.Values[i]
		defined.Add(uint32(v))
	}

	adj := mesh.Adjacency()
	for step := 0; step < steps; step++ {
		candidates := defined.Clone()
		it := defined.Iterator()
		for it.HasNext() {
			for _, nb := range adj[int(it.Next())] {
				candidates.Add(uint32(nb))
			}
		}

		next := make([]float64, n)
		nextDefined := roaring.New()
		cit := candidates.Iterator()
		for cit.HasNext() {
			v := int(cit.Next())
			sum := 0.0
			cnt := 0
			if defined.Contains(uint32(v)) {
				sum += vals[v]
				cnt++
			}
			for _, nb := range adj[v] {
				if defined.Contains(uint32(nb)) {
					sum += vals[nb]
					cnt++
				}
			}
			if cnt > 0 {
				next[v] = sum / float64(cnt)
				nextDefined.Add(uint32(v))
			}
		}
		vals = next
		defined = nextDefined
	}
	return vals, defined, nil
}

// vertValSorter orders a morphed label's parallel slices by vertex index.
type vertValSorter struct {
	verts []int
	vals  []float64
}

func (s *vertValSorter) Len() int           { return len(s.verts) }
func (s *vertValSorter) Less(i, j int) bool { return s.verts[i] < s.verts[j] }
func (s *vertValSorter) Swap(i, j int) {
	s.verts[i], s.verts[j] = s.verts[j], s.verts[i]
	s.vals[i], s.vals[j] = s.vals[j], s.vals[i]
}
