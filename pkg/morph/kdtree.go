package morph

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// spherePoint is a registered-sphere coordinate tagged with its vertex
// index so nearest-neighbor lookups recover the vertex.
type spherePoint struct {
	X, Y, Z float64
	Vertex  int
}

// Compare implements the kdtree.Comparable interface.
func (p spherePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(spherePoint)
	switch d {
	case 0:
		return p.X - q.X
	case 1:
		return p.Y - q.Y
	case 2:
		return p.Z - q.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree.
func (p spherePoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points.
func (p spherePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(spherePoint)
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// spherePoints is a collection of spherePoint that satisfies kdtree.Interface.
type spherePoints []spherePoint

func (p spherePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p spherePoints) Len() int                              { return len(p) }
func (p spherePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method.
func (p spherePoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(spherePlane{spherePoints: p, Dim: d},
		kdtree.MedianOfRandoms(spherePlane{spherePoints: p, Dim: d}, 100))
}

// spherePlane implements sort.Interface and kdtree.SortSlicer for spherePoints.
type spherePlane struct {
	spherePoints
	kdtree.Dim
}

func (p spherePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.spherePoints[i].X < p.spherePoints[j].X
	case 1:
		return p.spherePoints[i].Y < p.spherePoints[j].Y
	case 2:
		return p.spherePoints[i].Z < p.spherePoints[j].Z
	default:
		panic("illegal dimension")
	}
}

func (p spherePlane) Slice(start, end int) kdtree.SortSlicer {
	return spherePlane{spherePoints: p.spherePoints[start:end], Dim: p.Dim}
}

func (p spherePlane) Swap(i, j int) {
	p.spherePoints[i], p.spherePoints[j] = p.spherePoints[j], p.spherePoints[i]
}

// nearestIndex answers nearest-vertex queries over a set of coordinates.
type nearestIndex struct {
	tree *kdtree.Tree
}

func newNearestIndex(coords [][3]float64) *nearestIndex {
	pts := make(spherePoints, len(coords))
	for i, c := range coords {
		pts[i] = spherePoint{X: c[0], Y: c[1], Z: c[2], Vertex: i}
	}
	return &nearestIndex{tree: kdtree.New(pts, false)}
}

// nearest returns the vertex index closest to the query coordinate.
func (n *nearestIndex) nearest(c [3]float64) int {
	got, _ := n.tree.Nearest(spherePoint{X: c[0], Y: c[1], Z: c[2]})
	return got.(spherePoint).Vertex
}
