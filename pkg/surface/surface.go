// Package surface handles triangulated cortical surface meshes: reading and
// writing the FreeSurfer binary triangle format, vertex adjacency, and
// geodesic distances along the mesh.
package surface

import (
	"container/heap"
	"fmt"
	"math"
	"sort"
)

// Surface is a triangulated mesh. Coords holds one 3D position per vertex
// and Faces holds triangles as triples of vertex indices.
type Surface struct {
	Coords [][3]float64
	Faces  [][3]int
}

// NumVertices returns the number of vertices in the mesh.
func (s *Surface) NumVertices() int { return len(s.Coords) }

// Validate checks that every face references valid vertex indices.
func (s *Surface) Validate() error {
	n := len(s.Coords)
	for i, f := range s.Faces {
		for _, v := range f {
			if v < 0 || v >= n {
				return fmt.Errorf("surface: face %d references vertex %d outside [0,%d)", i, v, n)
			}
		}
	}
	return nil
}

// Adjacency returns per-vertex neighbor lists derived from the faces. Each
// list is sorted and free of duplicates.
func (s *Surface) Adjacency() [][]int {
	sets := make([]map[int]struct{}, len(s.Coords))
	for i := range sets {
		sets[i] = make(map[int]struct{})
	}
	for _, f := range s.Faces {
		for i := 0; i < 3; i++ {
			a, b := f[i], f[(i+1)%3]
			sets[a][b] = struct{}{}
			sets[b][a] = struct{}{}
		}
	}
	adj := make([][]int, len(sets))
	for i, set := range sets {
		adj[i] = make([]int, 0, len(set))
		for v := range set {
			adj[i] = append(adj[i], v)
		}
		sort.Ints(adj[i])
	}
	return adj
}

func dist3(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// distItem is a heap entry for the geodesic search.
type distItem struct {
	vertex int
	dist   float64
}

type distHeap []distItem

func (h distHeap) Len() int            { return len(h) }
func (h distHeap) Less(i, j int) bool  { return h[i].dist < h[j].dist }
func (h distHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *distHeap) Push(x interface{}) { *h = append(*h, x.(distItem)) }
func (h *distHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// GeodesicDistances runs Dijkstra along mesh edges from the seed vertex and
// returns the distance to every vertex reachable within maxDist. Edge
// lengths are Euclidean. The seed itself is included with distance zero.
// A negative maxDist means unbounded.
func (s *Surface) GeodesicDistances(seed int, maxDist float64) (map[int]float64, error) {
	if seed < 0 || seed >= len(s.Coords) {
		return nil, fmt.Errorf("surface: seed vertex %d outside [0,%d)", seed, len(s.Coords))
	}
	adj := s.Adjacency()
	dist := map[int]float64{seed: 0}
	h := &distHeap{{vertex: seed, dist: 0}}
	for h.Len() > 0 {
		cur := heap.Pop(h).(distItem)
		if best, ok := dist[cur.vertex]; ok && cur.dist > best {
			continue // stale entry
		}
		for _, nb := range adj[cur.vertex] {
			d := cur.dist + dist3(s.Coords[cur.vertex], s.Coords[nb])
			if maxDist >= 0 && d > maxDist {
				continue
			}
			if best, ok := dist[nb]; !ok || d < best {
				dist[nb] = d
				heap.Push(h, distItem{vertex: nb, dist: d})
			}
		}
	}
	return dist, nil
}
