// Package grow generates circular cortical labels by expanding seed
// vertices along the surface mesh up to a geodesic radius.
package grow

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// Hemisphere indicator values accepted by Labels, matching the 0/1
// convention of seed lists.
const (
	HemiLeftIndex  = 0
	HemiRightIndex = 1
)

// Options tunes label growth.
type Options struct {
	// SubjectsDir overrides the SUBJECTS_DIR environment variable.
	SubjectsDir string

	// Surf names the surface to grow along. Defaults to "white".
	Surf string

	// Logger receives per-seed progress. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Labels grows one label per seed vertex on the given subject. extent is
// the geodesic radius in surface units (mm). hemis holds one hemisphere
// indicator per seed: 0 for lh, 1 for rh. Each returned label contains its
// seed vertex, is confined to the requested hemisphere, and stores the
// geodesic distance from the seed as its per-vertex value.
func Labels(subject string, seeds []int, extent float64, hemis []int, opts Options) ([]*label.Label, error) {
	if len(seeds) != len(hemis) {
		return nil, fmt.Errorf("grow: %d seeds but %d hemisphere indicators", len(seeds), len(hemis))
	}
	if extent < 0 {
		return nil, fmt.Errorf("grow: negative extent %g", extent)
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
		return nil, err
	}

	// Load each needed hemisphere's surface once, up front, so the
	// per-seed goroutines share them read-only.
	meshes := make(map[label.Hemi]*surface.Surface)
	for _, h := range hemis {
		hemi, err := hemiFromIndex(h)
		if err != nil {
			return nil, err
		}
		if _, ok := meshes[hemi]; ok {
			continue
		}
		mesh, err := surface.Read(subjects.SurfPath(dir, subject, string(hemi), opts.Surf))
		if err != nil {
			return nil, err
		}
		meshes[hemi] = mesh
	}

	labels := make([]*label.Label, len(seeds))
	var g errgroup.Group
	for i := range seeds {
		i := i
		g.Go(func() error {
			hemi, _ := hemiFromIndex(hemis[i])
			l, err := growOne(meshes[hemi], seeds[i], extent, hemi)
			if err != nil {
				return err
			}
			l.Subject = subject
			logger.Debug("grew label",
				zap.Int("seed", seeds[i]),
				zap.String("hemi", string(hemi)),
				zap.Int("vertices", l.Len()))
			labels[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return labels, nil
}

// growOne expands a single seed into a label on the given mesh.
func growOne(mesh *surface.Surface, seed int, extent float64, hemi label.Hemi) (*label.Label, error) {
	dist, err := mesh.GeodesicDistances(seed, extent)
	if err != nil {
		return nil, err
	}
	verts := make([]int, 0, len(dist))
	for v := range dist {
		verts = append(verts, v)
	}
	sort.Ints(verts)

	pos := make([][3]float64, len(verts))
	values := make([]float64, len(verts))
	for i, v := range verts {
		pos[i] = mesh.Coords[v]
		values[i] = dist[v]
	}
	l, err := label.New(verts, pos, values, hemi)
	if err != nil {
		return nil, err
	}
	l.Name = fmt.Sprintf("Label_%d-%s", seed, hemi)
	l.Comment = fmt.Sprintf("grown from seed %d", seed)
	return l, nil
}

func hemiFromIndex(h int) (label.Hemi, error) {
	switch h {
	case HemiLeftIndex:
		return label.HemiLeft, nil
	case HemiRightIndex:
		return label.HemiRight, nil
	default:
		return "", fmt.Errorf("grow: invalid hemisphere indicator %d", h)
	}
}
