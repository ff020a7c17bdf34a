package parc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"neurolabel/internal/subjects"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// ErrInvalidHemi is returned for hemisphere filters other than lh, rh or both.
var ErrInvalidHemi = errors.New("parc: invalid hemisphere")

// Options controls LabelsFromParc.
type Options struct {
	// Parc is the parcellation name, e.g. "aparc". Defaults to "aparc".
	Parc string

	// Hemi filters the result to one hemisphere: "lh", "rh" or "both".
	// Defaults to "both".
	Hemi string

	// AnnotPath, when set, reads this annotation file directly instead of
	// resolving Parc/Hemi under the subject. The hemisphere is taken from
	// the filename ("lh.*.annot" / "rh.*.annot").
	AnnotPath string

	// SubjectsDir overrides the SUBJECTS_DIR environment variable.
	SubjectsDir string

	// Surf names the surface providing vertex positions. Defaults to "white".
	Surf string
}

// LabelsFromParc derives one label per parcellation region for a subject.
// It returns the labels together with a parallel slice of display colors,
// one per label. Results are ordered by label name; a both-hemisphere
// request therefore equals the name-sorted concatenation of the two
// single-hemisphere requests. An unknown hemisphere filter or a missing
// annotation file is a validation error, never an empty result.
func LabelsFromParc(subject string, opts Options) ([]*label.Label, [][4]float64, error) {
	if opts.Parc == "" {
		opts.Parc = "aparc"
	}
	if opts.Surf == "" {
		opts.Surf = "white"
	}
	if opts.Hemi == "" {
		opts.Hemi = "both"
	}

	dir, err := subjects.Dir(opts.SubjectsDir)
	if err != nil {
		return nil, nil, err
	}

	type annotFile struct {
		hemi label.Hemi
		path string
	}
	var files []annotFile

	if opts.AnnotPath != "" {
		hemi, err := hemiFromAnnotName(opts.AnnotPath)
		if err != nil {
			return nil, nil, err
		}
		files = append(files, annotFile{hemi: hemi, path: opts.AnnotPath})
	} else {
		switch opts.Hemi {
		case "lh":
			files = append(files, annotFile{hemi: label.HemiLeft, path: subjects.AnnotPath(dir, subject, "lh", opts.Parc)})
		case "rh":
			files = append(files, annotFile{hemi: label.HemiRight, path: subjects.AnnotPath(dir, subject, "rh", opts.Parc)})
		case "both":
			files = append(files,
				annotFile{hemi: label.HemiLeft, path: subjects.AnnotPath(dir, subject, "lh", opts.Parc)},
				annotFile{hemi: label.HemiRight, path: subjects.AnnotPath(dir, subject, "rh", opts.Parc)})
		default:
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidHemi, opts.Hemi)
		}
	}

	var labels []*label.Label
	var colors [][4]float64
	for _, af := range files {
		if _, err := os.Stat(af.path); err != nil {
			return nil, nil, fmt.Errorf("parc: annotation file %s: %w", af.path, err)
		}
		ls, cs, err := labelsFromAnnotFile(dir, subject, af.hemi, af.path, opts.Surf)
		if err != nil {
			return nil, nil, err
		}
		labels = append(labels, ls...)
		colors = append(colors, cs...)
	}

	sortByName(labels, colors)
	return labels, colors, nil
}

// labelsFromAnnotFile builds one label per colortable region that has at
// least one vertex assigned in the annotation.
func labelsFromAnnotFile(dir, subject string, hemi label.Hemi, path, surf string) ([]*label.Label, [][4]float64, error) {
	annot, err := ReadAnnot(path)
	if err != nil {
		return nil, nil, err
	}
	if annot.Table == nil {
		return nil, nil, fmt.Errorf("parc: %s has no colortable", path)
	}
	mesh, err := surface.Read(subjects.SurfPath(dir, subject, string(hemi), surf))
	if err != nil {
		return nil, nil, err
	}

	byValue := make(map[int32][]int)
	for i, v := range annot.Vertices {
		if v < 0 || v >= mesh.NumVertices() {
			return nil, nil, fmt.Errorf("parc: %s: vertex %d outside surface with %d vertices", path, v, mesh.NumVertices())
		}
		byValue[annot.Values[i]] = append(byValue[annot.Values[i]], v)
	}

	var labels []*label.Label
	var colors [][4]float64
	for _, entry := range annot.Table.Entries {
		verts := byValue[entry.AnnotValue()]
		if len(verts) == 0 {
			continue
		}
		sort.Ints(verts)
		pos := make([][3]float64, len(verts))
		values := make([]float64, len(verts))
		for i, v := range verts {
			pos[i] = mesh.Coords[v]
			values[i] = 1.0
		}
		l, err := label.New(verts, pos, values, hemi)
		if err != nil {
			return nil, nil, fmt.Errorf("parc: region %s: %w", entry.Name, err)
		}
		l.Name = fmt.Sprintf("%s-%s", entry.Name, hemi)
		l.Comment = l.Name
		l.Subject = subject
		labels = append(labels, l)
		colors = append(colors, entry.RGBA())
	}
	return labels, colors, nil
}

// hemiFromAnnotName derives the hemisphere from an annotation filename of
// the form "lh.<parc>.annot".
func hemiFromAnnotName(path string) (label.Hemi, error) {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "lh."):
		return label.HemiLeft, nil
	case strings.HasPrefix(base, "rh."):
		return label.HemiRight, nil
	default:
		return "", fmt.Errorf("%w: cannot determine hemisphere from filename %q", ErrInvalidHemi, base)
	}
}

// sortByName orders labels and their parallel colors by label name.
func sortByName(labels []*label.Label, colors [][4]float64) {
	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return labels[order[i]].Name < labels[order[j]].Name
	})
	sortedLabels := make([]*label.Label, len(labels))
	sortedColors := make([][4]float64, len(colors))
	for i, idx := range order {
		sortedLabels[i] = labels[idx]
		sortedColors[i] = colors[idx]
	}
	copy(labels, sortedLabels)
	copy(colors, sortedColors)
}
