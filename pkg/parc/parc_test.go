package parc

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolabel/internal/subjects"
	"neurolabel/internal/subjtest"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

// aparcNames are the 34 cortical regions of the aparc parcellation, per
// hemisphere. The reference both-hemisphere retrieval therefore yields 68
// labels.
var aparcNames = []string{
	"bankssts", "caudalanteriorcingulate", "caudalmiddlefrontal", "cuneus",
	"entorhinal", "frontalpole", "fusiform", "inferiorparietal",
	"inferiortemporal", "insula", "isthmuscingulate", "lateraloccipital",
	"lateralorbitofrontal", "lingual", "medialorbitofrontal", "middletemporal",
	"paracentral", "parahippocampal", "parsopercularis", "parsorbitalis",
	"parstriangularis", "pericalcarine", "postcentral", "posteriorcingulate",
	"precentral", "precuneus", "rostralanteriorcingulate",
	"rostralmiddlefrontal", "superiorfrontal", "superiorparietal",
	"superiortemporal", "supramarginal", "temporalpole", "transversetemporal",
}

// writeTestParcellation creates a synthetic subject with an aparc-style
// annotation on both hemispheres and returns the subjects directory.
func writeTestParcellation(t *testing.T, subject string) string {
	t.Helper()
	dir := t.TempDir()
	mesh := surface.Icosphere(2, 100)
	require.NoError(t, subjtest.WriteSubject(dir, subject, mesh))

	table := &ColorTable{OrigTab: "aparc.ctab"}
	table.Entries = append(table.Entries, ColorEntry{Name: "unknown", R: 25, G: 5, B: 25})
	for i, name := range aparcNames {
		// Distinct packed annotation values, none colliding with unknown.
		table.Entries = append(table.Entries, ColorEntry{Name: name, R: i + 1, G: 2, B: 0})
	}

	n := mesh.NumVertices()
	annot := &Annotation{
		Vertices: make([]int, n),
		Values:   make([]int32, n),
		Table:    table,
	}
	for v := 0; v < n; v++ {
		entry := table.Entries[1+v%len(aparcNames)] // skip unknown
		annot.Vertices[v] = v
		annot.Values[v] = entry.AnnotValue()
	}
	for _, hemi := range subjtest.Hemis {
		require.NoError(t, WriteAnnot(subjects.AnnotPath(dir, subject, hemi, "aparc"), annot))
	}
	return dir
}

func TestAnnotRoundTrip(t *testing.T) {
	table := &ColorTable{
		OrigTab: "test.ctab",
		Entries: []ColorEntry{
			{Name: "unknown", R: 25, G: 5, B: 25},
			{Name: "regionA", R: 10, G: 20, B: 30, Transparency: 40},
			{Name: "regionB", R: 1, G: 2, B: 3},
		},
	}
	a := &Annotation{
		Vertices: []int{0, 1, 2, 3},
		Values: []int32{
			table.Entries[1].AnnotValue(),
			table.Entries[2].AnnotValue(),
			table.Entries[1].AnnotValue(),
			table.Entries[2].AnnotValue(),
		},
		Table: table,
	}

	path := filepath.Join(t.TempDir(), "lh.test.annot")
	require.NoError(t, WriteAnnot(path, a))

	a2, err := ReadAnnot(path)
	require.NoError(t, err)
	assert.Equal(t, a.Vertices, a2.Vertices)
	assert.Equal(t, a.Values, a2.Values)
	require.NotNil(t, a2.Table)
	assert.Equal(t, table.OrigTab, a2.Table.OrigTab)
	assert.Equal(t, table.Entries, a2.Table.Entries)
}

func TestLabelsFromParcValidation(t *testing.T) {
	dir := writeTestParcellation(t, "sample")

	_, _, err := LabelsFromParc("sample", Options{Hemi: "bla", SubjectsDir: dir})
	assert.ErrorIs(t, err, ErrInvalidHemi)

	_, _, err = LabelsFromParc("sample", Options{AnnotPath: "bla.annot", SubjectsDir: dir})
	assert.Error(t, err)

	_, _, err = LabelsFromParc("sample", Options{AnnotPath: filepath.Join(dir, "lh.nothere.annot"), SubjectsDir: dir})
	assert.Error(t, err, "nonexistent annotation file must fail, not return empty results")
}

func TestLabelsFromParcSingleHemi(t *testing.T) {
	dir := writeTestParcellation(t, "sample")

	labelsLH, colorsLH, err := LabelsFromParc("sample", Options{Hemi: "lh", SubjectsDir: dir})
	require.NoError(t, err)
	assert.Equal(t, len(labelsLH), len(colorsLH))
	assert.Len(t, labelsLH, len(aparcNames))
	for _, l := range labelsLH {
		assert.True(t, strings.HasSuffix(l.Name, "-lh"), "name %q", l.Name)
		assert.Equal(t, label.HemiLeft, l.Hemi)
		assert.Equal(t, len(l.Vertices), len(l.Values))
		assert.Equal(t, len(l.Vertices), len(l.Pos))
	}
}

func TestLabelsFromParcAnnotPath(t *testing.T) {
	dir := writeTestParcellation(t, "sample")
	annotPath := subjects.AnnotPath(dir, "sample", "rh", "aparc")

	labelsRH, colorsRH, err := LabelsFromParc("sample", Options{AnnotPath: annotPath, SubjectsDir: dir})
	require.NoError(t, err)
	assert.Equal(t, len(labelsRH), len(colorsRH))
	for _, l := range labelsRH {
		assert.True(t, strings.HasSuffix(l.Name, "-rh"), "name %q", l.Name)
		assert.Equal(t, label.HemiRight, l.Hemi)
	}
}

func TestLabelsFromParcBothMatchesSortedConcat(t *testing.T) {
	dir := writeTestParcellation(t, "sample")

	labelsLH, _, err := LabelsFromParc("sample", Options{Hemi: "lh", SubjectsDir: dir})
	require.NoError(t, err)
	labelsRH, _, err := LabelsFromParc("sample", Options{Hemi: "rh", SubjectsDir: dir})
	require.NoError(t, err)

	combined := append(append([]*label.Label{}, labelsLH...), labelsRH...)
	sort.SliceStable(combined, func(i, j int) bool { return combined[i].Name < combined[j].Name })

	labelsBoth, colors, err := LabelsFromParc("sample", Options{SubjectsDir: dir})
	require.NoError(t, err)
	assert.Equal(t, len(labelsBoth), len(colors))

	require.Equal(t, len(combined), len(labelsBoth))
	for i := range combined {
		assert.Equal(t, combined[i].Name, labelsBoth[i].Name)
		assert.Equal(t, combined[i].Hemi, labelsBoth[i].Hemi)
		assert.Equal(t, combined[i].Vertices, labelsBoth[i].Vertices)
		assert.Equal(t, combined[i].Pos, labelsBoth[i].Pos)
	}

	// The reference aparc parcellation has 68 cortical labels in total.
	assert.Len(t, labelsBoth, 68)
}

func TestLabelsFromParcRequiresSubjectsDir(t *testing.T) {
	t.Setenv(subjects.EnvVar, "")
	_, _, err := LabelsFromParc("sample", Options{})
	assert.Error(t, err)
}
