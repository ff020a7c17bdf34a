package grow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neurolabel/internal/subjtest"
	"neurolabel/pkg/label"
	"neurolabel/pkg/surface"
)

func TestLabels(t *testing.T) {
	dir := t.TempDir()
	mesh := surface.Icosphere(2, 100)
	require.NoError(t, subjtest.WriteSubject(dir, "sample", mesh))

	seeds := []int{0, 50}
	hemis := []int{HemiLeftIndex, HemiRightIndex}
	labels, err := Labels("sample", seeds, 30, hemis, Options{SubjectsDir: dir})
	require.NoError(t, err)
	require.Len(t, labels, len(seeds))

	want := []label.Hemi{label.HemiLeft, label.HemiRight}
	for i, l := range labels {
		assert.Contains(t, l.Vertices, seeds[i], "label must contain its seed")
		assert.Equal(t, want[i], l.Hemi)
		assert.Equal(t, "sample", l.Subject)

		// Values record the geodesic distance from the seed.
		v, ok := l.Value(seeds[i])
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
		for _, d := range l.Values {
			assert.LessOrEqual(t, d, 30.0)
		}
	}

	// A larger extent grows a strictly larger patch.
	bigger, err := Labels("sample", seeds[:1], 60, hemis[:1], Options{SubjectsDir: dir})
	require.NoError(t, err)
	assert.Greater(t, bigger[0].Len(), labels[0].Len())
}

func TestLabelsValidation(t *testing.T) {
	dir := t.TempDir()
	mesh := surface.Icosphere(1, 100)
	require.NoError(t, subjtest.WriteSubject(dir, "sample", mesh))

	_, err := Labels("sample", []int{0, 1}, 10, []int{0}, Options{SubjectsDir: dir})
	assert.Error(t, err, "seed/hemisphere length mismatch")

	_, err = Labels("sample", []int{0}, 10, []int{7}, Options{SubjectsDir: dir})
	assert.Error(t, err, "invalid hemisphere indicator")

	_, err = Labels("sample", []int{0}, -1, []int{0}, Options{SubjectsDir: dir})
	assert.Error(t, err, "negative extent")

	_, err = Labels("sample", []int{10_000}, 10, []int{0}, Options{SubjectsDir: dir})
	assert.Error(t, err, "seed outside the surface")
}
