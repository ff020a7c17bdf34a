package label

import (
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeLabel builds a label over the given vertex indices, pulling positions
// and values out of shared arrays so overlapping labels agree on geometry.
func makeLabel(t *testing.T, idx []int, pos [][3]float64, values []float64, hemi Hemi) *Label {
	t.Helper()
	p := make([][3]float64, len(idx))
	v := make([]float64, len(idx))
	for i, ix := range idx {
		p[i] = pos[ix]
		v[i] = values[ix]
	}
	l, err := New(idx, p, v, hemi)
	require.NoError(t, err)
	return l
}

func testGeometry(n int) ([][3]float64, []float64) {
	rng := rand.New(rand.NewSource(42))
	pos := make([][3]float64, n)
	values := make([]float64, n)
	for i := range pos {
		pos[i] = [3]float64{rng.Float64(), rng.Float64(), rng.Float64()}
		values[i] = float64(i) / float64(n)
	}
	return pos, values
}

func seq(lo, hi int) []int {
	s := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		s = append(s, i)
	}
	return s
}

func TestNewValidation(t *testing.T) {
	pos, values := testGeometry(10)

	_, err := New([]int{0, 1}, pos[:2], values[:1], HemiLeft)
	assert.Error(t, err, "mismatched slice lengths must be rejected")

	_, err = New([]int{0, 0}, pos[:2], values[:2], HemiLeft)
	assert.Error(t, err, "duplicate vertices must be rejected")

	_, err = New([]int{0, 1}, pos[:2], values[:2], Hemi("bla"))
	assert.Error(t, err, "invalid hemisphere must be rejected")

	l, err := New([]int{3, 1}, pos[:2], values[:2], HemiRight)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, HemiRight, l.Hemisphere())
}

func TestAdditionDisjoint(t *testing.T) {
	pos, values := testGeometry(10)
	l0 := makeLabel(t, seq(0, 7), pos, values, HemiLeft)
	l1 := makeLabel(t, seq(7, 10), pos, values, HemiLeft)

	assert.Equal(t, 7, l0.Len())

	sum, err := l0.Add(l1)
	require.NoError(t, err)
	l01, ok := sum.(*Label)
	require.True(t, ok)

	assert.Equal(t, l0.Len()+l1.Len(), l01.Len())
	// a's entries come first and keep their values untouched.
	assert.Equal(t, l0.Values, l01.Values[:l0.Len()])
	assert.Equal(t, l0.Vertices, l01.Vertices[:l0.Len()])
	assert.Equal(t, l1.Vertices, l01.Vertices[l0.Len():])
}

func TestAdditionOverlapping(t *testing.T) {
	pos, values := testGeometry(10)
	l0 := makeLabel(t, seq(0, 7), pos, values, HemiLeft)
	l2 := makeLabel(t, seq(5, 10), pos, values, HemiLeft)

	sum, err := l0.Add(l2)
	require.NoError(t, err)
	l, ok := sum.(*Label)
	require.True(t, ok)

	// Values on shared vertices are summed.
	v0, ok := l0.Value(6)
	require.True(t, ok)
	v2, ok := l2.Value(6)
	require.True(t, ok)
	v, ok := l.Value(6)
	require.True(t, ok)
	assert.Equal(t, v0+v2, v)

	// Non-overlapping entries keep their original values.
	assert.Equal(t, l0.Values[0], l.Values[0])

	// The result's vertex set is the union.
	got := append([]int(nil), l.Vertices...)
	sort.Ints(got)
	assert.Equal(t, seq(0, 10), got)
}

func TestAdditionPosMismatch(t *testing.T) {
	pos, values := testGeometry(10)
	l0 := makeLabel(t, seq(0, 7), pos, values, HemiLeft)
	l2 := makeLabel(t, seq(5, 10), pos, values, HemiLeft)
	l2.Pos[0][1] += 0.5 // vertex 5 now disagrees with l0's geometry

	_, err := l0.Add(l2)
	assert.ErrorIs(t, err, ErrPosMismatch)
}

func TestAdditionBothHemispheres(t *testing.T) {
	pos, values := testGeometry(10)
	l0 := makeLabel(t, seq(0, 7), pos, values, HemiLeft)
	l1 := makeLabel(t, seq(7, 10), pos, values, HemiLeft)
	l2 := makeLabel(t, seq(5, 10), pos, values, HemiRight)

	sum, err := l0.Add(l1)
	require.NoError(t, err)
	l01 := sum.(*Label)

	// lh + rh coalesces into an aggregate.
	r, err := l0.Add(l2)
	require.NoError(t, err)
	bhl, ok := r.(*BothLabel)
	require.True(t, ok)
	assert.Equal(t, HemiBoth, bhl.Hemisphere())
	assert.Equal(t, l0.Len()+l2.Len(), bhl.Len())

	// Adding a single-hemisphere label merges into the matching component.
	r2, err := l1.Add(bhl)
	require.NoError(t, err)
	bhl2, ok := r2.(*BothLabel)
	require.True(t, ok)
	assert.True(t, bhl2.LH.AlmostEqual(l01, 5))
	assert.True(t, bhl2.RH.AlmostEqual(l2, 5))

	// Aggregate + aggregate merges hemisphere-wise.
	r3, err := bhl.Add(bhl2)
	require.NoError(t, err)
	bhl3, ok := r3.(*BothLabel)
	require.True(t, ok)
	// LH merges l0 into l01 (union 0..9), RH doubles up on l2's vertices.
	assert.Equal(t, 10, bhl3.LH.Len())
	assert.Equal(t, 5, bhl3.RH.Len())
	v, ok := bhl3.RH.Value(6)
	require.True(t, ok)
	v2, _ := l2.Value(6)
	assert.InDelta(t, 2*v2, v, 1e-12)
}

func TestAlmostEqual(t *testing.T) {
	pos, values := testGeometry(10)
	l := makeLabel(t, seq(0, 7), pos, values, HemiLeft)

	// Order-insensitive: reversed storage order still compares equal.
	rev := l.Copy()
	for i, j := 0, rev.Len()-1; i < j; i, j = i+1, j-1 {
		rev.Vertices[i], rev.Vertices[j] = rev.Vertices[j], rev.Vertices[i]
		rev.Pos[i], rev.Pos[j] = rev.Pos[j], rev.Pos[i]
		rev.Values[i], rev.Values[j] = rev.Values[j], rev.Values[i]
	}
	assert.True(t, l.AlmostEqual(rev, 5))

	// Perturbations below the tolerance pass, above fail.
	near := l.Copy()
	near.Values[0] += 1e-7
	assert.True(t, l.AlmostEqual(near, 5))
	far := l.Copy()
	far.Values[0] += 1e-3
	assert.False(t, l.AlmostEqual(far, 5))

	diffComment := l.Copy()
	diffComment.Comment = "other"
	assert.False(t, l.AlmostEqual(diffComment, 5))
}

func TestIORoundTrip(t *testing.T) {
	pos, values := testGeometry(20)
	l := makeLabel(t, seq(3, 15), pos, values, HemiLeft)
	l.Comment = "test label round trip"

	dir := t.TempDir()
	path, err := l.Save(filepath.Join(dir, "foo"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "foo-lh.label"), path)

	l2, err := Read(path)
	require.NoError(t, err)
	assert.True(t, l.AlmostEqual(l2, 5))
	assert.Equal(t, "foo-lh", l2.Name)
}

func TestReadRejectsUnknownHemisphere(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "foo.label"))
	assert.Error(t, err)
}

func TestVertexSet(t *testing.T) {
	pos, values := testGeometry(10)
	l := makeLabel(t, []int{2, 5, 9}, pos, values, HemiRight)
	set := l.VertexSet()
	assert.EqualValues(t, 3, set.GetCardinality())
	assert.True(t, set.Contains(5))
	assert.False(t, set.Contains(3))
}
