package processor

import (
	"testing"

	"github.com/specialistvlad/tsflow/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultCollection_UpdateKeepsIdentities(t *testing.T) {
	t.Parallel()
	a, b, c := series(t, "A.B.C.Day"), series(t, "D.E.F.Day"), series(t, "G.H.I.Day")
	var rc ResultCollection
	require.NoError(t, rc.Replace([]*timeseries.TimeSeries{a, b, c}))

	replacement := b.Clone()
	require.NoError(t, rc.Update(1, replacement))
	require.Equal(t, 3, rc.Len())
	got, err := rc.Get(0)
	require.NoError(t, err)
	assert.Same(t, a, got)
	got, _ = rc.Get(1)
	assert.Same(t, replacement, got)
	got, _ = rc.Get(2)
	assert.Same(t, c, got)

	assert.Error(t, rc.Update(3, a))
	assert.Error(t, rc.Update(0, nil))
	_, err = rc.Append(nil)
	assert.Error(t, err)
	assert.Error(t, rc.Replace([]*timeseries.TimeSeries{a, nil}))
	assert.Equal(t, 3, rc.Len(), "a rejected replace keeps the collection")
}

func TestResultCollection_IndexOf(t *testing.T) {
	t.Parallel()
	first := series(t, "A.B.C.Day")
	second := series(t, "A.B.C.Day")
	aliased := series(t, "X.Y.Z.Day~CSV~in.csv")
	aliased.Alias = "Flow"

	var rc ResultCollection
	require.NoError(t, rc.Replace([]*timeseries.TimeSeries{first, second, aliased}))

	assert.Equal(t, 1, rc.IndexOf("a.b.c.day"), "the most recent match wins")
	assert.Equal(t, 2, rc.IndexOf("flow"))
	assert.Equal(t, 2, rc.IndexOf("X.Y.Z.Day"))
	assert.Equal(t, 2, rc.IndexOf("X.Y.Z.Day~CSV~in.csv"))
	assert.Equal(t, -1, rc.IndexOf("Q.Q.Q.Day"))

	assert.Equal(t, []int{0, 1}, rc.Match("A.*"))
	assert.Equal(t, []int{0, 1, 2}, rc.Match("*"))

	snap := rc.Snapshot()
	snap[0] = nil
	got, _ := rc.Get(0)
	assert.Same(t, first, got, "snapshots are copies")
}
