package processor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
	"github.com/specialistvlad/tsflow/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequests_Properties(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	seed := props.New()
	seed.SetString("Basin", "upper", props.HowSetFromPersistent)
	p := New(Options{Properties: seed})

	out, err := p.ProcessRequest(ctx, "GetProperty", request.Params("PropertyName", "basin"))
	require.NoError(t, err)
	assert.Equal(t, "upper", out.Text("PropertyValue"))

	_, err = p.ProcessRequest(ctx, "SetProperty", request.Params("PropertyName", "Count", "PropertyValue", 3))
	require.NoError(t, err)
	n, err := p.State().Get("Count").AsInt()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err := p.ProcessRequest(ctx, "GetProperties", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Basin", "Count"}, all.Keys())
	all.SetString("Basin", "changed", props.HowSetRuntime)
	assert.Equal(t, "upper", p.State().Get("Basin").String(), "GetProperties returns a copy")

	_, err = p.ProcessRequest(ctx, "SetProperty", request.Params("PropertyName", PropTSResultsListSize, "PropertyValue", 1))
	assert.Error(t, err)
	_, err = p.ProcessRequest(ctx, "SetProperty", request.Params("PropertyName", PropInputStart, "PropertyValue", "soon"))
	assert.Error(t, err)
	_, err = p.ProcessRequest(ctx, "GetProperty", nil)
	var failure *request.RequestFailure
	assert.ErrorAs(t, err, &failure)
}

func TestRequests_ExpandString(t *testing.T) {
	t.Parallel()
	seed := props.New()
	seed.SetString("Basin", "upper", props.HowSetFromPersistent)
	seed.Set("Year", props.IntValue(2020), props.HowSetFromPersistent)
	p := New(Options{Properties: seed})

	for in, want := range map[string]string{
		"plain":                    "plain",
		"${Basin}/${Year}.csv":     "upper/2020.csv",
		"${ basin }":               "upper",
		"keep ${Unset} as written": "keep ${Unset} as written",
	} {
		out, err := p.ProcessRequest(context.Background(), "ExpandString", request.Params("Text", in))
		require.NoError(t, err)
		assert.Equal(t, want, out.Text("Text"), in)
	}
}

func TestRequests_DateTime(t *testing.T) {
	t.Parallel()
	start := time.Date(2019, 10, 1, 0, 0, 0, 0, time.UTC)
	seed := props.New()
	seed.Set(PropInputStart, props.TimeValue(start), props.HowSetFromPersistent)
	seed.SetString("Later", "2021-03", props.HowSetFromPersistent)
	p := New(Options{Properties: seed})

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2020-01-02", want: time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{in: "2020-01-02 03:04", want: time.Date(2020, 1, 2, 3, 4, 0, 0, time.UTC)},
		{in: "2020", want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "InputStart", want: start},
		{in: "${Later}", want: time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			out, err := p.ProcessRequest(context.Background(), "DateTime", request.Params("DateTime", tc.in))
			require.NoError(t, err)
			got, err := out.Value("DateTime").AsTime()
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
		})
	}

	for _, bad := range []string{"InputEnd", "${Missing}", "yesterday"} {
		_, err := p.ProcessRequest(context.Background(), "DateTime", request.Params("DateTime", bad))
		assert.Error(t, err, bad)
	}
}

func TestRequests_TimeSeries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := New(Options{})
	a, b := series(t, "A.B.Flow.Day"), series(t, "A.B.Stage.Day")
	b.Alias = "Stage"

	for _, ts := range []*timeseries.TimeSeries{a, b} {
		_, err := p.ProcessRequest(ctx, "ProcessTimeSeriesAction", request.Params("Action", ActionAdd, "TS", ts))
		require.NoError(t, err)
	}

	out, err := p.ProcessRequest(ctx, "IndexOf", request.Params("TSID", "stage"))
	require.NoError(t, err)
	assert.Equal(t, "1", out.Text("Index"))

	out, err = p.ProcessRequest(ctx, "GetTimeSeries", request.Params("Index", 0))
	require.NoError(t, err)
	got, err := props.ObjectAs[*timeseries.TimeSeries](out.Value("TS"))
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = p.ProcessRequest(ctx, "GetTimeSeries", request.Params("Index", 5))
	assert.Error(t, err)

	selected := func(mode, tsid string) []int {
		t.Helper()
		out, err := p.ProcessRequest(ctx, "GetTimeSeriesToProcess", request.Params("TSList", mode, "TSID", tsid))
		require.NoError(t, err)
		indices, err := props.ObjectAs[[]int](out.Value("Indices"))
		require.NoError(t, err)
		list, err := out.Value("TSList").AsTimeSeriesList()
		require.NoError(t, err)
		require.Len(t, list, len(indices))
		return indices
	}
	assert.Equal(t, []int{0, 1}, selected("AllTS", ""))
	assert.Equal(t, []int{0, 1}, selected("AllMatchingTSID", "A.B.*"))
	assert.Equal(t, []int{1}, selected("LastMatchingTSID", "A.B.*"))
	assert.Equal(t, []int{1}, selected("AllMatchingTSID", "Stage"))
	assert.Empty(t, selected("AllMatchingTSID", "Z.*"))

	_, err = p.ProcessRequest(ctx, "GetTimeSeriesToProcess", request.Params("TSList", "AllMatchingTSID"))
	assert.Error(t, err)
	_, err = p.ProcessRequest(ctx, "GetTimeSeriesToProcess", request.Params("TSList", "Some"))
	assert.Error(t, err)

	filled := a.Clone()
	out, err = p.ProcessRequest(ctx, "ProcessTimeSeriesAction", request.Params("Action", ActionUpdate, "Index", 0, "TS", filled))
	require.NoError(t, err)
	assert.Equal(t, "0", out.Text("Index"))
	list, err := p.State().Get(PropTSResultsList).AsTimeSeriesList()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Same(t, filled, list[0])
	assert.Same(t, b, list[1])

	_, err = p.ProcessRequest(ctx, "ProcessTimeSeriesAction", request.Params("Action", "Remove", "TS", a))
	assert.Error(t, err)
	_, err = p.ProcessRequest(ctx, "ProcessTimeSeriesAction", request.Params("Action", ActionAdd, "TS", "text"))
	assert.Error(t, err)
}

type closer struct {
	closed int
	err    error
}

func (c *closer) Close() error {
	c.closed++
	return c.err
}

var _ io.Closer = (*closer)(nil)

func TestRequests_DataStores(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := New(Options{})
	first, second := &closer{}, &closer{err: errors.New("disk gone")}

	_, err := p.ProcessRequest(ctx, "SetDataStore", request.Params("DataStore", "HydroBase", "Handle", first))
	require.NoError(t, err)
	out, err := p.ProcessRequest(ctx, "GetDataStore", request.Params("DataStore", "hydrobase"))
	require.NoError(t, err)
	got, err := props.ObjectAs[*closer](out.Value("Handle"))
	require.NoError(t, err)
	assert.Same(t, first, got)

	_, err = p.ProcessRequest(ctx, "SetDataStore", request.Params("DataStore", "HydroBase", "Handle", second))
	require.NoError(t, err)
	assert.Equal(t, 1, first.closed, "a replaced datastore is closed")
	assert.Equal(t, "HydroBase", p.State().Get(PropDataStoreNames).String())

	_, err = p.ProcessRequest(ctx, "GetDataStore", request.Params("DataStore", "Other"))
	assert.Error(t, err)
	_, err = p.ProcessRequest(ctx, "SetDataStore", request.Params("DataStore", "X"))
	assert.Error(t, err)

	err = p.Close()
	assert.ErrorContains(t, err, "disk gone")
	assert.Equal(t, 1, second.closed)
	assert.Equal(t, "", p.State().Get(PropDataStoreNames).String())
}

func TestRequests_Names(t *testing.T) {
	t.Parallel()
	p := New(Options{})
	assert.Equal(t, []string{
		"CancelProcessing", "DateTime", "ExpandString", "GetDataStore", "GetProperties", "GetProperty",
		"GetTimeSeries", "GetTimeSeriesToProcess", "IndexOf", "ProcessTimeSeriesAction", "SetDataStore", "SetProperty",
	}, p.Requests())

	_, err := p.ProcessRequest(context.Background(), "Nope", nil)
	var unknown *request.UnknownRequestError
	assert.ErrorAs(t, err, &unknown)
}
