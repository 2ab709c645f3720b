package readts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/testutil"
	"github.com/specialistvlad/tsflow/internal/timeseries"
	"github.com/specialistvlad/tsflow/internal/tsdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flows = `Date,A.B.Flow.Day,A.B.Stage.Day
2020-01-01,1,10
2020-01-02,,11
2020-01-03,3,12
2020-01-04,4,13
`

func workspace(t *testing.T) *props.Bag {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.csv"), []byte(flows), 0o644))
	initial := props.New()
	initial.SetString(processor.PropWorkingDir, dir, props.HowSetFromPersistent)
	return initial
}

func results(t *testing.T, p *processor.Processor) []*timeseries.TimeSeries {
	t.Helper()
	list, err := p.State().Get(processor.PropTSResultsList).AsTimeSeriesList()
	require.NoError(t, err)
	return list
}

func TestReadTimeSeries_CSV(t *testing.T) {
	initial := workspace(t)
	p := testutil.NewProcessor(t, `
Flow = ReadTimeSeries(TSID="A.B.Flow.Day", InputFile="in.csv", InputStart="2020-01-02", InputEnd="2020-01-03")
readTimeSeries(InputFile="${WorkingDir}/in.csv")
`, initial)
	ctx, _ := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	require.True(t, res.Success(), "%+v", res.Commands)

	list := results(t, p)
	require.Len(t, list, 3)
	flow := list[0]
	assert.Equal(t, "Flow", flow.Alias)
	assert.Equal(t, 2, flow.Len())
	assert.True(t, flow.Start().Equal(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "CSV", flow.Ident.InputType)
	assert.Equal(t, filepath.Join(initial.Text(processor.PropWorkingDir), "in.csv"), flow.Ident.InputName)
	assert.Equal(t, 4, list[1].Len())
	assert.Equal(t, "A.B.Stage.Day", list[2].Ident.Key())
}

func TestReadTimeSeries_UsesGlobalInputPeriod(t *testing.T) {
	initial := workspace(t)
	p := testutil.NewProcessor(t, `
SetInputPeriod(InputStart="2020-01-03")
ReadTimeSeries(TSID="A.B.Stage.Day", InputFile="in.csv")
`, initial)
	ctx, _ := testutil.Context(t)

	_, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	list := results(t, p)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Len())
	v, ok := list[0].Value(time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 12.0, v)
}

func TestReadTimeSeries_DiscoveryCreatesPlaceholders(t *testing.T) {
	p := testutil.NewProcessor(t, `
Flow = ReadTimeSeries(TSID="A.B.Flow.Day", InputFile="missing.csv")
ReadTimeSeries(TSID="A.B.*", InputFile="missing.csv")
`, workspace(t))
	ctx, _ := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Discovery})
	require.NoError(t, err)
	assert.True(t, res.Success(), "discovery reads nothing")
	assert.Empty(t, results(t, p), "discovery never touches run results")

	objects := p.DiscoveredObjects(p.Len())
	require.Len(t, objects, 1)
	ts := objects[0].(*timeseries.TimeSeries)
	assert.True(t, ts.IsPlaceholder())
	assert.Equal(t, "Flow", ts.Alias)
}

func TestReadTimeSeries_Problems(t *testing.T) {
	p := testutil.NewProcessor(t, `
ReadTimeSeries(TSID="A.B.Flow.Day")
ReadTimeSeries(DataStore="hydro")
ReadTimeSeries(TSID="A.B.Flow", InputFile="in.csv")
ReadTimeSeries(InputFile="missing.csv")
ReadTimeSeries(TSID="X.Y.Z.Day", InputFile="in.csv")
ReadTimeSeries(TSID="A.B.Flow.Day", DataStore="nowhere")
ReadTimeSeries(InputFile="in.csv")
`, workspace(t))
	ctx, _ := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	require.Len(t, res.Commands, 7)

	for i := 0; i < 3; i++ {
		assert.False(t, res.Commands[i].Executed, "command %d fails its checks", i)
		assert.Equal(t, diag.Failure, res.Commands[i].Severity(diag.Initialization))
	}
	assert.Equal(t, diag.Failure, res.Commands[3].Severity(diag.Run))
	assert.Equal(t, diag.Warning, res.Commands[4].Severity(diag.Run))
	assert.Equal(t, diag.Failure, res.Commands[5].Severity(diag.Run))
	assert.Equal(t, diag.Success, res.Commands[6].Severity(diag.Run), "later commands still run")
	assert.Len(t, results(t, p), 2)
}

func TestReadTimeSeries_DataStoreKeepsReadableSeries(t *testing.T) {
	initial := workspace(t)
	dir := initial.Text(processor.PropWorkingDir)

	ctx := context.Background()
	store, err := tsdb.Open(ctx, filepath.Join(dir, "hydro.db"))
	require.NoError(t, err)
	day := func(d int) time.Time { return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC) }
	flow, err := timeseries.New(timeseries.MustParseIdent("A.B.Flow.Day"), day(1), day(3))
	require.NoError(t, err)
	for i := 0; i < flow.Len(); i++ {
		flow.SetValueAt(i, float64(i+1))
	}
	require.NoError(t, store.Write(ctx, flow))
	// Every value missing, so the series has no stored values to read.
	empty, err := timeseries.New(timeseries.MustParseIdent("A.B.Empty.Day"), day(1), day(3))
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, empty))
	require.NoError(t, store.Close())

	p := testutil.NewProcessor(t, `
OpenDataStore(DataStore=H, DatabaseFile="hydro.db")
ReadTimeSeries(DataStore=H, TSID="A.B.*")
ReadTimeSeries(DataStore=H, TSID="A.B.Empty.Day")
`, initial)
	runCtx, _ := testutil.Context(t)

	res, err := p.Run(runCtx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	require.Len(t, res.Commands, 3)
	assert.Equal(t, diag.Success, res.Commands[0].Severity(diag.Run))
	assert.Equal(t, diag.Warning, res.Commands[1].Severity(diag.Run), "one of two series read")
	assert.Equal(t, diag.Failure, res.Commands[2].Severity(diag.Run), "nothing read")

	list := results(t, p)
	require.Len(t, list, 1)
	assert.Equal(t, "A.B.Flow.Day", list[0].Ident.Key())
	assert.Equal(t, "H", list[0].Ident.InputType)
	v, ok := list[0].Value(day(3))
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
	messages := p.Commands()[1].Diagnostics().Messages(diag.Run, diag.Warning)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "A.B.Empty.Day")
}
