package writets_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/testutil"
	"github.com/specialistvlad/tsflow/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = `Date,A.B.Flow.Day,A.B.Stage.Day
2020-01-01,1,10
2020-01-02,,11
2020-01-03,3,12
`

func setup(t *testing.T, script string) (string, *processor.Processor, *processor.RunResult) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.csv"), []byte(input), 0o644))
	initial := props.New()
	initial.SetString(processor.PropWorkingDir, dir, props.HowSetFromPersistent)

	p := testutil.NewProcessor(t, script, initial)
	ctx, _ := testutil.Context(t)
	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	return dir, p, res
}

func TestWriteTimeSeries_CSV(t *testing.T) {
	dir, _, res := setup(t, `ReadTimeSeries(InputFile="in.csv")
FillConstant(TSList=AllTS, ConstantValue=0)
WriteTimeSeries(OutputFile="out/all.csv")
writeTimeSeries(OutputFile="out/stage.csv", TSID="A.B.Stage.Day")
`)
	require.True(t, res.Success(), "%+v", res.Commands)

	all, err := os.ReadFile(filepath.Join(dir, "out", "all.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,A.B.Flow.Day,A.B.Stage.Day\n2020-01-01,1,10\n2020-01-02,0,11\n2020-01-03,3,12\n", string(all))

	stage, err := os.ReadFile(filepath.Join(dir, "out", "stage.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Date,A.B.Stage.Day\n2020-01-01,10\n2020-01-02,11\n2020-01-03,12\n", string(stage))
}

func TestWriteTimeSeries_DataStoreRoundTrip(t *testing.T) {
	_, p, res := setup(t, `OpenDataStore(DataStore=Hydro, DatabaseFile="hydro.db")
ReadTimeSeries(InputFile="in.csv")
WriteTimeSeries(DataStore=Hydro)
Copy = ReadTimeSeries(DataStore=Hydro, TSID="A.B.Flow.Day")
ReadTimeSeries(DataStore=hydro, TSID="A.B.*", InputStart="2020-01-02")
`)
	require.True(t, res.Success(), "%+v", res.Commands)

	list, err := p.State().Get(processor.PropTSResultsList).AsTimeSeriesList()
	require.NoError(t, err)
	require.Len(t, list, 5)

	cp := list[2]
	assert.Equal(t, "Copy", cp.Alias)
	assert.Equal(t, "Hydro", cp.Ident.InputType)
	assert.Equal(t, 3, cp.Len())
	assert.Equal(t, 1, cp.MissingCount())

	assert.Equal(t, "A.B.Flow.Day", list[3].Ident.Key())
	assert.Equal(t, 2, list[3].Len())
	assert.Equal(t, "A.B.Stage.Day", list[4].Ident.Key())
}

func TestWriteTimeSeries_Problems(t *testing.T) {
	_, _, res := setup(t, `WriteTimeSeries(OutputFile="none.csv")
WriteTimeSeries(OutputFile="x.csv", DataStore=Hydro)
WriteTimeSeries(OutputFile="x.csv", TSList=LastMatchingTSID)
ReadTimeSeries(InputFile="in.csv")
WriteTimeSeries(DataStore=Missing)
`)
	require.Len(t, res.Commands, 5)
	assert.Equal(t, diag.Warning, res.Commands[0].Severity(diag.Run), "nothing to write")
	assert.Equal(t, diag.Failure, res.Commands[1].Severity(diag.Initialization))
	assert.Equal(t, diag.Failure, res.Commands[2].Severity(diag.Initialization))
	assert.Equal(t, diag.Failure, res.Commands[4].Severity(diag.Run))
}

func TestWriteTimeSeries_Placeholder(t *testing.T) {
	p := testutil.NewProcessor(t, "# write only\nWriteTimeSeries(OutputFile=\"out.csv\")", nil)
	placeholder := timeseries.NewPlaceholder(timeseries.MustParseIdent("A.B.Flow.Day"))
	require.NoError(t, p.State().Set(processor.PropTSResultsList, props.TimeSeriesValue([]*timeseries.TimeSeries{placeholder}), props.HowSetRuntime))

	ctx, _ := testutil.Context(t)
	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run, From: 1})
	require.NoError(t, err)
	assert.Equal(t, diag.Failure, res.Commands[0].Severity(diag.Run))
}
