package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() *processor.RunResult {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &processor.RunResult{
		RunID:    "run-1",
		Phase:    diag.Run,
		Started:  started,
		Finished: started.Add(1500 * time.Millisecond),
		Commands: []processor.CommandResult{
			{
				Index: 0, Name: "ReadTimeSeries", Text: `ReadTimeSeries(TSID="A.B.C.Day")`,
				Executed: true, State: "EXECUTED_RUN",
				Phases: []processor.PhaseResult{
					{Phase: diag.Initialization, Severity: diag.Success},
					{Phase: diag.Run, Severity: diag.Success},
				},
			},
			{
				Index: 2, Name: "FillConstant", Text: `FillConstant(TSID="A.B.C.Day",ConstantValue="x")`,
				State: "PARSED",
				Phases: []processor.PhaseResult{{
					Phase: diag.Initialization, Severity: diag.Failure,
					Records: []diag.LogRecord{{Severity: diag.Failure, Message: "The ConstantValue value \"x\" is not a number.", Recommendation: "Specify ConstantValue as a number."}},
				}},
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()
	rep := New("flow.tsflow", sampleRun())
	assert.False(t, rep.Success)
	assert.Equal(t, diag.Failure, rep.Severity)
	require.NotNil(t, rep.FirstFailure)
	assert.Equal(t, 2, *rep.FirstFailure)
	assert.Equal(t, "1.5s", rep.Duration)
}

func TestWriteRead(t *testing.T) {
	t.Parallel()
	ok := &processor.RunResult{RunID: "run-2", Phase: diag.Discovery}
	reports := []*Report{New("a.tsflow", sampleRun()), New("b.tsflow", ok)}
	assert.Nil(t, reports[1].FirstFailure)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, reports...))
	assert.Contains(t, buf.String(), "phase: RUN\n")
	assert.Contains(t, buf.String(), "severity: FAILURE\n")
	assert.Contains(t, buf.String(), "\n---\n")

	got, err := Read(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(reports, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.yaml")
	require.NoError(t, WriteFile(path, New("a.tsflow", sampleRun())))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := Read(f)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a.tsflow", got[0].Script)

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "report.yaml")))
}
