package diag_test

import (
	"testing"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSeverity_Ordering(t *testing.T) {
	require.Less(t, diag.Unknown, diag.Success)
	require.Less(t, diag.Success, diag.Info)
	require.Less(t, diag.Info, diag.Warning)
	require.Less(t, diag.Warning, diag.Failure)
}

func TestParseSeverityAndPhase(t *testing.T) {
	s, err := diag.ParseSeverity(" warning ")
	require.NoError(t, err)
	require.Equal(t, diag.Warning, s)
	_, err = diag.ParseSeverity("fatal")
	require.Error(t, err)

	p, err := diag.ParsePhase("run")
	require.NoError(t, err)
	require.Equal(t, diag.Run, p)
	_, err = diag.ParsePhase("cleanup")
	require.Error(t, err)
}

func TestSeverityAndPhase_YAML(t *testing.T) {
	type doc struct {
		Severity diag.Severity `yaml:"severity"`
		Phase    diag.Phase    `yaml:"phase"`
	}
	out, err := yaml.Marshal(doc{Severity: diag.Failure, Phase: diag.Discovery})
	require.NoError(t, err)
	require.Equal(t, "severity: FAILURE\nphase: DISCOVERY\n", string(out))

	var back doc
	require.NoError(t, yaml.Unmarshal(out, &back))
	require.Equal(t, diag.Failure, back.Severity)
	require.Equal(t, diag.Discovery, back.Phase)
}

func TestDiagnostics_AggregateIsCached(t *testing.T) {
	d := diag.New()
	d.Add(diag.Run, diag.Warning, "late data", "")
	require.Equal(t, diag.Unknown, d.Severity(diag.Run), "aggregate changes only on Refresh")
	require.Equal(t, diag.Warning, d.Highest(diag.Run))

	d.Refresh()
	require.Equal(t, diag.Warning, d.Severity(diag.Run))
	require.Equal(t, diag.Unknown, d.Severity(diag.Discovery), "a phase that never ran stays unknown")
	require.Equal(t, diag.Warning, d.Max())
}

func TestDiagnostics_ClearedPhaseIsSuccess(t *testing.T) {
	d := diag.New()
	d.Clear(diag.Initialization)
	d.Refresh()
	require.True(t, d.Ran(diag.Initialization))
	require.Equal(t, diag.Success, d.Severity(diag.Initialization))

	d.Reset(diag.Initialization)
	d.Refresh()
	require.False(t, d.Ran(diag.Initialization))
	require.Equal(t, diag.Unknown, d.Severity(diag.Initialization))
}

// Refreshing again without new records changes nothing.
func TestDiagnostics_RefreshIsIdempotent(t *testing.T) {
	d := diag.New()
	d.Add(diag.Initialization, diag.Info, "note", "")
	d.Add(diag.Run, diag.Failure, "broken", "fix it")
	d.Add(diag.Run, diag.Warning, "odd", "")

	d.Refresh()
	first := []diag.Severity{d.Severity(diag.Initialization), d.Severity(diag.Discovery), d.Severity(diag.Run)}
	d.Refresh()
	d.Refresh()
	second := []diag.Severity{d.Severity(diag.Initialization), d.Severity(diag.Discovery), d.Severity(diag.Run)}

	require.Equal(t, first, second)
	require.Equal(t, []diag.Severity{diag.Info, diag.Unknown, diag.Failure}, second)
}

func TestDiagnostics_Queries(t *testing.T) {
	d := diag.New()
	d.Add(diag.Run, diag.Warning, "w1", "")
	d.Addf(diag.Run, diag.Failure, "check input", "missing %d values", 3)
	d.Add(diag.Run, diag.Warning, "w2", "")

	require.Equal(t, 2, d.Count(diag.Run, diag.Warning))
	require.Equal(t, []string{"missing 3 values"}, d.Messages(diag.Run, diag.Failure))
	require.Equal(t, []string{"w1", "missing 3 values", "w2"}, d.Messages(diag.Run, diag.Warning))

	records := d.Records(diag.Run)
	require.Len(t, records, 3)
	require.Equal(t, "FAILURE: missing 3 values (check input)", records[1].String())
	records[0].Message = "changed"
	require.Equal(t, "w1", d.Records(diag.Run)[0].Message, "Records returns a copy")

	d.Clear(diag.Run)
	require.Empty(t, d.Records(diag.Run))
}
