package opendatastore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/processor"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/testutil"
	"github.com/specialistvlad/tsflow/internal/tsdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDataStore(t *testing.T) {
	dir := t.TempDir()
	initial := props.New()
	initial.SetString(processor.PropWorkingDir, dir, props.HowSetFromPersistent)
	initial.SetString("Basin", "upper", props.HowSetFromPersistent)

	p := testutil.NewProcessor(t, `OpenDataStore(DataStore="${Basin}", DatabaseFile="db/${Basin}.db")
OpenDataStore(DataStore=Scratch, DatabaseFile=":memory:")
OpenDataStore(DataStore=Broken, DatabaseFile="missing/dir/that/cannot/exist/x.db")
OpenDataStore(DataStore=OnlyName)
`, initial)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "db"), 0o755))
	ctx, _ := testutil.Context(t)

	res, err := p.Run(ctx, processor.RunOptions{Phase: diag.Run})
	require.NoError(t, err)
	require.Len(t, res.Commands, 4)
	assert.Equal(t, diag.Success, res.Commands[0].Severity(diag.Run))
	assert.Equal(t, diag.Success, res.Commands[1].Severity(diag.Run))
	assert.Equal(t, diag.Failure, res.Commands[2].Severity(diag.Run))
	assert.Equal(t, diag.Failure, res.Commands[3].Severity(diag.Initialization))

	assert.Equal(t, "Scratch,upper", p.State().Get(processor.PropDataStoreNames).String())
	handle, ok := p.State().DataStore("UPPER")
	require.True(t, ok)
	store, ok := handle.(*tsdb.Store)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "db", "upper.db"), store.Path())
	assert.FileExists(t, store.Path())
}
