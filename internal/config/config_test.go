package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "tsflow.hcl")
	src := `
working_dir      = "/data/project"
log_level        = "debug"
input_start      = "2020-01-01"
input_end        = "2020-12-31"
healthcheck_port = 8080

properties = {
  Basin = "Upper"
}

datastore "hydro" {
  path = "hydro.db"
}

datastore "scratch" {
  path = ":memory:"
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	got, err := Load(path)
	require.NoError(t, err)
	want := &File{
		WorkingDir:      "/data/project",
		LogLevel:        "debug",
		InputStart:      "2020-01-01",
		InputEnd:        "2020-12-31",
		HealthcheckPort: 8080,
		Properties:      map[string]string{"Basin": "Upper"},
		DataStores: []*DataStore{
			{Name: "hydro", Path: filepath.Join(dir, "hydro.db")},
			{Name: "scratch", Path: ":memory:"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	testCases := map[string]string{
		"syntax":          `log_level = `,
		"unknown setting": `workers = 4`,
		"negative port":   `healthcheck_port = -1`,
		"duplicate datastore": `
datastore "a" { path = "a.db" }
datastore "a" { path = "b.db" }`,
		"missing path": `datastore "a" {}`,
	}
	for name, src := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), "test.hcl")
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "nope.hcl"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
