// Package config loads the optional HCL configuration file. Every setting
// can also be given on the command line, which takes precedence.
//
// Example:
//
//	working_dir      = "/data/project"
//	log_level        = "debug"
//	input_start      = "2020-01-01"
//	input_end        = "2020-12-31"
//	healthcheck_port = 8080
//
//	properties = {
//	  Basin = "Upper"
//	}
//
//	datastore "hydro" {
//	  path = "hydro.db"
//	}
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// File is the decoded configuration file.
type File struct {
	WorkingDir      string            `hcl:"working_dir,optional"`
	LogLevel        string            `hcl:"log_level,optional"`
	LogFormat       string            `hcl:"log_format,optional"`
	InputStart      string            `hcl:"input_start,optional"`
	InputEnd        string            `hcl:"input_end,optional"`
	HealthcheckPort int               `hcl:"healthcheck_port,optional"`
	ProgressURL     string            `hcl:"progress_url,optional"`
	Report          string            `hcl:"report,optional"`
	Properties      map[string]string `hcl:"properties,optional"`
	DataStores      []*DataStore      `hcl:"datastore,block"`
}

// DataStore declares a database opened before the script runs.
type DataStore struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// Load reads and decodes the file at path. Relative datastore paths are
// resolved against the file's directory.
func Load(path string) (*File, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	f, err := Parse(src, path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for _, ds := range f.DataStores {
		if ds.Path != ":memory:" && !filepath.IsAbs(ds.Path) {
			ds.Path = filepath.Join(dir, ds.Path)
		}
	}
	return f, nil
}

// Parse decodes configuration source. filename is used in error messages.
func Parse(src []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var f File
	diags = gohcl.DecodeBody(hclFile.Body, nil, &f)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return &f, nil
}

func (f *File) validate() error {
	seen := make(map[string]struct{})
	for _, ds := range f.DataStores {
		if ds.Name == "" {
			return fmt.Errorf("datastore name cannot be empty")
		}
		if ds.Path == "" {
			return fmt.Errorf("datastore %q needs a path", ds.Name)
		}
		if _, dup := seen[ds.Name]; dup {
			return fmt.Errorf("datastore %q is declared twice", ds.Name)
		}
		seen[ds.Name] = struct{}{}
	}
	if f.HealthcheckPort < 0 {
		return fmt.Errorf("healthcheck_port cannot be negative")
	}
	return nil
}
