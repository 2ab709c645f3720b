package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
	"github.com/specialistvlad/tsflow/internal/timeseries"
)

// Selection is the set of result series a command works on, with their
// positions in the result collection.
type Selection struct {
	List    []*timeseries.TimeSeries
	Indices []int
}

// Len returns the number of selected series.
func (s Selection) Len() int { return len(s.List) }

// SelectTimeSeries asks the processor for the series a command should
// process. tsList is one of AllTS, AllMatchingTSID or LastMatchingTSID.
func SelectTimeSeries(ctx context.Context, req request.Requester, d *diag.Diagnostics, phase diag.Phase, tsList, tsid string) (Selection, bool) {
	tsid, err := Expand(ctx, req, tsid)
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Cannot expand TSID: %v", err), "Check the property references.")
		return Selection{}, false
	}
	results, ok := Request(ctx, req, d, phase, "GetTimeSeriesToProcess", request.Params("TSList", tsList, "TSID", tsid))
	if !ok {
		return Selection{}, false
	}
	listValue, ok := Result(results, d, phase, "GetTimeSeriesToProcess", "TSList")
	if !ok {
		return Selection{}, false
	}
	list, err := listValue.AsTimeSeriesList()
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Unexpected TSList result: %v", err), "This is a software problem. Report it to the developers.")
		return Selection{}, false
	}
	indices, err := props.ObjectAs[[]int](results.Value("Indices"))
	if err != nil || len(indices) != len(list) {
		d.Add(phase, diag.Failure, "Unexpected Indices result.", "This is a software problem. Report it to the developers.")
		return Selection{}, false
	}
	return Selection{List: list, Indices: indices}, true
}

// AddTimeSeries appends ts to the result collection and returns its index.
func AddTimeSeries(ctx context.Context, req request.Requester, d *diag.Diagnostics, phase diag.Phase, ts *timeseries.TimeSeries) (int, bool) {
	results, ok := Request(ctx, req, d, phase, "ProcessTimeSeriesAction", request.Params("Action", "Add", "TS", ts))
	if !ok {
		return -1, false
	}
	v, ok := Result(results, d, phase, "ProcessTimeSeriesAction", "Index")
	if !ok {
		return -1, false
	}
	i, err := v.AsInt()
	if err != nil {
		d.Add(phase, diag.Failure, fmt.Sprintf("Unexpected Index result: %v", err), "This is a software problem. Report it to the developers.")
		return -1, false
	}
	return int(i), true
}

// UpdateTimeSeries replaces the result at index with ts.
func UpdateTimeSeries(ctx context.Context, req request.Requester, d *diag.Diagnostics, phase diag.Phase, index int, ts *timeseries.TimeSeries) bool {
	_, ok := Request(ctx, req, d, phase, "ProcessTimeSeriesAction", request.Params("Action", "Update", "Index", index, "TS", ts))
	return ok
}

// ResolvePath expands property references in path and makes it absolute,
// relative to the WorkingDir property or, when that is unset, the process
// working directory.
func ResolvePath(ctx context.Context, req request.Requester, path string) (string, error) {
	path, err := Expand(ctx, req, path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	base := ""
	if v, err := req.PropContents("WorkingDir"); err == nil && !v.IsAbsent() {
		base = v.String()
	}
	if base == "" {
		if base, err = os.Getwd(); err != nil {
			return "", fmt.Errorf("resolving %q: %w", path, err)
		}
	}
	return filepath.Join(base, path), nil
}
