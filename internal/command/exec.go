package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/tsflow/internal/diag"
	"github.com/specialistvlad/tsflow/internal/props"
	"github.com/specialistvlad/tsflow/internal/request"
)

// Request sends a request and, when it fails, records a FAILURE in phase of
// d. ok is false on failure; the caller is expected to stop the work that
// depended on the result.
func Request(ctx context.Context, req request.Requester, d *diag.Diagnostics, phase diag.Phase, name string, params *props.Bag) (results *props.Bag, ok bool) {
	results, err := req.ProcessRequest(ctx, name, params)
	if err == nil {
		return results, true
	}

	var unknown *request.UnknownRequestError
	if errors.As(err, &unknown) {
		d.Add(phase, diag.Failure,
			fmt.Sprintf("Processor does not support the %s request.", unknown.Name),
			"This is a software problem. Report it to the developers.")
		return nil, false
	}
	d.Add(phase, diag.Failure, err.Error(), "Check the log file for details.")
	return nil, false
}

// Result reads a key that a successful request must have returned, recording
// a FAILURE when it is missing.
func Result(results *props.Bag, d *diag.Diagnostics, phase diag.Phase, requestName, key string) (props.Value, bool) {
	v, ok := results.Get(key)
	if !ok || v.IsAbsent() {
		d.Add(phase, diag.Failure,
			fmt.Sprintf("Processor returned no %s from the %s request.", key, requestName),
			"This is a software problem. Report it to the developers.")
		return props.Value{}, false
	}
	return v, true
}

// Expand replaces ${Property} references in s using the processor. Text
// without references is returned unchanged without a request.
func Expand(ctx context.Context, req request.Requester, s string) (string, error) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	results, err := req.ProcessRequest(ctx, "ExpandString", request.Params("Text", s))
	if err != nil {
		return "", err
	}
	return results.GetString("Text")
}

// RequestDateTime parses a date/time string through the processor, which
// knows about ${Property} references and the InputStart/InputEnd keywords.
func RequestDateTime(ctx context.Context, req request.Requester, s string) (time.Time, error) {
	results, err := req.ProcessRequest(ctx, "DateTime", request.Params("DateTime", s))
	if err != nil {
		return time.Time{}, err
	}
	v, ok := results.Get("DateTime")
	if !ok {
		return time.Time{}, fmt.Errorf("no DateTime returned for %q", s)
	}
	return v.AsTime()
}
