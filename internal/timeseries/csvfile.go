package timeseries

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateColumn is the header of the first column of a time series CSV file.
const DateColumn = "Date"

// ReadCSV reads a delimited file whose first column holds dates and whose
// remaining columns each hold one series, named by the TSID in the header.
// Empty cells are missing values. Every series must share one interval.
func ReadCSV(r io.Reader) ([]*TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("time series file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) < 2 || !strings.EqualFold(strings.TrimSpace(header[0]), DateColumn) {
		return nil, fmt.Errorf("header must start with %q followed by at least one TSID column", DateColumn)
	}

	ids := make([]Ident, 0, len(header)-1)
	var iv Interval
	for _, col := range header[1:] {
		id, err := ParseIdent(col)
		if err != nil {
			return nil, fmt.Errorf("header column: %w", err)
		}
		if iv.IsZero() {
			iv = id.ParsedInterval()
		} else if id.ParsedInterval() != iv {
			return nil, fmt.Errorf("column %q has interval %s, expected %s", col, id.Interval, iv)
		}
		ids = append(ids, id)
	}

	type row struct {
		date   time.Time
		fields []string
	}
	var rows []row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		date, err := time.Parse(iv.Base.layout(), strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q for interval %s", line, rec[0], iv)
		}
		rows = append(rows, row{date: date, fields: rec[1:]})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("time series file has no data rows")
	}

	start, end := rows[0].date, rows[0].date
	for _, r := range rows[1:] {
		if r.date.Before(start) {
			start = r.date
		}
		if r.date.After(end) {
			end = r.date
		}
	}

	out := make([]*TimeSeries, len(ids))
	for i, id := range ids {
		ts, err := New(id, start, end)
		if err != nil {
			return nil, err
		}
		out[i] = ts
	}
	for _, r := range rows {
		for i, cell := range r.fields {
			if i >= len(out) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("date %s column %q: invalid number %q", iv.Format(r.date), ids[i].Key(), cell)
			}
			if err := out[i].SetValue(r.date, v); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// WriteCSV writes series in the layout read by ReadCSV, over the union of
// their periods.
func WriteCSV(w io.Writer, list []*TimeSeries) error {
	if len(list) == 0 {
		return fmt.Errorf("no time series to write")
	}
	iv := list[0].Interval()
	var start, end time.Time
	header := []string{DateColumn}
	for i, ts := range list {
		if ts.IsPlaceholder() {
			return fmt.Errorf("time series %q has no data", ts.Label())
		}
		if ts.Interval() != iv {
			return fmt.Errorf("time series %q has interval %s, expected %s", ts.Label(), ts.Interval(), iv)
		}
		if i == 0 || ts.Start().Before(start) {
			start = ts.Start()
		}
		if i == 0 || ts.End().After(end) {
			end = ts.End()
		}
		header = append(header, ts.Ident.Key())
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for t := start; !t.After(end); t = iv.Add(t, 1) {
		rec := []string{iv.Format(t)}
		for _, ts := range list {
			v, ok := ts.Value(t)
			if !ok || math.IsNaN(v) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
