package timeseries

import "time"

// clampRange converts an optional date range into value indices. Zero times
// mean the start or end of the series.
func (ts *TimeSeries) clampRange(start, end time.Time) (int, int) {
	first, last := 0, len(ts.values)-1
	if !start.IsZero() {
		start = ts.interval.Truncate(start)
		if start.After(ts.start) {
			first = ts.interval.Steps(ts.start, start)
		}
	}
	if !end.IsZero() {
		end = ts.interval.Truncate(end)
		if end.Before(ts.start) {
			return 0, -1
		}
		if i := ts.interval.Steps(ts.start, end); i < last {
			last = i
		}
	}
	return first, last
}

// FillConstant replaces missing values in [start, end] with value and
// returns how many values were filled.
func FillConstant(ts *TimeSeries, value float64, start, end time.Time) int {
	first, last := ts.clampRange(start, end)
	filled := 0
	for i := first; i <= last; i++ {
		if IsMissing(ts.values[i]) {
			ts.values[i] = value
			filled++
		}
	}
	return filled
}

// FillInterpolate linearly interpolates interior gaps. Gaps longer than
// maxIntervals are left untouched; maxIntervals <= 0 means no limit. Leading
// and trailing gaps are never filled. It returns how many values were filled.
func FillInterpolate(ts *TimeSeries, maxIntervals int) int {
	filled := 0
	prev := -1
	for i, v := range ts.values {
		if IsMissing(v) {
			continue
		}
		gap := i - prev - 1
		if prev >= 0 && gap > 0 && (maxIntervals <= 0 || gap <= maxIntervals) {
			v0 := ts.values[prev]
			step := (v - v0) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				ts.values[j] = v0 + step*float64(j-prev)
				filled++
			}
		}
		prev = i
	}
	return filled
}
