// Package bench compares two `go test -bench` output captures — a stored
// baseline against a candidate run — and reports whether throughput
// regressed, the way the teacher's loadtest command compared runs against
// a saved baseline before flagging a regression.
package bench

import (
	"bytes"
	"fmt"

	"golang.org/x/perf/benchstat"
)

// Report is the statistical comparison between a baseline and candidate
// set of benchmark results, one row per benchmark name shared by both.
type Report struct {
	Tables []*benchstat.Table
	Text   string
}

// CompareBenchmarks parses baseline and candidate (each the raw text
// produced by `go test -bench=. -benchmem`) and computes the delta
// between them, labeling the two inputs "old" and "new" in the report.
func CompareBenchmarks(baseline, candidate []byte) (*Report, error) {
	var c benchstat.Collection
	if err := c.AddFile("old", bytes.NewReader(baseline)); err != nil {
		return nil, fmt.Errorf("bench: parse baseline: %w", err)
	}
	if err := c.AddFile("new", bytes.NewReader(candidate)); err != nil {
		return nil, fmt.Errorf("bench: parse candidate: %w", err)
	}

	tables := c.Tables()

	var buf bytes.Buffer
	benchstat.FormatText(&buf, tables)

	return &Report{Tables: tables, Text: buf.String()}, nil
}

// Regressed returns the names of benchmarks whose mean, in any metric
// table, rose from the old to the new configuration by more than
// thresholdPercent. Every metric is treated as lower-is-better, so a rise
// in a higher-is-better metric such as MB/s is reported as well.
func (r *Report) Regressed(thresholdPercent float64) []string {
	var names []string
	for _, t := range r.Tables {
		for _, row := range t.Rows {
			if len(row.Metrics) < 2 {
				continue
			}
			oldMean := row.Metrics[0].Mean
			newMean := row.Metrics[1].Mean
			if oldMean <= 0 {
				continue
			}
			deltaPercent := (newMean - oldMean) / oldMean * 100
			if deltaPercent > thresholdPercent {
				names = append(names, row.Benchmark)
			}
		}
	}
	return names
}
