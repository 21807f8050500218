package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	sorted := make([]time.Duration, 100)
	for i := range sorted {
		sorted[i] = time.Duration(i+1) * time.Millisecond
	}
	assert.Equal(t, 50*time.Millisecond, percentile(sorted, 50))
	assert.Equal(t, 99*time.Millisecond, percentile(sorted, 99))
	assert.Equal(t, 100*time.Millisecond, percentile(sorted, 100))
	assert.Equal(t, 1*time.Millisecond, percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestStatsReport(t *testing.T) {
	s := NewStats()
	s.Record(2*time.Millisecond, 200, 3, nil)
	s.Record(4*time.Millisecond, 200, 0, nil)
	s.Record(1*time.Millisecond, 412, 0, nil)
	s.Record(0, 0, 0, errors.New("connection refused"))

	var buf bytes.Buffer
	s.Report(&buf, time.Second)
	out := buf.String()
	assert.Contains(t, out, "Total Requests:  4")
	assert.Contains(t, out, "Successful:      2")
	assert.Contains(t, out, "Empty results:   1")
	assert.Contains(t, out, "No index (412):  1")
	assert.Contains(t, out, "Errors:          1")
	assert.Contains(t, out, "  412: 1")
	assert.Contains(t, out, "Max:    4ms")
}
