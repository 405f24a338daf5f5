package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/partition-sim/sim/tracefile"
)

func mustSchedule(t *testing.T, boundaries, pages []int64, rates []float64) []tracefile.Record {
	t.Helper()
	records, err := buildSchedule(boundaries, pages, rates)
	require.NoError(t, err)
	return records
}

func TestBuildSchedule_RepeatsSingleValues(t *testing.T) {
	records := mustSchedule(t, []int64{0, 100, 200}, []int64{64}, []float64{0.2, 0.5, 0.8})
	assert.Equal(t, []tracefile.Record{
		{Boundary: 0, DramPages: 64, Rate: 0.2},
		{Boundary: 100, DramPages: 64, Rate: 0.5},
		{Boundary: 200, DramPages: 64, Rate: 0.8},
	}, records)
}

func TestBuildSchedule_Errors(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []int64
		pages      []int64
		rates      []float64
	}{
		{"no boundaries", nil, []int64{1}, []float64{0.5}},
		{"pages length mismatch", []int64{0, 1, 2}, []int64{1, 2}, []float64{0.5}},
		{"rates length mismatch", []int64{0, 1}, []int64{1}, []float64{0.5, 0.5, 0.5}},
		{"decreasing boundary", []int64{10, 5}, []int64{1}, []float64{0.5}},
		{"negative pages", []int64{0}, []int64{-1}, []float64{0.5}},
		{"rate above one", []int64{0}, []int64{1}, []float64{1.2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildSchedule(tt.boundaries, tt.pages, tt.rates)
			assert.Error(t, err)
		})
	}
}

func TestWriteSchedule_RoundTripsThroughReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run0_pid1.csv")
	records := mustSchedule(t, []int64{0, 5000, 5000, 9000}, []int64{10, 20, 30, 40}, []float64{0.1})

	var buf bytes.Buffer
	require.NoError(t, writeSchedule(&buf, path, records))
	assert.Equal(t, "wrote 4 records to "+path+"\n", buf.String())

	r, err := tracefile.Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, uint64(40), r.MaxDramPages())
	var got []tracefile.Record
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Equal(t, records, got)
}

func TestWriteSchedule_RequiresPath(t *testing.T) {
	assert.Error(t, writeSchedule(&bytes.Buffer{}, "", mustSchedule(t, []int64{0}, []int64{1}, []float64{0})))
}
