// Package tracefile reads and writes precomputed partition decisions.
// A trace is a CSV file with the header "boundary,dram_pages,rate" and one
// record per row, boundaries non-decreasing. This package has no
// dependencies on sim/.
package tracefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Record is one precomputed decision. It takes effect once the replaying
// tenant's cumulative period (cycles or instructions) reaches Boundary.
type Record struct {
	Boundary  uint64
	DramPages uint64
	Rate      float64
}

// Columns is the CSV header of a trace file.
var Columns = []string{"boundary", "dram_pages", "rate"}

// Reader streams records from one trace file. The whole file is validated
// when it is opened, so Next only fails on I/O errors.
type Reader struct {
	path     string
	file     *os.File
	csv      *csv.Reader
	count    int
	maxPages uint64
}

// Open validates the trace at path and positions the reader at its first record.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	r := &Reader{path: path, file: file}
	if err := r.validate(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("rewinding trace %s: %w", path, err)
	}
	r.csv = newCSVReader(file)
	if _, err := r.csv.Read(); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("trace %s: reading CSV header: %w", path, err)
	}
	return r, nil
}

func newCSVReader(rd io.Reader) *csv.Reader {
	cr := csv.NewReader(rd)
	cr.FieldsPerRecord = len(Columns)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

func (r *Reader) validate() error {
	cr := newCSVReader(r.file)
	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}
	for i, col := range Columns {
		if strings.TrimSpace(header[i]) != col {
			return fmt.Errorf("CSV header column %d is %q, want %q", i, header[i], col)
		}
	}

	var last uint64
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading CSV row: %w", err)
		}
		rec, err := parseRecord(row)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Boundary < last {
			return fmt.Errorf("line %d: boundary %d precedes previous boundary %d", line, rec.Boundary, last)
		}
		last = rec.Boundary
		r.maxPages = max(r.maxPages, rec.DramPages)
		r.count++
	}
	if r.count == 0 {
		return errors.New("trace holds no records")
	}
	return nil
}

func parseRecord(row []string) (Record, error) {
	boundary, err := strconv.ParseUint(strings.TrimSpace(row[0]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("boundary: %w", err)
	}
	pages, err := strconv.ParseUint(strings.TrimSpace(row[1]), 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("dram_pages: %w", err)
	}
	rate, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("rate: %w", err)
	}
	if !(rate >= 0 && rate <= 1) {
		return Record{}, fmt.Errorf("rate %v outside [0,1]", rate)
	}
	return Record{Boundary: boundary, DramPages: pages, Rate: rate}, nil
}

// Next returns the next record, or io.EOF once the trace is exhausted.
func (r *Reader) Next() (Record, error) {
	if r.file == nil {
		return Record{}, os.ErrClosed
	}
	row, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("trace %s: %w", r.path, err)
	}
	return parseRecord(row)
}

// Path returns the file the reader was opened from.
func (r *Reader) Path() string { return r.path }

// Len returns the number of records in the trace.
func (r *Reader) Len() int { return r.count }

// MaxDramPages returns the largest page count any record requests.
func (r *Reader) MaxDramPages() uint64 { return r.maxPages }

// Close releases the underlying file. Later calls are no-ops.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// WriteRecords writes records as a trace file at path.
func WriteRecords(path string, records []Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, rec := range records {
		row := []string{
			strconv.FormatUint(rec.Boundary, 10),
			strconv.FormatUint(rec.DramPages, 10),
			strconv.FormatFloat(rec.Rate, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flushing trace file: %w", err)
	}
	return file.Close()
}
