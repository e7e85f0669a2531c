// Package ingest reads event corpora from CSV files and hands them to the
// event store. One row is one event; columns other than the reserved ones
// become typed attributes.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mkealey/salience/internal/event"
)

// Reserved column names. Everything else is an attribute column.
const (
	colID        = "id"
	colTimestamp = "timestamp"
	colDuration  = "duration"
	colTruth     = "truth"
)

// ParseCSV reads one CSV corpus into records. The header row names the
// columns; a timestamp column is required. Timestamps may be unix seconds
// or RFC 3339. Empty attribute cells mean the attribute is absent from
// that event. Cells that parse as numbers become numeric values.
func ParseCSV(r io.Reader) ([]event.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty csv: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	tsCol := -1
	for i, name := range header {
		if name == colTimestamp {
			tsCol = i
		}
	}
	if tsCol == -1 {
		return nil, fmt.Errorf("csv header has no timestamp column")
	}

	var records []event.Record
	for row := 0; ; row++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", row+1, err)
		}

		rec := event.Record{ID: -1, Duration: -1, Attrs: make(map[string]event.Value)}
		for i, cell := range fields {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			switch header[i] {
			case colID:
				id, err := strconv.Atoi(cell)
				if err != nil {
					return nil, fmt.Errorf("csv row %d: bad id %q: %w", row+1, cell, err)
				}
				rec.ID = id
			case colTimestamp:
				ts, err := parseTimestamp(cell)
				if err != nil {
					return nil, fmt.Errorf("csv row %d: %w", row+1, err)
				}
				rec.Timestamp = ts
				rec.HasTime = true
			case colDuration:
				d, err := strconv.ParseInt(cell, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("csv row %d: bad duration %q: %w", row+1, cell, err)
				}
				rec.Duration = d
			case colTruth:
				t, err := strconv.ParseBool(cell)
				if err != nil {
					return nil, fmt.Errorf("csv row %d: bad truth %q: %w", row+1, cell, err)
				}
				rec.Truth = t
			default:
				rec.Attrs[header[i]] = parseValue(cell)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseTimestamp(cell string) (int64, error) {
	if secs, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return secs, nil
	}
	t, err := time.Parse(time.RFC3339, cell)
	if err != nil {
		return 0, fmt.Errorf("bad timestamp %q (want unix seconds or RFC 3339)", cell)
	}
	return t.Unix(), nil
}

func parseValue(cell string) event.Value {
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return event.NumValue(f)
	}
	return event.TextValue(cell)
}
