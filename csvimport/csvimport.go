// Package csvimport implements the bulk registration contract: batches
// of at most 100 rows, per-row created/overwritten/failed outcomes, and
// a tolerant decode chain for files exported from legacy office tools.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// MaxRows bounds one batch. Larger files are rejected wholesale with
// zero rows processed.
const MaxRows = 100

var (
	ErrNoData      = errors.New("csv file has no data rows")
	ErrTooManyRows = fmt.Errorf("csv batch exceeds %d rows", MaxRows)
)

// MissingColumnsError names the required header columns a file lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "csv file is missing required columns: " + strings.Join(e.Columns, ", ")
}

// Row statuses.
const (
	StatusCreated     = "created"
	StatusOverwritten = "overwritten"
	StatusFailed      = "failed"
)

// RowOutcome is the per-row import log entry.
type RowOutcome struct {
	Key     string `json:"key"` // the row's user/customer id, or "(empty)"
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Result summarizes one batch.
type Result struct {
	Created     int          `json:"created"`
	Overwritten int          `json:"overwritten"`
	Failed      int          `json:"failed"`
	Total       int          `json:"total"`
	Logs        []RowOutcome `json:"logs"`
}

func (r *Result) Log(key, status, message string) {
	if key == "" {
		key = "(empty)"
	}
	switch status {
	case StatusCreated:
		r.Created++
	case StatusOverwritten:
		r.Overwritten++
	case StatusFailed:
		r.Failed++
	}
	r.Logs = append(r.Logs, RowOutcome{Key: key, Status: status, Message: message})
}

// DecodeText converts raw file bytes to UTF-8. Legacy exports are
// usually Shift-JIS; the chain falls back to ISO-8859-1 and finally to
// the bytes as-is.
func DecodeText(raw []byte) string {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), japanese.ShiftJIS.NewDecoder()))
	if err == nil && utf8.Valid(decoded) && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded)
	}

	decoded, err = io.ReadAll(transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()))
	if err == nil {
		return string(decoded)
	}

	return string(raw)
}

// ParseBatch decodes and parses one CSV file into header-keyed rows,
// enforcing the batch size cap and the required header columns. Values
// are trimmed; fully empty lines are skipped.
func ParseBatch(raw []byte, required []string) ([]map[string]string, error) {
	reader := csv.NewReader(strings.NewReader(DecodeText(raw)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse failed: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNoData
	}

	header := records[0]
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	if missing := missingColumns(header, required); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		empty := true
		for i, h := range header {
			if i >= len(record) {
				break
			}
			v := strings.TrimSpace(record[i])
			row[h] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if len(rows) > MaxRows {
		return nil, ErrTooManyRows
	}
	return rows, nil
}

func missingColumns(header, required []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, r := range required {
		if !present[r] {
			missing = append(missing, r)
		}
	}
	return missing
}

// MissingFields names the required fields a row left empty, for the
// per-row failure message.
func MissingFields(row map[string]string, required []string) []string {
	var missing []string
	for _, r := range required {
		if row[r] == "" {
			missing = append(missing, r)
		}
	}
	return missing
}
