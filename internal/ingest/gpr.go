// Package ingest loads the external inputs of the pipeline: the GPR daily
// series, portfolio holdings exports, the industry reference table and
// screening criteria. Loaders normalize and type-check the raw files and
// return the typed records from pkg/models; they never run analysis.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// MissingColumnError reports a required CSV column that the header row does
// not contain.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("required column %q is missing from the CSV header", e.Column)
}

// RowError reports a row that could not be parsed. Line is 1-based and
// counts the header row.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// NonMonotonicDatesError reports a GPR CSV whose dates are not strictly
// increasing.
type NonMonotonicDatesError struct {
	Line int
	Date models.Day
}

func (e *NonMonotonicDatesError) Error() string {
	return fmt.Sprintf("row %d: date %s is not after the previous row", e.Line, e.Date)
}

// LoadGPRCSV reads a Caldara & Iacoviello daily GPR export from a file.
func LoadGPRCSV(path string, log zerolog.Logger) ([]models.DailyPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GPR CSV: %w", err)
	}
	defer f.Close()

	points, err := ParseGPRCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse GPR CSV %s: %w", path, err)
	}
	log.Info().Int("points", len(points)).Str("path", path).Msg("loaded GPR daily series")
	return points, nil
}

// ParseGPRCSV parses a daily GPR export. Header names are trimmed and
// upper-cased before matching; DATE and GPRD are required, N10D, GPRD_ACT,
// GPRD_THREAT, GPRD_MA30, GPRD_MA7 and EVENT are optional. Dates must be
// strictly increasing.
func ParseGPRCSV(r io.Reader) ([]models.DailyPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no CSV records")
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"DATE", "GPRD"} {
		if _, ok := cols[required]; !ok {
			return nil, &MissingColumnError{Column: required}
		}
	}

	points := make([]models.DailyPoint, 0, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2

		date, err := models.ParseDay(field(rec, cols, "DATE"))
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("invalid DATE: %w", err)}
		}
		if len(points) > 0 && !points[len(points)-1].Date.Before(date.Time) {
			return nil, &NonMonotonicDatesError{Line: line, Date: date}
		}

		gprd, err := strconv.ParseFloat(strings.TrimSpace(field(rec, cols, "GPRD")), 64)
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("invalid GPRD: %w", err)}
		}

		points = append(points, models.DailyPoint{
			Date:       date,
			GPRD:       gprd,
			N10D:       optionalFloat(rec, cols, "N10D"),
			GPRDAct:    optionalFloat(rec, cols, "GPRD_ACT"),
			GPRDThreat: optionalFloat(rec, cols, "GPRD_THREAT"),
			GPRDMA30:   optionalFloat(rec, cols, "GPRD_MA30"),
			GPRDMA7:    optionalFloat(rec, cols, "GPRD_MA7"),
			Event:      strings.TrimSpace(field(rec, cols, "EVENT")),
		})
	}
	return points, nil
}

func field(rec []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func optionalFloat(rec []string, cols map[string]int, name string) *float64 {
	s := strings.TrimSpace(field(rec, cols, name))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return models.Float64(v)
}
