package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/seenimoa/gproverlay/internal/overlay"
)

// LoadBetaTable reads the industry reference CSV
// (fed_industry_id, fed_industry_name, gpr_beta, gpr_sentiment) into a
// lookup table keyed by industry id. gpr_sentiment is optional per row.
func LoadBetaTable(path string) (overlay.BetaTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open beta table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse beta table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("beta table %s is empty", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"fed_industry_id", "gpr_beta"} {
		if _, ok := cols[required]; !ok {
			return nil, &MissingColumnError{Column: required}
		}
	}

	table := make(overlay.BetaTable, len(records)-1)
	for i, rec := range records[1:] {
		line := i + 2

		id := strings.TrimSpace(fieldLower(rec, cols, "fed_industry_id"))
		if id == "" {
			return nil, &RowError{Line: line, Err: fmt.Errorf("empty fed_industry_id")}
		}
		beta, err := strconv.ParseFloat(strings.TrimSpace(fieldLower(rec, cols, "gpr_beta")), 64)
		if err != nil {
			return nil, &RowError{Line: line, Err: fmt.Errorf("invalid gpr_beta: %w", err)}
		}

		table[id] = overlay.BetaEntry{
			FedIndustryName: strings.TrimSpace(fieldLower(rec, cols, "fed_industry_name")),
			GPRBeta:         beta,
			GPRSentiment:    SafeFloat(fieldLower(rec, cols, "gpr_sentiment")),
		}
	}
	return table, nil
}

func fieldLower(rec []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}
