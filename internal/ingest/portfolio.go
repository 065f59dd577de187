package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// Weight-sum bounds outside which a snapshot is suspect but still loadable.
const (
	minimumTotalWeight = 95.0
	maximumTotalWeight = 105.0
)

// PortfolioFilter optionally restricts a multi-fund CSV to one snapshot.
// Empty fields match everything.
type PortfolioFilter struct {
	FundName string
	AsOfDate string
}

// LoadPortfolioCSV reads an exported holdings CSV into a snapshot. The file
// may be wrapped in Markdown code fences; fence lines are dropped before
// parsing. Numeric fields tolerate placeholder strings ("unknown", "na",
// "n/a", "-") and Swiss thousands apostrophes. An unparseable weight_pct
// loads as 0 with a warning. After filtering, the remaining rows must agree
// on exactly one fund_name and one as_of_date.
func LoadPortfolioCSV(path string, filter PortfolioFilter, log zerolog.Logger) (models.PortfolioSnapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("open portfolio CSV: %w", err)
	}

	reader := csv.NewReader(strings.NewReader(stripFences(string(raw))))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("parse portfolio CSV %s: %w", path, err)
	}
	if len(records) < 2 {
		return models.PortfolioSnapshot{}, fmt.Errorf("portfolio CSV %s has no data rows", path)
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(cols))
		for name, idx := range cols {
			if idx < len(rec) {
				row[name] = rec[idx]
			}
		}
		if filter.FundName != "" && row["fund_name"] != filter.FundName {
			continue
		}
		if filter.AsOfDate != "" && row["as_of_date"] != filter.AsOfDate {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return models.PortfolioSnapshot{}, fmt.Errorf(
			"no rows in %s for fund_name=%q as_of_date=%q", path, filter.FundName, filter.AsOfDate)
	}

	fundName, err := uniqueValue(rows, "fund_name")
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	asOfRaw, err := uniqueValue(rows, "as_of_date")
	if err != nil {
		return models.PortfolioSnapshot{}, err
	}
	asOf, err := models.ParseDay(asOfRaw)
	if err != nil {
		return models.PortfolioSnapshot{}, fmt.Errorf("invalid as_of_date %q: %w", asOfRaw, err)
	}

	holdings := make([]models.Holding, 0, len(rows))
	totalWeight := 0.0
	for _, row := range rows {
		weight := SafeFloat(row["weight_pct"])
		if weight == nil {
			log.Warn().Str("security", row["security_name_report"]).
				Msg("unparseable weight_pct, treating as 0")
			weight = models.Float64(0)
		}
		totalWeight += *weight

		holdings = append(holdings, models.Holding{
			SecurityNameReport:    row["security_name_report"],
			TickerGuess:           row["ticker_guess"],
			ISINGuess:             row["isin_guess"],
			SectorRaw:             row["sector_raw"],
			WeightPct:             weight,
			MarketValueRaw:        row["market_value_raw"],
			FedIndustryName:       row["fed_industry_name"],
			FedIndustryID:         row["fed_industry_id"],
			GPRBeta:               SafeFloat(row["gpr_beta"]),
			GPRSentiment:          SafeFloat(row["gpr_sentiment"]),
			RegionGuess:           row["region_guess"],
			CountryGuess:          row["country_guess"],
			MappingConfidence:     SafeFloat(row["mapping_confidence"]),
			MappingRationaleShort: row["mapping_rationale_short"],
		})
	}

	if totalWeight < minimumTotalWeight || totalWeight > maximumTotalWeight {
		log.Warn().Float64("total_weight", totalWeight).
			Msgf("total portfolio weight outside [%.0f, %.0f], check the input for missing or extra rows",
				minimumTotalWeight, maximumTotalWeight)
	}

	log.Info().Str("fund", fundName).Str("as_of", asOf.String()).
		Int("holdings", len(holdings)).Float64("total_weight", totalWeight).
		Msg("loaded portfolio snapshot")

	return models.PortfolioSnapshot{
		FundName: fundName,
		AsOfDate: asOf,
		Holdings: holdings,
	}, nil
}

// SafeFloat parses a tolerant numeric field. Empty strings and common
// placeholder values yield nil, as does anything that still fails to parse
// after stripping Swiss thousands apostrophes.
func SafeFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch strings.ToLower(s) {
	case "unknown", "na", "n/a", "-":
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, "'", ""), 64)
	if err != nil {
		return nil
	}
	return models.Float64(v)
}

func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		if strings.HasPrefix(strings.TrimSpace(ln), "```") {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

func uniqueValue(rows []map[string]string, key string) (string, error) {
	seen := make(map[string]bool)
	var value string
	for _, row := range rows {
		v := strings.TrimSpace(row[key])
		if v == "" {
			continue
		}
		if !seen[v] {
			seen[v] = true
			value = v
		}
	}
	if len(seen) != 1 {
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		return "", fmt.Errorf("expected exactly one %s, got %v", key, values)
	}
	return value, nil
}
