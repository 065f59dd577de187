package overlay

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/gproverlay/pkg/models"
)

func holding(name, industry string, weight float64, beta float64) models.Holding {
	return models.Holding{
		SecurityNameReport: name,
		FedIndustryID:      industry,
		FedIndustryName:    industry,
		WeightPct:          models.Float64(weight),
		GPRBeta:            models.Float64(beta),
	}
}

func snapshot(holdings ...models.Holding) models.PortfolioSnapshot {
	return models.PortfolioSnapshot{
		FundName: "Test Fund",
		AsOfDate: models.NewDay(2025, time.September, 30),
		Holdings: holdings,
	}
}

func TestExposureAggregation(t *testing.T) {
	snap := snapshot(
		holding("A", "tech", 10, 0.5),
		holding("B", "tech", 30, 0.1),
		holding("C", "energy", 20, -0.4),
	)

	exposures := ComputeIndustryExposure(snap, nil, zerolog.Nop())
	if len(exposures) != 2 {
		t.Fatalf("expected 2 exposures, got %d", len(exposures))
	}

	// Sorted by industry id: energy before tech.
	if exposures[0].FedIndustryID != "energy" || exposures[1].FedIndustryID != "tech" {
		t.Fatalf("exposures not sorted by id: %+v", exposures)
	}

	tech := exposures[1]
	if tech.PortfolioWeight != 40 {
		t.Errorf("tech weight = %.2f, want 40", tech.PortfolioWeight)
	}
	// Weighted average beta: (0.10×0.5 + 0.30×0.1) / 0.40 = 0.2
	if math.Abs(tech.GPRBeta-0.2) > 1e-12 {
		t.Errorf("tech beta = %.4f, want 0.2", tech.GPRBeta)
	}
}

func TestExposurePreservesTotalWeight(t *testing.T) {
	snap := snapshot(
		holding("A", "tech", 25, 0.5),
		holding("B", "energy", 35, -0.4),
		holding("C", "mining", 40, -0.1),
	)

	exposures := ComputeIndustryExposure(snap, nil, zerolog.Nop())
	var sum float64
	for _, e := range exposures {
		sum += e.PortfolioWeight
	}
	if math.Abs(sum-snap.TotalWeight()) > 1e-9 {
		t.Errorf("aggregate weight %.4f != holdings total %.4f", sum, snap.TotalWeight())
	}
}

func TestExposureReferenceTableWins(t *testing.T) {
	snap := snapshot(holding("A", "tech", 10, 0.5))
	table := BetaTable{"tech": {FedIndustryName: "tech", GPRBeta: -0.9}}

	exposures := ComputeIndustryExposure(snap, table, zerolog.Nop())
	if len(exposures) != 1 {
		t.Fatalf("expected 1 exposure, got %d", len(exposures))
	}
	if exposures[0].GPRBeta != -0.9 {
		t.Errorf("reference table beta should win, got %.2f", exposures[0].GPRBeta)
	}
}

func TestExposureNilWeightCountsAsZero(t *testing.T) {
	h := holding("A", "tech", 0, 0.5)
	h.WeightPct = nil
	snap := snapshot(h, holding("B", "tech", 15, 0.5))

	exposures := ComputeIndustryExposure(snap, nil, zerolog.Nop())
	if len(exposures) != 1 || exposures[0].PortfolioWeight != 15 {
		t.Fatalf("nil weight should aggregate as 0: %+v", exposures)
	}
}

func TestExposureUnmappedHoldingsIgnored(t *testing.T) {
	unmapped := models.Holding{SecurityNameReport: "X", WeightPct: models.Float64(50)}
	snap := snapshot(unmapped, holding("A", "tech", 10, 0.5))

	exposures := ComputeIndustryExposure(snap, nil, zerolog.Nop())
	if len(exposures) != 1 || exposures[0].FedIndustryID != "tech" {
		t.Fatalf("unmapped holding must not create an exposure: %+v", exposures)
	}
}

func TestZeroWeightIndustryRetainedAndSkipped(t *testing.T) {
	snap := snapshot(
		holding("A", "tech", 0, 0.5),
		holding("B", "energy", 20, -0.4),
	)

	exposures := ComputeIndustryExposure(snap, nil, zerolog.Nop())
	if len(exposures) != 2 {
		t.Fatalf("zero-weight industry must be retained, got %d exposures", len(exposures))
	}

	var tech models.IndustryExposure
	for _, e := range exposures {
		if e.FedIndustryID == "tech" {
			tech = e
		}
	}
	if tech.PortfolioWeight != 0 {
		t.Errorf("tech weight = %.2f, want 0", tech.PortfolioWeight)
	}
	// The unweighted fallback mean keeps the beta attached.
	if tech.GPRBeta != 0.5 {
		t.Errorf("tech fallback beta = %.2f, want 0.5", tech.GPRBeta)
	}

	total, scored := ComputeVulnerability(exposures)
	for _, e := range scored {
		if e.FedIndustryID == "tech" && e.ContributionToVulnerability != 0 {
			t.Error("zero-weight industry must not contribute to vulnerability")
		}
	}
	// Only energy contributes: 0.20 × -0.4 = -0.08.
	if math.Abs(total-(-0.08)) > 1e-12 {
		t.Errorf("vulnerability = %.4f, want -0.08", total)
	}
}

func TestVulnerabilityScore(t *testing.T) {
	exposures := []models.IndustryExposure{
		{FedIndustryID: "a", PortfolioWeight: 20, GPRBeta: -0.5},
		{FedIndustryID: "b", PortfolioWeight: 10, GPRBeta: 0.3},
	}

	total, scored := ComputeVulnerability(exposures)
	// 0.20×-0.5 + 0.10×0.3 = -0.07
	if math.Abs(total-(-0.07)) > 1e-12 {
		t.Errorf("vulnerability = %.4f, want -0.07", total)
	}
	if math.Abs(scored[0].ContributionToVulnerability-(-0.1)) > 1e-12 {
		t.Errorf("contribution a = %.4f, want -0.1", scored[0].ContributionToVulnerability)
	}

	// Inputs are not mutated.
	if exposures[0].ContributionToVulnerability != 0 {
		t.Error("ComputeVulnerability must not mutate its input")
	}
}

func TestVulnerabilityOrderingInvariantUnderRenormalization(t *testing.T) {
	exposures := []models.IndustryExposure{
		{FedIndustryID: "a", PortfolioWeight: 20, GPRBeta: -0.5},
		{FedIndustryID: "b", PortfolioWeight: 40, GPRBeta: -0.1},
		{FedIndustryID: "c", PortfolioWeight: 10, GPRBeta: 0.3},
	}

	scaled := make([]models.IndustryExposure, len(exposures))
	copy(scaled, exposures)
	for i := range scaled {
		scaled[i].PortfolioWeight *= 100.0 / 70.0 // renormalize to sum 100
	}

	_, base := ComputeVulnerability(exposures)
	_, renorm := ComputeVulnerability(scaled)

	for i := 0; i < len(base); i++ {
		for j := i + 1; j < len(base); j++ {
			beforeLess := base[i].ContributionToVulnerability < base[j].ContributionToVulnerability
			afterLess := renorm[i].ContributionToVulnerability < renorm[j].ContributionToVulnerability
			if beforeLess != afterLess {
				t.Errorf("relative ordering of %s and %s changed under renormalization",
					base[i].FedIndustryID, base[j].FedIndustryID)
			}
		}
	}
}
