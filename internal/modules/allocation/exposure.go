package allocation

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sectorpilot/internal/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AssessSectorExposure aggregates holding values by sector and compares them to targets.
//
// One row is returned per target, ordered by sector id. Sectors that are held but
// have no target follow, also by sector id, with a target weight of zero.
// Names missing from the lookup fall back to "Sector <id>".
func AssessSectorExposure(
	holdings []domain.Holding,
	targets []SectorTarget,
	names map[int]string,
) []domain.SectorExposure {
	totalValue := domain.TotalValue(holdings)
	sectorValues := aggregateBySector(holdings)

	sortedTargets := make([]SectorTarget, len(targets))
	copy(sortedTargets, targets)
	sort.SliceStable(sortedTargets, func(i, j int) bool {
		return sortedTargets[i].SectorID < sortedTargets[j].SectorID
	})

	seen := make(map[int]bool, len(sortedTargets))
	exposure := make([]domain.SectorExposure, 0, len(sortedTargets))
	for _, t := range sortedTargets {
		if seen[t.SectorID] {
			continue
		}
		seen[t.SectorID] = true
		exposure = append(exposure, buildExposure(t.SectorID, t.TargetWeight, sectorValues[t.SectorID], totalValue, names))
	}

	var untargeted []int
	for sectorID := range sectorValues {
		if !seen[sectorID] {
			untargeted = append(untargeted, sectorID)
		}
	}
	sort.Ints(untargeted)
	for _, sectorID := range untargeted {
		exposure = append(exposure, buildExposure(sectorID, 0, sectorValues[sectorID], totalValue, names))
	}

	return exposure
}

// aggregateBySector sums holding values (crore) per sector
func aggregateBySector(holdings []domain.Holding) map[int]float64 {
	values := make(map[int]float64)
	for _, h := range holdings {
		values[h.SectorID] += h.CurrentValue
	}
	return values
}

func buildExposure(sectorID int, target, value, totalValue float64, names map[int]string) domain.SectorExposure {
	var actual float64
	if totalValue > 0 {
		actual = value / totalValue * 100
	}

	name, ok := names[sectorID]
	if !ok || name == "" {
		name = fmt.Sprintf("Sector %d", sectorID)
	}

	return domain.SectorExposure{
		SectorID:     sectorID,
		SectorName:   name,
		ActualWeight: actual,
		TargetWeight: target,
	}
}

// SummarizeDrift computes total, max and mean absolute sector drift
func SummarizeDrift(exposure []domain.SectorExposure) DriftSummary {
	if len(exposure) == 0 {
		return DriftSummary{}
	}

	absDrift := make([]float64, len(exposure))
	for i, e := range exposure {
		absDrift[i] = math.Abs(e.Drift())
	}

	return DriftSummary{
		TotalAbsDrift: floats.Sum(absDrift),
		MaxAbsDrift:   floats.Max(absDrift),
		MeanAbsDrift:  stat.Mean(absDrift, nil),
		Sectors:       len(exposure),
	}
}

// EstimateDriftAfter returns the total absolute drift once the suggestions are applied.
// The last suggestion emitted for a sector carries that sector's final simulated drift;
// sectors without suggestions keep their current drift.
func EstimateDriftAfter(exposure []domain.SectorExposure, suggestions []domain.Suggestion) float64 {
	finalDrift := make(map[int]float64)
	for _, s := range suggestions {
		finalDrift[s.SectorID] = s.PostTradeDrift
	}

	total := 0.0
	for _, e := range exposure {
		drift := e.Drift()
		if d, ok := finalDrift[e.SectorID]; ok {
			drift = d
		}
		total += math.Abs(drift)
	}
	return total
}

// CheckViolations reports sectors above the sector cap and holdings above the
// per-stock weight limit. Violations are reported, never enforced.
func CheckViolations(
	exposure []domain.SectorExposure,
	holdings []domain.Holding,
	constraints domain.ConstraintSet,
) []Violation {
	violations := make([]Violation, 0)

	for _, e := range exposure {
		if e.ActualWeight > constraints.MaxSectorCap {
			violations = append(violations, Violation{
				Type: ViolationSectorCap,
				Message: fmt.Sprintf("%s at %.2f%% exceeds cap of %.2f%%",
					e.SectorName, e.ActualWeight, constraints.MaxSectorCap),
				TickerOrSector: e.SectorName,
			})
		}
	}

	for _, h := range holdings {
		if h.PortfolioWeight > constraints.MaxStockWeight {
			violations = append(violations, Violation{
				Type: ViolationMaxStockWeight,
				Message: fmt.Sprintf("%s at %.2f%% exceeds cap of %.2f%%",
					h.Ticker, h.PortfolioWeight, constraints.MaxStockWeight),
				TickerOrSector: h.Ticker,
			})
		}
	}

	return violations
}
