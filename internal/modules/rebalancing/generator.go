// Package rebalancing generates sector rebalancing suggestions and manages
// the lifecycle of persisted rebalance runs.
package rebalancing

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/rs/zerolog"
)

// DampingFactor is the share of a sector's drift a single run tries to close
const DampingFactor = 0.5

// Generator produces constraint-bounded BUY/SELL suggestions that move sector
// weights toward their targets. It holds no state between calls.
type Generator struct {
	log zerolog.Logger
}

// NewGenerator creates a new suggestion generator
func NewGenerator(log zerolog.Logger) *Generator {
	return &Generator{
		log: log.With().Str("component", "suggestion_generator").Logger(),
	}
}

// sectorDrift pairs an exposure row with its signed and absolute drift
type sectorDrift struct {
	exposure domain.SectorExposure
	drift    float64
	absDrift float64
}

// Generate walks sectors from largest to smallest absolute drift and greedily
// emits trades until each sector's damped target value is reached or the
// run-wide trade ceiling is hit.
//
// Overweight sectors sell Laggards, weakest first. Underweight sectors buy
// Leaders, strongest first. Identical inputs always produce identical output.
// A portfolio with no value yields an empty result and no error.
func (g *Generator) Generate(
	holdings []domain.Holding,
	exposure []domain.SectorExposure,
	stocks []domain.StockCandidate,
	constraints domain.ConstraintSet,
) ([]domain.Suggestion, error) {
	if err := domain.ValidateGenerationInput(holdings, exposure, stocks, constraints); err != nil {
		return nil, err
	}

	suggestions := make([]domain.Suggestion, 0)

	totalValue := domain.TotalValue(holdings)
	if totalValue <= 0 {
		g.log.Debug().Float64("total_value_cr", totalValue).Msg("Portfolio has no value, nothing to rebalance")
		return suggestions, nil
	}

	sectors := rankSectorsByDrift(exposure)
	holdingPrices := holdingPriceIndex(holdings)
	state := NewSimulationState(holdings, exposure)
	tradesCount := 0

	for _, sd := range sectors {
		if ceilingReached(tradesCount, constraints) {
			break
		}

		action := domain.ActionBuy
		category := domain.CategoryLeader
		if sd.drift > 0 {
			action = domain.ActionSell
			category = domain.CategoryLaggard
		}

		pool := candidatePool(stocks, sd.exposure.SectorID, category, action == domain.ActionSell)
		if len(pool) == 0 {
			g.log.Debug().
				Int("sector_id", sd.exposure.SectorID).
				Str("category", string(category)).
				Msg("No candidates for sector, skipping")
			continue
		}

		targetTradeValue := DampingFactor * sd.absDrift / 100 * totalValue
		sectorTraded := 0.0

		for _, c := range pool {
			if sectorTraded >= targetTradeValue || ceilingReached(tradesCount, constraints) {
				break
			}

			price, ok := resolvePrice(c, holdingPrices)
			if !ok {
				g.log.Debug().Str("ticker", c.Ticker).Msg("No usable price, skipping candidate")
				continue
			}

			remaining := targetTradeValue - sectorTraded
			if remaining < domain.MinTradeSizeCr {
				continue
			}

			qty, value := sizeTrade(remaining, price)
			if qty <= 0 || !meetsMinTradeSize(value) {
				continue
			}

			var binding string
			var clipped bool
			if action == domain.ActionBuy {
				qty, clipped = clipBuy(qty, price, state.StockWeight(c.Ticker), totalValue, constraints.MaxStockWeight)
				if clipped {
					binding = domain.BindingMaxStockWeight
				}
			} else {
				held := state.HeldQuantity(c.Ticker)
				if held <= 0 {
					g.log.Debug().Str("ticker", c.Ticker).Msg("Laggard not held, nothing to sell")
					continue
				}
				qty, clipped = clipSell(qty, held)
				if clipped {
					binding = domain.BindingHoldingQuantity
				}
			}

			if qty <= 0 {
				continue
			}
			value = domain.ValueCr(qty, price)
			if !meetsMinTradeSize(value) {
				continue
			}

			deltaWeight := value / totalValue * 100
			if action == domain.ActionBuy {
				state = state.ApplyBuy(c.Ticker, c.SectorID, qty, deltaWeight)
			} else {
				state = state.ApplySell(c.Ticker, c.SectorID, qty, deltaWeight)
			}

			suggestions = append(suggestions, domain.Suggestion{
				Action:            action,
				Ticker:            c.Ticker,
				SectorID:          c.SectorID,
				Quantity:          qty,
				EstValueCr:        domain.Round(value, 2),
				Rationale:         rationale(action, sectorName(sd.exposure), c.CompositeScore),
				PostTradeWeight:   domain.Round(state.StockWeight(c.Ticker), 2),
				PostTradeDrift:    domain.Round(state.SectorWeight(sd.exposure.SectorID)-sd.exposure.TargetWeight, 2),
				BindingConstraint: binding,
			})

			sectorTraded += value
			tradesCount++
		}
	}

	g.log.Debug().
		Int("suggestions", len(suggestions)).
		Float64("total_value_cr", totalValue).
		Msg("Generated rebalancing suggestions")

	return suggestions, nil
}

// rankSectorsByDrift orders sectors by absolute drift, largest first.
// Ties keep their input order.
func rankSectorsByDrift(exposure []domain.SectorExposure) []sectorDrift {
	ranked := make([]sectorDrift, len(exposure))
	for i, e := range exposure {
		d := e.Drift()
		ranked[i] = sectorDrift{exposure: e, drift: d, absDrift: math.Abs(d)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].absDrift > ranked[j].absDrift
	})
	return ranked
}

// candidatePool returns the sector's stocks of one category ordered by score,
// ascending for sells and descending for buys. Equal scores keep input order.
func candidatePool(stocks []domain.StockCandidate, sectorID int, category domain.Category, ascending bool) []domain.StockCandidate {
	pool := make([]domain.StockCandidate, 0)
	for _, s := range stocks {
		if s.SectorID == sectorID && s.Category == category {
			pool = append(pool, s)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if ascending {
			return pool[i].CompositeScore < pool[j].CompositeScore
		}
		return pool[i].CompositeScore > pool[j].CompositeScore
	})
	return pool
}

// holdingPriceIndex maps tickers to the first positive holding price
func holdingPriceIndex(holdings []domain.Holding) map[string]float64 {
	prices := make(map[string]float64, len(holdings))
	for _, h := range holdings {
		if _, ok := prices[h.Ticker]; !ok && h.CurrentPrice > 0 {
			prices[h.Ticker] = h.CurrentPrice
		}
	}
	return prices
}

// resolvePrice uses the candidate's own price, then the holding's price.
// Absent or non-positive prices make the candidate unusable.
func resolvePrice(c domain.StockCandidate, holdingPrices map[string]float64) (float64, bool) {
	if c.CurrentPrice != nil && *c.CurrentPrice > 0 {
		return *c.CurrentPrice, true
	}
	if p, ok := holdingPrices[c.Ticker]; ok && p > 0 {
		return p, true
	}
	return 0, false
}

func sectorName(e domain.SectorExposure) string {
	if e.SectorName != "" {
		return e.SectorName
	}
	return fmt.Sprintf("Sector %d", e.SectorID)
}

func rationale(action domain.TradeAction, sector string, score float64) string {
	if action == domain.ActionSell {
		return fmt.Sprintf("Sell Laggard in %s to reduce overweight. Score: %.2f.", sector, score)
	}
	return fmt.Sprintf("Buy Leader in %s to reduce underweight. Score: %.2f.", sector, score)
}
