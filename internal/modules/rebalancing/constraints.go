package rebalancing

import (
	"math"

	"github.com/aristath/sectorpilot/internal/domain"
)

// sizeEpsilon absorbs float noise when converting crore back to whole shares
const sizeEpsilon = 1e-9

// sizeTrade returns the largest whole quantity at price whose value does not
// exceed remainingCr, together with that quantity's value in crore.
func sizeTrade(remainingCr, price float64) (int, float64) {
	if remainingCr <= 0 || price <= 0 {
		return 0, 0
	}
	qty := int(math.Floor(remainingCr*domain.CroreUnit/price + sizeEpsilon))
	return qty, domain.ValueCr(qty, price)
}

// clipBuy caps a buy so the stock's simulated weight stays at or below maxWeight.
// It returns the (possibly reduced) quantity and whether the cap was binding.
// A zero quantity means there is no headroom left for this stock.
func clipBuy(qty int, price, currentWeight, totalValueCr, maxWeight float64) (int, bool) {
	if qty <= 0 || price <= 0 || totalValueCr <= 0 {
		return 0, false
	}

	newWeight := currentWeight + domain.ValueCr(qty, price)/totalValueCr*100
	if newWeight <= maxWeight {
		return qty, false
	}

	headroom := maxWeight - currentWeight
	if headroom <= 0 {
		return 0, true
	}

	maxQty := int(math.Floor(headroom / 100 * totalValueCr * domain.CroreUnit / price))
	if maxQty < 0 {
		maxQty = 0
	}
	if maxQty >= qty {
		return qty, false
	}
	return maxQty, true
}

// clipSell caps a sell at the quantity still held.
// It returns the (possibly reduced) quantity and whether the holding size was binding.
func clipSell(qty, held int) (int, bool) {
	if held <= 0 {
		return 0, qty > 0
	}
	if qty > held {
		return held, true
	}
	return qty, false
}

// meetsMinTradeSize reports whether a trade value clears the fixed minimum
func meetsMinTradeSize(valueCr float64) bool {
	return valueCr >= domain.MinTradeSizeCr-sizeEpsilon
}

// ceilingReached reports whether the run-wide trade ceiling has been hit
func ceilingReached(tradesCount int, constraints domain.ConstraintSet) bool {
	return tradesCount >= constraints.MaxTradesPerRun
}
