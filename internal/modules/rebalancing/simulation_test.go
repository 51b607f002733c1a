package rebalancing

import (
	"testing"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNewSimulationState(t *testing.T) {
	state := NewSimulationState(
		[]domain.Holding{
			{Ticker: "TCS.NS", SectorID: 1, Quantity: 100, PortfolioWeight: 6},
			{Ticker: "ITC.NS", SectorID: 5, Quantity: 40, PortfolioWeight: 2},
		},
		[]domain.SectorExposure{
			{SectorID: 1, ActualWeight: 30},
			{SectorID: 5, ActualWeight: 12},
		},
	)

	assert.Equal(t, 6.0, state.StockWeight("TCS.NS"))
	assert.Equal(t, 100, state.HeldQuantity("TCS.NS"))
	assert.Equal(t, 30.0, state.SectorWeight(1))
	assert.Equal(t, 0.0, state.StockWeight("UNKNOWN"))
	assert.Equal(t, 0, state.HeldQuantity("UNKNOWN"))
}

func TestSimulationState_ApplyBuy(t *testing.T) {
	before := NewSimulationState(
		[]domain.Holding{{Ticker: "TCS.NS", SectorID: 1, Quantity: 100, PortfolioWeight: 6}},
		[]domain.SectorExposure{{SectorID: 1, ActualWeight: 30}},
	)

	after := before.ApplyBuy("TCS.NS", 1, 50, 1.5)
	assert.Equal(t, 7.5, after.StockWeight("TCS.NS"))
	assert.Equal(t, 150, after.HeldQuantity("TCS.NS"))
	assert.Equal(t, 31.5, after.SectorWeight(1))

	// Original is untouched
	assert.Equal(t, 6.0, before.StockWeight("TCS.NS"))
	assert.Equal(t, 100, before.HeldQuantity("TCS.NS"))
	assert.Equal(t, 30.0, before.SectorWeight(1))

	fresh := before.ApplyBuy("NEW.NS", 2, 10, 0.5)
	assert.Equal(t, 0.5, fresh.StockWeight("NEW.NS"))
	assert.Equal(t, 0.5, fresh.SectorWeight(2))
	assert.Equal(t, 0.0, before.SectorWeight(2))
}

func TestSimulationState_ApplySell(t *testing.T) {
	before := NewSimulationState(
		[]domain.Holding{{Ticker: "WIPRO.NS", SectorID: 1, Quantity: 200, PortfolioWeight: 4}},
		[]domain.SectorExposure{{SectorID: 1, ActualWeight: 25}},
	)

	after := before.ApplySell("WIPRO.NS", 1, 200, 4)
	assert.Equal(t, 0.0, after.StockWeight("WIPRO.NS"))
	assert.Equal(t, 0, after.HeldQuantity("WIPRO.NS"))
	assert.Equal(t, 21.0, after.SectorWeight(1))

	assert.Equal(t, 200, before.HeldQuantity("WIPRO.NS"))
}

func TestSimulationState_DuplicateHoldingsAggregate(t *testing.T) {
	state := NewSimulationState(
		[]domain.Holding{
			{Ticker: "SBIN.NS", SectorID: 2, Quantity: 10, PortfolioWeight: 1},
			{Ticker: "SBIN.NS", SectorID: 2, Quantity: 5, PortfolioWeight: 0.5},
		},
		nil,
	)
	assert.Equal(t, 15, state.HeldQuantity("SBIN.NS"))
	assert.Equal(t, 1.5, state.StockWeight("SBIN.NS"))
}
