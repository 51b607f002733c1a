package rebalancing

import (
	"testing"

	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSizeTrade(t *testing.T) {
	tests := []struct {
		name      string
		remaining float64
		price     float64
		wantQty   int
		wantValue float64
	}{
		{"exact fit", 1.0, 100, 100_000, 1.0},
		{"floors partial shares", 1.0, 3000, 3333, 0.9999},
		{"price above remaining", 0.5, 6_000_000, 0, 0},
		{"zero price", 1.0, 0, 0, 0},
		{"negative remaining", -1.0, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, value := sizeTrade(tt.remaining, tt.price)
			assert.Equal(t, tt.wantQty, qty)
			assert.InDelta(t, tt.wantValue, value, 1e-9)
		})
	}
}

func TestClipBuy(t *testing.T) {
	// 100 Cr portfolio, price 1000/share: 10_000 shares = 1%
	qty, clipped := clipBuy(20_000, 1000, 3, 100, 7.5)
	assert.Equal(t, 20_000, qty)
	assert.False(t, clipped)

	qty, clipped = clipBuy(60_000, 1000, 4, 100, 7.5)
	assert.Equal(t, 35_000, qty)
	assert.True(t, clipped)

	qty, clipped = clipBuy(10_000, 1000, 7.5, 100, 7.5)
	assert.Equal(t, 0, qty)
	assert.True(t, clipped)

	qty, clipped = clipBuy(10_000, 1000, 9, 100, 7.5)
	assert.Equal(t, 0, qty)
	assert.True(t, clipped)
}

func TestClipSell(t *testing.T) {
	qty, clipped := clipSell(500, 1000)
	assert.Equal(t, 500, qty)
	assert.False(t, clipped)

	qty, clipped = clipSell(1500, 1000)
	assert.Equal(t, 1000, qty)
	assert.True(t, clipped)

	qty, _ = clipSell(10, 0)
	assert.Equal(t, 0, qty)
}

func TestMeetsMinTradeSize(t *testing.T) {
	assert.True(t, meetsMinTradeSize(0.5))
	assert.True(t, meetsMinTradeSize(12))
	assert.False(t, meetsMinTradeSize(0.49))
	assert.False(t, meetsMinTradeSize(0))
}

func TestCeilingReached(t *testing.T) {
	cs := domain.ConstraintSet{MaxStockWeight: 7.5, MaxSectorCap: 30, MaxTradesPerRun: 2}
	assert.False(t, ceilingReached(1, cs))
	assert.True(t, ceilingReached(2, cs))
}
