package rebalancing

import "github.com/aristath/sectorpilot/internal/domain"

// SimulationState tracks simulated weights while a generation run accepts trades.
// Transitions never mutate the receiver; they return a new state.
type SimulationState struct {
	stockWeights  map[string]float64
	heldQuantity  map[string]int
	sectorWeights map[int]float64
}

// NewSimulationState seeds a state from current holdings and sector exposure
func NewSimulationState(holdings []domain.Holding, exposure []domain.SectorExposure) SimulationState {
	s := SimulationState{
		stockWeights:  make(map[string]float64, len(holdings)),
		heldQuantity:  make(map[string]int, len(holdings)),
		sectorWeights: make(map[int]float64, len(exposure)),
	}
	for _, h := range holdings {
		s.stockWeights[h.Ticker] += h.PortfolioWeight
		s.heldQuantity[h.Ticker] += h.Quantity
	}
	for _, e := range exposure {
		s.sectorWeights[e.SectorID] = e.ActualWeight
	}
	return s
}

// StockWeight returns the simulated weight (%) of a ticker
func (s SimulationState) StockWeight(ticker string) float64 {
	return s.stockWeights[ticker]
}

// SectorWeight returns the simulated weight (%) of a sector
func (s SimulationState) SectorWeight(sectorID int) float64 {
	return s.sectorWeights[sectorID]
}

// HeldQuantity returns the simulated quantity still held for a ticker
func (s SimulationState) HeldQuantity(ticker string) int {
	return s.heldQuantity[ticker]
}

// ApplyBuy returns the state after buying qty shares worth deltaWeight percentage points
func (s SimulationState) ApplyBuy(ticker string, sectorID int, qty int, deltaWeight float64) SimulationState {
	next := s.clone()
	next.stockWeights[ticker] += deltaWeight
	next.heldQuantity[ticker] += qty
	next.sectorWeights[sectorID] += deltaWeight
	return next
}

// ApplySell returns the state after selling qty shares worth deltaWeight percentage points
func (s SimulationState) ApplySell(ticker string, sectorID int, qty int, deltaWeight float64) SimulationState {
	next := s.clone()
	next.stockWeights[ticker] -= deltaWeight
	next.heldQuantity[ticker] -= qty
	next.sectorWeights[sectorID] -= deltaWeight
	return next
}

func (s SimulationState) clone() SimulationState {
	next := SimulationState{
		stockWeights:  make(map[string]float64, len(s.stockWeights)+1),
		heldQuantity:  make(map[string]int, len(s.heldQuantity)+1),
		sectorWeights: make(map[int]float64, len(s.sectorWeights)),
	}
	for k, v := range s.stockWeights {
		next.stockWeights[k] = v
	}
	for k, v := range s.heldQuantity {
		next.heldQuantity[k] = v
	}
	for k, v := range s.sectorWeights {
		next.sectorWeights[k] = v
	}
	return next
}
