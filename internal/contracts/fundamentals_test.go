package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFundamentalsEligible(t *testing.T) {
	tests := []struct {
		name     string
		pe       *float64
		eligible bool
	}{
		{"positive P/E", ptr(28.5), true},
		{"zero P/E", ptr(0), false},
		{"negative P/E", ptr(-4.2), false},
		{"missing P/E", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFundamentals(ProvenancePrimary)
			f.Set(MetricEPS, 6.43)
			if tt.pe != nil {
				f.Set(MetricPERatio, *tt.pe)
			}

			assert.Equal(t, tt.eligible, f.Eligible())
		})
	}
}

func TestFundamentalsAbsenceIsNotZero(t *testing.T) {
	f := NewFundamentals(ProvenancePrimary)
	f.Set(MetricCurrentRatio, 0)

	// Explicit zero is known
	v, ok := f.Get(MetricCurrentRatio)
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	// Missing metric is unknown
	_, ok = f.Get(MetricROE)
	assert.False(t, ok)

	assert.Equal(t, 1, f.ValidCount())
}

func TestNewStockRecordDefaultsSector(t *testing.T) {
	r := NewStockRecord("AAPL", "")
	assert.Equal(t, "Unknown", r.Sector)

	r = NewStockRecord("MSFT", "Technology")
	assert.Equal(t, "Technology", r.Sector)
}

func TestNewRankedRowJoinsReasons(t *testing.T) {
	row := NewRankedRow("AAPL", "Technology", ScoreResult{
		BuyScore: 7,
		Reasons:  []string{"Strong revenue growth", "Healthy margins"},
	}, ProvenancePrimary)

	assert.Equal(t, 7, row.BuyScore)
	assert.Equal(t, "Strong revenue growth; Healthy margins", row.ReasonsToBuy)
}

func ptr(v float64) *float64 { return &v }
