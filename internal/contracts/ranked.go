package contracts

import "strings"

// ScoreResult is the oracle's verdict for one symbol
type ScoreResult struct {
	BuyScore int      `json:"BuyScore"`
	Reasons  []string `json:"ReasonsToBuy"`
}

// RankedRow is the final output unit, one CSV data row.
// JSON field names match the chunk objects written to storage.
type RankedRow struct {
	Symbol       string     `json:"Symbol"`
	Sector       string     `json:"Sector"`
	BuyScore     int        `json:"BuyScore"`
	ReasonsToBuy string     `json:"ReasonsToBuy"`
	Provenance   Provenance `json:"Provenance,omitempty"`
}

// NewRankedRow renders a score result into an output row, joining the
// reasons with "; " as the CSV contract requires
func NewRankedRow(symbol, sector string, score ScoreResult, provenance Provenance) RankedRow {
	return RankedRow{
		Symbol:       symbol,
		Sector:       sector,
		BuyScore:     score.BuyScore,
		ReasonsToBuy: strings.Join(score.Reasons, "; "),
		Provenance:   provenance,
	}
}
