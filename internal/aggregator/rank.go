package aggregator

import (
	"sort"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// Rank sorts rows by BuyScore descending and keeps the top n. Ties break
// on symbol ascending so the same inputs always produce the same output.
func Rank(rows []contracts.RankedRow, n int) []contracts.RankedRow {
	ranked := make([]contracts.RankedRow, len(rows))
	copy(ranked, rows)

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].BuyScore != ranked[j].BuyScore {
			return ranked[i].BuyScore > ranked[j].BuyScore
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// countSynthetic reports how many rows were scored on synthetic data
func countSynthetic(rows []contracts.RankedRow) int {
	count := 0
	for _, row := range rows {
		if row.Provenance == contracts.ProvenanceSynthetic {
			count++
		}
	}
	return count
}
