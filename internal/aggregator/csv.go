package aggregator

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// Second-column header variants. The in-process path historically labels
// the column "Industry"; the distributed path labels it "Sector".
const (
	SectorHeader   = "Sector"
	IndustryHeader = "Industry"
)

// BuildCSV renders ranked rows as a CSV document with the fixed column
// order Symbol, Sector, BuyScore, ReasonsToBuy
func BuildCSV(rows []contracts.RankedRow, sectorHeader string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Symbol", sectorHeader, "BuyScore", "ReasonsToBuy"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{row.Symbol, row.Sector, strconv.Itoa(row.BuyScore), row.ReasonsToBuy}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %s: %w", row.Symbol, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}
