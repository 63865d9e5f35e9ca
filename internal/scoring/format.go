package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// FormatFundamentals renders fetched fundamentals into the text block the
// scoring oracle receives: one stanza per symbol, one "name: value" line
// per metric. Missing metrics are rendered as an explicit "N/A" marker so
// the oracle sees the absence instead of a silent omission. Symbols are
// emitted in sorted order so the same input always produces the same
// prompt.
func FormatFundamentals(results map[string]contracts.StockFundamentals) string {
	symbols := make([]string, 0, len(results))
	for symbol := range results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var b strings.Builder
	for _, symbol := range symbols {
		b.WriteString(symbol)
		b.WriteString(":\n")
		for _, name := range contracts.MetricNames {
			if v, ok := results[symbol].Data.Get(name); ok {
				fmt.Fprintf(&b, "  %s: %g\n", name, v)
			} else {
				fmt.Fprintf(&b, "  %s: N/A\n", name)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// buildPrompt wraps the fundamentals block with scoring instructions
func buildPrompt(fundamentalsBlock string) string {
	return fmt.Sprintf(`Analyze these stocks quickly using key fundamentals. Assign BuyScore (1-10) and 1-2 key reasons.

Focus on: P/E Ratio, Revenue Growth, EPS, Profit Margins, ROE.

Note: Some values may be N/A due to data availability. Focus on available metrics.

%s
Return JSON only:
{"SYMBOL": {"BuyScore": 8, "ReasonsToBuy": ["reason1", "reason2"]}}
`, fundamentalsBlock)
}
