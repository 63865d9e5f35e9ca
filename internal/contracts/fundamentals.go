package contracts

// Provenance marks where a fundamentals record came from. Synthetic data
// keeps the pipeline moving when every real source fails, but the final
// output must be able to say so.
type Provenance string

const (
	ProvenancePrimary   Provenance = "primary"
	ProvenanceSecondary Provenance = "secondary"
	ProvenanceSynthetic Provenance = "synthetic"
)

// Canonical metric names. Order matters: the scoring oracle sees metrics
// in this order, one line per metric.
const (
	MetricRevenueGrowth = "Revenue Growth"
	MetricEPS           = "EPS"
	MetricProfitMargin  = "Net Profit Margin"
	MetricROE           = "Return on Equity"
	MetricPERatio       = "P/E Ratio"
	MetricCurrentRatio  = "Current Ratio"
	MetricDebtToEquity  = "Debt-to-Equity Ratio"
)

// MetricNames lists every metric in presentation order
var MetricNames = []string{
	MetricRevenueGrowth,
	MetricEPS,
	MetricProfitMargin,
	MetricROE,
	MetricPERatio,
	MetricCurrentRatio,
	MetricDebtToEquity,
}

// Fundamentals is a sparse named-metric record for one symbol.
// A nil entry means the metric is unknown, which is not the same as zero.
type Fundamentals struct {
	Metrics    map[string]*float64 `json:"metrics"`
	Provenance Provenance          `json:"provenance"`
}

// NewFundamentals creates an empty record with the given provenance
func NewFundamentals(p Provenance) Fundamentals {
	return Fundamentals{
		Metrics:    make(map[string]*float64, len(MetricNames)),
		Provenance: p,
	}
}

// Set stores a metric value
func (f Fundamentals) Set(name string, value float64) {
	v := value
	f.Metrics[name] = &v
}

// Get returns the metric value and whether it is known
func (f Fundamentals) Get(name string) (float64, bool) {
	v, ok := f.Metrics[name]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// ValidCount returns the number of known metrics
func (f Fundamentals) ValidCount() int {
	count := 0
	for _, v := range f.Metrics {
		if v != nil {
			count++
		}
	}
	return count
}

// Eligible reports whether the record may enter scoring: the P/E Ratio
// must be present and strictly positive. Every downstream stage enforces
// this filter.
func (f Fundamentals) Eligible() bool {
	pe, ok := f.Get(MetricPERatio)
	return ok && pe > 0
}

// StockFundamentals pairs a symbol's sector with its fetched metrics,
// the value type of a chunk processor's result map
type StockFundamentals struct {
	Sector string       `json:"sector"`
	Data   Fundamentals `json:"data"`
}
