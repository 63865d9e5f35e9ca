package universe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/httputil"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Descriptor describes where the stock universe comes from. Resolution
// order: explicit records, test-mode sample, Wikipedia constituents page.
type Descriptor struct {
	TestMode    bool                    `json:"test_mode,omitempty"`
	TestSymbols []string                `json:"test_symbols,omitempty"`
	Records     []contracts.StockRecord `json:"sp500_data,omitempty"`
}

// DefaultTestSymbols is the small named sample used in test mode
var DefaultTestSymbols = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

const constituentsURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

// Loader resolves a universe descriptor into stock records
// ⭐ SSOT: 유니버스 로딩은 여기서만
type Loader struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	sourceURL  string
}

// NewLoader creates a new universe loader
func NewLoader(httpClient *httputil.Client, log *logger.Logger) *Loader {
	return &Loader{
		httpClient: httpClient,
		logger:     log.WithField("module", "universe"),
		sourceURL:  constituentsURL,
	}
}

// WithSourceURL overrides the reference page URL. For tests.
func (l *Loader) WithSourceURL(url string) *Loader {
	l.sourceURL = url
	return l
}

// Load resolves the descriptor into a universe. A universe that cannot be
// resolved is a fatal input error for the run.
func (l *Loader) Load(ctx context.Context, desc Descriptor) ([]contracts.StockRecord, error) {
	if desc.TestMode {
		symbols := desc.TestSymbols
		if len(symbols) == 0 {
			symbols = DefaultTestSymbols
		}
		records := make([]contracts.StockRecord, 0, len(symbols))
		for _, symbol := range symbols {
			records = append(records, contracts.NewStockRecord(symbol, "Technology"))
		}
		l.logger.WithField("count", len(records)).Info("Loaded test universe")
		return records, nil
	}

	if len(desc.Records) > 0 {
		records := make([]contracts.StockRecord, 0, len(desc.Records))
		for _, r := range desc.Records {
			if r.Symbol == "" {
				continue
			}
			records = append(records, contracts.NewStockRecord(r.Symbol, r.Sector))
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("universe descriptor contained no usable records")
		}
		l.logger.WithField("count", len(records)).Info("Loaded universe from descriptor")
		return records, nil
	}

	// Fallback: fetch the constituents reference page
	records, err := l.fetchConstituents(ctx)
	if err != nil {
		return nil, fmt.Errorf("universe data missing and constituents fetch failed: %w", err)
	}

	l.logger.WithField("count", len(records)).Info("Loaded universe from constituents page")
	return records, nil
}

// fetchConstituents downloads and parses the S&P 500 constituents table
func (l *Loader) fetchConstituents(ctx context.Context) ([]contracts.StockRecord, error) {
	resp, err := l.httpClient.Get(ctx, l.sourceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	return parseConstituentsTable(doc)
}

// parseConstituentsTable extracts Symbol and GICS Sector from the first
// constituents wikitable. Column positions are located from the header row
// rather than assumed.
func parseConstituentsTable(doc *goquery.Document) ([]contracts.StockRecord, error) {
	table := doc.Find("table.wikitable").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("constituents table not found")
	}

	symbolCol, sectorCol := -1, -1
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		header := strings.TrimSpace(th.Text())
		switch {
		case strings.EqualFold(header, "Symbol"):
			symbolCol = i
		case strings.Contains(strings.ToLower(header), "sector"):
			sectorCol = i
		}
	})
	if symbolCol < 0 {
		return nil, fmt.Errorf("symbol column not found in constituents table")
	}

	var records []contracts.StockRecord
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := tr.Find("td")
		if cells.Length() <= symbolCol {
			return
		}

		symbol := strings.TrimSpace(cells.Eq(symbolCol).Text())
		if symbol == "" {
			return
		}

		sector := ""
		if sectorCol >= 0 && cells.Length() > sectorCol {
			sector = strings.TrimSpace(cells.Eq(sectorCol).Text())
		}

		records = append(records, contracts.NewStockRecord(symbol, sector))
	})

	if len(records) == 0 {
		return nil, fmt.Errorf("constituents table contained no rows")
	}

	return records, nil
}
