package contracts

// StockRecord is the immutable input unit of the stock universe
// ⭐ SSOT: 유니버스 입력 타입은 여기서만 정의
type StockRecord struct {
	Symbol string `json:"Symbol"`
	Sector string `json:"Sector"`
}

// NewStockRecord builds a record, defaulting Sector to "Unknown"
func NewStockRecord(symbol, sector string) StockRecord {
	if sector == "" {
		sector = "Unknown"
	}
	return StockRecord{Symbol: symbol, Sector: sector}
}

// ChunkJob is one bounded subset of the universe, created once by the
// orchestrator and consumed exactly once by a chunk worker
type ChunkJob struct {
	ChunkID string        `json:"chunk_id"`
	Stocks  []StockRecord `json:"stocks"`
}
