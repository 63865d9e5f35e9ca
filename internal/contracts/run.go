package contracts

import "time"

// RunMode distinguishes the two sizing regimes
type RunMode string

const (
	RunModeSequential  RunMode = "sequential"
	RunModeDistributed RunMode = "distributed"
)

// RunReport is the structured status returned by an orchestrator run
// ⭐ SSOT: 실행 결과 보고는 이 타입으로만
type RunReport struct {
	RunID          string    `json:"run_id"`
	Mode           RunMode   `json:"mode"`
	UniverseSize   int       `json:"universe_size"`
	ChunksExpected int       `json:"chunks_expected,omitempty"`
	ChunksLaunched int       `json:"chunks_launched,omitempty"`
	ResultsCount   int       `json:"results_count,omitempty"`
	TotalProcessed int       `json:"total_processed,omitempty"`
	EstimatedDone  time.Time `json:"estimated_completion,omitempty"`
	Message        string    `json:"message"`
	StartedAt      time.Time `json:"started_at"`
	Duration       string    `json:"duration,omitempty"`
}
