package scoring

import (
	"encoding/json"
	"strings"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// ExtractScores pulls the per-symbol score object out of a free-form
// oracle reply. The reply often wraps the JSON in prose or markdown
// fences, so we take everything between the first '{' and the last '}'.
// Any shape problem yields an empty map, never an error: a garbled reply
// for one batch must not fail the whole run.
func ExtractScores(reply string) map[string]contracts.ScoreResult {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return map[string]contracts.ScoreResult{}
	}

	var scores map[string]contracts.ScoreResult
	if err := json.Unmarshal([]byte(reply[start:end+1]), &scores); err != nil {
		return map[string]contracts.ScoreResult{}
	}
	if scores == nil {
		return map[string]contracts.ScoreResult{}
	}

	return scores
}
