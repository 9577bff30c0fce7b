package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// VerifyResult holds the outcome of a hash chain verification walk,
// plus coverage over the requests the log records.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Requests  int    `json:"requests"`
	Rejected  int    `json:"rejected"`
	Executed  int    `json:"executed"`
	TailHash  string `json:"tail_hash,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify walks a JSONL audit log and validates that every entry links to
// the hash of the line before it, starting from the genesis hash. The walk
// also tallies distinct request IDs and terminal stages, so an operator
// can see how much decision history an intact log covers.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	var res VerifyResult
	seen := make(map[string]bool)
	chainTail := GenesisHash

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		res.Lines++
		line := append([]byte(nil), scanner.Bytes()...)

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			res.Error = fmt.Sprintf("parse error: %v", err)
			res.ErrorLine = res.Lines
			return res
		}
		if entry.PrevHash != chainTail {
			res.Error = fmt.Sprintf("chain break: entry links %s, chain tail is %s", entry.PrevHash, chainTail)
			res.ErrorLine = res.Lines
			return res
		}

		if entry.RequestID != "" && !seen[entry.RequestID] {
			seen[entry.RequestID] = true
			res.Requests++
		}
		switch entry.Stage {
		case StageRejected:
			res.Rejected++
		case StageExecutionFinished:
			res.Executed++
		}

		chainTail = HashLine(line)
	}
	if err := scanner.Err(); err != nil {
		res.Error = fmt.Sprintf("scan: %v", err)
		return res
	}

	res.Valid = true
	res.TailHash = chainTail
	return res
}
