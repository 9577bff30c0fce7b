package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// TrailFilter holds filtering criteria for reading a request's trail.
type TrailFilter struct {
	RequestID string
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// TrailSummary holds stage counts and metadata for a request trail.
type TrailSummary struct {
	Total          int    `json:"total"`
	RejectedCount  int    `json:"rejected_count"`
	ApprovedCount  int    `json:"approved_count"`
	ExecutedCount  int    `json:"executed_count"`
	FirstTimestamp string `json:"first_timestamp"`
	LastTimestamp  string `json:"last_timestamp"`
	FinalStage     string `json:"final_stage"`
}

// TrailResult holds filtered entries and summary for one request.
type TrailResult struct {
	RequestID string       `json:"request_id"`
	Entries   []Entry      `json:"entries"`
	Summary   TrailSummary `json:"summary"`
}

// Trail reads the audit log and returns entries matching the filter.
// Malformed lines are skipped; Verify is the tool for chain integrity.
func Trail(path string, filter TrailFilter) (*TrailResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &TrailResult{
		RequestID: filter.RequestID,
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}
		if filter.RequestID != "" && entry.RequestID != filter.RequestID {
			continue
		}
		if !inRange(entry.Timestamp, filter.From, filter.To) {
			continue
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}

	result.Summary = summarize(result.Entries)
	return result, nil
}

func inRange(ts string, from, to time.Time) bool {
	if from.IsZero() && to.IsZero() {
		return true
	}
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return false
	}
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func summarize(entries []Entry) TrailSummary {
	s := TrailSummary{Total: len(entries)}
	for i, e := range entries {
		switch e.Stage {
		case StageRejected:
			s.RejectedCount++
		case StageApproved, StageAutoApproved:
			s.ApprovedCount++
		case StageExecutionFinished:
			s.ExecutedCount++
		}
		if i == 0 {
			s.FirstTimestamp = e.Timestamp
		}
		s.LastTimestamp = e.Timestamp
		s.FinalStage = e.Stage
	}
	return s
}
