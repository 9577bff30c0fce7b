package audit

import (
	"testing"
)

func TestTrailFiltersByRequestID(t *testing.T) {
	l, path := newTestLog(t)

	a := testEntry(StageReceived)
	a.RequestID = "r-aaa"
	b := testEntry(StageReceived)
	b.RequestID = "r-bbb"
	bDone := testEntry(StageExecutionFinished)
	bDone.RequestID = "r-bbb"

	for _, e := range []Entry{a, b, bDone} {
		if err := l.Record(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	l.Close()

	result, err := Trail(path, TrailFilter{RequestID: "r-bbb"})
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result.Entries))
	}
	if result.Summary.ExecutedCount != 1 {
		t.Fatalf("expected 1 executed, got %d", result.Summary.ExecutedCount)
	}
	if result.Summary.FinalStage != StageExecutionFinished {
		t.Fatalf("expected final stage %s, got %s", StageExecutionFinished, result.Summary.FinalStage)
	}
}

func TestTrailCountsRejections(t *testing.T) {
	l, path := newTestLog(t)

	for _, stage := range []string{StageReceived, StageRejected} {
		e := testEntry(stage)
		if err := l.Record(e); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	l.Close()

	result, err := Trail(path, TrailFilter{RequestID: "r-test123"})
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if result.Summary.RejectedCount != 1 {
		t.Fatalf("expected 1 rejection, got %d", result.Summary.RejectedCount)
	}
	if result.Summary.ApprovedCount != 0 {
		t.Fatalf("expected 0 approvals, got %d", result.Summary.ApprovedCount)
	}
}

func TestTrailEmptyLog(t *testing.T) {
	l, path := newTestLog(t)
	l.Close()

	result, err := Trail(path, TrailFilter{RequestID: "r-missing"})
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(result.Entries))
	}
	if result.Summary.Total != 0 {
		t.Fatalf("expected total 0, got %d", result.Summary.Total)
	}
}
