package audit

// Pipeline stages recorded in the audit trail. Every request produces a
// "received" entry and a terminal entry; the stages in between depend on
// which gates the request passed through.
const (
	StageReceived          = "received"
	StageValidated         = "validated"
	StageJudged            = "judged"
	StageAutoApproved      = "auto_approved"
	StagePendingApproval   = "pending_approval"
	StageApproved          = "approved"
	StageRejected          = "rejected"
	StageExecutionStarted  = "execution_started"
	StageExecutionFinished = "execution_finished"
	StageAuditError        = "audit_error"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are flat scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp string `json:"ts"`
	RequestID string `json:"request_id"`
	Caller    string `json:"caller,omitempty"`
	Tool      string `json:"tool,omitempty"`
	Stage     string `json:"stage"`
	Verdict   string `json:"verdict,omitempty"`
	Detail    string `json:"detail,omitempty"`
	PrevHash  string `json:"prev_hash"`
}
