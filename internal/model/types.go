package model

import "time"

// ThreatLevel classifies how dangerous a request or argument looks.
type ThreatLevel string

const (
	Safe       ThreatLevel = "safe"
	Suspicious ThreatLevel = "suspicious"
	Malicious  ThreatLevel = "malicious"
)

// ThreatRank maps threat levels to comparable integers for monotonic escalation.
var ThreatRank = map[ThreatLevel]int{
	Safe:       0,
	Suspicious: 1,
	Malicious:  2,
}

// Max returns the more severe of two threat levels.
func (t ThreatLevel) Max(other ThreatLevel) ThreatLevel {
	if ThreatRank[other] > ThreatRank[t] {
		return other
	}
	return t
}

// ThreatCategory tags which detection family flagged a request.
type ThreatCategory string

const (
	CategoryNone             ThreatCategory = "none"
	CategoryCommandInjection ThreatCategory = "command_injection"
	CategoryIoTInjection     ThreatCategory = "iot_injection"
	CategoryDataExfiltration ThreatCategory = "data_exfiltration"
	CategorySupplyChain      ThreatCategory = "supply_chain"
	CategoryPolicyOverride   ThreatCategory = "policy_override"
	CategoryJudgeBypass      ThreatCategory = "judge_bypass"
	CategoryReflectionLeak   ThreatCategory = "reflection_leak"
	CategoryJailbreak        ThreatCategory = "jailbreak"
)

// MatchResult is the outcome of one validation stage. Results are never
// mutated after creation; callers merge them with Merge, which only escalates.
type MatchResult struct {
	Verdict   ThreatLevel    `json:"verdict"`
	Category  ThreatCategory `json:"category"`
	PatternID string         `json:"pattern_id,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// SafeResult is the zero-signal result returned by stages that found nothing.
func SafeResult() MatchResult {
	return MatchResult{Verdict: Safe, Category: CategoryNone}
}

// Merge combines two stage results, keeping the more severe verdict. The
// category and reason follow whichever result carries the higher verdict, so
// severity can only escalate across stages.
func (m MatchResult) Merge(other MatchResult) MatchResult {
	if ThreatRank[other.Verdict] > ThreatRank[m.Verdict] {
		return other
	}
	return m
}

// RiskTier is the per-tool risk classification from the capability set.
type RiskTier string

const (
	TierLow    RiskTier = "low"
	TierMedium RiskTier = "medium"
	TierHigh   RiskTier = "high"
)

// TierRank maps risk tiers to comparable integers.
var TierRank = map[RiskTier]int{
	TierLow:    0,
	TierMedium: 1,
	TierHigh:   2,
}

// CallerIdentity names the principal a request is executed on behalf of.
type CallerIdentity struct {
	Caller    string `json:"caller"`
	SessionID string `json:"session_id,omitempty"`
}

// ActionRequest is one tool invocation requested on behalf of a user or
// agent turn. Immutable once constructed; owned by a single pipeline
// invocation and never shared across concurrent requests.
type ActionRequest struct {
	RequestID string         `json:"request_id"`
	Tool      string         `json:"tool"`
	Action    string         `json:"action"`
	Arguments map[string]any `json:"arguments"`
	Origin    CallerIdentity `json:"origin"`
	RawText   string         `json:"raw_text"`
}

// ActionPlan is a validated request ready for gating. Consumed exactly once
// by the executor or discarded on rejection.
type ActionPlan struct {
	Request               ActionRequest `json:"request"`
	Verdict               MatchResult   `json:"verdict"`
	RiskTier              RiskTier      `json:"risk_tier"`
	RequiresHumanApproval bool          `json:"requires_human_approval"`
	ApprovalKey           string        `json:"approval_key,omitempty"`
}

// Outcome distinguishes how a sandboxed execution ended.
type Outcome string

const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeOOMKilled    Outcome = "oom_killed"
	OutcomeQueueTimeout Outcome = "queue_timeout"
)

// ExecutionResult is the captured outcome of one sandboxed run. Owned by the
// caller; the executor retains nothing after return.
type ExecutionResult struct {
	ExitStatus int     `json:"exit_status"`
	Stdout     []byte  `json:"stdout"`
	Stderr     []byte  `json:"stderr"`
	DurationMS int64   `json:"duration_ms"`
	Truncated  bool    `json:"truncated"`
	Outcome    Outcome `json:"outcome"`
}

// Denial is the structured rejection returned to callers when a request does
// not reach execution. Internal detail never leaks through Reason.
type Denial struct {
	RequestID string         `json:"request_id"`
	Category  ThreatCategory `json:"category"`
	Reason    string         `json:"reason"`
	Stage     string         `json:"stage"`
	Time      time.Time      `json:"time"`
}
