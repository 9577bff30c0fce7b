// Package gateway runs tool-call requests through the full gating
// pipeline: pattern scan, capability validation, semantic judging,
// approval, and sandboxed execution.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ppiankov/skillgate/internal/alert"
	"github.com/ppiankov/skillgate/internal/approval"
	"github.com/ppiankov/skillgate/internal/audit"
	"github.com/ppiankov/skillgate/internal/capability"
	"github.com/ppiankov/skillgate/internal/history"
	"github.com/ppiankov/skillgate/internal/judge"
	"github.com/ppiankov/skillgate/internal/model"
	"github.com/ppiankov/skillgate/internal/pattern"
	"github.com/ppiankov/skillgate/internal/redact"
	"github.com/ppiankov/skillgate/internal/sandbox"
	"github.com/ppiankov/skillgate/internal/tracer"
	"github.com/ppiankov/skillgate/internal/validate"
)

// Decision is the gateway's answer for one request.
type Decision struct {
	RequestID string                 `json:"request_id"`
	State     State                  `json:"state"`
	Verdict   model.MatchResult      `json:"verdict"`
	RiskTier  model.RiskTier         `json:"risk_tier"`
	Reason    string                 `json:"reason,omitempty"`
	Result    *model.ExecutionResult `json:"result,omitempty"`
}

// Deps wires the gateway's collaborators. Judge, History, and Alerts are
// optional; everything else is required.
type Deps struct {
	Matcher   *pattern.Matcher
	Validator *validate.Validator
	Judge     *judge.Judge
	Approvals *approval.Store
	Executor  *sandbox.Executor
	Audit     *audit.Log
	History   *history.Store
	Alerts    *alert.Dispatcher
}

// Gateway is the approval pipeline. Safe for concurrent use.
type Gateway struct {
	deps Deps
}

// New returns a gateway over the given collaborators.
func New(deps Deps) *Gateway {
	return &Gateway{deps: deps}
}

// Check runs the gating pipeline without side effects: no approval is
// registered and nothing executes. The returned decision is what Submit
// would have done.
func (g *Gateway) Check(ctx context.Context, req model.ActionRequest) (*Decision, error) {
	d, _, err := g.evaluate(ctx, &req)
	return d, err
}

// Submit runs the full pipeline. Auto-approved requests execute
// immediately; suspicious or risky ones are parked for human approval and
// the caller redeems the issued token later via Redeem.
func (g *Gateway) Submit(ctx context.Context, req model.ActionRequest) (*Decision, error) {
	d, grant, err := g.evaluate(ctx, &req)
	if err != nil {
		g.finalize(ctx, d, req)
		return d, err
	}

	switch d.State {
	case StateRejected:
		g.record(audit.StageRejected, req, string(d.Verdict.Verdict), d.Reason)
		g.finalize(ctx, d, req)
		return d, nil

	case StatePendingApproval:
		if err := g.deps.Approvals.Request(d.RequestID, req.Origin.Caller, req.Tool, d.Reason); err != nil {
			return d, fmt.Errorf("gateway: register approval: %w", err)
		}
		g.record(audit.StagePendingApproval, req, string(d.Verdict.Verdict), d.Reason)
		g.finalize(ctx, d, req)
		return d, nil

	case StateAutoApproved:
		g.record(audit.StageAutoApproved, req, string(d.Verdict.Verdict), d.Reason)
		g.finalize(ctx, d, req)
		return g.execute(ctx, d, req, grant)

	default:
		return d, fmt.Errorf("gateway: unexpected state %q", d.State)
	}
}

// Approve resolves a pending request and returns its single-use token.
func (g *Gateway) Approve(requestID string) (string, error) {
	token, err := g.deps.Approvals.Approve(requestID, 0)
	if err != nil {
		return "", err
	}
	g.deps.Audit.Record(audit.Entry{
		RequestID: requestID,
		Stage:     audit.StageApproved,
		Detail:    "human approval granted",
	})
	return token, nil
}

// Deny resolves a pending request as rejected. Terminal.
func (g *Gateway) Deny(requestID string) error {
	if err := g.deps.Approvals.Deny(requestID); err != nil {
		return err
	}
	g.deps.Audit.Record(audit.Entry{
		RequestID: requestID,
		Stage:     audit.StageRejected,
		Detail:    "human approval denied",
	})
	return nil
}

// Pending lists requests still waiting for a human.
func (g *Gateway) Pending() ([]approval.Approval, error) {
	all, err := g.deps.Approvals.List()
	if err != nil {
		return nil, err
	}
	var pending []approval.Approval
	for _, a := range all {
		if a.Status == approval.StatusPending {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

// Redeem executes a previously approved request. The request is
// re-evaluated first: an approval does not outlive a capability change
// that would now reject the call. The token burns on success.
func (g *Gateway) Redeem(ctx context.Context, req model.ActionRequest, token string) (*Decision, error) {
	if req.RequestID == "" {
		return nil, fmt.Errorf("gateway: redeem requires the original request id")
	}

	d, grant, err := g.evaluate(ctx, &req)
	if err != nil {
		return d, err
	}
	if d.State == StateRejected {
		g.record(audit.StageRejected, req, string(d.Verdict.Verdict), d.Reason)
		g.finalize(ctx, d, req)
		return d, nil
	}

	if err := g.deps.Approvals.Consume(req.RequestID, token); err != nil {
		d.State = StateRejected
		d.Reason = consumeReason(err)
		g.record(audit.StageRejected, req, string(d.Verdict.Verdict), d.Reason)
		g.finalize(ctx, d, req)
		return d, nil
	}

	d.State = StateApproved
	return g.execute(ctx, d, req, grant)
}

// evaluate runs pattern scan, validation, and judging, and sets the
// decision state. It never touches the approval store or the executor.
func (g *Gateway) evaluate(ctx context.Context, req *model.ActionRequest) (*Decision, capability.ToolGrant, error) {
	if req.RequestID == "" {
		req.RequestID = tracer.NewRequestID()
	}

	d := &Decision{
		RequestID: req.RequestID,
		State:     StateReceived,
		Verdict:   model.SafeResult(),
	}

	g.record(audit.StageReceived, *req, "", requestText(*req))

	d.Verdict = d.Verdict.Merge(g.deps.Matcher.Match(requestText(*req)))

	vres, err := g.deps.Validator.Validate(*req)
	if err != nil {
		d.State = StateRejected
		d.Reason = err.Error() // generic by construction
		var ie *validate.InternalError
		detail := d.Reason
		if errors.As(err, &ie) {
			detail = ie.Detail
		}
		g.record(audit.StageRejected, *req, string(d.Verdict.Verdict), detail)
		return d, capability.ToolGrant{}, err
	}
	d.Verdict = d.Verdict.Merge(vres.Verdict)
	d.RiskTier = model.RiskTier(vres.Grant.RiskTier)

	if !vres.OK {
		d.State = StateRejected
		d.Reason = vres.Reason
		return d, vres.Grant, nil
	}

	d.State = StateValidated
	g.record(audit.StageValidated, *req, string(d.Verdict.Verdict), "")

	// The judge only sees text the pattern scan cleared. A request already
	// flagged never leaves the process.
	if g.deps.Judge != nil && vres.Grant.DeepInspection && d.Verdict.Verdict == model.Safe {
		jr := g.deps.Judge.Classify(ctx, requestText(*req), judge.Context{
			Tool:     req.Tool,
			RiskTier: d.RiskTier,
		})
		g.record(audit.StageJudged, *req, string(jr.Verdict), jr.Reason)
		d.Verdict = d.Verdict.Merge(jr)
	}

	switch {
	case d.Verdict.Verdict == model.Malicious:
		d.State = StateRejected
		d.Reason = d.Verdict.Reason
	case d.Verdict.Verdict == model.Safe && d.RiskTier == model.TierLow:
		d.State = StateAutoApproved
		d.Reason = "low risk tier, clean scan"
	default:
		d.State = StatePendingApproval
		d.Reason = fmt.Sprintf("verdict %s at tier %s requires human approval", d.Verdict.Verdict, d.RiskTier)
	}

	return d, vres.Grant, nil
}

// execute runs the approved plan in the sandbox and attaches the result.
func (g *Gateway) execute(ctx context.Context, d *Decision, req model.ActionRequest, grant capability.ToolGrant) (*Decision, error) {
	cmd, err := buildCommand(grant, req)
	if err != nil {
		return d, err
	}
	cfg := sandbox.FromGrant(grant, cmd)

	g.record(audit.StageExecutionStarted, req, string(d.Verdict.Verdict), "")

	res, err := g.deps.Executor.Run(ctx, cfg)
	if err != nil {
		g.record(audit.StageExecutionFinished, req, string(d.Verdict.Verdict), fmt.Sprintf("execution failed: %v", err))
		return d, fmt.Errorf("gateway: execute: %w", err)
	}

	d.Result = res
	g.record(audit.StageExecutionFinished, req, string(res.Outcome),
		fmt.Sprintf("exit=%d duration_ms=%d truncated=%v", res.ExitStatus, res.DurationMS, res.Truncated))

	if g.deps.History != nil {
		if err := g.deps.History.RecordExecution(ctx, req.RequestID, res); err != nil {
			g.deps.Audit.Record(audit.Entry{RequestID: req.RequestID, Stage: audit.StageAuditError, Detail: err.Error()})
		}
	}
	if g.deps.Alerts != nil && res.Outcome != model.OutcomeCompleted {
		g.deps.Alerts.Dispatch(alert.Event{
			Timestamp: tracer.UTCNowISO(),
			RequestID: req.RequestID,
			Caller:    req.Origin.Caller,
			Tool:      req.Tool,
			Stage:     string(res.Outcome),
			Verdict:   string(d.Verdict.Verdict),
			RiskTier:  string(d.RiskTier),
			Reason:    fmt.Sprintf("execution ended with %s", res.Outcome),
		})
	}

	return d, nil
}

// finalize records the decision in history and raises alerts for terminal
// denials and parked requests. Failures here never fail the request.
func (g *Gateway) finalize(ctx context.Context, d *Decision, req model.ActionRequest) {
	if g.deps.History != nil {
		err := g.deps.History.RecordDecision(ctx, history.Decision{
			RequestID: d.RequestID,
			Caller:    req.Origin.Caller,
			Tool:      req.Tool,
			State:     string(d.State),
			Verdict:   string(d.Verdict.Verdict),
			Reason:    redact.Mask(d.Reason),
		})
		if err != nil {
			g.deps.Audit.Record(audit.Entry{RequestID: d.RequestID, Stage: audit.StageAuditError, Detail: err.Error()})
		}
	}
	if g.deps.Alerts != nil && (d.State == StateRejected || d.State == StatePendingApproval) {
		g.deps.Alerts.Dispatch(alert.Event{
			Timestamp: tracer.UTCNowISO(),
			RequestID: d.RequestID,
			Caller:    req.Origin.Caller,
			Tool:      req.Tool,
			Stage:     string(d.State),
			Verdict:   string(d.Verdict.Verdict),
			Category:  string(d.Verdict.Category),
			RiskTier:  string(d.RiskTier),
			Reason:    d.Reason,
		})
	}
}

func (g *Gateway) record(stage string, req model.ActionRequest, verdict, detail string) {
	g.deps.Audit.Record(audit.Entry{
		RequestID: req.RequestID,
		Caller:    req.Origin.Caller,
		Tool:      req.Tool,
		Stage:     stage,
		Verdict:   verdict,
		Detail:    detail,
	})
}

// requestText is what the scanners see: the raw text when the caller
// supplied one, otherwise a deterministic rendering of the tool call.
func requestText(req model.ActionRequest) string {
	if req.RawText != "" {
		return req.RawText
	}
	args, _ := json.Marshal(req.Arguments)
	return fmt.Sprintf("%s %s", req.Tool, args)
}

// buildCommand maps a request onto the grant's entrypoint. A "command"
// string argument rides as-is; anything else is handed to the entrypoint
// as a JSON payload.
func buildCommand(grant capability.ToolGrant, req model.ActionRequest) ([]string, error) {
	entry := make([]string, len(grant.Entrypoint))
	copy(entry, grant.Entrypoint)
	if len(entry) == 0 {
		return nil, fmt.Errorf("gateway: tool %q has no entrypoint", req.Tool)
	}

	if c, ok := req.Arguments["command"].(string); ok {
		return append(entry, c), nil
	}
	payload, err := json.Marshal(req.Arguments)
	if err != nil {
		return nil, fmt.Errorf("gateway: encode arguments: %w", err)
	}
	return append(entry, string(payload)), nil
}

func consumeReason(err error) string {
	switch {
	case errors.Is(err, approval.ErrExpired):
		return "approval expired before redemption"
	case errors.Is(err, approval.ErrAlreadyConsumed):
		return "approval token already used"
	case errors.Is(err, approval.ErrTokenMismatch):
		return "approval token does not match"
	case errors.Is(err, approval.ErrNotApproved):
		return "request was not approved"
	case errors.Is(err, approval.ErrNotFound):
		return "no approval found for request"
	default:
		return "approval could not be redeemed"
	}
}
