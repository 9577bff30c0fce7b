package mcp

import (
	"context"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/skillgate/internal/gateway"
	"github.com/ppiankov/skillgate/internal/model"
)

// --- Input/Output types ---

// RunInput defines parameters for the skillgate_run tool.
type RunInput struct {
	Tool      string         `json:"tool" jsonschema:"tool being invoked, e.g. shell.exec"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"tool call arguments"`
	RawText   string         `json:"raw_text,omitempty" jsonschema:"raw request text for threat scanning"`
}

// RunOutput contains the execution result or the gating decision that
// stopped it.
type RunOutput struct {
	RequestID  string `json:"request_id"`
	State      string `json:"state"`
	Verdict    string `json:"verdict"`
	RiskTier   string `json:"risk_tier,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	ExitStatus int    `json:"exit_status,omitempty"`
	Outcome    string `json:"outcome,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// CheckInput defines parameters for the skillgate_check tool.
type CheckInput struct {
	Tool      string         `json:"tool" jsonschema:"tool being invoked"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"tool call arguments"`
	RawText   string         `json:"raw_text,omitempty" jsonschema:"raw request text for threat scanning"`
}

// CheckOutput contains the decision without any side effects.
type CheckOutput struct {
	RequestID string `json:"request_id"`
	State     string `json:"state"`
	Verdict   string `json:"verdict"`
	RiskTier  string `json:"risk_tier,omitempty"`
	Reason    string `json:"reason,omitempty"`
	PatternID string `json:"pattern_id,omitempty"`
}

// ApproveInput defines parameters for the skillgate_approve tool.
type ApproveInput struct {
	RequestID string `json:"request_id" jsonschema:"request id from a pending decision"`
}

// ApproveOutput carries the single-use redemption token.
type ApproveOutput struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Token     string `json:"token"`
}

// DenyInput defines parameters for the skillgate_deny tool.
type DenyInput struct {
	RequestID string `json:"request_id" jsonschema:"request id from a pending decision"`
}

// DenyOutput confirms the denial.
type DenyOutput struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// RedeemInput defines parameters for the skillgate_redeem tool. The tool
// call is re-stated in full so the gateway can re-evaluate it before
// execution.
type RedeemInput struct {
	RequestID string         `json:"request_id" jsonschema:"approved request id"`
	Token     string         `json:"token" jsonschema:"single-use token from skillgate_approve"`
	Tool      string         `json:"tool" jsonschema:"tool being invoked"`
	Arguments map[string]any `json:"arguments,omitempty" jsonschema:"tool call arguments"`
	RawText   string         `json:"raw_text,omitempty" jsonschema:"raw request text for threat scanning"`
}

// PendingInput is empty.
type PendingInput struct{}

// PendingOutput lists requests waiting for a human decision.
type PendingOutput struct {
	Requests []PendingItem `json:"requests"`
}

// PendingItem describes one parked request.
type PendingItem struct {
	RequestID string `json:"request_id"`
	Caller    string `json:"caller"`
	Tool      string `json:"tool"`
	Reason    string `json:"reason"`
	CreatedAt string `json:"created_at"`
	ExpiresAt string `json:"expires_at"`
}

// --- Handlers ---

func (s *Server) handleRun(ctx context.Context, req *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, RunOutput, error) {
	d, err := s.gw.Submit(ctx, s.buildRequest(input.Tool, input.Arguments, input.RawText))
	if err != nil {
		return nil, RunOutput{}, err
	}

	out := runOutput(d)
	if d.State == gateway.StateRejected {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	d, err := s.gw.Check(ctx, s.buildRequest(input.Tool, input.Arguments, input.RawText))
	if err != nil {
		return nil, CheckOutput{}, err
	}

	return nil, CheckOutput{
		RequestID: d.RequestID,
		State:     string(d.State),
		Verdict:   string(d.Verdict.Verdict),
		RiskTier:  string(d.RiskTier),
		Reason:    d.Reason,
		PatternID: d.Verdict.PatternID,
	}, nil
}

func (s *Server) handleApprove(ctx context.Context, req *mcpsdk.CallToolRequest, input ApproveInput) (*mcpsdk.CallToolResult, ApproveOutput, error) {
	token, err := s.gw.Approve(input.RequestID)
	if err != nil {
		return nil, ApproveOutput{}, err
	}

	return nil, ApproveOutput{
		RequestID: input.RequestID,
		Status:    "approved",
		Token:     token,
	}, nil
}

func (s *Server) handleDeny(ctx context.Context, req *mcpsdk.CallToolRequest, input DenyInput) (*mcpsdk.CallToolResult, DenyOutput, error) {
	if err := s.gw.Deny(input.RequestID); err != nil {
		return nil, DenyOutput{}, err
	}

	return nil, DenyOutput{
		RequestID: input.RequestID,
		Status:    "denied",
	}, nil
}

func (s *Server) handleRedeem(ctx context.Context, req *mcpsdk.CallToolRequest, input RedeemInput) (*mcpsdk.CallToolResult, RedeemOutput, error) {
	ar := s.buildRequest(input.Tool, input.Arguments, input.RawText)
	ar.RequestID = input.RequestID

	d, err := s.gw.Redeem(ctx, ar, input.Token)
	if err != nil {
		return nil, RedeemOutput{}, err
	}

	out := RedeemOutput(runOutput(d))
	if d.State == gateway.StateRejected {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

// RedeemOutput mirrors RunOutput for redeemed executions.
type RedeemOutput RunOutput

func (s *Server) handlePending(ctx context.Context, req *mcpsdk.CallToolRequest, input PendingInput) (*mcpsdk.CallToolResult, PendingOutput, error) {
	list, err := s.gw.Pending()
	if err != nil {
		return nil, PendingOutput{}, err
	}

	items := make([]PendingItem, len(list))
	for i, a := range list {
		items[i] = PendingItem{
			RequestID: a.Key,
			Caller:    a.Caller,
			Tool:      a.Tool,
			Reason:    a.Reason,
			CreatedAt: a.CreatedAt.Format(time.RFC3339),
			ExpiresAt: a.ExpiresAt.Format(time.RFC3339),
		}
	}

	return nil, PendingOutput{Requests: items}, nil
}

// --- Helpers ---

func (s *Server) buildRequest(tool string, args map[string]any, rawText string) model.ActionRequest {
	return model.ActionRequest{
		Tool:      tool,
		Arguments: args,
		Origin:    model.CallerIdentity{Caller: s.caller},
		RawText:   rawText,
	}
}

func runOutput(d *gateway.Decision) RunOutput {
	out := RunOutput{
		RequestID: d.RequestID,
		State:     string(d.State),
		Verdict:   string(d.Verdict.Verdict),
		RiskTier:  string(d.RiskTier),
		Reason:    d.Reason,
	}
	if d.Result != nil {
		out.Stdout = string(d.Result.Stdout)
		out.Stderr = string(d.Result.Stderr)
		out.ExitStatus = d.Result.ExitStatus
		out.Outcome = string(d.Result.Outcome)
		out.Truncated = d.Result.Truncated
	}
	return out
}
