package mcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/skillgate/internal/approval"
	"github.com/ppiankov/skillgate/internal/audit"
	"github.com/ppiankov/skillgate/internal/capability"
	"github.com/ppiankov/skillgate/internal/gateway"
	"github.com/ppiankov/skillgate/internal/pattern"
	"github.com/ppiankov/skillgate/internal/sandbox"
	"github.com/ppiankov/skillgate/internal/validate"
)

const testCapabilities = `version: "1"
callers:
  agent-a:
    tools:
      echo.run:
        risk_tier: low
        params:
          command:
            type: string
            required: true
      shell.exec:
        risk_tier: medium
        params:
          command:
            type: string
            required: true
`

type stubRuntime struct {
	mu      sync.Mutex
	creates int
}

func (s *stubRuntime) Create(ctx context.Context, cfg sandbox.Config) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	return fmt.Sprintf("c-%d", s.creates), nil
}
func (s *stubRuntime) Start(ctx context.Context, id string) error { return nil }
func (s *stubRuntime) Wait(ctx context.Context, id string) (int, error) {
	return 0, nil
}
func (s *stubRuntime) Logs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	io.WriteString(stdout, "ok\n")
	return nil
}
func (s *stubRuntime) Remove(ctx context.Context, id string) error { return nil }

func (s *stubRuntime) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

func newTestServer(t *testing.T) (*Server, *stubRuntime) {
	t.Helper()
	dir := t.TempDir()

	capPath := filepath.Join(dir, "capabilities.yaml")
	if err := os.WriteFile(capPath, []byte(testCapabilities), 0600); err != nil {
		t.Fatalf("write capabilities: %v", err)
	}
	store, err := capability.NewStore(capPath)
	if err != nil {
		t.Fatalf("capability store: %v", err)
	}

	matcher := pattern.NewMatcher(pattern.NewDefault())

	approvals, err := approval.NewStore(filepath.Join(dir, "pending"))
	if err != nil {
		t.Fatalf("approval store: %v", err)
	}

	auditLog, err := audit.Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	t.Cleanup(func() { auditLog.Close() })

	rt := &stubRuntime{}
	reg := sandbox.NewRegistry(rt)
	exec := sandbox.NewExecutor(rt, reg, 2, time.Second)

	gw := gateway.New(gateway.Deps{
		Matcher:   matcher,
		Validator: validate.New(store, matcher),
		Approvals: approvals,
		Executor:  exec,
		Audit:     auditLog,
	})

	return New(gw, Config{Caller: "agent-a"}), rt
}

func TestHandleRunAutoApproved(t *testing.T) {
	s, rt := newTestServer(t)

	res, out, err := s.handleRun(context.Background(), nil, RunInput{
		Tool:      "echo.run",
		Arguments: map[string]any{"command": "echo hello"},
	})
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}
	if res != nil {
		t.Fatalf("expected success result, got %+v", res)
	}
	if out.State != string(gateway.StateAutoApproved) {
		t.Fatalf("expected auto_approved, got %s (%s)", out.State, out.Reason)
	}
	if out.Stdout != "ok\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}
	if rt.createCount() != 1 {
		t.Errorf("expected one container, got %d", rt.createCount())
	}
}

func TestHandleRunMaliciousBlocked(t *testing.T) {
	s, rt := newTestServer(t)

	res, out, err := s.handleRun(context.Background(), nil, RunInput{
		Tool:      "echo.run",
		Arguments: map[string]any{"command": "rm -rf / --no-preserve-root"},
	})
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("expected IsError result for blocked call")
	}
	if out.State != string(gateway.StateRejected) {
		t.Fatalf("expected rejected, got %s", out.State)
	}
	if rt.createCount() != 0 {
		t.Error("blocked call must not reach the sandbox")
	}
}

func TestHandleRunMediumTierParksPending(t *testing.T) {
	s, rt := newTestServer(t)

	res, out, err := s.handleRun(context.Background(), nil, RunInput{
		Tool:      "shell.exec",
		Arguments: map[string]any{"command": "ls /workspace"},
	})
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}
	if res != nil {
		t.Fatalf("pending is not an error result, got %+v", res)
	}
	if out.State != string(gateway.StatePendingApproval) {
		t.Fatalf("expected pending_approval, got %s", out.State)
	}
	if out.RequestID == "" {
		t.Fatal("pending output must carry a request id")
	}
	if rt.createCount() != 0 {
		t.Error("pending call must not execute")
	}
}

func TestApproveRedeemRoundTrip(t *testing.T) {
	s, rt := newTestServer(t)
	ctx := context.Background()

	input := RunInput{
		Tool:      "shell.exec",
		Arguments: map[string]any{"command": "ls /workspace"},
	}
	_, parked, err := s.handleRun(ctx, nil, input)
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}

	_, appr, err := s.handleApprove(ctx, nil, ApproveInput{RequestID: parked.RequestID})
	if err != nil {
		t.Fatalf("handleApprove: %v", err)
	}
	if appr.Token == "" || !strings.HasPrefix(appr.Token, "apv-") {
		t.Fatalf("unexpected token %q", appr.Token)
	}

	res, out, err := s.handleRedeem(ctx, nil, RedeemInput{
		RequestID: parked.RequestID,
		Token:     appr.Token,
		Tool:      input.Tool,
		Arguments: input.Arguments,
	})
	if err != nil {
		t.Fatalf("handleRedeem: %v", err)
	}
	if res != nil {
		t.Fatalf("expected success, got %+v (%s)", res, out.Reason)
	}
	if out.State != string(gateway.StateApproved) {
		t.Fatalf("expected approved, got %s", out.State)
	}
	if rt.createCount() != 1 {
		t.Errorf("expected one execution, got %d", rt.createCount())
	}

	// Token is single use.
	res, out, err = s.handleRedeem(ctx, nil, RedeemInput{
		RequestID: parked.RequestID,
		Token:     appr.Token,
		Tool:      input.Tool,
		Arguments: input.Arguments,
	})
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("second redeem must be an error result")
	}
	if !strings.Contains(out.Reason, "already used") {
		t.Errorf("reason = %q", out.Reason)
	}
}

func TestDenyIsTerminal(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, parked, err := s.handleRun(ctx, nil, RunInput{
		Tool:      "shell.exec",
		Arguments: map[string]any{"command": "ls"},
	})
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}

	if _, _, err := s.handleDeny(ctx, nil, DenyInput{RequestID: parked.RequestID}); err != nil {
		t.Fatalf("handleDeny: %v", err)
	}

	if _, _, err := s.handleApprove(ctx, nil, ApproveInput{RequestID: parked.RequestID}); err == nil {
		t.Fatal("approve after deny must fail")
	}
}

func TestHandlePendingLists(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	_, parked, err := s.handleRun(ctx, nil, RunInput{
		Tool:      "shell.exec",
		Arguments: map[string]any{"command": "ls"},
	})
	if err != nil {
		t.Fatalf("handleRun: %v", err)
	}

	_, out, err := s.handlePending(ctx, nil, PendingInput{})
	if err != nil {
		t.Fatalf("handlePending: %v", err)
	}
	if len(out.Requests) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(out.Requests))
	}
	item := out.Requests[0]
	if item.RequestID != parked.RequestID || item.Caller != "agent-a" || item.Tool != "shell.exec" {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestHandleCheckHasNoSideEffects(t *testing.T) {
	s, rt := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleCheck(ctx, nil, CheckInput{
		Tool:      "echo.run",
		Arguments: map[string]any{"command": "echo hi"},
	})
	if err != nil {
		t.Fatalf("handleCheck: %v", err)
	}
	if out.State != string(gateway.StateAutoApproved) {
		t.Fatalf("expected auto_approved, got %s", out.State)
	}
	if rt.createCount() != 0 {
		t.Error("check must not execute")
	}

	_, pending, err := s.handlePending(ctx, nil, PendingInput{})
	if err != nil {
		t.Fatalf("handlePending: %v", err)
	}
	if len(pending.Requests) != 0 {
		t.Errorf("check must not register approvals, got %d", len(pending.Requests))
	}
}
