package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/skillgate/internal/alert"
	"github.com/ppiankov/skillgate/internal/approval"
	"github.com/ppiankov/skillgate/internal/audit"
	"github.com/ppiankov/skillgate/internal/capability"
	"github.com/ppiankov/skillgate/internal/gateway"
	"github.com/ppiankov/skillgate/internal/history"
	"github.com/ppiankov/skillgate/internal/judge"
	"github.com/ppiankov/skillgate/internal/pattern"
	"github.com/ppiankov/skillgate/internal/sandbox"
	"github.com/ppiankov/skillgate/internal/validate"
)

var (
	flagPatterns     string
	flagJudgeBackend string
	flagJudgeURL     string
	flagJudgeModel   string
	flagJudgeRegion  string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagPatterns, "patterns", "", "Path to threat pattern YAML (default: built-in library)")
	pf.StringVar(&flagJudgeBackend, "judge", "none", "Semantic judge backend: none, http, bedrock")
	pf.StringVar(&flagJudgeURL, "judge-url", "", "Chat-completions endpoint for the http judge")
	pf.StringVar(&flagJudgeModel, "judge-model", "", "Model for the judge backend")
	pf.StringVar(&flagJudgeRegion, "judge-region", "", "AWS region for the bedrock judge")
}

func skillgatePath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".skillgate", name)
}

// env holds a fully wired gateway plus everything that needs closing.
type env struct {
	gw       *gateway.Gateway
	store    *capability.Store
	registry *sandbox.Registry
	closers  []func() error
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// buildEnv wires the full pipeline from command-line flags.
func buildEnv(ctx context.Context) (*env, error) {
	e := &env{}

	store, err := capability.NewStore(flagCapabilities)
	if err != nil {
		return nil, fmt.Errorf("load capabilities: %w", err)
	}
	e.store = store

	lib := pattern.NewDefault()
	if flagPatterns != "" {
		lib, err = pattern.Load(flagPatterns)
		if err != nil {
			return nil, fmt.Errorf("load patterns: %w", err)
		}
	}
	matcher := pattern.NewMatcher(lib)

	approvalsDir := flagApprovalsDir
	if approvalsDir == "" {
		approvalsDir = approval.DefaultDir()
	}
	approvals, err := approval.NewStore(approvalsDir)
	if err != nil {
		return nil, fmt.Errorf("open approval store: %w", err)
	}

	auditPath := flagAuditLog
	if auditPath == "" {
		auditPath = skillgatePath("audit.jsonl")
	}
	auditLog, err := audit.Open(auditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	e.closers = append(e.closers, auditLog.Close)

	historyPath := flagHistoryDB
	if historyPath == "" {
		historyPath = history.DefaultPath()
	}
	hist, err := history.Open(historyPath)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	e.closers = append(e.closers, hist.Close)

	j, err := newJudge(ctx, matcher)
	if err != nil {
		return nil, err
	}

	alerts, err := loadAlerts(flagAlerts)
	if err != nil {
		return nil, err
	}

	rt := sandbox.NewDockerRuntime("")
	e.registry = sandbox.NewRegistry(rt)
	exec := sandbox.NewExecutor(rt, e.registry, sandbox.DefaultMaxConcurrent, sandbox.DefaultQueueWait)

	e.gw = gateway.New(gateway.Deps{
		Matcher:   matcher,
		Validator: validate.New(store, matcher),
		Judge:     j,
		Approvals: approvals,
		Executor:  exec,
		Audit:     auditLog,
		History:   hist,
		Alerts:    alerts,
	})
	return e, nil
}

func newJudge(ctx context.Context, matcher *pattern.Matcher) (*judge.Judge, error) {
	switch flagJudgeBackend {
	case "", "none":
		return nil, nil
	case "http":
		if flagJudgeURL == "" {
			return nil, fmt.Errorf("--judge-url is required with --judge http")
		}
		backend := judge.NewHTTPBackend(judge.HTTPConfig{
			APIURL: flagJudgeURL,
			APIKey: os.Getenv("SKILLGATE_JUDGE_API_KEY"),
			Model:  flagJudgeModel,
		})
		return judge.New(backend, matcher), nil
	case "bedrock":
		backend, err := judge.NewBedrockBackend(ctx, judge.BedrockConfig{
			ModelID: flagJudgeModel,
			Region:  flagJudgeRegion,
		})
		if err != nil {
			return nil, fmt.Errorf("bedrock judge: %w", err)
		}
		return judge.New(backend, matcher), nil
	default:
		return nil, fmt.Errorf("unknown judge backend %q", flagJudgeBackend)
	}
}

type alertsFile struct {
	Webhooks []alert.Config `yaml:"webhooks"`
}

func loadAlerts(path string) (*alert.Dispatcher, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alerts config: %w", err)
	}
	var f alertsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse alerts config: %w", err)
	}
	return alert.NewDispatcher(f.Webhooks), nil
}
