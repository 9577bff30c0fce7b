package capability

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/skillgate/internal/model"
)

// ParamSpec constrains one tool argument.
type ParamSpec struct {
	Type     string   `yaml:"type"` // string | int | number | bool
	Required bool     `yaml:"required"`
	Allowed  []string `yaml:"allowed,omitempty"`
}

// Limits caps sandbox resources for a tool. Zero fields inherit defaults
// at load time so every effective grant carries non-zero limits.
type Limits struct {
	CPUQuota      float64 `yaml:"cpu_quota"`
	MemoryMB      int     `yaml:"memory_mb"`
	PidsMax       int     `yaml:"pids_max"`
	TimeoutSec    int     `yaml:"timeout_sec"`
	OutputLimitKB int     `yaml:"output_limit_kb"`
}

// Mount maps a host path into the sandbox filesystem.
type Mount struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	ReadOnly bool   `yaml:"read_only"`
}

// ToolGrant describes what one tool may do on behalf of a caller.
type ToolGrant struct {
	RiskTier       string               `yaml:"risk_tier"`
	DeepInspection bool                 `yaml:"deep_inspection"`
	Network        string               `yaml:"network"` // none | bridge
	Image          string               `yaml:"image"`
	Entrypoint     []string             `yaml:"entrypoint"`
	Params         map[string]ParamSpec `yaml:"params"`
	PathPrefixes   []string             `yaml:"path_prefixes"`
	Mounts         []Mount              `yaml:"mounts"`
	Limits         Limits               `yaml:"limits"`
}

// CallerGrants maps tool name to grant for one caller identity.
type CallerGrants struct {
	Tools map[string]ToolGrant `yaml:"tools"`
}

// Config is the full capability set: which caller may invoke which tool,
// under what argument schema and sandbox profile.
type Config struct {
	Version  string                  `yaml:"version"`
	Defaults Limits                  `yaml:"defaults"`
	Callers  map[string]CallerGrants `yaml:"callers"`
}

// DefaultConfig returns the built-in capability set: a single permissive-ish
// local caller useful for first-run and tests.
func DefaultConfig() *Config {
	return &Config{
		Version:  "1",
		Defaults: defaultLimits,
		Callers: map[string]CallerGrants{
			"local": {
				Tools: map[string]ToolGrant{
					"shell.exec": {
						RiskTier:       "medium",
						DeepInspection: true,
						Network:        "none",
						Image:          "python:3.12-slim",
						Params: map[string]ParamSpec{
							"command": {Type: "string", Required: true},
						},
						PathPrefixes: []string{"/workspace"},
						Limits:       defaultLimits,
					},
				},
			},
		},
	}
}

var defaultLimits = Limits{
	CPUQuota:      1.0,
	MemoryMB:      512,
	PidsMax:       128,
	TimeoutSec:    300,
	OutputLimitKB: 256,
}

var validParamTypes = map[string]bool{
	"string": true,
	"int":    true,
	"number": true,
	"bool":   true,
}

// Load loads a capability set from a YAML file.
// Empty path falls back to ~/.skillgate/capabilities.yaml.
// Missing file returns defaults. Invalid YAML or schema returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads a capability set and returns its SHA-256 content hash.
// The hash is computed over the raw YAML bytes on disk; when no file exists
// (defaults used) the hash is the SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".skillgate", "capabilities.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("capability: read config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("capability: parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, "", err
	}
	cfg.applyDefaults()

	return &cfg, hash, nil
}

func emptyHash() string {
	h := sha256.Sum256(nil)
	return "sha256:" + hex.EncodeToString(h[:])
}

// validate rejects grants the validator could not enforce coherently:
// unknown risk tiers, unknown param types, unknown network modes.
// A broken capability file must fail at load, not at request time.
func (c *Config) validate() error {
	for caller, grants := range c.Callers {
		for tool, g := range grants.Tools {
			if _, ok := model.TierRank[model.RiskTier(g.RiskTier)]; !ok && g.RiskTier != "" {
				return fmt.Errorf("capability: caller %q tool %q: unknown risk_tier %q", caller, tool, g.RiskTier)
			}
			if g.Network != "" && g.Network != "none" && g.Network != "bridge" {
				return fmt.Errorf("capability: caller %q tool %q: unknown network mode %q", caller, tool, g.Network)
			}
			for name, p := range g.Params {
				if p.Type != "" && !validParamTypes[p.Type] {
					return fmt.Errorf("capability: caller %q tool %q param %q: unknown type %q", caller, tool, name, p.Type)
				}
			}
			for _, m := range g.Mounts {
				if m.Source == "" || m.Target == "" {
					return fmt.Errorf("capability: caller %q tool %q: mount requires source and target", caller, tool)
				}
			}
		}
	}
	return nil
}

// applyDefaults fills zero-value grant fields from the config-level
// defaults, then from the built-in limits.
func (c *Config) applyDefaults() {
	base := c.Defaults
	fillLimits(&base, defaultLimits)

	for caller, grants := range c.Callers {
		for tool, g := range grants.Tools {
			if g.RiskTier == "" {
				g.RiskTier = string(model.TierHigh) // fail closed
			}
			if g.Network == "" {
				g.Network = "none"
			}
			if g.Image == "" {
				g.Image = "python:3.12-slim"
			}
			if len(g.Entrypoint) == 0 {
				g.Entrypoint = []string{"/bin/sh", "-c"}
			}
			delete(g.Params, "") // empty param names are meaningless
			fillLimits(&g.Limits, base)
			grants.Tools[tool] = g
		}
		c.Callers[caller] = grants
	}
}

func fillLimits(l *Limits, from Limits) {
	if l.CPUQuota == 0 {
		l.CPUQuota = from.CPUQuota
	}
	if l.MemoryMB == 0 {
		l.MemoryMB = from.MemoryMB
	}
	if l.PidsMax == 0 {
		l.PidsMax = from.PidsMax
	}
	if l.TimeoutSec == 0 {
		l.TimeoutSec = from.TimeoutSec
	}
	if l.OutputLimitKB == 0 {
		l.OutputLimitKB = from.OutputLimitKB
	}
}

// Grant returns the tool grant for a caller, or false when the caller has
// no grant for that tool. An absent grant is a denial, never an error.
func (c *Config) Grant(caller, tool string) (ToolGrant, bool) {
	grants, ok := c.Callers[caller]
	if !ok {
		return ToolGrant{}, false
	}
	g, ok := grants.Tools[tool]
	return g, ok
}
