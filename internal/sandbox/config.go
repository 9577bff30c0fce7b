package sandbox

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ppiankov/skillgate/internal/capability"
)

// Network modes accepted by the runtime. Anything else fails validation.
const (
	NetworkNone   = "none"
	NetworkBridge = "bridge"
)

// Mount maps a host path into the container. Read-only unless declared rw.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// Config is a fully-resolved sandbox profile for one execution. Built from
// the tool grant; the executor never consults the capability set directly.
type Config struct {
	Image         string
	Command       []string
	WorkDir       string
	Env           map[string]string
	CPUQuota      float64
	MemoryMB      int
	PidsMax       int
	Network       string
	Mounts        []Mount
	Timeout       time.Duration
	OutputLimitKB int
}

// FromGrant resolves a tool grant into a sandbox config for a command.
func FromGrant(grant capability.ToolGrant, command []string) Config {
	cfg := Config{
		Image:         grant.Image,
		Command:       command,
		WorkDir:       "/workspace",
		CPUQuota:      grant.Limits.CPUQuota,
		MemoryMB:      grant.Limits.MemoryMB,
		PidsMax:       grant.Limits.PidsMax,
		Network:       grant.Network,
		Timeout:       time.Duration(grant.Limits.TimeoutSec) * time.Second,
		OutputLimitKB: grant.Limits.OutputLimitKB,
	}
	for _, m := range grant.Mounts {
		cfg.Mounts = append(cfg.Mounts, Mount{
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}
	return cfg
}

// Validate rejects configs the runtime must never see: zero limits would
// mean "unlimited" to the container engine.
func (c *Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("sandbox: image is required")
	}
	if len(c.Command) == 0 {
		return fmt.Errorf("sandbox: command is required")
	}
	if c.CPUQuota <= 0 {
		return fmt.Errorf("sandbox: cpu quota must be positive, got %v", c.CPUQuota)
	}
	if c.MemoryMB <= 0 {
		return fmt.Errorf("sandbox: memory limit must be positive, got %d", c.MemoryMB)
	}
	if c.PidsMax <= 0 {
		return fmt.Errorf("sandbox: pids limit must be positive, got %d", c.PidsMax)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("sandbox: timeout must be positive, got %v", c.Timeout)
	}
	if c.OutputLimitKB <= 0 {
		return fmt.Errorf("sandbox: output limit must be positive, got %d", c.OutputLimitKB)
	}
	switch c.Network {
	case NetworkNone, NetworkBridge:
	default:
		return fmt.Errorf("sandbox: unknown network mode %q", c.Network)
	}
	for _, m := range c.Mounts {
		if !filepath.IsAbs(m.Source) || !filepath.IsAbs(m.Target) {
			return fmt.Errorf("sandbox: mount %q -> %q must use absolute paths", m.Source, m.Target)
		}
	}
	return nil
}
