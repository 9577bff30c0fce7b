package capability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testYAML = `version: "1"
defaults:
  memory_mb: 256
callers:
  agent-a:
    tools:
      shell.exec:
        risk_tier: high
        deep_inspection: true
        image: alpine:3.20
        params:
          command:
            type: string
            required: true
        path_prefixes:
          - /workspace
        limits:
          timeout_sec: 60
      fs.read:
        risk_tier: low
        params:
          path:
            type: string
            required: true
        path_prefixes:
          - /workspace
          - /tmp/shared
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capabilities.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, hash, err := LoadWithHash(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.HasPrefix(hash, "sha256:") {
		t.Fatalf("expected sha256 hash, got %q", hash)
	}

	g, ok := cfg.Grant("agent-a", "shell.exec")
	if !ok {
		t.Fatal("expected grant for agent-a/shell.exec")
	}
	if g.RiskTier != "high" {
		t.Fatalf("expected risk_tier high, got %q", g.RiskTier)
	}
	if !g.DeepInspection {
		t.Fatal("expected deep_inspection true")
	}
	if g.Image != "alpine:3.20" {
		t.Fatalf("unexpected image %q", g.Image)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	g, _ := cfg.Grant("agent-a", "shell.exec")
	if g.Network != "none" {
		t.Fatalf("expected network to default to none, got %q", g.Network)
	}
	if g.Limits.TimeoutSec != 60 {
		t.Fatalf("explicit timeout overridden: %d", g.Limits.TimeoutSec)
	}
	if g.Limits.MemoryMB != 256 {
		t.Fatalf("expected config-level default memory 256, got %d", g.Limits.MemoryMB)
	}
	if g.Limits.PidsMax != 128 {
		t.Fatalf("expected built-in default pids 128, got %d", g.Limits.PidsMax)
	}

	// fs.read has no limits at all: everything inherited
	fr, _ := cfg.Grant("agent-a", "fs.read")
	if fr.Limits.TimeoutSec != 300 {
		t.Fatalf("expected built-in default timeout 300, got %d", fr.Limits.TimeoutSec)
	}
	if fr.Image == "" {
		t.Fatal("expected default image")
	}
}

func TestMissingFileReturnsDefaults(t *testing.T) {
	cfg, hash, err := LoadWithHash(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cfg.Grant("local", "shell.exec"); !ok {
		t.Fatal("default config should grant local/shell.exec")
	}
	if hash != emptyHash() {
		t.Fatalf("defaults should carry empty-input hash, got %q", hash)
	}
}

func TestInvalidYAMLReturnsError(t *testing.T) {
	_, err := Load(writeConfig(t, "callers: [not a map"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUnknownRiskTierRejected(t *testing.T) {
	bad := strings.Replace(testYAML, "risk_tier: high", "risk_tier: extreme", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "risk_tier") {
		t.Fatalf("expected risk_tier error, got %v", err)
	}
}

func TestUnknownParamTypeRejected(t *testing.T) {
	bad := strings.Replace(testYAML, "type: string", "type: blob", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "type") {
		t.Fatalf("expected param type error, got %v", err)
	}
}

func TestUnknownNetworkModeRejected(t *testing.T) {
	bad := strings.Replace(testYAML, "deep_inspection: true", "network: host", 1)
	_, err := Load(writeConfig(t, bad))
	if err == nil || !strings.Contains(err.Error(), "network") {
		t.Fatalf("expected network mode error, got %v", err)
	}
}

func TestGrantAbsentIsNotAnError(t *testing.T) {
	cfg, err := Load(writeConfig(t, testYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := cfg.Grant("agent-a", "net.fetch"); ok {
		t.Fatal("expected no grant for ungranted tool")
	}
	if _, ok := cfg.Grant("stranger", "shell.exec"); ok {
		t.Fatal("expected no grant for unknown caller")
	}
}

func TestHashTracksContent(t *testing.T) {
	path := writeConfig(t, testYAML)
	_, h1, err := LoadWithHash(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	os.WriteFile(path, []byte(testYAML+"\n# touched\n"), 0600)
	_, h2, err := LoadWithHash(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if h1 == h2 {
		t.Fatal("hash should change when content changes")
	}
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	path := writeConfig(t, testYAML)
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	before := s.Hash()

	updated := strings.Replace(testYAML, "risk_tier: low", "risk_tier: medium", 1)
	os.WriteFile(path, []byte(updated), 0600)
	if err := s.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if s.Hash() == before {
		t.Fatal("hash unchanged after reload")
	}
	g, _ := s.Config().Grant("agent-a", "fs.read")
	if g.RiskTier != "medium" {
		t.Fatalf("expected reloaded tier medium, got %q", g.RiskTier)
	}
}

func TestStoreReloadKeepsOldSnapshotOnError(t *testing.T) {
	path := writeConfig(t, testYAML)
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	before := s.Hash()

	os.WriteFile(path, []byte("callers: [broken"), 0600)
	if err := s.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if s.Hash() != before {
		t.Fatal("failed reload must not replace the active snapshot")
	}
	if _, ok := s.Config().Grant("agent-a", "shell.exec"); !ok {
		t.Fatal("previous config should remain active")
	}
}
