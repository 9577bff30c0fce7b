package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// DockerRuntime drives a docker-compatible CLI (docker or podman).
type DockerRuntime struct {
	// Bin is the engine binary. Defaults to "docker".
	Bin string
}

// NewDockerRuntime returns a runtime using the given binary, or "docker"
// when empty.
func NewDockerRuntime(bin string) *DockerRuntime {
	if bin == "" {
		bin = "docker"
	}
	return &DockerRuntime{Bin: bin}
}

// Create builds and runs `docker create` with the config's limits.
// Containers are always created with a read-only root filesystem and
// dropped capabilities; the config can only narrow, never widen.
func (d *DockerRuntime) Create(ctx context.Context, cfg Config) (string, error) {
	args := []string{
		"create",
		"--network", cfg.Network,
		"--cpus", strconv.FormatFloat(cfg.CPUQuota, 'f', -1, 64),
		"--memory", fmt.Sprintf("%dm", cfg.MemoryMB),
		"--pids-limit", strconv.Itoa(cfg.PidsMax),
		"--read-only",
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
		"--tmpfs", "/tmp:rw,size=64m",
	}
	if cfg.WorkDir != "" {
		args = append(args, "--workdir", cfg.WorkDir)
	}
	for _, m := range cfg.Mounts {
		mode := "ro"
		if !m.ReadOnly {
			mode = "rw"
		}
		args = append(args, "--volume", fmt.Sprintf("%s:%s:%s", m.Source, m.Target, mode))
	}
	for _, k := range sortedEnvKeys(cfg.Env) {
		args = append(args, "--env", fmt.Sprintf("%s=%s", k, cfg.Env[k]))
	}
	args = append(args, cfg.Image)
	args = append(args, cfg.Command...)

	out, err := d.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("sandbox: create container: %w", err)
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", fmt.Errorf("sandbox: create returned no container id")
	}
	return id, nil
}

// Start runs `docker start`.
func (d *DockerRuntime) Start(ctx context.Context, id string) error {
	if _, err := d.run(ctx, "start", id); err != nil {
		return fmt.Errorf("sandbox: start container: %w", err)
	}
	return nil
}

// Wait runs `docker wait`, which prints the exit status on stdout.
func (d *DockerRuntime) Wait(ctx context.Context, id string) (int, error) {
	out, err := d.run(ctx, "wait", id)
	if err != nil {
		return 0, fmt.Errorf("sandbox: wait for container: %w", err)
	}
	code, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("sandbox: parse exit status %q: %w", strings.TrimSpace(out), err)
	}
	return code, nil
}

// Logs runs `docker logs`, which demultiplexes the container's streams
// onto our stdout/stderr writers.
func (d *DockerRuntime) Logs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, d.Bin, "logs", id)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sandbox: collect logs: %w", err)
	}
	return nil
}

// Remove runs `docker rm -f`. A container that is already gone is success.
func (d *DockerRuntime) Remove(ctx context.Context, id string) error {
	_, err := d.run(ctx, "rm", "-f", id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no such container") {
			return nil
		}
		return fmt.Errorf("sandbox: remove container: %w", err)
	}
	return nil
}

func (d *DockerRuntime) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, d.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s %s: %s", d.Bin, args[0], msg)
	}
	return stdout.String(), nil
}

func sortedEnvKeys(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
