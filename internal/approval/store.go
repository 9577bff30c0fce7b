package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/skillgate/internal/tracer"
)

// DefaultTTL bounds how long a pending request waits for a human and how
// long an issued token stays redeemable.
const DefaultTTL = 15 * time.Minute

// Sentinel errors for gating decisions. Callers branch on these; anything
// else is an I/O problem.
var (
	ErrNotFound        = errors.New("approval: not found")
	ErrNotApproved     = errors.New("approval: not approved")
	ErrExpired         = errors.New("approval: expired")
	ErrAlreadyConsumed = errors.New("approval: already consumed")
	ErrTokenMismatch   = errors.New("approval: token mismatch")
)

// validKey matches alphanumeric, dash, underscore, and dot characters only.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateKey rejects keys that could cause path traversal.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("key contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status represents the state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusConsumed Status = "consumed"
	StatusExpired  Status = "expired"
)

// Approval is one request-scoped approval and its single-use token.
// The key is the request ID, so there is at most one approval per request.
type Approval struct {
	Key        string     `json:"key"`
	Status     Status     `json:"status"`
	Caller     string     `json:"caller"`
	Tool       string     `json:"tool"`
	Reason     string     `json:"reason"`
	Token      string     `json:"token,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Store manages approval files on disk.
type Store struct {
	dir string
	ttl time.Duration
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create approval directory: %w", err)
	}
	return &Store{dir: dir, ttl: DefaultTTL}, nil
}

// DefaultDir returns the default approval store directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "skillgate-pending")
	}
	return filepath.Join(home, ".skillgate", "pending")
}

// SetTTL overrides the pending/token lifetime. Zero restores the default.
func (s *Store) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.ttl = ttl
}

// Request creates a pending approval for a request ID. No-op if an approval
// for the request already exists.
func (s *Store) Request(requestID, caller, tool, reason string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(requestID)
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	now := time.Now().UTC()
	a := Approval{
		Key:       requestID,
		Status:    StatusPending,
		Caller:    caller,
		Tool:      tool,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	return s.writeAtomic(path, a)
}

// Approve resolves a pending approval and issues its single-use token.
// The token expires ttl from now; ttl <= 0 uses the store default.
func (s *Store) Approve(requestID string, ttl time.Duration) (string, error) {
	if err := validateKey(requestID); err != nil {
		return "", fmt.Errorf("invalid approval key: %w", err)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(requestID)
	if err != nil {
		return "", fmt.Errorf("approval %q: %w", requestID, ErrNotFound)
	}
	if a.Status != StatusPending {
		return "", fmt.Errorf("approval %q is %s, only pending approvals can be approved", requestID, a.Status)
	}

	now := time.Now().UTC()
	if now.After(a.ExpiresAt) {
		a.Status = StatusExpired
		s.writeAtomic(s.path(requestID), *a)
		return "", fmt.Errorf("approval %q: %w", requestID, ErrExpired)
	}

	a.Status = StatusApproved
	a.Token = tracer.NewApprovalToken()
	a.ResolvedAt = &now
	a.ExpiresAt = now.Add(ttl)

	if err := s.writeAtomic(s.path(requestID), *a); err != nil {
		return "", err
	}
	return a.Token, nil
}

// Deny resolves a pending approval as denied. Terminal.
func (s *Store) Deny(requestID string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(requestID)
	if err != nil {
		return fmt.Errorf("approval %q: %w", requestID, ErrNotFound)
	}

	a.Status = StatusDenied
	now := time.Now().UTC()
	a.ResolvedAt = &now

	return s.writeAtomic(s.path(requestID), *a)
}

// Check returns the current status of an approval, applying lazy expiry to
// both pending requests and issued tokens.
func (s *Store) Check(requestID string) (Status, error) {
	if err := validateKey(requestID); err != nil {
		return "", fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(requestID)
	if err != nil {
		return "", fmt.Errorf("approval %q: %w", requestID, ErrNotFound)
	}

	if (a.Status == StatusPending || a.Status == StatusApproved) && time.Now().UTC().After(a.ExpiresAt) {
		a.Status = StatusExpired
		s.writeAtomic(s.path(requestID), *a)
		return StatusExpired, nil
	}

	return a.Status, nil
}

// Consume redeems an approval token exactly once. The token must match the
// one issued at approval time and must not have expired.
func (s *Store) Consume(requestID, token string) error {
	if err := validateKey(requestID); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.read(requestID)
	if err != nil {
		return fmt.Errorf("approval %q: %w", requestID, ErrNotFound)
	}

	switch a.Status {
	case StatusConsumed:
		return fmt.Errorf("approval %q: %w", requestID, ErrAlreadyConsumed)
	case StatusApproved:
		// fall through to token checks
	default:
		return fmt.Errorf("approval %q is %s: %w", requestID, a.Status, ErrNotApproved)
	}

	now := time.Now().UTC()
	if now.After(a.ExpiresAt) {
		a.Status = StatusExpired
		s.writeAtomic(s.path(requestID), *a)
		return fmt.Errorf("approval %q: %w", requestID, ErrExpired)
	}
	if token == "" || token != a.Token {
		return fmt.Errorf("approval %q: %w", requestID, ErrTokenMismatch)
	}

	a.Status = StatusConsumed
	a.ResolvedAt = &now

	return s.writeAtomic(s.path(requestID), *a)
}

// List returns all approvals in the store.
func (s *Store) List() ([]Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var approvals []Approval
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".json")
		a, err := s.read(key)
		if err != nil {
			continue
		}
		approvals = append(approvals, *a)
	}

	return approvals, nil
}

// Cleanup removes all approval files in the store.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) read(key string) (*Approval, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	var a Approval
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *Store) writeAtomic(path string, a Approval) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
