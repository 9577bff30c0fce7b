package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ppiankov/skillgate/internal/redact"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// Log is an append-only JSONL audit log with SHA-256 hash chaining.
// Each entry's prev_hash is the hash of the previous entry's JSON line,
// forming a tamper-evident chain.
//
// Record never propagates I/O failures to the caller: if the primary file
// cannot be written, the entry is diverted to the fallback sink together
// with an audit_error meta-entry, and the pipeline continues.
type Log struct {
	path     string
	file     *os.File
	fallback io.Writer
	prevHash string
	mu       sync.Mutex
}

// Open opens (or creates) an audit log file for appending.
// If the file already exists, it reads the last line to recover the chain tail.
// Entries that cannot be written to the file are diverted to stderr.
func Open(path string) (*Log, error) {
	return OpenWithFallback(path, os.Stderr)
}

// OpenWithFallback is Open with an explicit fallback sink for diverted entries.
func OpenWithFallback(path string, fallback io.Writer) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash

	// Read existing file to find chain tail
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{
		path:     path,
		file:     file,
		fallback: fallback,
		prevHash: prevHash,
	}, nil
}

// Record appends an Entry to the log with hash chaining. The entry's Detail
// is passed through credential masking before it is persisted anywhere,
// including the fallback sink.
//
// A marshal failure is a programming error and is returned. Write and sync
// failures are not: the entry is diverted to the fallback sink and Record
// returns nil so a dying disk cannot take the gateway down with it.
func (l *Log) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	}
	entry.Detail = redact.Mask(entry.Detail)
	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	if err := l.writeLine(line); err != nil {
		l.divert(line, err)
		return nil
	}

	l.prevHash = HashLine(line)
	return nil
}

func (l *Log) writeLine(line []byte) error {
	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	return nil
}

// divert writes the failed entry and an audit_error meta-entry to the
// fallback sink. Chain state is left untouched so the primary file stays
// verifiable if writes recover.
func (l *Log) divert(line []byte, cause error) {
	if l.fallback == nil {
		return
	}
	meta := Entry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Stage:     StageAuditError,
		Detail:    cause.Error(),
		PrevHash:  l.prevHash,
	}
	metaLine, err := json.Marshal(meta)
	if err != nil {
		return
	}
	fmt.Fprintf(l.fallback, "%s\n%s\n", line, metaLine)
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
