// Package audit appends a JSONL trail of rewrite outcomes. In-place
// edits are otherwise irreversible; the trail records content hashes
// before and after so a rewrite can be accounted for later.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is one line of the trail. Before and After are hex SHA-256
// digests of the file content around the rewrite; they are empty for
// files that were never read.
type Event struct {
	RunID   string    `json:"run_id"`
	Time    time.Time `json:"time"`
	Path    string    `json:"path"`
	Outcome string    `json:"outcome"`
	Before  string    `json:"before_sha256,omitempty"`
	After   string    `json:"after_sha256,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Log appends events to a single file. Safe for concurrent use. A
// failing trail degrades to a logged warning; it never fails the run.
type Log struct {
	mu    sync.Mutex
	f     *os.File
	runID string
	log   *zap.Logger
}

// Open opens or creates the trail at path in append mode. Each opened
// Log gets a fresh run id stamped on every event it records.
func Open(path string, log *zap.Logger) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{f: f, runID: uuid.NewString(), log: log}, nil
}

func (l *Log) RunID() string { return l.runID }

// Record appends one event, stamping the run id and, when unset, the
// current time.
func (l *Log) Record(ev Event) {
	ev.RunID = l.runID
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		l.log.Warn("audit event not recorded", zap.String("path", ev.Path), zap.Error(err))
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		l.log.Warn("audit event not recorded", zap.String("path", ev.Path), zap.Error(err))
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

// HashContent returns the hex SHA-256 digest of b.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
