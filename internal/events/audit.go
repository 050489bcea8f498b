package events

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/gophmsg/internal/filex"
	"github.com/dmitrijs2005/gophmsg/internal/logging"
)

// AuditRecorder appends events to a JSON Lines file. Write failures are
// logged and otherwise ignored.
type AuditRecorder struct {
	path string
	log  logging.Logger

	mu sync.Mutex
	f  *os.File
}

func NewAuditRecorder(path string, log logging.Logger) (*AuditRecorder, error) {
	if _, err := filex.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	return &AuditRecorder{path: path, log: log.With("module", "audit"), f: f}, nil
}

func (r *AuditRecorder) Record(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		r.log.Warn(ctx, "audit marshal failed", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return
	}
	if _, err := r.f.Write(append(data, '\n')); err != nil {
		r.log.Warn(ctx, "audit write failed", "path", r.path, "error", err)
	}
}

func (r *AuditRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// ReadAudit parses a JSON Lines audit file. Malformed lines are skipped.
func ReadAudit(path string) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var result []Event
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		result = append(result, e)
	}

	return result, sc.Err()
}
