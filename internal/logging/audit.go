// Package logging emits the JSON audit trail of break runs and RPC calls.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RowanDark/xorbreak/internal/redact"
)

type EventType string

const (
	EventBreakSingleByte   EventType = "break_single_byte"
	EventBreakRepeatingKey EventType = "break_repeating_key"
	EventDetectSingleByte  EventType = "detect_single_byte"
	EventEstimateKeyLength EventType = "estimate_key_length"
	EventDetectBlocks      EventType = "detect_identical_blocks"
	EventDecodeFailed      EventType = "decode_failed"
	EventRPCCall           EventType = "rpc_call"
	EventRPCDenied         EventType = "rpc_denied"
	EventServerLifecycle   EventType = "server_lifecycle"
)

type Decision string

const (
	DecisionInfo  Decision = "info"
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

// AuditEvent is one line of the audit trail. Seq increases by one for every
// event written through the same set of sinks.
type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Seq       uint64         `json:"seq"`
	Component string         `json:"component"`
	RunID     string         `json:"run_id,omitempty"`
	EventType EventType      `json:"event_type"`
	Decision  Decision       `json:"decision,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Option configures where events are written.
type Option func(*sinks) error

// sinks collects destinations while options are applied. Stdout is used unless
// WithoutStdout is given.
type sinks struct {
	out     []io.Writer
	files   []*os.File
	noStdio bool
}

func (s *sinks) closeFiles() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", f.Name(), err))
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

func WithWriter(w io.Writer) Option {
	return func(s *sinks) error {
		if w == nil {
			return errors.New("audit writer cannot be nil")
		}
		s.out = append(s.out, w)
		return nil
	}
}

// WithFile appends events to path, creating parent directories as needed.
func WithFile(path string) Option {
	return func(s *sinks) error {
		path = strings.TrimSpace(path)
		if path == "" {
			return errors.New("audit file path cannot be empty")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create audit log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		s.out = append(s.out, f)
		s.files = append(s.files, f)
		return nil
	}
}

func WithoutStdout() Option {
	return func(s *sinks) error {
		s.noStdio = true
		return nil
	}
}

// trail is shared by every logger derived from the same root.
type trail struct {
	mu    sync.Mutex
	enc   *json.Encoder
	seq   uint64
	files *sinks
}

func (t *trail) write(event AuditEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	event.Seq = t.seq
	return t.enc.Encode(event)
}

// AuditLogger writes one JSON object per event. Loggers derived with
// WithComponent or WithRunID share the underlying writers and sequence.
type AuditLogger struct {
	component string
	runID     string
	trail     *trail
	root      bool
}

// NewRunID returns a fresh identifier that ties together the events of one
// CLI invocation or RPC call.
func NewRunID() string {
	return uuid.NewString()
}

func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	s := &sinks{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			_ = s.closeFiles()
			return nil, err
		}
	}
	if !s.noStdio {
		s.out = append([]io.Writer{os.Stdout}, s.out...)
	}
	if len(s.out) == 0 {
		return nil, errors.New("no writers configured for audit logger")
	}

	enc := json.NewEncoder(io.MultiWriter(s.out...))
	enc.SetEscapeHTML(false)
	return &AuditLogger{
		component: component,
		trail:     &trail{enc: enc, files: s},
		root:      true,
	}, nil
}

func MustNewAuditLogger(component string, opts ...Option) *AuditLogger {
	logger, err := NewAuditLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Discard returns a logger that drops every event.
func Discard(component string) *AuditLogger {
	return MustNewAuditLogger(component, WithoutStdout(), WithWriter(io.Discard))
}

// Close releases files opened by WithFile. Only the root logger owns them;
// Close on a derived logger is a no-op.
func (l *AuditLogger) Close() error {
	if l == nil || !l.root || l.trail == nil {
		return nil
	}
	l.trail.mu.Lock()
	defer l.trail.mu.Unlock()
	return l.trail.files.closeFiles()
}

// Emit stamps the timestamp, component and run ID when the event leaves them
// empty, redacts reason and metadata, and writes the event.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil || l.trail == nil {
		return errors.New("nil audit logger")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Component == "" {
		event.Component = l.component
	}
	if event.RunID == "" {
		event.RunID = l.runID
	}
	event.Reason = redact.String(event.Reason)
	if len(event.Metadata) > 0 {
		event.Metadata = redact.Map(event.Metadata)
	}
	return l.trail.write(event)
}

func (l *AuditLogger) derive(component, runID string) *AuditLogger {
	if l == nil || l.trail == nil {
		return nil
	}
	return &AuditLogger{component: component, runID: runID, trail: l.trail}
}

func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil {
		return nil
	}
	return l.derive(component, l.runID)
}

// WithRunID returns a logger that stamps runID on events that carry none.
func (l *AuditLogger) WithRunID(runID string) *AuditLogger {
	if l == nil {
		return nil
	}
	return l.derive(l.component, runID)
}

func (l *AuditLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}
