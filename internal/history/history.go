// Package history keeps a JSON Lines log of break results so earlier runs can
// be listed and filtered without repeating the search.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/sjson"
)

const defaultHistoryFilename = "history.jsonl"

// Operation kinds recorded in the log.
const (
	OpSingleByte  = "single"
	OpRepeating   = "repeating"
	OpDetect      = "detect"
	OpKeyLength   = "keylen"
	OpIdentBlocks = "detect_ecb"
)

// Record is one persisted result. ID and RecordedAt are stamped by Append.
type Record struct {
	ID         string  `json:"id,omitempty"`
	RecordedAt string  `json:"recorded_at,omitempty"`
	Operation  string  `json:"operation"`
	Source     string  `json:"source,omitempty"`
	RunID      string  `json:"run_id,omitempty"`
	Input      string  `json:"input,omitempty"`
	KeyHex     string  `json:"key_hex,omitempty"`
	KeyLength  int     `json:"key_length,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
	Line       int     `json:"line,omitempty"`
	Score      float64 `json:"score"`
	Plaintext  string  `json:"plaintext,omitempty"`
}

// Time parses RecordedAt.
func (r Record) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.RecordedAt)
}

// DefaultPath returns the history location under the user's home directory,
// falling back to the working directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return defaultHistoryFilename
	}
	return filepath.Join(home, ".xorbreak", defaultHistoryFilename)
}

var (
	appendMu sync.Mutex
	now      = time.Now
)

// Append persists rec and returns the stored copy with its ID and timestamp.
// Existing ID or RecordedAt values are kept.
func Append(path string, rec Record) (Record, error) {
	if strings.TrimSpace(path) == "" {
		return Record{}, fmt.Errorf("history path must not be empty")
	}
	if rec.Operation == "" {
		return Record{}, fmt.Errorf("history record has no operation")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encode history record: %w", err)
	}
	stamp := now().UTC()
	if rec.ID == "" {
		rec.ID = ulid.MustNew(ulid.Timestamp(stamp), ulid.DefaultEntropy()).String()
		if payload, err = sjson.SetBytes(payload, "id", rec.ID); err != nil {
			return Record{}, fmt.Errorf("stamp history id: %w", err)
		}
	}
	if rec.RecordedAt == "" {
		rec.RecordedAt = stamp.Format(time.RFC3339Nano)
		if payload, err = sjson.SetBytes(payload, "recorded_at", rec.RecordedAt); err != nil {
			return Record{}, fmt.Errorf("stamp history time: %w", err)
		}
	}
	payload = append(payload, '\n')

	appendMu.Lock()
	defer appendMu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Record{}, fmt.Errorf("create history directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Record{}, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(payload); err != nil {
		return Record{}, fmt.Errorf("write history record: %w", err)
	}
	return rec, nil
}

// readLines returns the non-blank raw lines of the log. A missing file is an
// empty history.
func readLines(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var lines [][]byte
	n := 0
	for scanner.Scan() {
		n++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("decode history record on line %d: invalid JSON", n)
		}
		lines = append(lines, append([]byte(nil), raw...))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return lines, nil
}
