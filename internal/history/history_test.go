package history_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"

	"github.com/RowanDark/xorbreak/internal/history"
)

func seed(t *testing.T) (string, []history.Record) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.jsonl")

	fixtures := []history.Record{
		{Operation: history.OpSingleByte, Source: "cli", RunID: "run-a", KeyHex: "58", Score: 15, Plaintext: "Cooking MC's like a pound of bacon"},
		{Operation: history.OpRepeating, Source: "rpc", RunID: "run-b", KeyHex: "494345", KeyLength: 3, Distance: 2.4, Score: 17, Plaintext: "Burning 'em"},
		{Operation: history.OpDetect, Source: "cli", RunID: "run-a", KeyHex: "35", Line: 7, Score: 16, Plaintext: "Now that the party is jumping\n"},
	}
	var stored []history.Record
	for _, rec := range fixtures {
		got, err := history.Append(path, rec)
		if err != nil {
			t.Fatalf("append history: %v", err)
		}
		stored = append(stored, got)
	}
	return path, stored
}

func TestAppendStampsRecords(t *testing.T) {
	path, stored := seed(t)

	seen := map[string]bool{}
	for _, rec := range stored {
		if _, err := ulid.ParseStrict(rec.ID); err != nil {
			t.Fatalf("expected ULID id, got %q: %v", rec.ID, err)
		}
		if seen[rec.ID] {
			t.Fatalf("duplicate id %s", rec.ID)
		}
		seen[rec.ID] = true
		if _, err := rec.Time(); err != nil {
			t.Fatalf("recorded_at %q: %v", rec.RecordedAt, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if got := gjson.Get(lines[0], "id").String(); got != stored[0].ID {
		t.Fatalf("expected id %s on disk, got %s", stored[0].ID, got)
	}
	if !gjson.Get(lines[1], "recorded_at").Exists() {
		t.Fatal("expected recorded_at on disk")
	}
}

func TestAppendKeepsExistingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	rec, err := history.Append(path, history.Record{ID: "fixed", RecordedAt: "2024-01-01T00:00:00Z", Operation: history.OpKeyLength})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if rec.ID != "fixed" || rec.RecordedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected stamps %+v", rec)
	}

	if _, err := history.Append("", rec); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := history.Append(path, history.Record{}); err == nil {
		t.Fatal("expected error for record without operation")
	}
}

func TestLoadAndSearch(t *testing.T) {
	path, stored := seed(t)

	index, err := history.Load(path)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if index.Len() != 3 {
		t.Fatalf("expected 3 records, got %d", index.Len())
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{stored[0].ID, stored[1].ID, stored[2].ID}},
		{"source:cli", []string{stored[0].ID, stored[2].ID}},
		{"op:REPEATING", []string{stored[1].ID}},
		{"run:run-a min_score:16", []string{stored[2].ID}},
		{"key:494345 keylen:3", []string{stored[1].ID}},
		{"key:ff", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results, err := index.Search(tt.query)
			if err != nil {
				t.Fatalf("search history: %v", err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(results))
			}
			for i, rec := range results {
				if rec.ID != tt.want[i] {
					t.Fatalf("result %d: expected %s, got %s", i, tt.want[i], rec.ID)
				}
			}
		})
	}

	for _, bad := range []string{"score", "op:", "color:red", "keylen:x", "min_score:high"} {
		if _, err := index.Search(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWhere(t *testing.T) {
	path, stored := seed(t)
	index, err := history.Load(path)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}

	tests := []struct {
		cond string
		want []string
	}{
		{"score>=16", []string{stored[1].ID, stored[2].ID}},
		{`operation=="single"`, []string{stored[0].ID}},
		{`plaintext%"*bacon*"`, []string{stored[0].ID}},
		{"score>100", nil},
		{"", []string{stored[0].ID, stored[1].ID, stored[2].ID}},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			got, err := index.Where(tt.cond)
			if err != nil {
				t.Fatalf("Where: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, rec := range got {
				if rec.ID != tt.want[i] {
					t.Fatalf("result %d: expected %s, got %s", i, tt.want[i], rec.ID)
				}
			}
		})
	}

	if _, err := index.Where("score>1)#|#(x"); err == nil {
		t.Fatal("expected error for injected query")
	}
}

func TestRecordLookupAndLast(t *testing.T) {
	path, stored := seed(t)
	index, err := history.Load(path)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}

	got, ok := index.Record(stored[1].ID)
	if !ok {
		t.Fatal("expected record lookup to succeed")
	}
	if got.KeyHex != "494345" || got.Distance != 2.4 {
		t.Fatalf("unexpected record %+v", got)
	}
	if _, ok := index.Record("missing"); ok {
		t.Fatal("unexpected record for unknown id")
	}

	last := history.Last(index.Records(), 2)
	if len(last) != 2 || last[0].ID != stored[1].ID {
		t.Fatalf("unexpected tail %+v", last)
	}
	if all := history.Last(index.Records(), 0); len(all) != 3 {
		t.Fatalf("expected all records, got %d", len(all))
	}
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	index, err := history.Load(filepath.Join(dir, "absent.jsonl"))
	if err != nil {
		t.Fatalf("missing file should load empty: %v", err)
	}
	if index.Len() != 0 {
		t.Fatalf("expected empty index, got %d", index.Len())
	}

	bad := filepath.Join(dir, "bad.jsonl")
	if err := os.WriteFile(bad, []byte("{\"operation\":\"single\"}\nnot json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := history.Load(bad); err == nil {
		t.Fatal("expected error for corrupt line")
	}
}
