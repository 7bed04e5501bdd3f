package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type indexedEntry struct {
	record  Record
	raw     []byte
	opLower string
	keyHex  string
}

// Index provides in-memory search over a history log.
type Index struct {
	entries   []indexedEntry
	positions map[string]int
}

// Load builds an index by parsing the given history JSONL file. A missing
// file yields an empty index.
func Load(path string) (*Index, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	idx := &Index{positions: make(map[string]int, len(lines))}
	for i, raw := range lines {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode history record %d: %w", i+1, err)
		}
		if rec.ID != "" {
			idx.positions[rec.ID] = len(idx.entries)
		}
		idx.entries = append(idx.entries, indexedEntry{
			record:  rec,
			raw:     raw,
			opLower: strings.ToLower(rec.Operation),
			keyHex:  strings.ToLower(rec.KeyHex),
		})
	}
	return idx, nil
}

// Len reports the number of records.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// Records returns every record in the order it was written.
func (i *Index) Records() []Record {
	if i == nil {
		return nil
	}
	out := make([]Record, len(i.entries))
	for n, e := range i.entries {
		out[n] = e.record
	}
	return out
}

// Record retrieves a record by ID.
func (i *Index) Record(id string) (Record, bool) {
	if i == nil {
		return Record{}, false
	}
	pos, ok := i.positions[id]
	if !ok {
		return Record{}, false
	}
	return i.entries[pos].record, true
}

type predicate func(*indexedEntry) bool

// Search returns every record matching all whitespace-separated key:value
// terms. Supported keys are op, source, run, key (hex), keylen and
// min_score.
func (i *Index) Search(rawQuery string) ([]Record, error) {
	if i == nil {
		return nil, fmt.Errorf("index not initialised")
	}
	predicates, err := parseQuery(rawQuery)
	if err != nil {
		return nil, err
	}
	var results []Record
	for n := range i.entries {
		entry := &i.entries[n]
		match := true
		for _, p := range predicates {
			if !p(entry) {
				match = false
				break
			}
		}
		if match {
			results = append(results, entry.record)
		}
	}
	return results, nil
}

func parseQuery(input string) ([]predicate, error) {
	tokens := strings.Fields(input)
	predicates := make([]predicate, 0, len(tokens))
	for _, token := range tokens {
		parts := strings.SplitN(token, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid query token %q (expected key:value)", token)
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		value := strings.TrimSpace(parts[1])
		if value == "" {
			return nil, fmt.Errorf("query term %q missing value", key)
		}
		switch key {
		case "op":
			op := strings.ToLower(value)
			predicates = append(predicates, func(e *indexedEntry) bool { return e.opLower == op })
		case "source":
			predicates = append(predicates, func(e *indexedEntry) bool { return strings.EqualFold(e.record.Source, value) })
		case "run":
			predicates = append(predicates, func(e *indexedEntry) bool { return e.record.RunID == value })
		case "key":
			k := strings.ToLower(value)
			predicates = append(predicates, func(e *indexedEntry) bool { return e.keyHex == k })
		case "keylen":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid keylen %q", value)
			}
			predicates = append(predicates, func(e *indexedEntry) bool { return e.record.KeyLength == n })
		case "min_score":
			s, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid min_score %q", value)
			}
			predicates = append(predicates, func(e *indexedEntry) bool { return e.record.Score >= s })
		default:
			return nil, fmt.Errorf("unsupported query field %q", key)
		}
	}
	return predicates, nil
}

// Where filters records with a gjson query condition, for example
// `score>=15`, `operation=="repeating"` or `plaintext%"*bacon*"`.
// An empty condition matches everything.
func (i *Index) Where(cond string) ([]Record, error) {
	if i == nil {
		return nil, fmt.Errorf("index not initialised")
	}
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return i.Records(), nil
	}
	if strings.ContainsAny(cond, "()#") {
		return nil, fmt.Errorf("invalid condition %q", cond)
	}

	raws := make([][]byte, len(i.entries))
	for n, e := range i.entries {
		raws[n] = e.raw
	}
	doc := append(append([]byte{'['}, bytes.Join(raws, []byte{','})...), ']')

	res := gjson.GetBytes(doc, "#("+cond+")#")
	if !res.IsArray() {
		return nil, fmt.Errorf("invalid condition %q", cond)
	}
	var out []Record
	for _, item := range res.Array() {
		var rec Record
		if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
			return nil, fmt.Errorf("decode matched record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Last returns at most n records from the end of recs. n <= 0 keeps all.
func Last(recs []Record, n int) []Record {
	if n <= 0 || n >= len(recs) {
		return recs
	}
	return recs[len(recs)-n:]
}
