package main

import (
	"fmt"
	"strings"

	"github.com/RowanDark/xorbreak/internal/history"
)

func runHistory(a *app, args []string) int {
	fs := a.flagSet("history")
	path := fs.String("path", a.cfg.HistoryPath, "history JSONL log")
	where := fs.String("where", "", `gjson condition, e.g. 'score>=15' or 'operation=="repeating"'`)
	query := fs.String("q", "", "search terms, e.g. 'op:single min_score:10'")
	limit := fs.Int("limit", 20, "show at most this many of the latest records (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" {
		fmt.Fprintln(a.stderr, "history is disabled; set history_path or --path")
		return 2
	}
	if *where != "" && *query != "" {
		fmt.Fprintln(a.stderr, "--where and --q are mutually exclusive")
		return 2
	}

	idx, err := history.Load(*path)
	if err != nil {
		fmt.Fprintf(a.stderr, "load history: %v\n", err)
		return 1
	}

	var recs []history.Record
	switch {
	case *query != "":
		recs, err = idx.Search(*query)
	default:
		recs, err = idx.Where(*where)
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "history: %v\n", err)
		return 2
	}
	recs = history.Last(recs, *limit)
	if recs == nil {
		recs = []history.Record{}
	}

	lines := make([]string, len(recs))
	for i, r := range recs {
		lines[i] = historyLine(r)
	}
	return a.report(recs, lines...)
}

func historyLine(r history.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %-10s", r.ID, r.RecordedAt, r.Operation)
	if r.Line > 0 {
		fmt.Fprintf(&b, " line=%d", r.Line)
	}
	if r.KeyLength > 0 {
		fmt.Fprintf(&b, " keylen=%d", r.KeyLength)
	}
	if r.KeyHex != "" {
		fmt.Fprintf(&b, " key=%s", r.KeyHex)
	}
	if r.Operation != history.OpKeyLength && r.Operation != history.OpIdentBlocks {
		fmt.Fprintf(&b, " score=%s", formatScore(r.Score))
	}
	if r.Plaintext != "" {
		fmt.Fprintf(&b, " %q", truncate(r.Plaintext, 40))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
