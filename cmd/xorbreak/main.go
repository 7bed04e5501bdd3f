package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/RowanDark/xorbreak/internal/config"
	"github.com/RowanDark/xorbreak/internal/history"
	"github.com/RowanDark/xorbreak/internal/logging"
)

var version = "dev"

const cliBanner = "xorbreak: XOR cryptanalysis toolkit"

// app carries what every subcommand needs.
type app struct {
	ctx    context.Context
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	json   bool
	audit  *logging.AuditLogger
}

type command struct {
	run     func(a *app, args []string) int
	summary string
}

var commands = map[string]command{
	"hex2b64":    {runHex2B64, "re-encode hex as base64"},
	"b642hex":    {runB642Hex, "re-encode base64 as hex"},
	"xor":        {runXor, "XOR two equal-length hex strings"},
	"encrypt":    {runEncrypt, "repeating-key XOR a plaintext"},
	"single":     {runSingle, "break single-byte XOR"},
	"detect":     {runDetect, "find the single-byte XOR line in a file of hex lines"},
	"keylen":     {runKeylen, "estimate the repeating key length"},
	"repeating":  {runRepeating, "break repeating-key XOR"},
	"detect-ecb": {runDetectECB, "report hex lines with repeated blocks"},
	"pipeline":   {runPipeline, "run a chain of registered operations"},
	"history":    {runHistory, "list or filter earlier results"},
	"version":    {runVersion, "print the version"},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("xorbreak", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	jsonOut := fs.Bool("json", false, "print results as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	audit := logging.Discard("xorbreak")
	if cfg.AuditLog != "" {
		audit, err = logging.NewAuditLogger("xorbreak", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
		if err != nil {
			fmt.Fprintf(stderr, "open audit log: %v\n", err)
			return 1
		}
	}
	defer audit.Close()

	a := &app{
		ctx:    ctx,
		cfg:    cfg,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		json:   *jsonOut,
		audit:  audit.WithRunID(logging.NewRunID()),
	}
	return cmd.run(a, rest[1:])
}

func usage(w io.Writer) {
	fmt.Fprintln(w, cliBanner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: xorbreak [--json] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-11s %s\n", name, commands[name].summary)
	}
}

func runVersion(a *app, args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(a.stderr, "version takes no arguments")
		return 2
	}
	return a.report(map[string]string{"version": version}, version)
}

// report writes v as JSON when --json is set and the text lines otherwise.
func (a *app) report(v any, lines ...string) int {
	if a.json {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			fmt.Fprintf(a.stderr, "encode output: %v\n", err)
			return 1
		}
		return 0
	}
	for _, line := range lines {
		fmt.Fprintln(a.stdout, line)
	}
	return 0
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func (a *app) emit(event logging.AuditEvent) {
	if err := a.audit.Emit(event); err != nil {
		fmt.Fprintf(a.stderr, "audit: %v\n", err)
	}
}

// record appends rec to the configured history log. Failures only warn.
func (a *app) record(rec history.Record) {
	if a.cfg.HistoryPath == "" {
		return
	}
	rec.Source = "cli"
	rec.RunID = a.audit.RunID()
	if _, err := history.Append(a.cfg.HistoryPath, rec); err != nil {
		fmt.Fprintf(a.stderr, "warning: history not saved: %v\n", err)
	}
}
