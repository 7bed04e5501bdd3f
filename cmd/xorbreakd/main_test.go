package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/RowanDark/xorbreak/internal/config"
	"github.com/RowanDark/xorbreak/internal/logging"
	"github.com/RowanDark/xorbreak/internal/rpc"
)

func TestServeBootsAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	cfg := config.Default()
	cfg.Server.AuthToken = "test-token"
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.jsonl")

	var auditBuf bytes.Buffer
	audit := logging.MustNewAuditLogger("xorbreakd", logging.WithoutStdout(), logging.WithWriter(&auditBuf))
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, lis, cfg, logger, audit)
	}()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	out, err := rpc.NewClient(conn, "test-token").Transcode(callCtx, "49276d", "hex", "base64")
	if err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	if out != "SSdt" {
		t.Fatalf("expected SSdt, got %q", out)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}

	if got := strings.Count(auditBuf.String(), `"event_type":"server_lifecycle"`); got != 2 {
		t.Fatalf("expected start and stop lifecycle events, got %d:\n%s", got, auditBuf.String())
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	testChdir(t, t.TempDir())

	var stderr bytes.Buffer
	if code := run(context.Background(), []string{"--bogus"}, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	stderr.Reset()
	if code := run(context.Background(), []string{"--max-conns", "-1"}, &stderr); code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "max-conns") {
		t.Fatalf("expected max-conns message, got %q", stderr.String())
	}
}

func TestStartMetrics(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	addr, stop, err := startMetrics("127.0.0.1:0", logger)
	if err != nil {
		t.Fatalf("startMetrics: %v", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "xorbreak_rpc_requests_total") {
		t.Fatalf("unexpected metrics response %d:\n%s", resp.StatusCode, body)
	}
}

// testChdir changes the working directory for the duration of the test
// (stand-in for testing.T.Chdir, which requires Go 1.24).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}
