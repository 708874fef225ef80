package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/config"
	"github.com/barragehq/barrage/internal/report"
	"github.com/barragehq/barrage/internal/runner"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeArtillery emulates enough of the artillery CLI for handler tests:
// a version probe, file runs that honor --output, and quick mode.
const fakeArtillery = `#!/bin/sh
cmd="$1"
case "$cmd" in
--version)
	echo "2.0.9"
	exit 0
	;;
run)
	shift
	out=""
	while [ $# -gt 0 ]; do
		if [ "$1" = "--output" ]; then out="$2"; shift; fi
		shift
	done
	if [ -n "$out" ]; then
		echo '{"metrics":{"http":{"requests":{"count":100,"rate":10.5},"response_time":{"p50":150,"p95":300,"p99":500},"errors":{"ETIMEDOUT":5}}}}' > "$out"
	fi
	echo "run complete"
	exit 0
	;;
quick)
	shift
	out=""
	while [ $# -gt 0 ]; do
		if [ "$1" = "-o" ]; then out="$2"; shift; fi
		shift
	done
	if [ -n "$out" ]; then
		echo '{"aggregate":{"counters":{"http.requests":50},"rates":{"http.request_rate":5}}}' > "$out"
	fi
	echo "quick complete"
	exit 0
	;;
esac
echo "unknown command $cmd" >&2
exit 2
`

// setup creates a full barrage MCP server + client over in-memory
// transports, backed by the fake artillery script.
func setup(t *testing.T, allowQuick bool) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	workDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	bin := filepath.Join(t.TempDir(), "artillery")
	if err := os.WriteFile(bin, []byte(fakeArtillery), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		BinaryPath: bin,
		WorkDir:    workDir,
		Timeout:    30 * time.Second,
		MaxOutput:  1 << 20,
		AllowQuick: allowQuick,
	}
	logger := slog.New(slog.DiscardHandler)
	client := &artillery.Client{
		Config: cfg,
		Runner: &runner.Runner{Timeout: cfg.Timeout, MaxOutput: cfg.MaxOutput, Logger: logger},
		Logger: logger,
	}
	store := report.NewLRUStore(5, report.NewDiskStore())

	server := NewServer(cfg, client, store, logger)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := mcpClient.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func workDirOf(t *testing.T, cs *mcp.ClientSession) string {
	t.Helper()
	out := callOutcome(t, cs, "art_capabilities", nil)
	if out.Status != "ok" {
		t.Fatalf("art_capabilities failed: %+v", out.Error)
	}
	var caps capabilitiesData
	if err := json.Unmarshal(out.Data, &caps); err != nil {
		t.Fatal(err)
	}
	return caps.WorkDir
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// testOutcome mirrors the envelope for assertions.
type testOutcome struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *outcomeError   `json:"error"`
}

func callOutcome(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *testOutcome {
	t.Helper()
	res := callTool(t, cs, name, args)
	var out testOutcome
	if err := json.Unmarshal([]byte(resultText(res)), &out); err != nil {
		t.Fatalf("outcome is not valid JSON: %v\n%s", err, resultText(res))
	}
	if res.IsError != (out.Status == "error") {
		t.Errorf("IsError = %v but status = %q", res.IsError, out.Status)
	}
	return &out
}

const scenarioYAML = "config:\n  target: http://localhost:8080\nscenarios:\n  - flow:\n      - get:\n          url: /\n"

func writeScenario(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "scenario.yml"), []byte(scenarioYAML), 0o644); err != nil {
		t.Fatal(err)
	}
}

// --- art_version ---

func TestArtVersion(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_version", nil)
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}
	var data map[string]string
	if err := json.Unmarshal(out.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data["version"] != "2.0.9" {
		t.Errorf("version = %q, want 2.0.9", data["version"])
	}
}

// --- art_run ---

func TestArtRun_WithOutput(t *testing.T) {
	cs := setup(t, false)
	writeScenario(t, workDirOf(t, cs))

	out := callOutcome(t, cs, "art_run", map[string]any{
		"path":        "scenario.yml",
		"output_json": "out.json",
	})
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}

	var res artillery.RunResult
	if err := json.Unmarshal(out.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if res.Summary == nil || res.Summary.RequestsTotal != 100 {
		t.Errorf("Summary = %+v, want requests_total 100", res.Summary)
	}
	if !strings.Contains(res.LogTail, "run complete") {
		t.Errorf("LogTail = %q, want run output", res.LogTail)
	}
}

func TestArtRun_ValidateOnly(t *testing.T) {
	cs := setup(t, false)
	writeScenario(t, workDirOf(t, cs))

	out := callOutcome(t, cs, "art_run", map[string]any{
		"path":          "scenario.yml",
		"validate_only": true,
	})
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}
	var res artillery.RunResult
	if err := json.Unmarshal(out.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 0 || res.Message == "" {
		t.Errorf("validate-only result = %+v, want exit 0 and confirmation message", res)
	}
	if res.RunID != "" {
		t.Errorf("RunID = %q, want empty for validate-only", res.RunID)
	}
}

func TestArtRun_PathEscape(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_run", map[string]any{
		"path": "../../etc/passwd",
	})
	if out.Status != "error" {
		t.Fatal("expected error outcome for escaping path")
	}
	if out.Error.Code != codeExecution {
		t.Errorf("code = %q, want %q", out.Error.Code, codeExecution)
	}
	if out.Error.Details != "path_escape" {
		t.Errorf("details = %q, want path_escape", out.Error.Details)
	}
}

// --- art_run_inline ---

func TestArtRunInline(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_run_inline", map[string]any{
		"config": scenarioYAML,
	})
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}

	// The temp scenario must be gone.
	tempDir := filepath.Join(workDirOf(t, cs), "temp")
	entries, err := os.ReadDir(tempDir)
	if err == nil && len(entries) > 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestArtRunInline_InvalidYAML(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_run_inline", map[string]any{
		"config": "scenarios: [unclosed",
	})
	if out.Status != "error" {
		t.Fatal("expected error outcome for invalid YAML")
	}
	if out.Error.Code != codeExecution {
		t.Errorf("code = %q, want %q", out.Error.Code, codeExecution)
	}
}

// --- art_quick ---

func TestArtQuick_Disabled(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_quick", map[string]any{
		"target": "http://localhost:8080",
	})
	if out.Status != "error" {
		t.Fatal("expected error outcome for disabled quick test")
	}
	if out.Error.Details != "quick_disabled" {
		t.Errorf("details = %q, want quick_disabled", out.Error.Details)
	}
}

func TestArtQuick_RunAndResults(t *testing.T) {
	cs := setup(t, true)

	out := callOutcome(t, cs, "art_quick", map[string]any{
		"target":   "http://localhost:8080",
		"rate":     5,
		"duration": "10s",
	})
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}
	var res artillery.RunResult
	if err := json.Unmarshal(out.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Summary == nil || res.Summary.RequestsTotal != 50 {
		t.Errorf("Summary = %+v, want requests_total 50", res.Summary)
	}

	// Drill into the stored run.
	resOut := callOutcome(t, cs, "art_results", map[string]any{"run_id": res.RunID})
	if resOut.Status != "ok" {
		t.Fatalf("art_results status = %q: %+v", resOut.Status, resOut.Error)
	}
	var data resultsData
	if err := json.Unmarshal(resOut.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Record == nil || data.Record.Kind != report.Quick {
		t.Errorf("Record = %+v, want quick kind", data.Record)
	}
	if data.Raw == nil {
		t.Error("Raw result missing from art_results")
	} else if _, ok := data.Raw["aggregate"]; !ok {
		t.Error("Raw result lost the aggregate section")
	}
}

// --- art_results ---

func TestArtResults_UnknownID(t *testing.T) {
	cs := setup(t, false)

	out := callOutcome(t, cs, "art_results", map[string]any{"run_id": "nonexistent"})
	if out.Status != "error" {
		t.Fatal("expected error outcome for unknown run ID")
	}
	if out.Error.Code != codeExecution {
		t.Errorf("code = %q, want %q", out.Error.Code, codeExecution)
	}
}

// --- art_capabilities ---

func TestArtCapabilities(t *testing.T) {
	cs := setup(t, true)

	out := callOutcome(t, cs, "art_capabilities", nil)
	if out.Status != "ok" {
		t.Fatalf("status = %q: %+v", out.Status, out.Error)
	}
	var caps capabilitiesData
	if err := json.Unmarshal(out.Data, &caps); err != nil {
		t.Fatal(err)
	}
	if caps.ArtilleryVersion != "2.0.9" {
		t.Errorf("ArtilleryVersion = %q, want 2.0.9", caps.ArtilleryVersion)
	}
	if caps.TimeoutMs != 30_000 {
		t.Errorf("TimeoutMs = %d, want 30000", caps.TimeoutMs)
	}
	if caps.MaxOutputMB != 1 {
		t.Errorf("MaxOutputMB = %d, want 1", caps.MaxOutputMB)
	}
	if !caps.AllowQuick {
		t.Error("AllowQuick = false, want true")
	}
	if caps.WorkDir == "" || caps.BinaryPath == "" {
		t.Errorf("caps = %+v, want work dir and binary path", caps)
	}
}
