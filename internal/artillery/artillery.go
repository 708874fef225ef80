// Package artillery wraps the artillery load-testing CLI: it resolves
// and sandboxes scenario paths, builds argv vectors, executes them
// under the configured bounds, and projects result files into
// normalized summaries.
package artillery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/barragehq/barrage/internal/config"
	"github.com/barragehq/barrage/internal/runner"
	"gopkg.in/yaml.v3"
)

// CommandRunner executes a bounded subprocess. Implemented by
// runner.Runner; tests substitute spies.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, opts runner.Options) (*runner.Result, error)
}

// Client composes the runner, sanitizer and summarizer into the
// high-level artillery operations. It is safe for concurrent use: all
// fields are read-only after construction.
type Client struct {
	Config *config.Config
	Runner CommandRunner
	Logger *slog.Logger
}

// Tail size of captured logs returned to callers.
const logTailBytes = 2048

// versionTimeout bounds the --version probe, which should return
// near-instantly.
const versionTimeout = 30 * time.Second

// Quick-test request-shaping defaults.
const (
	defaultQuickCount = 10 // virtual users
	defaultQuickNum   = 30 // requests per virtual user
)

// validMessage is the synthetic confirmation for validate-only calls.
const validMessage = "configuration is valid"

// RunOptions adjusts a file or inline run.
type RunOptions struct {
	OutputJSON   string            // write the JSON result here (relative to the work dir)
	ReportHTML   string            // write an HTML report here
	Env          map[string]string // environment overrides for the child
	Dir          string            // working-directory override, must stay within the work dir
	ValidateOnly bool              // validate the scenario without running it
}

// RunResult is the normalized outcome of a run operation.
type RunResult struct {
	RunID      string   `json:"run_id,omitempty"`
	ExitCode   int      `json:"exit_code"`
	ElapsedMs  int64    `json:"elapsed_ms"`
	LogTail    string   `json:"log_tail,omitempty"`
	ResultPath string   `json:"result_path,omitempty"`
	ReportPath string   `json:"report_path,omitempty"`
	Summary    *Summary `json:"summary,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// RunFromFile executes a scenario file. ValidateOnly short-circuits
// before the subprocess and returns a synthetic success. After a clean
// run with an output path, summarization is attempted; its failure is
// logged and swallowed, never failing the run.
func (c *Client) RunFromFile(ctx context.Context, path string, opts RunOptions) (*RunResult, error) {
	childDir, err := c.childDir(opts.Dir)
	if err != nil {
		return nil, err
	}

	scenario, err := c.Sanitize(path, childDir)
	if err != nil {
		return nil, err
	}

	if opts.ValidateOnly {
		// Never spawns: validation is a sanitization pass, not a dry run
		// of the binary.
		c.Logger.Info("scenario validated", "scenario", scenario)
		return &RunResult{ExitCode: 0, Message: validMessage}, nil
	}

	argv := []string{c.Config.BinaryPath, "run"}

	var outPath, reportPath string
	if opts.OutputJSON != "" {
		outPath, err = c.resolveWithin(opts.OutputJSON, childDir)
		if err != nil {
			return nil, err
		}
		argv = append(argv, "--output", outPath)
	}
	if opts.ReportHTML != "" {
		reportPath, err = c.resolveWithin(opts.ReportHTML, childDir)
		if err != nil {
			return nil, err
		}
		argv = append(argv, "--report", reportPath)
	}
	argv = append(argv, scenario)

	return c.execute(ctx, argv, runner.Options{Dir: childDir, Env: envList(opts.Env)}, outPath, reportPath)
}

// RunInline materializes scenario text to a uniquely named temp file
// under <workDir>/temp and delegates to RunFromFile. The temp file is
// removed when the call returns, on success and failure alike.
func (c *Client) RunInline(ctx context.Context, configText string, opts RunOptions) (*RunResult, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(configText), &node); err != nil {
		return nil, fmt.Errorf("inline scenario is not valid YAML: %w", err)
	}

	tempDir := filepath.Join(c.Config.WorkDir, "temp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}

	path := filepath.Join(tempDir, fmt.Sprintf("config-%d.yml", time.Now().UnixMilli()))
	if err := os.WriteFile(path, []byte(configText), 0o644); err != nil {
		return nil, fmt.Errorf("writing inline scenario: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			c.Logger.Warn("removing inline scenario", "path", path, "error", err)
		}
	}()

	return c.RunFromFile(ctx, path, opts)
}

// QuickOptions shapes an ad-hoc quick test.
type QuickOptions struct {
	Target   string  // URL to hit
	Rate     float64 // requests per second, used to derive counts
	Duration string  // scenario duration token, e.g. "30s"
	Count    int     // virtual users; derived when 0
	Num      int     // requests per virtual user; derived when 0
	Insecure bool    // skip TLS verification
}

// QuickTest runs artillery's built-in ad-hoc mode against a single URL.
// It fails with *QuickDisabledError before any subprocess when the
// capability is gated off.
func (c *Client) QuickTest(ctx context.Context, opts QuickOptions) (*RunResult, error) {
	if !c.Config.AllowQuick {
		return nil, &QuickDisabledError{}
	}
	if opts.Target == "" {
		return nil, fmt.Errorf("quick test requires a target URL")
	}

	count, n := quickShape(opts)

	outPath := filepath.Join(c.Config.WorkDir, fmt.Sprintf("quick-test-%d.json", time.Now().UnixMilli()))

	argv := []string{
		c.Config.BinaryPath, "quick", opts.Target,
		"-c", strconv.Itoa(count),
		"-n", strconv.Itoa(n),
		"-o", outPath,
	}
	insecure := opts.Insecure
	if u, err := url.Parse(opts.Target); err == nil && u.Scheme == "https" {
		insecure = true
	}
	if insecure {
		argv = append(argv, "-k")
	}

	c.Logger.Info("quick test", "target", opts.Target, "count", count, "num", n)
	return c.execute(ctx, argv, runner.Options{Dir: c.Config.WorkDir}, outPath, "")
}

// quickShape resolves the virtual-user count and per-user request count
// from whatever combination of rate, duration and explicit counts the
// caller supplied.
func quickShape(opts QuickOptions) (count, n int) {
	durSecs := 0.0
	if opts.Duration != "" {
		durSecs = DurationSeconds(opts.Duration)
	}

	count = opts.Count
	if count <= 0 {
		if opts.Rate > 0 && durSecs > 0 {
			count = int(math.Ceil(opts.Rate * durSecs))
		} else {
			count = defaultQuickCount
		}
	}

	n = opts.Num
	if n <= 0 {
		switch {
		case opts.Rate > 0 && durSecs > 0:
			n = int(math.Ceil(opts.Rate * durSecs / float64(count)))
		case durSecs > 0:
			// One request per second per virtual user.
			n = int(math.Ceil(durSecs))
		default:
			n = defaultQuickNum
		}
		if n < 1 {
			n = 1
		}
	}
	return count, n
}

// Version runs the binary's version probe and returns its trimmed output.
func (c *Client) Version(ctx context.Context) (string, error) {
	res, err := c.Runner.Run(ctx, []string{c.Config.BinaryPath, "--version"}, runner.Options{
		Dir:     c.Config.WorkDir,
		Timeout: versionTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("querying artillery version: %w", err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("artillery --version exited %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// binaryNames are the conventional names probed on PATH, in order.
var binaryNames = []string{"artillery", "artillery.cmd"}

// DetectBinary locates the artillery binary once at startup. An
// explicit ARTILLERY_PATH must exist and is used verbatim; otherwise
// the conventional names are probed on PATH.
func DetectBinary(getenv config.Getenv) (string, error) {
	if p := getenv("ARTILLERY_PATH"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("ARTILLERY_PATH %s: %w", p, err)
		}
		return p, nil
	}

	for _, name := range binaryNames {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("artillery binary not found on PATH; install artillery or set ARTILLERY_PATH")
}

// execute runs argv and assembles the normalized result, summarizing
// the output file after a clean exit.
func (c *Client) execute(ctx context.Context, argv []string, opts runner.Options, outPath, reportPath string) (*RunResult, error) {
	res, err := c.Runner.Run(ctx, argv, opts)
	if err != nil {
		return nil, err
	}

	rr := &RunResult{
		RunID:      res.RunID,
		ExitCode:   res.ExitCode,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		LogTail:    logTail(res.Stdout, res.Stderr),
		ResultPath: outPath,
		ReportPath: reportPath,
	}

	if outPath != "" && res.ExitCode == 0 {
		sum, err := Summarize(outPath)
		if err != nil {
			// Best effort: the run itself succeeded.
			c.Logger.Warn("summarizing result file", "path", outPath, "error", err)
		} else {
			rr.Summary = sum
		}
	}
	return rr, nil
}

// childDir resolves the working-directory override, which must exist
// within the work directory. Empty means the work directory itself.
func (c *Client) childDir(dir string) (string, error) {
	if dir == "" {
		return c.Config.WorkDir, nil
	}
	return c.Sanitize(dir, "")
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// logTail returns the last logTailBytes of the combined streams.
func logTail(stdout, stderr []byte) string {
	var b strings.Builder
	b.Write(stdout)
	if len(stderr) > 0 {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.Write(stderr)
	}
	s := b.String()
	if len(s) > logTailBytes {
		s = s[len(s)-logTailBytes:]
	}
	return s
}
