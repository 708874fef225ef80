// Command barrage exposes the artillery load-testing CLI over MCP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/barragehq/barrage"
	"github.com/barragehq/barrage/internal/artillery"
	"github.com/barragehq/barrage/internal/config"
	barragemcp "github.com/barragehq/barrage/internal/mcp"
	"github.com/barragehq/barrage/internal/report"
	"github.com/barragehq/barrage/internal/runner"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("barrage: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "run":
		err = runMain(args)
	case "quick":
		err = quickMain(args)
	case "version":
		fmt.Println(barrage.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "barrage: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: barrage <command> [flags]

Commands:
  mcp         Start the MCP server (stdio, or HTTP with -http)
  run         Run an artillery scenario file
  quick       Run an ad-hoc quick test against a URL
  version     Print the version
  help        Show this help

Configuration (environment):
  ARTILLERY_PATH         Explicit path to the artillery binary
  BARRAGE_WORK_DIR       Sandbox root for scenario and output paths
  BARRAGE_TIMEOUT_MS     Per-run timeout (1000..7200000, default 300000)
  BARRAGE_MAX_OUTPUT_MB  Per-stream capture cap (1..100, default 10)
  BARRAGE_ALLOW_QUICK    "true" enables the quick-test capability

Use "barrage <command> -h" for command-specific flags.`)
}

// newClient detects the binary, loads the validated configuration, and
// wires the shared dependencies. Called once per invocation.
func newClient() (*artillery.Client, *config.Config, error) {
	binary, err := artillery.DetectBinary(os.Getenv)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(os.Getenv, binary)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr: stdout belongs to the stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	client := &artillery.Client{
		Config: cfg,
		Runner: &runner.Runner{
			Timeout:   cfg.Timeout,
			MaxOutput: cfg.MaxOutput,
			Logger:    logger,
		},
		Logger: logger,
	}
	return client, cfg, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(barragemcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, cfg, err := newClient()
	if err != nil {
		return err
	}

	store := report.NewLRUStore(5, report.NewDiskStore())
	server := barragemcp.NewServer(cfg, client, store, client.Logger)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	outputJSON := fs.String("output", "", "write the JSON result file here")
	reportHTML := fs.String("report", "", "write an HTML report here")
	cwd := fs.String("cwd", "", "working-directory override within the work dir")
	validate := fs.Bool("validate", false, "validate the scenario without running it")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: barrage run [flags] <scenario.yml>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	res, err := client.RunFromFile(ctx, fs.Arg(0), artillery.RunOptions{
		OutputJSON:   *outputJSON,
		ReportHTML:   *reportHTML,
		Dir:          *cwd,
		ValidateOnly: *validate,
	})
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return printResult(res)
}

// --- quick ---

func quickMain(args []string) error {
	fs := flag.NewFlagSet("quick", flag.ExitOnError)
	rate := fs.Float64("rate", 0, "target requests per second")
	duration := fs.String("duration", "", "test duration token, e.g. 30s")
	count := fs.Int("count", 0, "virtual user count (derived when 0)")
	num := fs.Int("num", 0, "requests per virtual user (derived when 0)")
	insecure := fs.Bool("insecure", false, "skip TLS verification")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: barrage quick [flags] <url>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, _, err := newClient()
	if err != nil {
		return err
	}

	res, err := client.QuickTest(ctx, artillery.QuickOptions{
		Target:   fs.Arg(0),
		Rate:     *rate,
		Duration: *duration,
		Count:    *count,
		Num:      *num,
		Insecure: *insecure,
	})
	if err != nil {
		return fmt.Errorf("quick: %w", err)
	}

	return printResult(res)
}

func printResult(res *artillery.RunResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if res.ExitCode != 0 {
		os.Exit(res.ExitCode)
	}
	return nil
}
