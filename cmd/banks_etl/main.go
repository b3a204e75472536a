// Command banks_etl extracts the largest-banks table from a web page,
// converts market capitalization into the configured currencies, and
// loads the result into a CSV file and a relational table.
//
// Usage:
//
//	banks_etl                          # reference run with built-in defaults
//	banks_etl -config banks.yaml       # defaults overlaid with a config file
//	banks_etl -config banks.yaml -validate
//	banks_etl -list-tables             # print candidate tables of the source page
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"banketl/internal/config"
	"banketl/internal/extracthtml"
	"banketl/internal/metrics/setup"
	"banketl/internal/pipeline"
	"banketl/internal/progress"

	"github.com/google/uuid"

	// register all backends with the storage factory.
	_ "banketl/internal/storage/all"
)

// appDeps are the side-effecting collaborators of runMain.
type appDeps struct {
	readFile    func(path string) ([]byte, error)
	decode      func(data []byte, ext string, dst any) error
	initMetrics func(ctx context.Context, o setup.Options) (func(), error)
	run         func(ctx context.Context, cfg config.Banks, env pipeline.Env) error
	newRunID    func() string
	stdin       io.Reader
	httpClient  *http.Client
}

func defaultDeps() appDeps {
	return appDeps{
		readFile:    os.ReadFile,
		decode:      config.Decode,
		initMetrics: setup.Init,
		run: func(ctx context.Context, cfg config.Banks, env pipeline.Env) error {
			_, err := pipeline.RunBanks(ctx, cfg, env)
			return err
		},
		newRunID:   uuid.NewString,
		stdin:      os.Stdin,
		httpClient: http.DefaultClient,
	}
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, defaultDeps()))
}

const usage = "usage: banks_etl [-config path] [-validate] [-list-tables] [-metrics-backend none|datadog|pushgateway]"

// runMain returns a Unix-style exit code:
//   - 0 for success
//   - 2 for usage errors
//   - 1 for config and runtime errors
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("banks_etl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfgPath := fs.String("config", "", "pipeline config path (.json, .yaml); defaults apply when empty")
	metricsBackend := fs.String("metrics-backend", "", "metrics backend: none, datadog, pushgateway (overrides env METRICS_BACKEND)")
	pushGatewayURL := fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	listTables := fs.Bool("list-tables", false, "print the candidate tables of the source page and exit")
	timeout := fs.Duration("timeout", 0, "overall run timeout (0 = none)")
	verbose := fs.Bool("v", false, "enable stage logs on stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n%s\n", fs.Args(), usage)
		return 2
	}

	cfg := config.DefaultBanks()
	if flagWasSet(fs, "config") {
		path := strings.TrimSpace(*cfgPath)
		if path == "" {
			fmt.Fprintln(stderr, usage)
			return 2
		}
		data, err := deps.readFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "read config: %v\n", err)
			return 1
		}
		if err := deps.decode(data, filepath.Ext(path), &cfg); err != nil {
			fmt.Fprintf(stderr, "parse config: %v\n", err)
			return 1
		}
	}

	issues := config.ValidateBanks(cfg)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "configuration is invalid")
		return 1
	}
	if *validate {
		fmt.Fprintln(stdout, "configuration is valid")
		return 0
	}

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	runID := deps.newRunID()
	errLog := log.New(stderr, "run_id="+runID+" ", log.LstdFlags)
	env := pipeline.Env{
		Out:        stdout,
		Progress:   progress.New(cfg.LogPath, progress.WithErrorLogger(errLog)),
		HTTPClient: deps.httpClient,
		Stdin:      deps.stdin,
	}
	if *verbose {
		env.Logger = errLog
	}

	if *listTables {
		src, err := pipeline.LoadSource(ctx, cfg.Source, env)
		if err != nil {
			fmt.Fprintf(stderr, "load source: %v\n", err)
			return 1
		}
		if err := extracthtml.DebugPrintTables(stdout, src, cfg.Extract.TableSelector); err != nil {
			fmt.Fprintf(stderr, "list tables: %v\n", err)
			return 1
		}
		return 0
	}

	cleanup, err := deps.initMetrics(ctx, setup.Options{
		Job:            cfg.Job,
		Backend:        *metricsBackend,
		PushGatewayURL: *pushGatewayURL,
	})
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	start := time.Now()
	if err := deps.run(ctx, cfg, env); err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		var nf *extracthtml.TableNotFoundError
		if errors.As(err, &nf) {
			fmt.Fprintln(stderr, "hint: run with -list-tables to inspect the candidate tables")
		}
		return 1
	}
	if *verbose {
		errLog.Printf("job=%s ok duration=%s", cfg.Job, time.Since(start).Truncate(time.Millisecond))
	}
	return 0
}

func flagWasSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
