// Command instructor_load loads a headerless instructor CSV into a table,
// runs the configured queries, and appends one record.
//
// Usage:
//
//	instructor_load
//	instructor_load -config staff.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"banketl/internal/config"
	"banketl/internal/metrics/setup"
	"banketl/internal/pipeline"
	"banketl/internal/progress"

	"github.com/google/uuid"

	// register all backends with the storage factory.
	_ "banketl/internal/storage/all"
)

type appDeps struct {
	readFile    func(path string) ([]byte, error)
	decode      func(data []byte, ext string, dst any) error
	initMetrics func(ctx context.Context, o setup.Options) (func(), error)
	run         func(ctx context.Context, cfg config.Instructor, env pipeline.Env) (*pipeline.InstructorReport, error)
	newRunID    func() string
}

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr, appDeps{
		readFile:    os.ReadFile,
		decode:      config.Decode,
		initMetrics: setup.Init,
		run:         pipeline.LoadAndQuery,
		newRunID:    uuid.NewString,
	}))
}

const usage = "usage: instructor_load [-config path] [-validate] [-metrics-backend none|datadog|pushgateway]"

// runMain returns 0 on success, 2 on usage errors and 1 otherwise.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, deps appDeps) int {
	fs := flag.NewFlagSet("instructor_load", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfgPath := fs.String("config", "", "loader config path (.json, .yaml); defaults apply when empty")
	metricsBackend := fs.String("metrics-backend", "", "metrics backend: none, datadog, pushgateway (overrides env METRICS_BACKEND)")
	pushGatewayURL := fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	validate := fs.Bool("validate", false, "validate the configuration and exit")
	verbose := fs.Bool("v", false, "enable stage logs on stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n%s\n", fs.Args(), usage)
		return 2
	}

	cfg := config.DefaultInstructor()
	configSet := false
	fs.Visit(func(f *flag.Flag) { configSet = configSet || f.Name == "config" })
	if configSet {
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

	issues := config.ValidateInstructor(cfg)
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

	errLog := log.New(stderr, "run_id="+deps.newRunID()+" ", log.LstdFlags)
	env := pipeline.Env{
		Out:      stdout,
		Progress: progress.New(cfg.LogPath, progress.WithErrorLogger(errLog)),
	}
	if *verbose {
		env.Logger = errLog
	}

	rep, err := deps.run(ctx, cfg, env)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if *verbose {
		errLog.Printf("job=%s ok rows_before=%d rows_after=%d", cfg.Job, rep.CountBefore, rep.CountAfter)
	}
	return 0
}
