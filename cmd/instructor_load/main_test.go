package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"banketl/internal/config"
	"banketl/internal/metrics/setup"
	"banketl/internal/pipeline"
)

func noMetrics(context.Context, setup.Options) (func(), error) { return func() {}, nil }

func TestRunMain_UsageErrors(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"-config", ""}, {"-bogus"}, {"a", "b"}} {
		var stdout, stderr bytes.Buffer
		code := runMain(context.Background(), args, &stdout, &stderr, appDeps{
			readFile: func(string) ([]byte, error) {
				t.Fatalf("readFile must not be called on usage errors")
				return nil, nil
			},
		})
		if code != 2 {
			t.Fatalf("%v: exit code=%d, want 2; stderr=%q", args, code, stderr.String())
		}
	}
}

func TestRunMain_ErrorPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		deps    appDeps
		wantSub string
	}{
		{
			name:    "read",
			deps:    appDeps{readFile: func(string) ([]byte, error) { return nil, os.ErrNotExist }},
			wantSub: "read config:",
		},
		{
			name: "parse",
			deps: appDeps{
				readFile: func(string) ([]byte, error) { return []byte("{"), nil },
				decode:   config.Decode,
			},
			wantSub: "parse config:",
		},
		{
			name: "invalid",
			deps: appDeps{
				readFile: func(string) ([]byte, error) { return []byte(`{"count_query":"DELETE FROM x"}`), nil },
				decode:   config.Decode,
			},
			wantSub: "error: count_query:",
		},
		{
			name: "metrics",
			deps: appDeps{
				readFile: func(string) ([]byte, error) { return []byte(`{}`), nil },
				decode:   config.Decode,
				initMetrics: func(context.Context, setup.Options) (func(), error) {
					return func() {}, errors.New("unreachable gateway")
				},
			},
			wantSub: "init metrics: unreachable gateway",
		},
		{
			name: "run",
			deps: appDeps{
				readFile:    func(string) ([]byte, error) { return []byte(`{}`), nil },
				decode:      config.Decode,
				initMetrics: noMetrics,
				newRunID:    func() string { return "r" },
				run: func(context.Context, config.Instructor, pipeline.Env) (*pipeline.InstructorReport, error) {
					return nil, &pipeline.StageError{Stage: pipeline.StageRead, Err: errors.New("boom")}
				},
			},
			wantSub: "run: read: boom",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			code := runMain(context.Background(), []string{"-config", "staff.json"}, &stdout, &stderr, tc.deps)
			if code != 1 {
				t.Fatalf("exit code=%d, want 1; stderr=%q", code, stderr.String())
			}
			if !strings.Contains(stderr.String(), tc.wantSub) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.wantSub)
			}
		})
	}
}

func TestRunMain_LoadsIntoSQLite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "INSTRUCTOR.csv")
	if err := os.WriteFile(input, []byte("1,Rav,Ahuja,TORONTO,CA\n2,Raul,Chong,Markham,CA\n3,Hima,Vasudevan,Chicago,US\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "staff.yaml")
	cfgYAML := fmt.Sprintf("input_csv: %s\nstore:\n  name: %s\nlog_path: %s\n",
		input, filepath.Join(dir, "STAFF.db"), filepath.Join(dir, "code_log.txt"))
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	var rep *pipeline.InstructorReport
	deps := appDeps{
		readFile:    os.ReadFile,
		decode:      config.Decode,
		initMetrics: noMetrics,
		newRunID:    func() string { return "r" },
		run: func(ctx context.Context, cfg config.Instructor, env pipeline.Env) (*pipeline.InstructorReport, error) {
			var err error
			rep, err = pipeline.LoadAndQuery(ctx, cfg, env)
			return rep, err
		},
	}

	var stdout, stderr bytes.Buffer
	if code := runMain(context.Background(), []string{"-config", cfgPath, "-v"}, &stdout, &stderr, deps); code != 0 {
		t.Fatalf("exit code=%d; stderr=%q", code, stderr.String())
	}
	if rep.CountBefore != 3 || rep.CountAfter != 4 {
		t.Fatalf("counts before=%d after=%d, want 3/4", rep.CountBefore, rep.CountAfter)
	}
	for _, want := range []string{"Table is ready", "Data appended successfully"} {
		if !strings.Contains(stdout.String(), want) {
			t.Fatalf("stdout missing %q:\n%s", want, stdout.String())
		}
	}
	if !strings.Contains(stderr.String(), "rows_before=3 rows_after=4") {
		t.Fatalf("stderr=%q", stderr.String())
	}
}
