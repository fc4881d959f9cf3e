// © 2024 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package clitest provides utilities for testing command-line applications.
package clitest

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.astrophena.name/postbot/internal/cli"
)

// Result is what an application run produced.
type Result struct {
	Stdout string
	Stderr string
	Err    error
}

// Exec runs app with args in an environment that has only the variables in
// env. Standard error is logged with t.Logf.
func Exec(t *testing.T, app cli.App, env map[string]string, args ...string) Result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := cli.Run(cli.WithEnv(context.Background(), &cli.Env{
		Args:   args,
		Getenv: func(name string) string { return env[name] },
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	}), app)
	if stderr.Len() > 0 {
		t.Logf("stderr:\n%s", stderr.String())
	}
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

// Case represents a single test case for a command-line application.
type Case[App cli.App] struct {
	// Args are the command-line arguments to pass to the application.
	Args []string
	// Env is the whole environment of the application.
	Env map[string]string
	// WantErr is the expected error, checked with errors.Is. When nil, the
	// application must succeed.
	WantErr error
	// WantStdout is the exact expected standard output, if set.
	WantStdout string
	// WantInStdout is the expected substring of the standard output.
	WantInStdout string
	// WantInStderr is the expected substring of the standard error.
	WantInStderr string
	// CheckStdout is an optional function that receives everything the
	// application printed to stdout.
	CheckStdout func(*testing.T, string)
	// CheckFunc is an optional function to inspect the application after it
	// has run.
	CheckFunc func(*testing.T, App)
}

func (tc Case[App]) check(t *testing.T, app App, res Result) {
	t.Helper()

	switch {
	case tc.WantErr == nil && res.Err != nil:
		t.Fatalf("unexpected error: %v", res.Err)
	case tc.WantErr != nil && res.Err == nil:
		t.Fatalf("must fail with error: %v", tc.WantErr)
	case tc.WantErr != nil && !errors.Is(res.Err, tc.WantErr):
		t.Fatalf("want error %v, got: %v", tc.WantErr, res.Err)
	}

	if tc.WantStdout != "" && res.Stdout != tc.WantStdout {
		t.Errorf("stdout must be %q, got: %q", tc.WantStdout, res.Stdout)
	}
	if tc.WantInStdout != "" && !strings.Contains(res.Stdout, tc.WantInStdout) {
		t.Errorf("stdout must contain %q, got: %q", tc.WantInStdout, res.Stdout)
	}
	if tc.WantInStderr != "" && !strings.Contains(res.Stderr, tc.WantInStderr) {
		t.Errorf("stderr must contain %q, got: %q", tc.WantInStderr, res.Stderr)
	}
	if tc.CheckStdout != nil {
		tc.CheckStdout(t, res.Stdout)
	}
	if tc.CheckFunc != nil {
		tc.CheckFunc(t, app)
	}
}

// Run runs each case in parallel against a fresh application from setup.
func Run[App cli.App](t *testing.T, setup func(*testing.T) App, cases map[string]Case[App]) {
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			app := setup(t)
			tc.check(t, app, Exec(t, app, tc.Env, tc.Args...))
		})
	}
}
