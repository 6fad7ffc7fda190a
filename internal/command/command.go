// Package command runs a single shell command line to completion and
// captures what it printed. Each platform has its own process-creation path
// (exec_unix.go, exec_windows.go, exec_other.go) behind the Executor interface.
//
// There is no timeout and no cancellation: once the child has been created
// the caller waits for it to exit on its own.
package command

import (
	"io"
	"log/slog"
)

// Result holds the exit code and the separately captured output streams.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// SimpleResult holds the exit code and stdout+stderr captured through one pipe.
type SimpleResult struct {
	ExitCode int
	Output   string
}

// Executor runs a command line through the platform shell.
//
// Failures to create pipes or the process are returned as *apperror.AppError
// wrapping apperror.ErrLaunch. A command that runs and exits non-zero is not
// an error.
type Executor interface {
	Execute(commandLine string) (*Result, error)
	ExecuteSimple(commandLine string) (*SimpleResult, error)
}

type options struct {
	shell  string
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*options)

// WithShell overrides the shell used to interpret the command line
// (/bin/sh on POSIX, cmd.exe on Windows). Empty values are ignored.
func WithShell(path string) Option {
	return func(o *options) {
		if path != "" {
			o.shell = path
		}
	}
}

// WithLogger sets the logger for launch and drain diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New returns the Executor for the current platform.
func New(opts ...Option) Executor {
	o := options{
		shell:  defaultShell,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return newPlatformExecutor(o)
}
