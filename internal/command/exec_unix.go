//go:build unix

package command

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
)

const defaultShell = "/bin/sh"

type posixExecutor struct {
	opts options
}

func newPlatformExecutor(o options) Executor {
	return &posixExecutor{opts: o}
}

// Execute runs commandLine as `sh -c commandLine` with stdout and stderr on
// separate pipes.
func (e *posixExecutor) Execute(commandLine string) (*Result, error) {
	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, apperror.Launch(err, "creating stdout pipe")
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeFiles(outR, outW)
		return nil, apperror.Launch(err, "creating stderr pipe")
	}

	proc, err := e.start(commandLine, outW, errW)
	// The child owns its own copies of the write ends; ours must go or the
	// drain below never sees end-of-stream.
	closeFiles(outW, errW)
	if err != nil {
		closeFiles(outR, errR)
		return nil, err
	}

	stdout, stderr, drainErr := drainPair(outR, errR)
	closeFiles(outR, errR)
	if drainErr != nil {
		e.opts.logger.Warn("output drain ended early", "pid", proc.Pid, "error", drainErr)
	}

	code, err := waitProcess(proc)
	if err != nil {
		return nil, err
	}

	e.opts.logger.Debug("command exited", "pid", proc.Pid, "exit_code", code,
		"stdout_bytes", len(stdout), "stderr_bytes", len(stderr))

	return &Result{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
}

// ExecuteSimple runs commandLine with stdout and stderr sharing one pipe.
func (e *posixExecutor) ExecuteSimple(commandLine string) (*SimpleResult, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, apperror.Launch(err, "creating output pipe")
	}

	proc, err := e.start(commandLine, w, w)
	closeFiles(w)
	if err != nil {
		closeFiles(r)
		return nil, err
	}

	output, drainErr := drainOne(r)
	closeFiles(r)
	if drainErr != nil {
		e.opts.logger.Warn("output drain ended early", "pid", proc.Pid, "error", drainErr)
	}

	code, err := waitProcess(proc)
	if err != nil {
		return nil, err
	}
	return &SimpleResult{ExitCode: code, Output: output}, nil
}

// start forks and execs the shell with stdout/stderr redirected onto the given
// write ends. Every other descriptor is close-on-exec, so the child never
// holds a read end. A failed exec in the child is reported here.
func (e *posixExecutor) start(commandLine string, stdout, stderr *os.File) (*os.Process, error) {
	argv := []string{filepath.Base(e.opts.shell), "-c", commandLine}
	proc, err := os.StartProcess(e.opts.shell, argv, &os.ProcAttr{
		Files: []*os.File{os.Stdin, stdout, stderr},
	})
	if err != nil {
		return nil, apperror.Launch(err, "starting %s", e.opts.shell)
	}
	e.opts.logger.Debug("command started", "pid", proc.Pid, "shell", e.opts.shell)
	return proc, nil
}

// waitProcess blocks until the child exits and decodes its raw wait status.
func waitProcess(proc *os.Process) (int, error) {
	defer proc.Release()

	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(proc.Pid, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return -1, apperror.Internal("waiting for pid %d: %v", proc.Pid, err)
		}
		return exitCodeFromStatus(uint32(ws)), nil
	}
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

