//go:build windows

package command

import (
	"errors"
	"io"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
)

const defaultShell = "cmd.exe"

type windowsExecutor struct {
	opts options
}

func newPlatformExecutor(o options) Executor {
	return &windowsExecutor{opts: o}
}

// Execute runs commandLine as `cmd.exe /C commandLine` with stdout and stderr
// on separate anonymous pipes.
func (e *windowsExecutor) Execute(commandLine string) (*Result, error) {
	outR, outW, err := inheritablePipe()
	if err != nil {
		return nil, apperror.Launch(err, "creating stdout pipe")
	}
	errR, errW, err := inheritablePipe()
	if err != nil {
		closeHandles(outR, outW)
		return nil, apperror.Launch(err, "creating stderr pipe")
	}

	pi, err := e.start(commandLine, outW, errW)
	// The child inherited its own write handles.
	closeHandles(outW, errW)
	if err != nil {
		closeHandles(outR, errR)
		return nil, err
	}
	defer closeHandles(pi.Process, pi.Thread)

	stdout, stderr, drainErr := drainPair(handleReader(outR), handleReader(errR))
	closeHandles(outR, errR)
	if drainErr != nil {
		e.opts.logger.Warn("output drain ended early", "pid", pi.ProcessId, "error", drainErr)
	}

	code, err := waitHandle(pi)
	if err != nil {
		return nil, err
	}

	e.opts.logger.Debug("command exited", "pid", pi.ProcessId, "exit_code", code,
		"stdout_bytes", len(stdout), "stderr_bytes", len(stderr))

	return &Result{ExitCode: code, Stdout: stdout, Stderr: stderr}, nil
}

// ExecuteSimple runs commandLine with stdout and stderr sharing one pipe.
func (e *windowsExecutor) ExecuteSimple(commandLine string) (*SimpleResult, error) {
	r, w, err := inheritablePipe()
	if err != nil {
		return nil, apperror.Launch(err, "creating output pipe")
	}

	pi, err := e.start(commandLine, w, w)
	closeHandles(w)
	if err != nil {
		closeHandles(r)
		return nil, err
	}
	defer closeHandles(pi.Process, pi.Thread)

	output, drainErr := drainOne(handleReader(r))
	closeHandles(r)
	if drainErr != nil {
		e.opts.logger.Warn("output drain ended early", "pid", pi.ProcessId, "error", drainErr)
	}

	code, err := waitHandle(pi)
	if err != nil {
		return nil, err
	}
	return &SimpleResult{ExitCode: code, Output: output}, nil
}

// inheritablePipe creates an anonymous pipe whose write end the child can
// inherit. The parent's read end is marked non-inheritable.
func inheritablePipe() (windows.Handle, windows.Handle, error) {
	sa := &windows.SecurityAttributes{InheritHandle: 1}
	sa.Length = uint32(unsafe.Sizeof(*sa))

	var r, w windows.Handle
	if err := windows.CreatePipe(&r, &w, sa, 0); err != nil {
		return 0, 0, err
	}
	if err := windows.SetHandleInformation(r, windows.HANDLE_FLAG_INHERIT, 0); err != nil {
		closeHandles(r, w)
		return 0, 0, err
	}
	return r, w, nil
}

func (e *windowsExecutor) start(commandLine string, stdout, stderr windows.Handle) (*windows.ProcessInformation, error) {
	cmdLine, err := windows.UTF16PtrFromString(e.opts.shell + " /C " + commandLine)
	if err != nil {
		return nil, apperror.Launch(err, "encoding command line")
	}

	stdin, _ := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	si := &windows.StartupInfo{
		Flags:     windows.STARTF_USESTDHANDLES,
		StdInput:  stdin,
		StdOutput: stdout,
		StdErr:    stderr,
	}
	si.Cb = uint32(unsafe.Sizeof(*si))

	pi := &windows.ProcessInformation{}
	if err := windows.CreateProcess(nil, cmdLine, nil, nil, true, 0, nil, nil, si, pi); err != nil {
		return nil, apperror.Launch(err, "creating process %s", e.opts.shell)
	}
	e.opts.logger.Debug("command started", "pid", pi.ProcessId, "shell", e.opts.shell)
	return pi, nil
}

// waitHandle blocks until the process signals completion and returns its exit code.
func waitHandle(pi *windows.ProcessInformation) (int, error) {
	if _, err := windows.WaitForSingleObject(pi.Process, windows.INFINITE); err != nil {
		return -1, apperror.Internal("waiting for pid %d: %v", pi.ProcessId, err)
	}
	var code uint32
	if err := windows.GetExitCodeProcess(pi.Process, &code); err != nil {
		return -1, apperror.Internal("reading exit code of pid %d: %v", pi.ProcessId, err)
	}
	return int(int32(code)), nil
}

// handleReader reads a pipe handle with ReadFile. A broken pipe or a
// zero-byte read is end-of-stream.
type handleReader windows.Handle

func (h handleReader) Read(p []byte) (int, error) {
	var n uint32
	err := windows.ReadFile(windows.Handle(h), p, &n, nil)
	if errors.Is(err, windows.ERROR_BROKEN_PIPE) {
		return 0, io.EOF
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}

func closeHandles(handles ...windows.Handle) {
	for _, h := range handles {
		if h != 0 {
			_ = windows.CloseHandle(h)
		}
	}
}
