package command

import (
	"runtime"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
)

// unsupportedExecutor backs New on platforms with neither a POSIX shell nor
// cmd.exe. Every call fails as a launch error.
type unsupportedExecutor struct{}

func (unsupportedExecutor) Execute(string) (*Result, error) {
	return nil, errUnsupported()
}

func (unsupportedExecutor) ExecuteSimple(string) (*SimpleResult, error) {
	return nil, errUnsupported()
}

func errUnsupported() error {
	return apperror.Launch(nil, "running commands is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}
