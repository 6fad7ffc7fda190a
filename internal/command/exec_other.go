//go:build !unix && !windows

package command

const defaultShell = ""

func newPlatformExecutor(o options) Executor {
	return unsupportedExecutor{}
}
