package codex

import "strings"

const (
	// DefaultProgram is the codex binary invoked when no path is configured.
	DefaultProgram = "codex"

	subcmdExec = "exec"
	flagJSON   = "--json"
)

// Builder turns an ExecConfig into a single shell command line.
type Builder struct {
	// Program is the codex executable. Empty means DefaultProgram.
	Program string
}

// BuildCommand builds the command line for the default codex program.
func BuildCommand(task string, cfg ExecConfig) string {
	return Builder{}.Build(task, cfg)
}

// Build emits, in order: program, exec, --json, --cd, --full-auto,
// --sandbox, --output-last-message, --output-schema, --skip-git-repo-check,
// one --image per image, --session and finally the task. Optional flags are
// only present when set. The working directory is assumed to be validated.
func (b Builder) Build(task string, cfg ExecConfig) string {
	program := b.Program
	if program == "" {
		program = DefaultProgram
	}

	args := []string{EscapeArg(program), subcmdExec, flagJSON}

	args = append(args, "--cd", EscapeArg(cfg.WorkingDirectory))

	if cfg.FullAuto {
		args = append(args, "--full-auto")
	}
	if cfg.Sandbox != "" {
		args = append(args, "--sandbox", string(cfg.Sandbox))
	}
	if cfg.OutputLastMessage != "" {
		args = append(args, "--output-last-message", EscapeArg(cfg.OutputLastMessage))
	}
	if cfg.OutputSchema != "" {
		args = append(args, "--output-schema", EscapeArg(cfg.OutputSchema))
	}
	if cfg.SkipGitRepoCheck {
		args = append(args, "--skip-git-repo-check")
	}
	for _, image := range cfg.Images {
		args = append(args, "--image", EscapeArg(image))
	}
	if cfg.Session != "" {
		args = append(args, "--session", EscapeArg(cfg.Session))
	}

	// Task always goes last.
	args = append(args, EscapeArg(task))

	return strings.Join(args, " ")
}

// shellSpecial holds every character that forces quoting. It is a superset of
// the POSIX sh metacharacters and is applied unchanged for cmd.exe, which may
// quote more than strictly necessary there. Inside sh double quotes $ and `
// still expand.
const shellSpecial = " \"\\'$`!*?[]{}()<>|&;\n\t\r"

// EscapeArg quotes arg for use on a shell command line. Empty arguments become
// "". Arguments holding any shell-special character are wrapped in double
// quotes with backslashes escaped before double quotes; others pass through.
func EscapeArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, shellSpecial) {
		return arg
	}

	// Backslashes first, otherwise the escaped quotes would be escaped again.
	escaped := strings.ReplaceAll(arg, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
