// Package cliargs turns the wrapper's process arguments into an
// ExecConfig, a task prompt and the output mode.
package cliargs

import (
	"errors"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
	"github.com/ForteScarlet/codex-kkp/internal/codex"
)

// ErrHelp is returned by Parse when --help or -h was given.
var ErrHelp = pflag.ErrHelp

// Args is the result of parsing the command line.
type Args struct {
	// Task is the prompt; empty when none was given.
	Task   string
	Config codex.ExecConfig
	// Full selects the full event list over the summarized projection.
	Full bool
	// ConfigFile is the wrapper's own YAML configuration, if any.
	ConfigFile string
}

type flags struct {
	workingDir        string
	fullAuto          bool
	full              bool
	sandbox           codex.SandboxMode
	outputLastMessage string
	outputSchema      string
	skipGitRepoCheck  bool
	session           string
	images            []string
	configFile        string
}

func newFlagSet(f *flags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("codex-kkp", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	f.sandbox = codex.SandboxReadOnly
	f.skipGitRepoCheck = true

	fs.Var(&quotedValue{dst: &f.workingDir}, "cd", "working directory for codex (required)")
	fs.BoolVar(&f.fullAuto, "full-auto", false, "allow codex to edit files without asking")
	fs.BoolVar(&f.full, "full", false, "print every event instead of the summarized result")
	fs.Var(&sandboxValue{dst: &f.sandbox}, "sandbox", "sandbox mode: read-only, workspace-write or danger-full-access")
	fs.Var(&quotedValue{dst: &f.outputLastMessage}, "output-last-message", "file to write the final agent message to")
	fs.Var(&quotedValue{dst: &f.outputSchema}, "output-schema", "JSON schema file for structured output")
	skip := fs.VarPF(&boolValue{dst: &f.skipGitRepoCheck}, "skip-git-repo-check", "", "skip the git repository check (true|false)")
	skip.NoOptDefVal = "true"
	fs.Var(&quotedValue{dst: &f.session}, "session", "session id to resume")
	fs.Var(&imagesValue{dst: &f.images}, "image", "image file to attach (repeatable)")
	fs.Var(&quotedValue{dst: &f.configFile}, "config", "wrapper configuration file (YAML)")
	fs.BoolP("help", "h", false, "show help")
	return fs
}

// Parse parses args, excluding the program name. Every error other than
// ErrHelp wraps apperror.ErrInvalidConfig.
func Parse(args []string) (*Args, error) {
	var f flags
	fs := newFlagSet(&f)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, apperror.InvalidConfig("%s", describe(err))
	}
	if help, _ := fs.GetBool("help"); help {
		return nil, ErrHelp
	}

	positional := fs.Args()
	if len(positional) > 1 {
		return nil, apperror.InvalidConfig("Unexpected argument: %s", positional[1])
	}
	if !fs.Changed("cd") {
		return nil, apperror.InvalidConfig("Missing required option: --cd=<dir>")
	}

	cfg := codex.ExecConfig{
		WorkingDirectory:  f.workingDir,
		FullAuto:          f.fullAuto,
		Sandbox:           f.sandbox,
		OutputLastMessage: f.outputLastMessage,
		OutputSchema:      f.outputSchema,
		SkipGitRepoCheck:  f.skipGitRepoCheck,
		Session:           f.session,
		Images:            append([]string{}, f.images...),
	}

	parsed := &Args{Config: cfg, Full: f.full, ConfigFile: f.configFile}
	if len(positional) == 1 {
		parsed.Task = positional[0]
	}
	return parsed, nil
}

// Usage returns the option summary printed for --help.
func Usage() string {
	var f flags
	return "Usage: codex-kkp --cd=<dir> [options] <task>\n\nOptions:\n" + newFlagSet(&f).FlagUsages()
}

// describe rewrites pflag's messages into the wrapper's wording.
func describe(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag: "):
		return "Unknown option: " + strings.TrimPrefix(msg, "unknown flag: ")
	case strings.HasPrefix(msg, "unknown shorthand flag: "):
		return "Unknown option: " + strings.TrimPrefix(msg, "unknown shorthand flag: ")
	}
	return msg
}

// ParseQuotedValue strips one surrounding pair of double quotes from value and
// unescapes \" and \\ inside them. Other escape sequences are kept as they are.
// Values not wrapped in double quotes are returned unchanged.
func ParseQuotedValue(value string) string {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return value
	}
	inner := value[1 : len(value)-1]

	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) {
			if next := inner[i+1]; next == '"' || next == '\\' {
				b.WriteByte(next)
				i++
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
