package codex

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
)

var validate = validator.New()

// SandboxMode controls the permission level granted to the codex process.
type SandboxMode string

const (
	SandboxReadOnly         SandboxMode = "read-only"
	SandboxWorkspaceWrite   SandboxMode = "workspace-write"
	SandboxDangerFullAccess SandboxMode = "danger-full-access"
)

// SandboxModes lists every recognised mode in declaration order.
var SandboxModes = []SandboxMode{SandboxReadOnly, SandboxWorkspaceWrite, SandboxDangerFullAccess}

// ParseSandboxMode accepts either the flag value ("workspace-write") or the
// constant-style name ("WORKSPACE_WRITE"), case-insensitively.
func ParseSandboxMode(s string) (SandboxMode, error) {
	for _, m := range SandboxModes {
		name := strings.ReplaceAll(string(m), "-", "_")
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, name) {
			return m, nil
		}
	}
	valid := make([]string, len(SandboxModes))
	for i, m := range SandboxModes {
		valid[i] = string(m)
	}
	return "", apperror.InvalidConfig("unknown sandbox mode: %s. Valid modes: %s", s, strings.Join(valid, ", "))
}

// ExecConfig describes one `codex exec` invocation. Empty optional strings
// mean "not set"; an empty Sandbox suppresses the --sandbox flag.
type ExecConfig struct {
	WorkingDirectory  string      `validate:"required"`
	FullAuto          bool
	Sandbox           SandboxMode `validate:"omitempty,oneof=read-only workspace-write danger-full-access"`
	OutputLastMessage string
	OutputSchema      string
	SkipGitRepoCheck  bool
	Session           string
	Images            []string
}

// Validate checks the configuration before a command is built.
func (c ExecConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			fields := make(map[string]string)
			for _, e := range validationErrs {
				fields[e.Field()] = formatValidationError(e)
			}
			appErr := apperror.InvalidConfig("invalid exec config: %s", describeFields(fields))
			appErr.Fields = fields
			return appErr
		}
		return apperror.InvalidConfig("invalid exec config: %v", err)
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "invalid value"
	}
}

func describeFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, name := range []string{"WorkingDirectory", "Sandbox"} {
		if msg, ok := fields[name]; ok {
			parts = append(parts, name+" "+msg)
		}
	}
	if len(parts) == 0 {
		return "validation failed"
	}
	return strings.Join(parts, "; ")
}

// Option configures an ExecConfig built by NewExecConfig.
type Option func(*ExecConfig)

// NewExecConfig builds a configuration for workingDir. The sandbox defaults to
// read-only and the git repository check is skipped unless an option says otherwise.
//
//	cfg, err := codex.NewExecConfig("/path/to/project",
//		codex.WithFullAuto(),
//		codex.WithDangerFullAccess(),
//		codex.WithImage("./screenshot.png"),
//	)
func NewExecConfig(workingDir string, opts ...Option) (ExecConfig, error) {
	if workingDir == "" {
		return ExecConfig{}, apperror.InvalidConfig("working directory is required")
	}
	cfg := ExecConfig{
		WorkingDirectory: workingDir,
		Sandbox:          SandboxReadOnly,
		SkipGitRepoCheck: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Images = append([]string(nil), cfg.Images...)
	return cfg, nil
}

// WithFullAuto lets codex edit files without asking.
func WithFullAuto() Option {
	return func(c *ExecConfig) { c.FullAuto = true }
}

// WithSandbox sets the sandbox mode.
func WithSandbox(mode SandboxMode) Option {
	return func(c *ExecConfig) { c.Sandbox = mode }
}

// WithDangerFullAccess allows edits and network access.
func WithDangerFullAccess() Option {
	return WithSandbox(SandboxDangerFullAccess)
}

// WithOutputLastMessage writes the final agent message to path.
func WithOutputLastMessage(path string) Option {
	return func(c *ExecConfig) { c.OutputLastMessage = path }
}

// WithOutputSchema sets the JSON schema file for structured output.
func WithOutputSchema(path string) Option {
	return func(c *ExecConfig) { c.OutputSchema = path }
}

// WithSkipGitRepoCheck sets whether codex skips the git repository check.
func WithSkipGitRepoCheck(skip bool) Option {
	return func(c *ExecConfig) { c.SkipGitRepoCheck = skip }
}

// WithGitRepoCheck makes codex perform the git repository check.
func WithGitRepoCheck() Option {
	return WithSkipGitRepoCheck(false)
}

// WithSession resumes the given session.
func WithSession(id string) Option {
	return func(c *ExecConfig) { c.Session = id }
}

// WithImage attaches an image file. May be repeated; order is kept.
func WithImage(path string) Option {
	return func(c *ExecConfig) { c.Images = append(c.Images, path) }
}
