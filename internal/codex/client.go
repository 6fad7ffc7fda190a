package codex

import (
	"io"
	"log/slog"
	"os/exec"
	"time"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
	"github.com/ForteScarlet/codex-kkp/internal/command"
	"github.com/ForteScarlet/codex-kkp/internal/event"
)

// Output is what one codex run printed.
type Output struct {
	CommandLine string
	ExitCode    int
	// Stdout holds both streams when the client merges them.
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Client runs codex once per call and decodes what it printed.
type Client struct {
	builder     Builder
	executor    command.Executor
	parser      *event.Parser
	logger      *slog.Logger
	checkBinary bool
	merged      bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProgram sets the codex executable. Empty means DefaultProgram.
func WithProgram(path string) ClientOption {
	return func(c *Client) { c.builder.Program = path }
}

// WithExecutor replaces the platform executor.
func WithExecutor(e command.Executor) ClientOption {
	return func(c *Client) {
		if e != nil {
			c.executor = e
		}
	}
}

// WithParser replaces the default event parser.
func WithParser(p *event.Parser) ClientOption {
	return func(c *Client) {
		if p != nil {
			c.parser = p
		}
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBinaryCheck makes every run fail fast when the program is not on PATH.
func WithBinaryCheck(enabled bool) ClientOption {
	return func(c *Client) { c.checkBinary = enabled }
}

// WithMergedStreams captures stderr into the same pipe as stdout, so
// diagnostics end up in front of the parser as well.
func WithMergedStreams(enabled bool) ClientOption {
	return func(c *Client) { c.merged = enabled }
}

// NewClient creates a Client using the platform executor and default parser.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		executor: command.New(),
		parser:   event.NewParser(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Program returns the executable this client invokes.
func (c *Client) Program() string {
	if c.builder.Program == "" {
		return DefaultProgram
	}
	return c.builder.Program
}

// Parser returns the parser used by Exec.
func (c *Client) Parser() *event.Parser {
	return c.parser
}

// Run validates cfg, builds the command line and executes it. Only
// construction and launch failures are errors; codex exiting non-zero is not.
func (c *Client) Run(task string, cfg ExecConfig) (*Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.checkBinary && !CheckBinary(c.Program()) {
		return nil, apperror.Launch(nil, "codex binary %q not found in PATH", c.Program())
	}

	line := c.builder.Build(task, cfg)
	c.logger.Debug("running codex", "command", line, "merged", c.merged)

	start := time.Now()
	out := &Output{CommandLine: line}
	if c.merged {
		res, err := c.executor.ExecuteSimple(line)
		if err != nil {
			return nil, err
		}
		out.ExitCode, out.Stdout = res.ExitCode, res.Output
	} else {
		res, err := c.executor.Execute(line)
		if err != nil {
			return nil, err
		}
		out.ExitCode, out.Stdout, out.Stderr = res.ExitCode, res.Stdout, res.Stderr
	}
	out.Duration = time.Since(start)

	c.logger.Debug("codex exited",
		"exit_code", out.ExitCode,
		"stdout_bytes", len(out.Stdout),
		"stderr_bytes", len(out.Stderr),
		"duration", out.Duration,
	)
	return out, nil
}

// ExecRaw runs codex and returns its raw JSON-lines output.
func (c *Client) ExecRaw(task string, cfg ExecConfig) (string, error) {
	out, err := c.Run(task, cfg)
	if err != nil {
		return "", err
	}
	return out.Stdout, nil
}

// Exec runs codex and decodes its output into events.
func (c *Client) Exec(task string, cfg ExecConfig) ([]event.Event, error) {
	raw, err := c.ExecRaw(task, cfg)
	if err != nil {
		return nil, err
	}
	events, _ := c.parser.Parse(raw)
	return events, nil
}

// ExecForMessages runs codex and returns only the completed agent messages.
func (c *Client) ExecForMessages(task string, cfg ExecConfig) ([]string, error) {
	events, err := c.Exec(task, cfg)
	if err != nil {
		return nil, err
	}
	return event.AgentMessages(events), nil
}

// CheckBinary returns true if the binary exists in PATH.
func CheckBinary(path string) bool {
	_, err := exec.LookPath(path)
	return err == nil
}
