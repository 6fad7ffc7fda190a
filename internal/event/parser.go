package event

import (
	"bytes"
	"io"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/jsonc"
)

// Stats counts what happened to the lines of one Parse call. Lines excludes
// blank lines; Unknown is the subset of Decoded that fell back to UnknownEvent.
type Stats struct {
	Lines   int
	Decoded int
	Dropped int
	Unknown int
}

// Parser decodes codex JSON lines. The zero value is not usable; call NewParser.
type Parser struct {
	repair bool
	logger *slog.Logger
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithRepair toggles the jsonrepair pass over complete object lines that
// still fail to decode after comment and trailing-comma stripping. The pass accepts
// unquoted keys and unquoted or single-quoted strings.
func WithRepair(enabled bool) ParserOption {
	return func(p *Parser) { p.repair = enabled }
}

// WithLogger sets the logger that reports dropped lines at debug level.
func WithLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a Parser. Repair is on by default.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		repair: true,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var defaultParser = NewParser()

// ParseLine decodes one line with the default parser. It reports false when
// the line is blank, is not a JSON object, or fails to decode as the variant
// its discriminator names.
func ParseLine(line string) (Event, bool) {
	return defaultParser.ParseLine(line)
}

// ParseStream decodes every line of output with the default parser, skipping
// blank and undecodable lines. It never fails.
func ParseStream(output string) []Event {
	events, _ := defaultParser.Parse(output)
	return events
}

// ParseLine decodes a single line.
func (p *Parser) ParseLine(line string) (Event, bool) {
	raw := strings.TrimSpace(line)
	if raw == "" {
		return nil, false
	}

	data := bytes.TrimSpace(jsonc.ToJSON([]byte(raw)))
	ev, err := decodeObject(data, raw)
	if err != nil && p.repair && completeObject(data) {
		repaired, repairErr := jsonrepair.JSONRepair(string(data))
		if repairErr == nil {
			p.logger.Debug("repaired event line", "line", raw)
			ev, err = decodeObject([]byte(repaired), raw)
		}
	}
	if err != nil {
		p.logger.Debug("dropping event line", "error", err, "line", raw)
		return nil, false
	}
	return ev, true
}

// Parse decodes every non-blank line of output in order.
func (p *Parser) Parse(output string) ([]Event, Stats) {
	var (
		events []Event
		stats  Stats
	)
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.Lines++
		ev, ok := p.ParseLine(line)
		if !ok {
			stats.Dropped++
			continue
		}
		stats.Decoded++
		if _, unknown := ev.(UnknownEvent); unknown {
			stats.Unknown++
		}
		events = append(events, ev)
	}
	return events, stats
}

// completeObject reports whether data is brace-delimited. Truncated lines
// are left alone so repair never invents the missing tail.
func completeObject(data []byte) bool {
	return len(data) > 1 && data[0] == '{' && data[len(data)-1] == '}'
}

type notObjectError struct{}

func (notObjectError) Error() string { return "line is not a JSON object" }

func decodeObject(data []byte, raw string) (Event, error) {
	if len(data) == 0 || data[0] != '{' {
		return nil, notObjectError{}
	}
	return decodeEvent(data, raw)
}
