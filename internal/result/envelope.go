// Package result condenses a parsed codex event stream into the single JSON
// envelope the wrapper prints.
package result

import (
	"encoding/json"
	"fmt"
	"io"
)

// Type tags an Envelope as a success or a failure.
type Type string

const (
	TypeSuccess Type = "SUCCESS"
	TypeError   Type = "ERROR"
)

// Envelope is the uniform output document. Session is only set on success.
type Envelope struct {
	Type    Type            `json:"type"`
	Session string          `json:"session,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
}

// IsError reports whether the envelope describes a failure.
func (e *Envelope) IsError() bool {
	return e.Type == TypeError
}

func success(session string, content any) (*Envelope, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encoding success content: %w", err)
	}
	return &Envelope{Type: TypeSuccess, Session: session, Content: data}, nil
}

func failure(content any) (*Envelope, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("encoding error content: %w", err)
	}
	return &Envelope{Type: TypeError, Content: data}, nil
}

// Failure builds an error envelope whose content is message as a JSON string.
func Failure(message string) *Envelope {
	data, _ := json.Marshal(message) // strings always encode
	return &Envelope{Type: TypeError, Content: data}
}

// Printer writes envelopes: successes to Stdout, failures to Stderr.
type Printer struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Print writes env as one compact JSON document followed by a newline.
func (p Printer) Print(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	w := p.Stdout
	if env.IsError() {
		w = p.Stderr
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing envelope: %w", err)
	}
	return nil
}
