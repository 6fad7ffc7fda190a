package result

import (
	"bytes"
	"testing"
)

func TestFailure(t *testing.T) {
	env := Failure(`Error: bad "value"`)
	if !env.IsError() {
		t.Fatalf("type = %q", env.Type)
	}
	if string(env.Content) != `"Error: bad \"value\""` {
		t.Errorf("content = %s", env.Content)
	}
}

func TestPrinter_Routes(t *testing.T) {
	tests := []struct {
		name       string
		env        *Envelope
		wantStdout string
		wantStderr string
	}{
		{
			name:       "success to stdout",
			env:        &Envelope{Type: TypeSuccess, Session: "T1", Content: []byte(`{"agentMessages":"Hello"}`)},
			wantStdout: `{"type":"SUCCESS","session":"T1","content":{"agentMessages":"Hello"}}` + "\n",
		},
		{
			name:       "failure to stderr",
			env:        Failure("Error: No task prompt specified"),
			wantStderr: `{"type":"ERROR","content":"Error: No task prompt specified"}` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			p := Printer{Stdout: &stdout, Stderr: &stderr}
			if err := p.Print(tt.env); err != nil {
				t.Fatalf("Print: %v", err)
			}
			if stdout.String() != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout.String(), tt.wantStdout)
			}
			if stderr.String() != tt.wantStderr {
				t.Errorf("stderr = %q, want %q", stderr.String(), tt.wantStderr)
			}
		})
	}
}
