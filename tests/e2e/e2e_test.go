//go:build integration

// E2E tests for the codex-kkp binary.
// Run with: go test -tags integration ./tests/e2e/
//
// The tests build codex-kkp and the mock codex into a temporary directory
// and run the wrapper against the mock. They need a Go toolchain and /bin/sh.
package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

type envelope struct {
	Type    string          `json:"type"`
	Session string          `json:"session"`
	Content json.RawMessage `json:"content"`
}

type binaries struct {
	wrapper string
	mock    string
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return filepath.Join(wd, "..", "..")
}

func build(t *testing.T) binaries {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("e2e tests use /bin/sh")
	}
	dir := t.TempDir()
	bins := binaries{
		wrapper: filepath.Join(dir, "codex-kkp"),
		mock:    filepath.Join(dir, "mock codex"),
	}
	for out, pkg := range map[string]string{
		bins.wrapper: "./cmd/codex-kkp",
		bins.mock:    "./tests/mockcodex",
	} {
		cmd := exec.Command("go", "build", "-o", out, pkg)
		cmd.Dir = repoRoot(t)
		if output, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("go build %s: %v\n%s", pkg, err, output)
		}
	}
	return bins
}

func runWrapper(t *testing.T, bins binaries, env []string, args ...string) (envelope, string, string, int) {
	t.Helper()
	cmd := exec.Command(bins.wrapper, args...)
	cmd.Env = append(os.Environ(), "CODEXKKP_CODEX__BINARY="+bins.mock)
	cmd.Env = append(cmd.Env, env...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			t.Fatalf("running wrapper: %v", err)
		}
		code = exitErr.ExitCode()
	}

	out := stdout.String()
	if out == "" {
		out = stderr.String()
	}
	var env0 envelope
	if err := json.Unmarshal([]byte(out), &env0); err != nil {
		t.Fatalf("output is not a JSON envelope: %v\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
	}
	return env0, stdout.String(), stderr.String(), code
}

func TestE2E_Summarized(t *testing.T) {
	bins := build(t)
	env, stdout, _, code := runWrapper(t, bins, nil, "--cd="+t.TempDir(), "Explain the repo")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if stdout == "" || env.Type != "SUCCESS" || env.Session != "mock-thread-1" {
		t.Fatalf("envelope = %+v", env)
	}

	var content struct {
		AgentMessages string          `json:"agentMessages"`
		FileChanges   json.RawMessage `json:"fileChanges"`
	}
	if err := json.Unmarshal(env.Content, &content); err != nil {
		t.Fatalf("content: %v", err)
	}
	if content.AgentMessages != "Processed prompt: Explain the repo" {
		t.Errorf("agentMessages = %q", content.AgentMessages)
	}
	if content.FileChanges != nil {
		t.Errorf("fileChanges should be absent, got %s", content.FileChanges)
	}
}

func TestE2E_FullAutoReportsFileChanges(t *testing.T) {
	bins := build(t)
	env, _, _, _ := runWrapper(t, bins, nil, "--cd="+t.TempDir(), "--full-auto", "--session=resume-me", "edit")
	if env.Session != "resume-me" {
		t.Errorf("session = %q", env.Session)
	}
	if !strings.Contains(string(env.Content), `"fileChanges":[{"type":"file_change","id":"item_2"`) {
		t.Errorf("content = %s", env.Content)
	}
}

func TestE2E_FullMode(t *testing.T) {
	bins := build(t)
	env, _, _, code := runWrapper(t, bins, nil, "--cd="+t.TempDir(), "--full", "task")
	if code != 0 || env.Type != "SUCCESS" {
		t.Fatalf("code = %d, envelope = %+v", code, env)
	}
	var content struct {
		RawArgs    []string          `json:"rawArgs"`
		FullEvents []json.RawMessage `json:"fullEvents"`
	}
	if err := json.Unmarshal(env.Content, &content); err != nil {
		t.Fatalf("content: %v", err)
	}
	if len(content.RawArgs) != 3 || content.RawArgs[2] != "task" {
		t.Errorf("rawArgs = %v", content.RawArgs)
	}
	// thread.started, turn.started, reasoning, agent message, future event, turn.completed
	if len(content.FullEvents) != 6 {
		t.Errorf("got %d events, want 6", len(content.FullEvents))
	}
	if !strings.HasPrefix(string(content.FullEvents[4]), `{"type":"codex.future_event","_raw":`) {
		t.Errorf("unknown event = %s", content.FullEvents[4])
	}
}

func TestE2E_TurnFailed(t *testing.T) {
	bins := build(t)
	env, stdout, stderr, code := runWrapper(t, bins, nil, "--cd="+t.TempDir(), "TURN_FAILED")
	if code != 0 {
		t.Errorf("agent failure must not change the exit code, got %d", code)
	}
	if stdout != "" || stderr == "" {
		t.Errorf("failure must go to stderr only; stdout=%q", stdout)
	}
	if env.Type != "ERROR" {
		t.Fatalf("envelope = %+v", env)
	}
	want := `{"errorEvents":[{"type":"turn.failed","error":{"message":"simulated turn failure"}}]}`
	if string(env.Content) != want {
		t.Errorf("content = %s\nwant      %s", env.Content, want)
	}
}

func TestE2E_ArgumentsSurviveTheShell(t *testing.T) {
	bins := build(t)
	dir := filepath.Join(t.TempDir(), "dir with spaces")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	env, _, _, _ := runWrapper(t, bins, nil,
		"--cd="+dir,
		"--sandbox=WORKSPACE_WRITE",
		`--image=shot "1".png`,
		"--image=a,b.png",
		"ECHO_ARGS",
	)

	var content struct {
		AgentMessages string `json:"agentMessages"`
	}
	if err := json.Unmarshal(env.Content, &content); err != nil {
		t.Fatalf("content: %v", err)
	}
	var echoed struct {
		Cd      string   `json:"cd"`
		Sandbox string   `json:"sandbox"`
		Images  []string `json:"images"`
	}
	if err := json.Unmarshal([]byte(content.AgentMessages), &echoed); err != nil {
		t.Fatalf("echoed args: %v (%s)", err, content.AgentMessages)
	}
	if echoed.Cd != dir || echoed.Sandbox != "workspace-write" {
		t.Errorf("echoed = %+v", echoed)
	}
	if len(echoed.Images) != 2 || echoed.Images[0] != `shot "1".png` || echoed.Images[1] != "a,b.png" {
		t.Errorf("images = %q", echoed.Images)
	}
}

func TestE2E_AgentExitsWithoutOutput(t *testing.T) {
	bins := build(t)
	env, stdout, _, code := runWrapper(t, bins, nil, "--cd="+t.TempDir(), "FAIL")
	if code != 0 {
		t.Errorf("exit code = %d", code)
	}
	if stdout == "" || env.Type != "SUCCESS" || string(env.Content) != `{"agentMessages":""}` {
		t.Errorf("envelope = %+v", env)
	}
}

func TestE2E_InvocationErrors(t *testing.T) {
	bins := build(t)
	tests := []struct {
		name     string
		env      []string
		args     []string
		wantCode int
	}{
		{"missing task", nil, []string{"--cd=/tmp"}, 2},
		{"unknown option", nil, []string{"--cd=/tmp", "--bogus", "t"}, 2},
		{"bad config", []string{"CODEXKKP_LOGGING__FORMAT=xml"}, []string{"--cd=/tmp", "t"}, 2},
		{"missing binary", []string{"CODEXKKP_CODEX__BINARY=/nonexistent/codex"}, []string{"--cd=/tmp", "t"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, stdout, _, code := runWrapper(t, bins, tt.env, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if stdout != "" || env.Type != "ERROR" {
				t.Errorf("stdout = %q, envelope = %+v", stdout, env)
			}
		})
	}
}

func TestE2E_MetricsTextfile(t *testing.T) {
	bins := build(t)
	path := filepath.Join(t.TempDir(), "codexkkp.prom")
	runWrapper(t, bins, []string{"CODEXKKP_METRICS__TEXTFILE=" + path}, "--cd="+t.TempDir(), "task")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading textfile: %v", err)
	}
	for _, want := range []string{
		`codexkkp_runs_total{outcome="success"} 1`,
		`codexkkp_unknown_events_total 1`,
		`codexkkp_tokens_total{kind="input"} 150`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
