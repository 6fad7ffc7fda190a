// Mock codex CLI for end-to-end testing.
// Accepts `exec --json ...` and prints scripted JSON-lines events.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "exec" {
		fmt.Fprintln(os.Stderr, "mock codex: expected exec subcommand")
		os.Exit(2)
	}

	fs := pflag.NewFlagSet("exec", pflag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "json lines output")
	dir := fs.String("cd", "", "working directory")
	fullAuto := fs.Bool("full-auto", false, "full auto")
	sandbox := fs.String("sandbox", "", "sandbox mode")
	_ = fs.String("output-last-message", "", "output last message")
	_ = fs.String("output-schema", "", "output schema")
	_ = fs.Bool("skip-git-repo-check", false, "skip git repo check")
	images := fs.StringArray("image", nil, "image")
	session := fs.String("session", "", "session")
	if err := fs.Parse(os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "mock codex:", err)
		os.Exit(2)
	}
	if !*jsonOut || *dir == "" || fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "mock codex: usage: codex exec --json --cd <dir> [options] <task>")
		os.Exit(2)
	}
	task := fs.Arg(0)

	threadID := "mock-thread-1"
	if *session != "" {
		threadID = *session
	}

	switch task {
	case "FAIL":
		fmt.Fprintln(os.Stderr, "mock codex: simulated failure")
		os.Exit(1)
	case "EMPTY":
		os.Exit(0)
	}

	events := []map[string]interface{}{
		{"type": "thread.started", "thread_id": threadID},
		{"type": "turn.started"},
		{"type": "item.completed", "item": map[string]interface{}{
			"id": "item_0", "type": "reasoning", "text": "Looking at the request",
		}},
	}

	switch task {
	case "TURN_FAILED":
		events = append(events,
			map[string]interface{}{"type": "item.completed", "item": map[string]interface{}{
				"id": "item_1", "type": "agent_message", "text": "partial answer",
			}},
			map[string]interface{}{"type": "turn.failed", "error": map[string]interface{}{"message": "simulated turn failure"}},
		)
		emit(events)
		os.Exit(1)
	case "ECHO_ARGS":
		argv, _ := json.Marshal(map[string]interface{}{
			"cd": *dir, "sandbox": *sandbox, "images": *images, "full_auto": *fullAuto,
		})
		events = append(events, agentMessage("item_1", string(argv)))
	default:
		events = append(events, agentMessage("item_1", "Processed prompt: "+task))
	}

	if *fullAuto {
		events = append(events, map[string]interface{}{"type": "item.completed", "item": map[string]interface{}{
			"id": "item_2", "type": "file_change", "status": "completed",
			"changes": []map[string]string{{"path": "README.md", "kind": "update"}},
		}})
	}
	events = append(events,
		map[string]interface{}{"type": "codex.future_event", "payload": 1},
		map[string]interface{}{"type": "turn.completed", "usage": map[string]int{
			"input_tokens": 150, "cached_input_tokens": 20, "output_tokens": 50,
		}},
	)
	emit(events)
}

func agentMessage(id, text string) map[string]interface{} {
	return map[string]interface{}{"type": "item.completed", "item": map[string]interface{}{
		"id": id, "type": "agent_message", "text": text,
	}}
}

func emit(events []map[string]interface{}) {
	enc := json.NewEncoder(os.Stdout)
	for _, event := range events {
		time.Sleep(10 * time.Millisecond) // Simulate streaming delay
		_ = enc.Encode(event)
	}
}
