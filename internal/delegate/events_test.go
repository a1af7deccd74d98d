package delegate

import (
	"strings"
	"testing"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "thread started",
			line: `{"type":"thread.started","thread_id":"th_123"}`,
			want: Event{Type: EventThreadStarted, ThreadID: "th_123"},
		},
		{
			name: "turn started",
			line: `{"type":"turn.started"}`,
			want: Event{Type: EventTurnStarted},
		},
		{
			name: "agent message item",
			line: `{"type":"item.completed","item":{"item_type":"agent_message","text":"all done"}}`,
			want: Event{Type: EventItemCompleted, ItemType: "agent_message", Text: "all done"},
		},
		{
			name: "command item falls back to command field",
			line: `{"type":"item.completed","item":{"item_type":"command_execution","command":"go test ./..."}}`,
			want: Event{Type: EventItemCompleted, ItemType: "command_execution", Text: "go test ./..."},
		},
		{
			name: "item type from type field",
			line: `{"type":"item.completed","item":{"type":"reasoning","text":"thinking"}}`,
			want: Event{Type: EventItemCompleted, ItemType: "reasoning", Text: "thinking"},
		},
		{
			name: "turn completed",
			line: `{"type":"turn.completed","usage":{"input_tokens":10}}`,
			want: Event{Type: EventTurnCompleted},
		},
		{
			name: "error with message field",
			line: `{"type":"error","message":"rate limited"}`,
			want: Event{Type: EventError, Error: "rate limited"},
		},
		{
			name: "unknown type becomes raw",
			line: `{"type":"session.heartbeat"}`,
			want: Event{Type: EventRaw, Text: `{"type":"session.heartbeat"}`},
		},
		{
			name: "plain text becomes raw",
			line: `warning: something unstructured`,
			want: Event{Type: EventRaw, Text: `warning: something unstructured`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseEvent([]byte(tt.line))
			if got.Type != tt.want.Type {
				t.Errorf("Type = %s, want %s", got.Type, tt.want.Type)
			}
			if got.ThreadID != tt.want.ThreadID {
				t.Errorf("ThreadID = %q, want %q", got.ThreadID, tt.want.ThreadID)
			}
			if got.ItemType != tt.want.ItemType {
				t.Errorf("ItemType = %q, want %q", got.ItemType, tt.want.ItemType)
			}
			if got.Text != tt.want.Text {
				t.Errorf("Text = %q, want %q", got.Text, tt.want.Text)
			}
			if got.Error != tt.want.Error {
				t.Errorf("Error = %q, want %q", got.Error, tt.want.Error)
			}
			if string(got.Raw) != tt.line {
				t.Errorf("Raw = %q, want the original line", got.Raw)
			}
		})
	}
}

func TestSummary_Observe(t *testing.T) {
	var s Summary
	for _, event := range []Event{
		{Type: EventThreadStarted, ThreadID: "th_1"},
		{Type: EventTurnStarted},
		{Type: EventItemCompleted, ItemType: "reasoning", Text: "planning the change"},
		{Type: EventItemCompleted, ItemType: "command_execution", Text: "go vet ./..."},
		{Type: EventItemCompleted, ItemType: "file_change", Text: "server/handler.go"},
		{Type: EventItemCompleted, ItemType: "agent_message", Text: "handler updated"},
		{Type: EventTurnCompleted},
		{Type: EventError, Error: "transient stderr noise"},
		{Type: EventTurnStarted},
		{Type: EventTurnCompleted},
	} {
		s.Observe(event)
	}

	if s.ThreadID != "th_1" {
		t.Errorf("ThreadID = %q, want th_1", s.ThreadID)
	}
	if s.Turns != 2 {
		t.Errorf("Turns = %d, want 2", s.Turns)
	}
	text := s.Text()
	for _, want := range []string{"planning the change", "ran: go vet", "changed: server/handler.go", "handler updated"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text missing %q:\n%s", want, text)
		}
	}
	if len(s.Errors()) != 1 {
		t.Errorf("Errors = %v, want one entry", s.Errors())
	}
}

func TestCLIRunnerFactory_Args(t *testing.T) {
	f := &CLIRunnerFactory{Binary: "codex", Model: "gpt-5-codex", ExtraArgs: []string{"--sandbox", "workspace-write"}}

	line := f.CommandLine()
	want := "codex exec --json --model gpt-5-codex --sandbox workspace-write"
	if line != want {
		t.Errorf("CommandLine = %q, want %q", line, want)
	}

	bare := &CLIRunnerFactory{Binary: "codex", BaseArgs: []string{"run"}}
	if got := bare.CommandLine(); got != "codex run" {
		t.Errorf("CommandLine = %q, want %q", got, "codex run")
	}
}
