// Package delegate spawns, monitors, times out, and resumes the external
// AI-coding subprocess, one invocation per chunk, and aggregates outputs
// back into the handoff record.
package delegate

import "encoding/json"

// EventType tags the variants of the subprocess's line-delimited event
// stream. Lines that don't parse become EventRaw so the log stays lossless.
type EventType string

const (
	EventThreadStarted EventType = "thread.started"
	EventTurnStarted   EventType = "turn.started"
	EventItemCompleted EventType = "item.completed"
	EventTurnCompleted EventType = "turn.completed"
	EventError         EventType = "error"
	EventRaw           EventType = "raw"
)

// Event is one parsed line of the subprocess event stream.
type Event struct {
	// Type is the event variant.
	Type EventType `json:"type"`
	// ThreadID is set on thread.started events.
	ThreadID string `json:"thread_id,omitempty"`
	// ItemType is the completed item's kind (agent_message, command_execution,
	// file_change, reasoning) on item.completed events.
	ItemType string `json:"item_type,omitempty"`
	// Text is the item's content when present.
	Text string `json:"text,omitempty"`
	// Error is set on error events.
	Error string `json:"error,omitempty"`
	// Raw is the original line, kept for the log.
	Raw json.RawMessage `json:"-"`
}

// streamItem is the nested item payload of item.completed events.
type streamItem struct {
	ItemType string `json:"item_type"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	Command  string `json:"command"`
	Path     string `json:"path"`
}

// streamLine is the wire shape of one event line.
type streamLine struct {
	Type     string      `json:"type"`
	ThreadID string      `json:"thread_id"`
	Item     *streamItem `json:"item"`
	Message  string      `json:"message"`
	Error    string      `json:"error"`
}

// ParseEvent parses one output line. It never fails: unstructured lines
// come back as EventRaw.
func ParseEvent(line []byte) Event {
	raw := make(json.RawMessage, len(line))
	copy(raw, line)

	var wire streamLine
	if err := json.Unmarshal(line, &wire); err != nil || wire.Type == "" {
		return Event{Type: EventRaw, Text: string(line), Raw: raw}
	}

	event := Event{Raw: raw}
	switch EventType(wire.Type) {
	case EventThreadStarted:
		event.Type = EventThreadStarted
		event.ThreadID = wire.ThreadID
	case EventTurnStarted:
		event.Type = EventTurnStarted
	case EventItemCompleted:
		event.Type = EventItemCompleted
		if wire.Item != nil {
			event.ItemType = wire.Item.ItemType
			if event.ItemType == "" {
				event.ItemType = wire.Item.Type
			}
			event.Text = wire.Item.Text
			if event.Text == "" {
				event.Text = wire.Item.Command
			}
			if event.Text == "" {
				event.Text = wire.Item.Path
			}
		}
	case EventTurnCompleted:
		event.Type = EventTurnCompleted
	case EventError:
		event.Type = EventError
		event.Error = wire.Error
		if event.Error == "" {
			event.Error = wire.Message
		}
	default:
		event.Type = EventRaw
		event.Text = string(line)
	}
	return event
}
