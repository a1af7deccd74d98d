package delegate

import "strings"

// Summary accumulates the salient parts of one invocation's event stream:
// the thread id, the turn count, and the agent's message content.
type Summary struct {
	ThreadID string
	Turns    int
	Events   int
	LastType EventType
	parts    []string
	errors   []string
}

// Observe folds one event into the summary.
func (s *Summary) Observe(event Event) {
	s.Events++
	s.LastType = event.Type

	switch event.Type {
	case EventThreadStarted:
		if event.ThreadID != "" {
			s.ThreadID = event.ThreadID
		}
	case EventTurnCompleted:
		s.Turns++
	case EventItemCompleted:
		if event.Text == "" {
			return
		}
		switch event.ItemType {
		case "agent_message", "reasoning":
			s.parts = append(s.parts, event.Text)
		case "command_execution":
			s.parts = append(s.parts, "ran: "+event.Text)
		case "file_change":
			s.parts = append(s.parts, "changed: "+event.Text)
		}
	case EventError:
		if event.Error != "" {
			s.errors = append(s.errors, event.Error)
		}
	}
}

// Text returns the concatenated content lines.
func (s *Summary) Text() string {
	return strings.Join(s.parts, "\n")
}

// Errors returns error lines observed in the stream.
func (s *Summary) Errors() []string {
	return s.errors
}
