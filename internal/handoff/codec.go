package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupportedVersion indicates the record was written by a newer major
// protocol version than this build understands.
var ErrUnsupportedVersion = errors.New("unsupported handoff protocol version")

// supportedMajor is the highest major version Parse accepts.
var supportedMajor = majorOf(ProtocolVersion)

// Serialize validates the record and returns its JSON form.
func Serialize(f *File) ([]byte, error) {
	if err := Validate(f); err != nil {
		return nil, fmt.Errorf("serialize handoff: %w", err)
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal handoff: %w", err)
	}
	return data, nil
}

// Parse decodes and validates a handoff record. Malformed JSON, missing
// required fields, or a newer major version all fail; nothing is silently
// coerced.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse handoff: %w", err)
	}

	major, err := majorOfChecked(f.Metadata.Version)
	if err != nil {
		return nil, fmt.Errorf("parse handoff: %w", err)
	}
	if major > supportedMajor {
		return nil, fmt.Errorf("%w: record is v%s, this build supports up to v%d.x",
			ErrUnsupportedVersion, f.Metadata.Version, supportedMajor)
	}

	if err := Validate(&f); err != nil {
		return nil, fmt.Errorf("parse handoff: %w", err)
	}
	return &f, nil
}

// Validate checks the record's structural invariants.
func Validate(f *File) error {
	if f == nil {
		return errors.New("nil handoff record")
	}
	if f.Metadata.Version == "" {
		return errors.New("metadata.version is required")
	}
	if _, err := majorOfChecked(f.Metadata.Version); err != nil {
		return err
	}
	if f.Metadata.CreatedAt.IsZero() {
		return errors.New("metadata.created_at is required")
	}
	if f.Metadata.UpdatedAt.IsZero() {
		return errors.New("metadata.updated_at is required")
	}
	if !f.Metadata.Initiator.Valid() {
		return fmt.Errorf("invalid metadata.initiator %q", f.Metadata.Initiator)
	}
	if f.Session.ID == "" {
		return errors.New("session.id is required")
	}
	if !f.Session.Status.Valid() {
		return fmt.Errorf("invalid session.status %q", f.Session.Status)
	}

	seen := make(map[string]bool, len(f.Tasks))
	for i, task := range f.Tasks {
		if task.ID == "" {
			return fmt.Errorf("tasks[%d]: id is required", i)
		}
		if seen[task.ID] {
			return fmt.Errorf("tasks[%d]: duplicate id %s", i, task.ID)
		}
		seen[task.ID] = true
		if task.Description == "" {
			return fmt.Errorf("task %s: description is required", task.ID)
		}
		if !task.AssignedTo.Valid() {
			return fmt.Errorf("task %s: invalid assigned_to %q", task.ID, task.AssignedTo)
		}
		if !task.Status.Valid() {
			return fmt.Errorf("task %s: invalid status %q", task.ID, task.Status)
		}
		if !task.Priority.Valid() {
			return fmt.Errorf("task %s: invalid priority %q", task.ID, task.Priority)
		}
	}
	return nil
}

// majorOf returns the major component of a version string, or 0.
func majorOf(version string) int {
	major, _ := majorOfChecked(version)
	return major
}

// majorOfChecked parses the major component of a "major.minor" version.
func majorOfChecked(version string) (int, error) {
	head, _, _ := strings.Cut(version, ".")
	major, err := strconv.Atoi(head)
	if err != nil || major < 0 {
		return 0, fmt.Errorf("malformed protocol version %q", version)
	}
	return major, nil
}
