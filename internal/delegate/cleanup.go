package delegate

import (
	"errors"
	"fmt"
	"time"
)

// Cleanup removes sessions older than the retention window: index rows
// first, then the session directories. Returns how many were purged.
func (e *Executor) Cleanup(retention time.Duration) (int, error) {
	if e.index == nil {
		return 0, errors.New("no session index configured")
	}
	ids, err := e.index.PurgeOlderThan(retention)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := e.store.Remove(id); err != nil {
			return 0, fmt.Errorf("remove session %s: %w", id, err)
		}
	}
	return len(ids), nil
}
