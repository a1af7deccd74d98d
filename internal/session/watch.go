package session

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchPollInterval is the fallback cadence when filesystem events are
// unavailable or missed.
const watchPollInterval = 2 * time.Second

// WatchLiveStatus follows a session's live status file and sends each
// observed state on the returned channel, starting with the current state
// if one exists. The channel closes when a terminal state is observed or
// the context ends. Updates arrive via fsnotify with a polling fallback.
func (s *Store) WatchLiveStatus(ctx context.Context, id string) (<-chan LiveStatus, error) {
	out := make(chan LiveStatus, 8)

	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if werr := watcher.Add(s.SessionDir(id)); werr != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	go s.watchLoop(ctx, id, watcher, out)
	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, id string, watcher *fsnotify.Watcher, out chan<- LiveStatus) {
	defer close(out)
	if watcher != nil {
		defer watcher.Close()
	}

	statusName := filepath.Base(s.StatusPath(id))
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	var lastSeen time.Time
	emit := func() bool {
		st, err := s.ReadLiveStatus(id)
		if err != nil {
			return false
		}
		if !st.UpdatedAt.After(lastSeen) {
			return false
		}
		lastSeen = st.UpdatedAt
		select {
		case out <- *st:
		case <-ctx.Done():
			return true
		}
		return st.State.Terminal()
	}

	if emit() {
		return
	}

	for {
		if watcher == nil {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if emit() {
					return
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				watcher = nil
				continue
			}
			if filepath.Base(event.Name) != statusName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if emit() {
				return
			}
		case <-watcher.Errors:
			// Keep watching; the poll ticker covers missed events.
		case <-ticker.C:
			if emit() {
				return
			}
		}
	}
}
