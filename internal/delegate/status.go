package delegate

import (
	"errors"

	"github.com/reze83/Flynn-Project-sub000/internal/handoff"
	"github.com/reze83/Flynn-Project-sub000/internal/session"
)

// StatusReport reconciles a session's live status with its handoff record.
// The live status wins when both exist; neither existing is the only
// not-found case.
type StatusReport struct {
	SessionID string
	// Live is the most recent invocation status, when present.
	Live *session.LiveStatus
	// Handoff is the durable session record, when present.
	Handoff *handoff.File
	// Effective is the reconciled status string.
	Effective string
}

// Status reads both session artifacts without mutating anything.
func (e *Executor) Status(sessionID string) (*StatusReport, error) {
	report := &StatusReport{SessionID: sessionID}

	live, liveErr := e.store.ReadLiveStatus(sessionID)
	if liveErr == nil {
		report.Live = live
	} else if !errors.Is(liveErr, session.ErrSessionNotFound) {
		return nil, liveErr
	}

	f, handoffErr := e.store.LoadHandoff(sessionID)
	if handoffErr == nil {
		report.Handoff = f
	} else if !errors.Is(handoffErr, session.ErrSessionNotFound) {
		return nil, handoffErr
	}

	if report.Live == nil && report.Handoff == nil {
		return nil, liveErr
	}

	if report.Live != nil {
		report.Effective = string(report.Live.State)
	} else {
		report.Effective = string(report.Handoff.Session.Status)
	}
	return report, nil
}
