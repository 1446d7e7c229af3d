package scoring

import "fmt"

// ScoringError reports malformed prediction data for one participant.
type ScoringError struct {
	ParticipantID ParticipantID
	Reason        string
}

func (e *ScoringError) Error() string {
	if e.ParticipantID == "" {
		return "malformed prediction: " + e.Reason
	}
	return fmt.Sprintf("participant %s: malformed prediction: %s", e.ParticipantID, e.Reason)
}

// PersistenceError reports a failed score write for one participant.
type PersistenceError struct {
	ParticipantID ParticipantID
	Err           error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("participant %s: update scores: %v", e.ParticipantID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func malformed(format string, args ...interface{}) *ScoringError {
	return &ScoringError{Reason: fmt.Sprintf(format, args...)}
}
