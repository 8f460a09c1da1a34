package loop

import "time"

// Stats counts cycle outcomes since the loop was created.
type Stats struct {
	Session   string    `json:"session,omitempty"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at,omitempty"`

	Cycles    uint64 `json:"cycles"`
	Published uint64 `json:"published"`
	NotReady  uint64 `json:"not_ready"`
	NoFrame   uint64 `json:"no_frame"`
	NoFace    uint64 `json:"no_face"`
	Failed    uint64 `json:"failed"`
	Canceled  uint64 `json:"canceled"`

	LastLabel     string    `json:"last_label,omitempty"`
	LastPublished time.Time `json:"last_published,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

// Count returns the counter for one outcome.
func (s Stats) Count(o Outcome) uint64 {
	switch o {
	case OutcomePublished:
		return s.Published
	case OutcomeNotReady:
		return s.NotReady
	case OutcomeNoFrame:
		return s.NoFrame
	case OutcomeNoFace:
		return s.NoFace
	case OutcomeFailed:
		return s.Failed
	case OutcomeCanceled:
		return s.Canceled
	default:
		return 0
	}
}

// Stats returns a snapshot of the outcome counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.Running = l.cancel != nil
	return s
}

func (l *Loop) record(out Outcome, p Prediction, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Cycles++
	switch out {
	case OutcomePublished:
		l.stats.Published++
		l.stats.LastLabel = p.Label
		l.stats.LastPublished = p.At
	case OutcomeNotReady:
		l.stats.NotReady++
	case OutcomeNoFrame:
		l.stats.NoFrame++
	case OutcomeNoFace:
		l.stats.NoFace++
	case OutcomeFailed:
		l.stats.Failed++
	case OutcomeCanceled:
		l.stats.Canceled++
	}
	if err != nil {
		l.stats.LastError = err.Error()
	}
}
