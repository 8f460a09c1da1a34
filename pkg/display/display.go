// Package display holds what the driver sees: the current label, eye
// scores and whether the model is ready. It is the loop's Publisher.
package display

import (
	"sync"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/loop"
)

// DefaultEyeClosedThreshold is the eye-open score below which an eye
// counts as closed.
const DefaultEyeClosedThreshold = 0.3

// Config configures how predictions map to the drowsy flag.
type Config struct {
	// DrowsyLabels are labels that mean the driver is drowsy.
	DrowsyLabels []string

	// EyeClosedThreshold applies when the face region carries eye scores.
	EyeClosedThreshold float64
}

// DefaultConfig matches the bundled four-class model.
func DefaultConfig() Config {
	return Config{
		DrowsyLabels:       []string{"yawn", "Closed"},
		EyeClosedThreshold: DefaultEyeClosedThreshold,
	}
}

// State is the displayed UI state.
type State struct {
	Label       string       `json:"label"`
	Probability float32      `json:"probability"`
	Scores      []loop.Score `json:"scores,omitempty"`

	LeftEyeOpen  float64 `json:"left_eye_open"`
	RightEyeOpen float64 `json:"right_eye_open"`
	HasEyes      bool    `json:"has_eyes"`

	Ready     bool      `json:"ready"`
	Drowsy    bool      `json:"drowsy"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps the latest State and notifies subscribers on every change.
type Store struct {
	cfg    Config
	drowsy map[string]bool

	mu     sync.RWMutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewStore creates an empty, not-ready store.
func NewStore(cfg Config) *Store {
	s := &Store{
		cfg:    cfg,
		drowsy: make(map[string]bool, len(cfg.DrowsyLabels)),
		subs:   make(map[int]func(State)),
	}
	for _, l := range cfg.DrowsyLabels {
		s.drowsy[l] = true
	}
	return s
}

// Publish records a prediction. It implements loop.Publisher.
func (s *Store) Publish(p loop.Prediction) {
	s.update(func(st *State) {
		st.Label = p.Label
		st.Probability = p.Probability
		st.Scores = append([]loop.Score(nil), p.Scores...)

		st.HasEyes = p.HasRegion && p.Region.HasEyes
		if st.HasEyes {
			st.LeftEyeOpen = p.Region.LeftEyeOpen
			st.RightEyeOpen = p.Region.RightEyeOpen
		} else {
			st.LeftEyeOpen, st.RightEyeOpen = 0, 0
		}
		st.Drowsy = s.isDrowsy(st)
	})
}

// SetReady mirrors whether the model is loaded.
func (s *Store) SetReady(ready bool) {
	s.update(func(st *State) { st.Ready = ready })
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Scores = append([]loop.Score(nil), s.state.Scores...)
	return st
}

// Subscribe registers fn for every state change and returns a function
// that removes it. fn runs on the publishing goroutine.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) isDrowsy(st *State) bool {
	if s.drowsy[st.Label] {
		return true
	}
	return st.HasEyes &&
		st.LeftEyeOpen < s.cfg.EyeClosedThreshold &&
		st.RightEyeOpen < s.cfg.EyeClosedThreshold
}

func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	s.state.UpdatedAt = time.Now()
	st := s.state
	st.Scores = append([]loop.Score(nil), s.state.Scores...)
	subs := make([]func(State), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
}

var _ loop.Publisher = (*Store)(nil)
