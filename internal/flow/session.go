// Package flow tracks where a single submission is in its lifecycle:
//
//	RATED → ASPECTS_SELECTED → GENERATING → GENERATED
//	                         → FEEDBACK_PENDING → FEEDBACK_CAPTURED
//
// GENERATED and FEEDBACK_CAPTURED are terminal. Only Restart returns a
// session to RATED, discarding whatever it produced.
package flow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/smartreview/pkg/models"
)

// State is a lifecycle state of a submission.
type State string

const (
	StateRated            State = "RATED"
	StateAspectsSelected  State = "ASPECTS_SELECTED"
	StateGenerating       State = "GENERATING"
	StateGenerated        State = "GENERATED"
	StateFeedbackPending  State = "FEEDBACK_PENDING"
	StateFeedbackCaptured State = "FEEDBACK_CAPTURED"
)

// ErrInvalidTransition is returned for a transition the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid state transition")

var transitions = map[State][]State{
	StateRated:           {StateAspectsSelected},
	StateAspectsSelected: {StateGenerating, StateFeedbackPending},
	StateGenerating:      {StateGenerated},
	StateFeedbackPending: {StateFeedbackCaptured},
}

// Terminal reports whether no further transition is possible except Restart.
func (s State) Terminal() bool {
	return s == StateGenerated || s == StateFeedbackCaptured
}

// Session is the lifecycle of one submission. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	id       string
	state    State
	history  []State
	review   *models.GeneratedReview
	feedback *models.FeedbackRecord
}

// NewSession starts a session in RATED.
func NewSession(id string) *Session {
	return &Session{id: id, state: StateRated, history: []State{StateRated}}
}

func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state entered since creation, including restarts.
func (s *Session) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

// Review returns the generated review once GENERATED.
func (s *Session) Review() *models.GeneratedReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.review
}

// Feedback returns the captured record once FEEDBACK_CAPTURED.
func (s *Session) Feedback() *models.FeedbackRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedback
}

func (s *Session) SelectAspects() error { return s.advance(StateAspectsSelected) }

func (s *Session) BeginGeneration() error { return s.advance(StateGenerating) }

func (s *Session) BeginFeedback() error { return s.advance(StateFeedbackPending) }

// CompleteGeneration moves GENERATING to GENERATED and records the review.
func (s *Session) CompleteGeneration(r *models.GeneratedReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.advanceLocked(StateGenerated); err != nil {
		return err
	}
	s.review = r
	return nil
}

// CompleteFeedback moves FEEDBACK_PENDING to FEEDBACK_CAPTURED and records
// the feedback.
func (s *Session) CompleteFeedback(rec *models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.advanceLocked(StateFeedbackCaptured); err != nil {
		return err
	}
	s.feedback = rec
	return nil
}

// Restart returns the session to RATED and drops anything it produced.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateRated
	s.review = nil
	s.feedback = nil
	s.history = append(s.history, StateRated)
}

func (s *Session) advance(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked(to)
}

func (s *Session) advanceLocked(to State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			s.history = append(s.history, to)
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
