package practice

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubmitted     = errors.New("session already submitted")
	ErrNotSubmitted  = errors.New("session not submitted yet")
	ErrIncomplete    = errors.New("not every slot is answered")
	ErrUnknownSlot   = errors.New("unknown answer slot")
	ErrNotWordBank   = errors.New("question set has no word bank")
	ErrWordNotInBank = errors.New("word is not in the word bank")
	ErrInvalidAnswer = errors.New("answer kind does not fit the question type")
)

// IncompleteError is returned by Submit while slots are still empty.
type IncompleteError struct {
	Missing []string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%v: %d missing (%s)", ErrIncomplete, len(e.Missing), strings.Join(e.Missing, ", "))
}

func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}

type State string

const (
	Collecting State = "collecting"
	Submitted  State = "submitted"
)

// Session is one learner's attempt at one question set. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	set      *QuestionSet
	strategy Strategy
	state    State
	slots    []string
	known    map[string]bool
	answers  AnswerState
	graded   *GradingResult
	result   *SessionResult
}

type Option func(*Session)

// WithStrategy overrides the strategy chosen from the set type.
func WithStrategy(st Strategy) Option {
	return func(s *Session) { s.strategy = st }
}

// NewSession starts a session in the Collecting state with every slot unset.
func NewSession(set *QuestionSet, opts ...Option) (*Session, error) {
	if set == nil {
		return nil, errors.New("nil question set")
	}
	s := &Session{
		set:     set,
		state:   Collecting,
		slots:   set.Slots(),
		answers: AnswerState{},
	}
	s.strategy, _ = StrategyFor(set.Type)
	for _, o := range opts {
		o(s)
	}
	if s.strategy == nil {
		return nil, fmt.Errorf("no grading strategy for type %q", set.Type)
	}
	s.known = make(map[string]bool, len(s.slots))
	for _, id := range s.slots {
		s.known[id] = true
	}
	return s, nil
}

func (s *Session) Set() *QuestionSet { return s.set }

func (s *Session) State() State { return s.state }

func (s *Session) Slots() []string { return append([]string(nil), s.slots...) }

// Answers returns a copy of the current answer state.
func (s *Session) Answers() AnswerState { return s.answers.clone() }

// Missing lists the slots that are still empty, in presentation order.
func (s *Session) Missing() []string {
	var missing []string
	for _, id := range s.slots {
		if s.answers[id].IsEmpty() {
			missing = append(missing, id)
		}
	}
	return missing
}

// SetAnswer records a value for a slot. An empty value clears the slot.
// After submission it changes nothing and returns ErrSubmitted.
func (s *Session) SetAnswer(slot string, v Value) error {
	if s.state == Submitted {
		return ErrSubmitted
	}
	if !s.known[slot] {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	if v.Index != nil && !s.set.Type.AcceptsIndex() {
		return fmt.Errorf("%w: %s takes text, not an option index", ErrInvalidAnswer, s.set.Type)
	}
	if s.set.Type == WordBankCompletion {
		if v.IsEmpty() {
			return s.RemoveWord(slot)
		}
		return s.PlaceWord(v.Text, slot)
	}
	if v.IsEmpty() {
		delete(s.answers, slot)
		return nil
	}
	s.answers[slot] = v
	return nil
}

// Pool returns the bank words not placed in any blank, in bank order.
func (s *Session) Pool() []string {
	placed := make(map[string]bool, len(s.answers))
	for _, v := range s.answers {
		placed[v.Text] = true
	}
	pool := make([]string, 0, len(s.set.WordBank))
	for _, w := range s.set.WordBank {
		if !placed[w] {
			pool = append(pool, w)
		}
	}
	return pool
}

// PlaceWord puts a bank word into a blank. A word already sitting in another
// blank moves; a word displaced from the target blank returns to the pool.
func (s *Session) PlaceWord(word, blankID string) error {
	if s.state == Submitted {
		return ErrSubmitted
	}
	if s.set.Type != WordBankCompletion {
		return ErrNotWordBank
	}
	if !s.known[blankID] {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, blankID)
	}
	canonical, ok := s.bankWord(word)
	if !ok {
		return fmt.Errorf("%w: %q", ErrWordNotInBank, word)
	}
	for id, v := range s.answers {
		if id != blankID && v.Text == canonical {
			delete(s.answers, id)
		}
	}
	s.answers[blankID] = Text(canonical)
	return nil
}

// RemoveWord returns the word in a blank to the pool.
func (s *Session) RemoveWord(blankID string) error {
	if s.state == Submitted {
		return ErrSubmitted
	}
	if s.set.Type != WordBankCompletion {
		return ErrNotWordBank
	}
	if !s.known[blankID] {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, blankID)
	}
	delete(s.answers, blankID)
	return nil
}

func (s *Session) bankWord(word string) (string, bool) {
	for _, w := range s.set.WordBank {
		if strings.EqualFold(w, strings.TrimSpace(word)) {
			return w, true
		}
	}
	return "", false
}

// Submit grades the session once every slot is filled. The first successful
// call freezes the answers and caches the result; later calls return it.
func (s *Session) Submit() (SessionResult, error) {
	if s.state == Submitted {
		return *s.result, nil
	}
	if missing := s.Missing(); len(missing) > 0 {
		return SessionResult{}, &IncompleteError{Missing: missing}
	}

	s.answers = s.answers.clone()
	graded := s.strategy.Grade(s.set, s.answers)
	result := Score(graded)

	s.graded = &graded
	s.result = &result
	s.state = Submitted
	return result, nil
}

// GradingResult returns the per-slot outcome once submitted.
func (s *Session) GradingResult() (GradingResult, error) {
	if s.graded == nil {
		return GradingResult{}, ErrNotSubmitted
	}
	return s.graded.clone(), nil
}

// Result returns the cached session result once submitted.
func (s *Session) Result() (SessionResult, error) {
	if s.result == nil {
		return SessionResult{}, ErrNotSubmitted
	}
	return *s.result, nil
}
