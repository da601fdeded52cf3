package sessions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ielts-prep/backend/internal/coach"
	"github.com/ielts-prep/backend/internal/content"
	"github.com/ielts-prep/backend/internal/events"
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrCoachUnavailable = errors.New("explanations are not available")
)

// Recorder credits a graded session to the learner. Implementations must
// tolerate the same session being recorded twice.
type Recorder interface {
	RecordSession(ctx context.Context, res models.PracticeResult) (*models.RecordOutcome, error)
}

type Explainer interface {
	Explain(ctx context.Context, m coach.MistakeContext) (*models.ExplainResponse, error)
}

type Service struct {
	corpus    *content.Corpus
	registry  *Registry
	cache     ResultCache
	recorder  Recorder
	publisher events.Publisher
	coach     Explainer
	now       func() time.Time
}

func NewService(corpus *content.Corpus, registry *Registry, cache ResultCache) *Service {
	return &Service{
		corpus:   corpus,
		registry: registry,
		cache:    cache,
		now:      time.Now,
	}
}

// SetRecorder injects the XP ledger that is credited on first submission.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

func (s *Service) SetPublisher(p events.Publisher) {
	s.publisher = p
}

func (s *Service) SetCoach(c Explainer) {
	s.coach = c
}

// ── Content ───────────────────────────────────────────────

func (s *Service) Passages(skill string) []models.PassageSummary {
	return s.corpus.Passages(strings.TrimSpace(skill))
}

// ── Lifecycle ─────────────────────────────────────────────

// Start opens a new session on a question set picked from the corpus.
func (s *Service) Start(ctx context.Context, userID int64, req models.StartSessionRequest) (*models.SessionView, error) {
	skill := strings.ToLower(strings.TrimSpace(req.Skill))
	setType := strings.TrimSpace(req.Type)
	if skill == "" || setType == "" {
		return nil, fmt.Errorf("%w: skill and type are required", ErrInvalidRequest)
	}
	if !practice.ValidSetTypes[practice.SetType(setType)] {
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidRequest, setType)
	}

	sel, err := s.corpus.Lookup(skill, setType, strings.TrimSpace(req.PassageID))
	if err != nil {
		return nil, err
	}
	set, err := practice.Normalize(sel.Set)
	if err != nil {
		log.Printf("[sessions] rejected set %s in passage %s: %v", sel.Set.ID, sel.PassageID, err)
		return nil, err
	}
	ps, err := practice.NewSession(set)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	e := s.registry.add(userID, sel, ps)
	log.Printf("[sessions] user %d started %s on %s/%s (%d slots)", userID, e.id, sel.PassageID, set.ID, len(ps.Slots()))

	e.mu.Lock()
	defer e.mu.Unlock()
	return viewOf(e), nil
}

func (s *Service) Get(ctx context.Context, userID int64, id string) (*models.SessionView, error) {
	return s.mutate(userID, id, nil)
}

// Answer sets or clears one slot. Neither index nor value clears it.
func (s *Service) Answer(ctx context.Context, userID int64, id string, req models.SetAnswerRequest) (*models.SessionView, error) {
	slot := strings.TrimSpace(req.Slot)
	if slot == "" {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidRequest)
	}
	var v practice.Value
	switch {
	case req.Index != nil:
		v = practice.Choice(*req.Index)
	case req.Value != nil:
		v = practice.Text(*req.Value)
	}
	return s.mutate(userID, id, func(ps *practice.Session) error {
		return ps.SetAnswer(slot, v)
	})
}

func (s *Service) PlaceWord(ctx context.Context, userID int64, id string, req models.PlaceWordRequest) (*models.SessionView, error) {
	if strings.TrimSpace(req.Word) == "" || strings.TrimSpace(req.BlankID) == "" {
		return nil, fmt.Errorf("%w: word and blank_id are required", ErrInvalidRequest)
	}
	return s.mutate(userID, id, func(ps *practice.Session) error {
		return ps.PlaceWord(req.Word, strings.TrimSpace(req.BlankID))
	})
}

func (s *Service) RemoveWord(ctx context.Context, userID int64, id, blankID string) (*models.SessionView, error) {
	return s.mutate(userID, id, func(ps *practice.Session) error {
		return ps.RemoveWord(blankID)
	})
}

func (s *Service) mutate(userID int64, id string, fn func(*practice.Session) error) (*models.SessionView, error) {
	e, err := s.registry.get(id, userID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		if err := fn(e.session); err != nil {
			return nil, err
		}
	}
	return viewOf(e), nil
}

// ── Submission ────────────────────────────────────────────

// Submit grades the session. Repeated calls return the same result and
// never credit XP twice.
func (s *Service) Submit(ctx context.Context, userID int64, id string) (*models.SessionResultView, error) {
	e, err := s.registry.get(id, userID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	first := e.session.State() != practice.Submitted
	res, err := e.session.Submit()
	if err != nil {
		return nil, err
	}
	if first {
		e.submittedAt = s.now().UTC()
		log.Printf("[sessions] user %d submitted %s: %d/%d (%d%%)", userID, e.id, res.CorrectCount, res.TotalCount, res.Percentage)
	}

	changed := s.settle(ctx, e, res)
	view := resultView(e)
	if (first || changed) && s.cache != nil {
		if err := s.cache.Put(ctx, CachedResult{UserID: e.userID, Result: *view}); err != nil {
			log.Printf("[sessions] caching result %s: %v", e.id, err)
		}
	}
	return view, nil
}

// settle records XP and publishes the completion event, each at most once.
// Failures are logged and retried on the next submit. Callers hold e.mu.
func (s *Service) settle(ctx context.Context, e *entry, res practice.SessionResult) bool {
	changed := false

	if !e.recorded && s.recorder != nil {
		outcome, err := s.recorder.RecordSession(ctx, models.PracticeResult{
			SessionID:    e.id,
			UserID:       e.userID,
			PassageID:    e.sel.PassageID,
			SetID:        e.session.Set().ID,
			SetType:      string(e.session.Set().Type),
			CorrectCount: res.CorrectCount,
			TotalCount:   res.TotalCount,
			Percentage:   res.Percentage,
			XPEarned:     res.XPEarned,
			CompletedAt:  e.submittedAt,
		})
		if err != nil {
			log.Printf("[sessions] recording %s: %v", e.id, err)
		} else {
			e.outcome = outcome
			e.recorded = true
			changed = true
		}
	}

	if !e.published && s.publisher != nil {
		event := events.NewSessionCompletedEvent(e.id, e.userID)
		event.PassageID = e.sel.PassageID
		event.SetID = e.session.Set().ID
		event.SetType = string(e.session.Set().Type)
		event.CorrectCount = res.CorrectCount
		event.TotalCount = res.TotalCount
		event.Percentage = res.Percentage
		event.XPEarned = res.XPEarned
		if err := s.publisher.PublishSessionCompleted(ctx, event); err != nil {
			log.Printf("[sessions] publishing %s: %v", e.id, err)
		} else {
			e.published = true
		}
	}

	return changed
}

// Result returns a graded session. Once the live session has expired the
// cached copy is served instead.
func (s *Service) Result(ctx context.Context, userID int64, id string) (*models.SessionResultView, error) {
	e, err := s.registry.get(id, userID)
	if errors.Is(err, ErrNotFound) && s.cache != nil {
		cached, cerr := s.cache.Get(ctx, id)
		if cerr == nil {
			if cached.UserID != userID {
				return nil, ErrForbidden
			}
			return &cached.Result, nil
		}
		if !errors.Is(cerr, ErrCacheMiss) {
			log.Printf("[sessions] cache lookup %s: %v", id, cerr)
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.State() != practice.Submitted {
		return nil, practice.ErrNotSubmitted
	}
	return resultView(e), nil
}

// Explain asks the coach about one graded slot.
func (s *Service) Explain(ctx context.Context, userID int64, id string, req models.ExplainRequest) (*models.ExplainResponse, error) {
	if s.coach == nil {
		return nil, ErrCoachUnavailable
	}
	slot := strings.TrimSpace(req.Slot)
	if slot == "" {
		return nil, fmt.Errorf("%w: slot is required", ErrInvalidRequest)
	}

	e, err := s.registry.get(id, userID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	m, err := mistakeContext(e, slot)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.coach.Explain(ctx, m)
}

func mistakeContext(e *entry, slot string) (coach.MistakeContext, error) {
	graded, err := e.session.GradingResult()
	if err != nil {
		return coach.MistakeContext{}, err
	}
	item, ok := graded.Item(slot)
	if !ok {
		return coach.MistakeContext{}, fmt.Errorf("%w: %s", practice.ErrUnknownSlot, slot)
	}

	set := e.session.Set()
	q, _ := set.QuestionFor(slot)
	var opts []string
	switch set.Type {
	case practice.MatchingHeadings:
		for _, h := range set.Headings {
			opts = append(opts, h.ID+": "+h.Text)
		}
	case practice.MatchingInformation:
		for _, p := range set.People {
			opts = append(opts, p.Letter+": "+p.Name)
		}
	case practice.WordBankCompletion:
		opts = set.WordBank
	default:
		opts = q.Options
		if len(opts) == 0 {
			opts = set.Options
		}
	}

	return coach.MistakeContext{
		Slot:         slot,
		SetType:      string(set.Type),
		Instructions: set.Instructions,
		Prompt:       q.Prompt,
		Options:      opts,
		PassageTitle: e.sel.PassageTitle,
		PassageText:  e.sel.PassageText,
		Submitted:    item.Submitted,
		Expected:     item.Expected,
	}, nil
}
