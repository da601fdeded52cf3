package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ielts-prep/backend/internal/coach"
	"github.com/ielts-prep/backend/internal/content"
	"github.com/ielts-prep/backend/internal/events"
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
)

const testCorpus = `{"passages":[
 {"id":"p-tides","skill":"reading","title":"Tides","text":"The moon pulls the ocean.",
  "question_sets":[
   {"id":"tides-sc","type":"single_choice","questions":[
     {"id":"q1","prompt":"What causes tides?","options":["Wind","The moon","Fish"],"correct_index":1},
     {"id":"q2","prompt":"How often?","options":["Twice a day","Once a year"],"correct_index":0}]},
   {"id":"tides-bank","type":"word_bank_completion","word_bank":["moon","ocean","sun"],"questions":[
     {"id":"b1","prompt":"The [blank] pulls.","answers":["moon"]},
     {"id":"b2","prompt":"It pulls the [blank].","answers":["ocean"]}]}]},
 {"id":"p-broken","skill":"reading","title":"Broken","text":"x",
  "question_sets":[
   {"id":"broken-sc","type":"single_choice","questions":[
     {"id":"q1","prompt":"?","options":["a"],"correct_index":3}]}]}
]}`

type fakeRecorder struct {
	mu    sync.Mutex
	calls []models.PracticeResult
	fail  int
}

func (f *fakeRecorder) RecordSession(ctx context.Context, res models.PracticeResult) (*models.RecordOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, res)
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("database down")
	}
	return &models.RecordOutcome{Recorded: true, TotalXP: int64(res.XPEarned), Level: 1}, nil
}

type fakePublisher struct {
	published []events.SessionCompletedEvent
}

func (f *fakePublisher) PublishSessionCompleted(ctx context.Context, e events.SessionCompletedEvent) error {
	f.published = append(f.published, e)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeExplainer struct {
	got coach.MistakeContext
}

func (f *fakeExplainer) Explain(ctx context.Context, m coach.MistakeContext) (*models.ExplainResponse, error) {
	f.got = m
	return &models.ExplainResponse{Slot: m.Slot, Submitted: m.Submitted, Expected: m.Expected, Explanation: "because"}, nil
}

type fixture struct {
	svc       *Service
	registry  *Registry
	cache     *MemoryCache
	recorder  *fakeRecorder
	publisher *fakePublisher
	explainer *fakeExplainer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	corpus, err := content.FromBytes([]byte(testCorpus))
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	f := &fixture{
		registry:  NewRegistry(time.Hour),
		cache:     NewMemoryCache(time.Hour),
		recorder:  &fakeRecorder{},
		publisher: &fakePublisher{},
		explainer: &fakeExplainer{},
	}
	f.svc = NewService(corpus, f.registry, f.cache)
	f.svc.SetRecorder(f.recorder)
	f.svc.SetPublisher(f.publisher)
	f.svc.SetCoach(f.explainer)
	return f
}

func (f *fixture) start(t *testing.T, userID int64, setType string) *models.SessionView {
	t.Helper()
	v, err := f.svc.Start(context.Background(), userID, models.StartSessionRequest{Skill: "reading", Type: setType})
	if err != nil {
		t.Fatalf("Start(%s): %v", setType, err)
	}
	return v
}

func choose(i int) models.SetAnswerRequest { return models.SetAnswerRequest{Index: &i} }

func (f *fixture) answer(t *testing.T, userID int64, id, slot string, index int) {
	t.Helper()
	req := choose(index)
	req.Slot = slot
	if _, err := f.svc.Answer(context.Background(), userID, id, req); err != nil {
		t.Fatalf("Answer(%s): %v", slot, err)
	}
}

func TestStartSession(t *testing.T) {
	f := newFixture(t)
	v := f.start(t, 1, "single_choice")

	if v.State != "collecting" || v.PassageID != "p-tides" || v.SetID != "tides-sc" {
		t.Errorf("view = %+v", v)
	}
	if len(v.Questions) != 2 || v.Questions[0].Slots[0] != "q1" {
		t.Errorf("questions = %+v", v.Questions)
	}
	if len(v.Answers) != 0 || v.Result != nil || v.Corrections != nil {
		t.Error("new session should carry no answers or result")
	}
	if f.registry.Len() != 1 {
		t.Errorf("registry holds %d sessions, want 1", f.registry.Len())
	}
}

func TestStartSessionErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  models.StartSessionRequest
		is   error
	}{
		{"missing skill", models.StartSessionRequest{Type: "single_choice"}, ErrInvalidRequest},
		{"unknown type", models.StartSessionRequest{Skill: "reading", Type: "essay"}, ErrInvalidRequest},
		{"no such set", models.StartSessionRequest{Skill: "listening", Type: "single_choice"}, content.ErrNotFound},
		{"passage lacks type", models.StartSessionRequest{Skill: "reading", Type: "word_bank_completion", PassageID: "p-broken"}, content.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Start(ctx, 1, tt.req); !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}

	_, err := f.svc.Start(ctx, 1, models.StartSessionRequest{Skill: "reading", Type: "single_choice", PassageID: "p-broken"})
	var malformed *practice.MalformedContentError
	if !errors.As(err, &malformed) {
		t.Fatalf("err = %v, want MalformedContentError", err)
	}
	if f.registry.Len() != 0 {
		t.Error("malformed content must not open a session")
	}
}

func TestSubmitFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.start(t, 7, "single_choice")

	f.answer(t, 7, v.ID, "q1", 1)

	_, err := f.svc.Submit(ctx, 7, v.ID)
	var incomplete *practice.IncompleteError
	if !errors.As(err, &incomplete) {
		t.Fatalf("Submit err = %v, want IncompleteError", err)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != "q2" {
		t.Errorf("Missing = %v, want [q2]", incomplete.Missing)
	}
	if len(f.recorder.calls) != 0 {
		t.Error("incomplete submit must not record XP")
	}

	f.answer(t, 7, v.ID, "q2", 1)
	res, err := f.svc.Submit(ctx, 7, v.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.CorrectCount != 1 || res.TotalCount != 2 || res.Percentage != 50 || res.XPEarned != 10 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Items) != 2 || !res.Items[0].Correct || res.Items[1].Correct {
		t.Errorf("items = %+v", res.Items)
	}
	if res.Gamification == nil || res.Gamification.TotalXP != 10 {
		t.Errorf("gamification = %+v", res.Gamification)
	}

	again, err := f.svc.Submit(ctx, 7, v.ID)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if again.CorrectCount != res.CorrectCount || !again.SubmittedAt.Equal(res.SubmittedAt) {
		t.Errorf("second submit = %+v, want %+v", again, res)
	}
	if len(f.recorder.calls) != 1 {
		t.Errorf("recorder called %d times, want 1", len(f.recorder.calls))
	}
	if len(f.publisher.published) != 1 {
		t.Errorf("published %d events, want 1", len(f.publisher.published))
	}
	rec := f.recorder.calls[0]
	if rec.SessionID != v.ID || rec.UserID != 7 || rec.SetType != "single_choice" || rec.XPEarned != 10 {
		t.Errorf("recorded = %+v", rec)
	}
	if ev := f.publisher.published[0]; ev.SessionID != v.ID || ev.CorrectCount != 1 {
		t.Errorf("event = %+v", ev)
	}

	if _, err := f.svc.Answer(ctx, 7, v.ID, models.SetAnswerRequest{Slot: "q2", Index: intPtr(0)}); !errors.Is(err, practice.ErrSubmitted) {
		t.Errorf("answer after submit err = %v, want ErrSubmitted", err)
	}
	view, _ := f.svc.Get(ctx, 7, v.ID)
	if view.Answers["q2"] != "1" {
		t.Errorf("answers changed after submit: %v", view.Answers)
	}
	if view.Corrections["q1"] != true || view.Corrections["q2"] != false {
		t.Errorf("corrections = %v", view.Corrections)
	}
}

func intPtr(i int) *int { return &i }

func TestSubmitRetriesFailedRecording(t *testing.T) {
	f := newFixture(t)
	f.recorder.fail = 1
	ctx := context.Background()
	v := f.start(t, 3, "single_choice")
	f.answer(t, 3, v.ID, "q1", 1)
	f.answer(t, 3, v.ID, "q2", 0)

	res, err := f.svc.Submit(ctx, 3, v.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Gamification != nil {
		t.Error("failed recording should not report an outcome")
	}

	res, err = f.svc.Submit(ctx, 3, v.ID)
	if err != nil {
		t.Fatalf("second Submit: %v", err)
	}
	if res.Gamification == nil || res.XPEarned != 20 {
		t.Errorf("retried result = %+v", res)
	}
	f.svc.Submit(ctx, 3, v.ID)
	if len(f.recorder.calls) != 2 {
		t.Errorf("recorder called %d times, want 2", len(f.recorder.calls))
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.start(t, 1, "single_choice")
	b := f.start(t, 1, "single_choice")
	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}

	f.answer(t, 1, a.ID, "q1", 2)
	vb, _ := f.svc.Get(ctx, 1, b.ID)
	if len(vb.Answers) != 0 {
		t.Errorf("answer leaked into another session: %v", vb.Answers)
	}

	if _, err := f.svc.Get(ctx, 2, a.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user's Get err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Get(ctx, 1, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestResultFallsBackToCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.start(t, 5, "single_choice")

	if _, err := f.svc.Result(ctx, 5, v.ID); !errors.Is(err, practice.ErrNotSubmitted) {
		t.Errorf("Result before submit err = %v, want ErrNotSubmitted", err)
	}

	f.answer(t, 5, v.ID, "q1", 1)
	f.answer(t, 5, v.ID, "q2", 0)
	if _, err := f.svc.Submit(ctx, 5, v.ID); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.registry.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if n := f.registry.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}

	res, err := f.svc.Result(ctx, 5, v.ID)
	if err != nil {
		t.Fatalf("Result from cache: %v", err)
	}
	if res.Percentage != 100 || res.Label != "Excellent" {
		t.Errorf("cached result = %+v", res)
	}
	if _, err := f.svc.Result(ctx, 6, v.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("other user's cached result err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Result(ctx, 5, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing result err = %v, want ErrNotFound", err)
	}
}

func TestWordBankSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.start(t, 1, "word_bank_completion")
	if strings.Join(v.WordPool, ",") != "moon,ocean,sun" {
		t.Fatalf("pool = %v", v.WordPool)
	}

	v, err := f.svc.PlaceWord(ctx, 1, v.ID, models.PlaceWordRequest{Word: "Moon", BlankID: "b1"})
	if err != nil {
		t.Fatalf("PlaceWord: %v", err)
	}
	if v.Answers["b1"] != "moon" || strings.Join(v.WordPool, ",") != "ocean,sun" {
		t.Errorf("after place: answers %v pool %v", v.Answers, v.WordPool)
	}

	if _, err := f.svc.PlaceWord(ctx, 1, v.ID, models.PlaceWordRequest{Word: "star", BlankID: "b2"}); !errors.Is(err, practice.ErrWordNotInBank) {
		t.Errorf("foreign word err = %v, want ErrWordNotInBank", err)
	}

	v, err = f.svc.RemoveWord(ctx, 1, v.ID, "b1")
	if err != nil {
		t.Fatalf("RemoveWord: %v", err)
	}
	if len(v.Answers) != 0 || len(v.WordPool) != 3 {
		t.Errorf("after remove: answers %v pool %v", v.Answers, v.WordPool)
	}
}

func TestExplain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.start(t, 1, "single_choice")

	if _, err := f.svc.Explain(ctx, 1, v.ID, models.ExplainRequest{Slot: "q1"}); !errors.Is(err, practice.ErrNotSubmitted) {
		t.Errorf("explain before submit err = %v, want ErrNotSubmitted", err)
	}

	f.answer(t, 1, v.ID, "q1", 0)
	f.answer(t, 1, v.ID, "q2", 0)
	f.svc.Submit(ctx, 1, v.ID)

	resp, err := f.svc.Explain(ctx, 1, v.ID, models.ExplainRequest{Slot: "q1"})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if resp.Submitted != "Wind" || resp.Expected != "The moon" {
		t.Errorf("response = %+v", resp)
	}
	got := f.explainer.got
	if got.PassageText != "The moon pulls the ocean." || got.Prompt != "What causes tides?" || len(got.Options) != 3 {
		t.Errorf("mistake context = %+v", got)
	}

	if _, err := f.svc.Explain(ctx, 1, v.ID, models.ExplainRequest{Slot: "q9"}); !errors.Is(err, practice.ErrUnknownSlot) {
		t.Errorf("unknown slot err = %v, want ErrUnknownSlot", err)
	}

	f.svc.SetCoach(nil)
	if _, err := f.svc.Explain(ctx, 1, v.ID, models.ExplainRequest{Slot: "q1"}); !errors.Is(err, ErrCoachUnavailable) {
		t.Errorf("no coach err = %v, want ErrCoachUnavailable", err)
	}
}

func TestConcurrentSubmitRecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.start(t, 1, "single_choice")
	f.answer(t, 1, v.ID, "q1", 1)
	f.answer(t, 1, v.ID, "q2", 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.svc.Submit(ctx, 1, v.ID)
		}()
	}
	wg.Wait()

	if len(f.recorder.calls) != 1 {
		t.Errorf("recorder called %d times, want 1", len(f.recorder.calls))
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()
	c.Put(ctx, CachedResult{UserID: 1, Result: models.SessionResultView{SessionID: "s1"}})

	if _, err := c.Get(ctx, "s1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := c.Get(ctx, "s1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired Get err = %v, want ErrCacheMiss", err)
	}
}

func TestRegistrySweepKeepsActive(t *testing.T) {
	f := newFixture(t)
	base := time.Now()
	f.registry.now = func() time.Time { return base }
	old := f.start(t, 1, "single_choice")
	f.registry.now = func() time.Time { return base.Add(50 * time.Minute) }
	fresh := f.start(t, 1, "single_choice")

	f.registry.now = func() time.Time { return base.Add(90 * time.Minute) }
	if n := f.registry.Sweep(); n != 1 {
		t.Errorf("Sweep removed %d, want 1", n)
	}
	if _, err := f.svc.Get(context.Background(), 1, old.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session err = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.Get(context.Background(), 1, fresh.ID); err != nil {
		t.Errorf("active session: %v", err)
	}
}

func TestMemoryCachePrunesOnPut(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()
	base := time.Now()
	c.now = func() time.Time { return base }
	for i := 0; i < 1000; i++ {
		c.Put(ctx, CachedResult{UserID: 1, Result: models.SessionResultView{SessionID: fmt.Sprintf("s%d", i)}})
	}

	c.now = func() time.Time { return base.Add(48 * time.Hour) }
	c.Put(ctx, CachedResult{UserID: 1, Result: models.SessionResultView{SessionID: "fresh"}})

	if n := c.Len(); n != 1 {
		t.Errorf("Len = %d, want 1", n)
	}
	if _, err := c.Get(ctx, "fresh"); err != nil {
		t.Errorf("Get(fresh): %v", err)
	}
}

func TestAnswerKindMustFitType(t *testing.T) {
	f := newFixture(t)
	v := f.start(t, 1, "word_bank_completion")
	_, err := f.svc.Answer(context.Background(), 1, v.ID, models.SetAnswerRequest{Slot: "b1", Index: intPtr(0)})
	if !errors.Is(err, practice.ErrInvalidAnswer) {
		t.Errorf("index on word bank err = %v, want ErrInvalidAnswer", err)
	}
}
