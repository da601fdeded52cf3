package practice

import "strings"

// ItemResult is the outcome for one slot.
type ItemResult struct {
	Slot       string `json:"slot"`
	QuestionID string `json:"question_id"`
	Submitted  string `json:"submitted"`
	Expected   string `json:"expected"`
	Correct    bool   `json:"correct"`
}

type GradingResult struct {
	Items        []ItemResult `json:"items"`
	CorrectCount int          `json:"correct_count"`
	TotalCount   int          `json:"total_count"`
}

// Item returns the result for a slot.
func (r GradingResult) Item(slot string) (ItemResult, bool) {
	for _, it := range r.Items {
		if it.Slot == slot {
			return it, true
		}
	}
	return ItemResult{}, false
}

func (r GradingResult) clone() GradingResult {
	r.Items = append([]ItemResult(nil), r.Items...)
	return r
}

// Strategy grades a normalized set against a frozen answer state. It never
// fails: unset or out-of-range answers are simply incorrect.
type Strategy interface {
	Grade(set *QuestionSet, answers AnswerState) GradingResult
}

var strategies = map[SetType]Strategy{
	SingleChoice:        choiceStrategy{},
	TrueFalseNotGiven:   keyStrategy{},
	MatchingHeadings:    keyStrategy{},
	MatchingInformation: letterStrategy{},
	NoteCompletion:      blankStrategy{},
	TableCompletion:     blankStrategy{},
	DiagramLabelling:    blankStrategy{},
	WordBankCompletion:  blankStrategy{},
}

// StrategyFor returns the grading strategy registered for a set type.
func StrategyFor(t SetType) (Strategy, bool) {
	s, ok := strategies[t]
	return s, ok
}

// Grade dispatches to the strategy for the set's type.
func Grade(set *QuestionSet, answers AnswerState) GradingResult {
	s, ok := StrategyFor(set.Type)
	if !ok {
		return GradingResult{}
	}
	return s.Grade(set, answers)
}

// --- Strategies ---

type choiceStrategy struct{}

func (choiceStrategy) Grade(set *QuestionSet, answers AnswerState) GradingResult {
	items := make([]ItemResult, 0, len(set.Questions))
	for _, q := range set.Questions {
		opts := q.Options
		if len(opts) == 0 {
			opts = set.Options
		}
		v := answers[q.ID]
		idx, ok := v.index()
		items = append(items, ItemResult{
			Slot:       q.ID,
			QuestionID: q.ID,
			Submitted:  v.text(opts),
			Expected:   opts[q.CorrectIndex],
			Correct:    ok && idx == q.CorrectIndex,
		})
	}
	return tally(items)
}

// keyStrategy compares against an option or heading id.
type keyStrategy struct{}

func (keyStrategy) Grade(set *QuestionSet, answers AnswerState) GradingResult {
	opts := set.Options
	if set.Type == MatchingHeadings {
		opts = make([]string, 0, len(set.Headings))
		for _, h := range set.Headings {
			opts = append(opts, h.ID)
		}
	}
	items := make([]ItemResult, 0, len(set.Questions))
	for _, q := range set.Questions {
		submitted := answers[q.ID].text(opts)
		items = append(items, ItemResult{
			Slot:       q.ID,
			QuestionID: q.ID,
			Submitted:  submitted,
			Expected:   q.Key,
			Correct:    matchText(submitted, q.Key),
		})
	}
	return tally(items)
}

// letterStrategy accepts only a single letter present in the people table.
type letterStrategy struct{}

func (letterStrategy) Grade(set *QuestionSet, answers AnswerState) GradingResult {
	valid := make(map[string]bool, len(set.People))
	for _, p := range set.People {
		valid[p.Letter] = true
	}
	items := make([]ItemResult, 0, len(set.Questions))
	for _, q := range set.Questions {
		submitted := strings.ToUpper(strings.TrimSpace(answers[q.ID].Text))
		items = append(items, ItemResult{
			Slot:       q.ID,
			QuestionID: q.ID,
			Submitted:  submitted,
			Expected:   q.Key,
			Correct:    isSingleLetter(submitted) && valid[submitted] && submitted == q.Key,
		})
	}
	return tally(items)
}

// blankStrategy grades each blank independently.
type blankStrategy struct{}

func (blankStrategy) Grade(set *QuestionSet, answers AnswerState) GradingResult {
	var items []ItemResult
	for _, q := range set.Questions {
		for _, b := range q.Blanks {
			submitted := answers[b.ID].Text
			items = append(items, ItemResult{
				Slot:       b.ID,
				QuestionID: q.ID,
				Submitted:  submitted,
				Expected:   b.Answer,
				Correct:    matchText(submitted, b.Answer),
			})
		}
	}
	return tally(items)
}

// --- helpers ---

func tally(items []ItemResult) GradingResult {
	res := GradingResult{Items: items, TotalCount: len(items)}
	for _, it := range items {
		if it.Correct {
			res.CorrectCount++
		}
	}
	return res
}

// normalizeText trims and case-folds. No fuzzy matching.
func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func matchText(submitted, key string) bool {
	n := normalizeText(submitted)
	return n != "" && n == normalizeText(key)
}
