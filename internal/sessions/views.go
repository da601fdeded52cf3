package sessions

import (
	"github.com/ielts-prep/backend/internal/models"
	"github.com/ielts-prep/backend/internal/practice"
)

// viewOf renders what the learner may see. Answer keys only appear through
// the result, after submission. Callers hold e.mu.
func viewOf(e *entry) *models.SessionView {
	set := e.session.Set()
	v := &models.SessionView{
		ID:           e.id,
		State:        string(e.session.State()),
		PassageID:    e.sel.PassageID,
		PassageTitle: e.sel.PassageTitle,
		PassageText:  e.sel.PassageText,
		SetID:        set.ID,
		Type:         string(set.Type),
		Title:        set.Title,
		Instructions: set.Instructions,
		Questions:    make([]models.QuestionView, 0, len(set.Questions)),
		Answers:      make(map[string]string),
	}

	for _, h := range set.Headings {
		v.Headings = append(v.Headings, models.HeadingContent{ID: h.ID, Text: h.Text})
	}
	for _, p := range set.People {
		v.People = append(v.People, models.PersonContent{Letter: p.Letter, Name: p.Name})
	}
	if set.Type == practice.WordBankCompletion {
		v.WordPool = e.session.Pool()
	}

	for _, q := range set.Questions {
		qv := models.QuestionView{ID: q.ID, Prompt: q.Prompt, Options: q.Options}
		if len(qv.Options) == 0 && (set.Type == practice.SingleChoice || set.Type == practice.TrueFalseNotGiven) {
			qv.Options = set.Options
		}
		if set.Type.IsCompletion() {
			for _, b := range q.Blanks {
				qv.Slots = append(qv.Slots, b.ID)
			}
		} else {
			qv.Slots = []string{q.ID}
		}
		v.Questions = append(v.Questions, qv)
	}

	for slot, val := range e.session.Answers() {
		v.Answers[slot] = val.String()
	}

	if e.session.State() == practice.Submitted {
		v.Result = resultView(e)
		v.Corrections = make(map[string]bool, len(v.Result.Items))
		for _, it := range v.Result.Items {
			v.Corrections[it.Slot] = it.Correct
		}
	}
	return v
}

// resultView returns nil before submission. Callers hold e.mu.
func resultView(e *entry) *models.SessionResultView {
	res, err := e.session.Result()
	if err != nil {
		return nil
	}
	graded, _ := e.session.GradingResult()

	rv := &models.SessionResultView{
		SessionID:    e.id,
		CorrectCount: res.CorrectCount,
		TotalCount:   res.TotalCount,
		Percentage:   res.Percentage,
		XPEarned:     res.XPEarned,
		Label:        res.Label,
		SubmittedAt:  e.submittedAt,
		Items:        make([]models.ItemResultView, 0, len(graded.Items)),
		Gamification: e.outcome,
	}
	for _, it := range graded.Items {
		rv.Items = append(rv.Items, models.ItemResultView{
			Slot:       it.Slot,
			QuestionID: it.QuestionID,
			Submitted:  it.Submitted,
			Expected:   it.Expected,
			Correct:    it.Correct,
		})
	}
	return rv
}
