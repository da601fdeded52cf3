package practice

import (
	"fmt"
	"strings"

	"github.com/ielts-prep/backend/internal/models"
)

type SetType string

const (
	SingleChoice        SetType = "single_choice"
	TrueFalseNotGiven   SetType = "true_false_not_given"
	MatchingHeadings    SetType = "matching_headings"
	MatchingInformation SetType = "matching_information"
	NoteCompletion      SetType = "note_completion"
	TableCompletion     SetType = "table_completion"
	DiagramLabelling    SetType = "diagram_labelling"
	WordBankCompletion  SetType = "word_bank_completion"
)

var ValidSetTypes = map[SetType]bool{
	SingleChoice:        true,
	TrueFalseNotGiven:   true,
	MatchingHeadings:    true,
	MatchingInformation: true,
	NoteCompletion:      true,
	TableCompletion:     true,
	DiagramLabelling:    true,
	WordBankCompletion:  true,
}

// IsCompletion reports whether the type is graded per blank rather than per question.
func (t SetType) IsCompletion() bool {
	switch t {
	case NoteCompletion, TableCompletion, DiagramLabelling, WordBankCompletion:
		return true
	}
	return false
}

// AcceptsIndex reports whether answers may be given as an option index.
func (t SetType) AcceptsIndex() bool {
	switch t {
	case SingleChoice, TrueFalseNotGiven, MatchingHeadings:
		return true
	}
	return false
}

var defaultTFNGOptions = []string{"TRUE", "FALSE", "NOT GIVEN"}

type Heading struct {
	ID   string
	Text string
}

type Person struct {
	Letter string
	Name   string
}

// Blank is one fill-in slot inside a question prompt.
type Blank struct {
	ID     string
	Answer string
}

// QuestionItem is one gradable row. Exactly one of CorrectIndex, Key or
// Blanks is meaningful, depending on the owning set's type.
type QuestionItem struct {
	ID           string
	Prompt       string
	Options      []string
	CorrectIndex int
	Key          string
	Blanks       []Blank
}

// QuestionSet is a validated exercise. Treat it as read-only once built.
type QuestionSet struct {
	ID           string
	Type         SetType
	Title        string
	Instructions string
	Options      []string
	Headings     []Heading
	People       []Person
	WordBank     []string
	Questions    []QuestionItem
}

// Slots returns every answer slot in presentation order: question ids for
// choice-style sets, blank ids for completion sets.
func (s *QuestionSet) Slots() []string {
	var slots []string
	for _, q := range s.Questions {
		slots = append(slots, q.slotIDs(s.Type)...)
	}
	return slots
}

// Expected returns the display form of the answer key for a slot.
func (s *QuestionSet) Expected(slot string) (string, bool) {
	for _, q := range s.Questions {
		if s.Type.IsCompletion() {
			for _, b := range q.Blanks {
				if b.ID == slot {
					return b.Answer, true
				}
			}
			continue
		}
		if q.ID != slot {
			continue
		}
		if s.Type == SingleChoice {
			opts := q.Options
			if len(opts) == 0 {
				opts = s.Options
			}
			return opts[q.CorrectIndex], true
		}
		return q.Key, true
	}
	return "", false
}

// QuestionFor returns the question that owns a slot.
func (s *QuestionSet) QuestionFor(slot string) (QuestionItem, bool) {
	for _, q := range s.Questions {
		for _, id := range q.slotIDs(s.Type) {
			if id == slot {
				return q, true
			}
		}
	}
	return QuestionItem{}, false
}

func (q QuestionItem) slotIDs(t SetType) []string {
	if !t.IsCompletion() {
		return []string{q.ID}
	}
	ids := make([]string, 0, len(q.Blanks))
	for _, b := range q.Blanks {
		ids = append(ids, b.ID)
	}
	return ids
}

// MalformedContentError reports every structural problem found while
// normalizing a question set.
type MalformedContentError struct {
	SetID    string
	Problems []string
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("malformed question set %q: %s", e.SetID, strings.Join(e.Problems, "; "))
}

// Normalize validates raw corpus content and builds a QuestionSet.
func Normalize(raw models.QuestionSetContent) (*QuestionSet, error) {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	t := SetType(strings.TrimSpace(raw.Type))
	if !ValidSetTypes[t] {
		fail("unknown type %q", raw.Type)
	}
	if len(raw.Questions) == 0 {
		fail("questions is empty")
	}
	if len(problems) > 0 {
		return nil, &MalformedContentError{SetID: raw.ID, Problems: problems}
	}

	set := &QuestionSet{
		ID:           raw.ID,
		Type:         t,
		Title:        raw.Title,
		Instructions: raw.Instructions,
		Options:      raw.Options,
	}

	seen := make(map[string]bool, len(raw.Questions))
	for i, q := range raw.Questions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			fail("question %d: missing id", i+1)
			continue
		}
		if seen[id] {
			fail("question %s: duplicate id", id)
			continue
		}
		seen[id] = true
		set.Questions = append(set.Questions, QuestionItem{ID: id, Prompt: q.Prompt, Options: q.Options})
	}

	switch t {
	case SingleChoice:
		normalizeSingleChoice(set, raw, fail)
	case TrueFalseNotGiven:
		normalizeTFNG(set, raw, fail)
	case MatchingHeadings:
		normalizeHeadings(set, raw, fail)
	case MatchingInformation:
		normalizePeople(set, raw, fail)
	default:
		normalizeBlanks(set, raw, fail)
	}

	if len(problems) > 0 {
		return nil, &MalformedContentError{SetID: raw.ID, Problems: problems}
	}
	return set, nil
}

func contentFor(raw models.QuestionSetContent, id string) models.QuestionContent {
	for _, q := range raw.Questions {
		if strings.TrimSpace(q.ID) == id {
			return q
		}
	}
	return models.QuestionContent{}
}

func normalizeSingleChoice(set *QuestionSet, raw models.QuestionSetContent, fail func(string, ...any)) {
	for i := range set.Questions {
		q := &set.Questions[i]
		src := contentFor(raw, q.ID)
		opts := q.Options
		if len(opts) == 0 {
			opts = set.Options
		}
		if len(opts) == 0 {
			fail("question %s: no options", q.ID)
			continue
		}
		if src.CorrectIndex == nil {
			fail("question %s: missing correct_index", q.ID)
			continue
		}
		if *src.CorrectIndex < 0 || *src.CorrectIndex >= len(opts) {
			fail("question %s: correct_index %d out of range [0,%d)", q.ID, *src.CorrectIndex, len(opts))
			continue
		}
		q.CorrectIndex = *src.CorrectIndex
	}
}

func normalizeTFNG(set *QuestionSet, raw models.QuestionSetContent, fail func(string, ...any)) {
	if len(set.Options) == 0 {
		set.Options = append([]string(nil), defaultTFNGOptions...)
	}
	for i := range set.Questions {
		q := &set.Questions[i]
		key := strings.TrimSpace(contentFor(raw, q.ID).Answer)
		if !containsFold(set.Options, key) {
			fail("question %s: answer %q is not one of %v", q.ID, key, set.Options)
			continue
		}
		q.Key = key
	}
}

func normalizeHeadings(set *QuestionSet, raw models.QuestionSetContent, fail func(string, ...any)) {
	if len(raw.Headings) == 0 {
		fail("headings is empty")
		return
	}
	ids := make([]string, 0, len(raw.Headings))
	for _, h := range raw.Headings {
		id := strings.TrimSpace(h.ID)
		if id == "" {
			fail("heading with empty id")
			continue
		}
		if containsFold(ids, id) {
			fail("heading %s: duplicate id", id)
			continue
		}
		ids = append(ids, id)
		set.Headings = append(set.Headings, Heading{ID: id, Text: h.Text})
	}
	for i := range set.Questions {
		q := &set.Questions[i]
		key := strings.TrimSpace(contentFor(raw, q.ID).Answer)
		if !containsFold(ids, key) {
			fail("question %s: answer %q does not reference a heading", q.ID, key)
			continue
		}
		q.Key = key
	}
}

func normalizePeople(set *QuestionSet, raw models.QuestionSetContent, fail func(string, ...any)) {
	if len(raw.People) == 0 {
		fail("people is empty")
		return
	}
	letters := make([]string, 0, len(raw.People))
	for _, p := range raw.People {
		letter := strings.ToUpper(strings.TrimSpace(p.Letter))
		if !isSingleLetter(letter) {
			fail("person %q: letter %q is not a single letter", p.Name, p.Letter)
			continue
		}
		if containsFold(letters, letter) {
			fail("person %q: duplicate letter %s", p.Name, letter)
			continue
		}
		letters = append(letters, letter)
		set.People = append(set.People, Person{Letter: letter, Name: p.Name})
	}
	for i := range set.Questions {
		q := &set.Questions[i]
		key := strings.ToUpper(strings.TrimSpace(contentFor(raw, q.ID).Answer))
		if !containsFold(letters, key) {
			fail("question %s: answer %q does not reference a person", q.ID, key)
			continue
		}
		q.Key = key
	}
}

func normalizeBlanks(set *QuestionSet, raw models.QuestionSetContent, fail func(string, ...any)) {
	if set.Type == WordBankCompletion {
		if len(raw.WordBank) == 0 {
			fail("word_bank is empty")
		}
		for _, w := range raw.WordBank {
			w = strings.TrimSpace(w)
			if w == "" {
				fail("word_bank contains an empty word")
				continue
			}
			if containsFold(set.WordBank, w) {
				fail("word_bank: duplicate word %q", w)
				continue
			}
			set.WordBank = append(set.WordBank, w)
		}
	}

	blankIDs := make(map[string]bool)
	for i := range set.Questions {
		q := &set.Questions[i]
		src := contentFor(raw, q.ID)
		answers := src.Answers
		if len(answers) == 0 && strings.TrimSpace(src.Answer) != "" {
			answers = []string{src.Answer}
		}

		display, blanks, problems := parseBlanks(q.ID, src.Prompt, answers)
		for _, p := range problems {
			fail("question %s: %s", q.ID, p)
		}
		q.Prompt = display
		q.Blanks = blanks

		for _, b := range blanks {
			if blankIDs[b.ID] {
				fail("question %s: duplicate blank id %q", q.ID, b.ID)
			}
			blankIDs[b.ID] = true
			if set.Type == WordBankCompletion && len(set.WordBank) > 0 && !containsFold(set.WordBank, b.Answer) {
				fail("question %s: blank %s answer %q is not in the word bank", q.ID, b.ID, b.Answer)
			}
		}
	}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}

func isSingleLetter(s string) bool {
	return len(s) == 1 && s[0] >= 'A' && s[0] <= 'Z'
}
