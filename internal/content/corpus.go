package content

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ielts-prep/backend/internal/models"
	"github.com/tidwall/gjson"
)

//go:embed corpus.json
var defaultCorpus []byte

var ErrNotFound = errors.New("content not found")

// Corpus is a read-only collection of passages and their question sets,
// queried in place with gjson.
type Corpus struct {
	raw []byte
}

// Selection is one question set together with the passage it belongs to.
type Selection struct {
	PassageID    string
	PassageTitle string
	PassageText  string
	Skill        string
	Set          models.QuestionSetContent
}

func Default() *Corpus {
	c, err := FromBytes(defaultCorpus)
	if err != nil {
		panic(fmt.Sprintf("embedded corpus: %v", err))
	}
	return c
}

func Load(path string) (*Corpus, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return FromBytes(b)
}

func FromBytes(b []byte) (*Corpus, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.New("corpus is not valid JSON")
	}
	passages := gjson.GetBytes(b, "passages")
	if !passages.IsArray() {
		return nil, errors.New(`corpus has no "passages" array`)
	}
	return &Corpus{raw: b}, nil
}

// Passages lists passage summaries, optionally filtered by skill.
func (c *Corpus) Passages(skill string) []models.PassageSummary {
	out := []models.PassageSummary{}
	c.eachPassage(skill, func(p gjson.Result) bool {
		summary := models.PassageSummary{
			ID:       p.Get("id").String(),
			Skill:    p.Get("skill").String(),
			Title:    p.Get("title").String(),
			SetTypes: []string{},
		}
		for _, t := range p.Get("question_sets.#.type").Array() {
			summary.SetTypes = append(summary.SetTypes, t.String())
		}
		out = append(out, summary)
		return true
	})
	return out
}

// Lookup finds a question set of the given type. With an empty passageID the
// first passage of the skill that carries such a set is used.
func (c *Corpus) Lookup(skill, setType, passageID string) (Selection, error) {
	var (
		sel   Selection
		found bool
		err   error
	)
	c.eachPassage(skill, func(p gjson.Result) bool {
		if passageID != "" && p.Get("id").String() != passageID {
			return true
		}
		set, ok := firstSetOfType(p, setType)
		if !ok {
			// An explicit passage without that set type is a miss, not a fallthrough.
			return passageID == ""
		}
		found = true
		sel = Selection{
			PassageID:    p.Get("id").String(),
			PassageTitle: p.Get("title").String(),
			PassageText:  p.Get("text").String(),
			Skill:        p.Get("skill").String(),
		}
		if e := json.Unmarshal([]byte(set.Raw), &sel.Set); e != nil {
			err = fmt.Errorf("decode question set in passage %s: %w", sel.PassageID, e)
		}
		return false
	})
	if err != nil {
		return Selection{}, err
	}
	if !found {
		if passageID != "" {
			return Selection{}, fmt.Errorf("%w: passage %q has no %s set", ErrNotFound, passageID, setType)
		}
		return Selection{}, fmt.Errorf("%w: no %s set for skill %q", ErrNotFound, setType, skill)
	}
	return sel, nil
}

// Each calls fn for every question set in the corpus, in document order.
func (c *Corpus) Each(fn func(passageID string, set models.QuestionSetContent) error) error {
	var err error
	c.eachPassage("", func(p gjson.Result) bool {
		pid := p.Get("id").String()
		p.Get("question_sets").ForEach(func(_, s gjson.Result) bool {
			var set models.QuestionSetContent
			if e := json.Unmarshal([]byte(s.Raw), &set); e != nil {
				err = fmt.Errorf("decode question set in passage %s: %w", pid, e)
				return false
			}
			if e := fn(pid, set); e != nil {
				err = e
				return false
			}
			return true
		})
		return err == nil
	})
	return err
}

func (c *Corpus) eachPassage(skill string, fn func(gjson.Result) bool) {
	gjson.GetBytes(c.raw, "passages").ForEach(func(_, p gjson.Result) bool {
		if skill != "" && !strings.EqualFold(p.Get("skill").String(), skill) {
			return true
		}
		return fn(p)
	})
}

func firstSetOfType(passage gjson.Result, setType string) (gjson.Result, bool) {
	var match gjson.Result
	passage.Get("question_sets").ForEach(func(_, s gjson.Result) bool {
		if s.Get("type").String() == setType {
			match = s
			return false
		}
		return true
	})
	return match, match.Exists()
}
