package practice

import (
	"strconv"
	"strings"
)

// Value is one submitted answer: an option index, free text, or unset.
type Value struct {
	Index *int
	Text  string
}

func Choice(i int) Value { return Value{Index: &i} }

func Text(s string) Value { return Value{Text: s} }

// IsEmpty reports whether the slot still counts as unanswered.
func (v Value) IsEmpty() bool {
	return v.Index == nil && strings.TrimSpace(v.Text) == ""
}

// index resolves the value to an option index, accepting numeric text.
func (v Value) index() (int, bool) {
	if v.Index != nil {
		return *v.Index, true
	}
	n, err := strconv.Atoi(strings.TrimSpace(v.Text))
	if err != nil {
		return 0, false
	}
	return n, true
}

// text resolves the value to text, mapping an index through opts.
func (v Value) text(opts []string) string {
	if v.Index != nil {
		if *v.Index >= 0 && *v.Index < len(opts) {
			return opts[*v.Index]
		}
		return ""
	}
	return v.Text
}

func (v Value) String() string {
	if v.Index != nil {
		return strconv.Itoa(*v.Index)
	}
	return v.Text
}

// AnswerState maps slot ids to submitted values. Missing keys are unset.
type AnswerState map[string]Value

func (a AnswerState) clone() AnswerState {
	out := make(AnswerState, len(a))
	for k, v := range a {
		if v.Index != nil {
			i := *v.Index
			v.Index = &i
		}
		out[k] = v
	}
	return out
}
