package practice

import (
	"fmt"
	"regexp"
	"strings"
)

// blankMarker matches "[blank]" and "[blank:id:answer]".
var blankMarker = regexp.MustCompile(`(?i)\[blank(?::([^:\]]*):([^\]]*))?\]`)

// parseBlanks extracts the blanks of one prompt. Anonymous markers consume
// answers in order; embedded markers carry their own id and answer. The
// returned prompt has every marker rewritten to "[blank:<id>]" so answers
// never reach the learner.
func parseBlanks(questionID, prompt string, answers []string) (string, []Blank, []string) {
	var problems []string
	matches := blankMarker.FindAllStringSubmatchIndex(prompt, -1)

	if len(matches) == 0 {
		switch len(answers) {
		case 0:
			return prompt, nil, []string{"no blanks and no answer"}
		case 1:
			ans := strings.TrimSpace(answers[0])
			if ans == "" {
				return prompt, nil, []string{"empty answer"}
			}
			return prompt, []Blank{{ID: questionID, Answer: ans}}, nil
		default:
			return prompt, nil, []string{fmt.Sprintf("%d answers but no blank markers", len(answers))}
		}
	}

	anonymous := 0
	for _, m := range matches {
		if m[2] < 0 {
			anonymous++
		}
	}
	if anonymous != len(answers) {
		problems = append(problems, fmt.Sprintf("%d [blank] markers but %d answers", anonymous, len(answers)))
	}

	var (
		b    strings.Builder
		last int
		next int
	)
	blanks := make([]Blank, 0, len(matches))
	for pos, m := range matches {
		var blank Blank
		if m[2] >= 0 {
			blank.ID = strings.TrimSpace(prompt[m[2]:m[3]])
			blank.Answer = strings.TrimSpace(prompt[m[4]:m[5]])
			if blank.ID == "" {
				problems = append(problems, fmt.Sprintf("blank %d has an empty id", pos+1))
			}
		} else {
			blank.ID = questionID
			if len(matches) > 1 {
				blank.ID = fmt.Sprintf("%s.%d", questionID, pos+1)
			}
			if next < len(answers) {
				blank.Answer = strings.TrimSpace(answers[next])
			}
			next++
		}
		if blank.Answer == "" {
			problems = append(problems, fmt.Sprintf("blank %s has an empty answer", blank.ID))
		}
		blanks = append(blanks, blank)

		b.WriteString(prompt[last:m[0]])
		b.WriteString("[blank:")
		b.WriteString(blank.ID)
		b.WriteString("]")
		last = m[1]
	}
	b.WriteString(prompt[last:])

	return b.String(), blanks, problems
}
