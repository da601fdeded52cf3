package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/ielts-prep/backend/internal/models"
)

const maxPassageChars = 6000

// MistakeContext is everything the coach needs to talk about one graded slot.
type MistakeContext struct {
	Slot         string
	SetType      string
	Instructions string
	Prompt       string
	Options      []string
	PassageTitle string
	PassageText  string
	Submitted    string
	Expected     string
}

// Coach turns a graded mistake into a short explanation. It never changes
// a grade.
type Coach struct {
	llm   LLMClient
	model string
}

func New(llm LLMClient, model string) *Coach {
	return &Coach{llm: llm, model: model}
}

// NewFromSettings picks the backend: the mock when asked for or when no
// API key is configured, the Anthropic API otherwise.
func NewFromSettings(apiKey, model string, mock bool) *Coach {
	if mock || apiKey == "" {
		log.Println("[coach] using mock explanations")
		return New(NewMockClient(), "mock")
	}
	log.Println("[coach] using Anthropic API:", model)
	return New(NewAPIClient(apiKey, model), model)
}

func (c *Coach) ModelName() string {
	return c.model
}

type explanation struct {
	Explanation string `json:"explanation"`
	Tip         string `json:"tip"`
}

func (c *Coach) Explain(ctx context.Context, m MistakeContext) (*models.ExplainResponse, error) {
	resp, err := c.llm.Generate(ctx, SystemPrompt(), BuildUserPrompt(m))
	if err != nil {
		return nil, fmt.Errorf("explain slot %s: %w", m.Slot, err)
	}

	parsed, err := parseExplanation(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse explanation for slot %s: %w", m.Slot, err)
	}
	log.Printf("[coach] explained slot %s (%d in / %d out tokens)", m.Slot, resp.PromptTokens, resp.OutputTokens)

	return &models.ExplainResponse{
		Slot:        m.Slot,
		Submitted:   m.Submitted,
		Expected:    m.Expected,
		Explanation: parsed.Explanation,
		Tip:         parsed.Tip,
	}, nil
}

// ── Prompts ───────────────────────────────────────────────

func SystemPrompt() string {
	return `You are an experienced IELTS tutor. A learner has just submitted a practice exercise and wants to understand one answer.

Explain in at most four sentences why the correct answer is right, quoting or paraphrasing the part of the passage that supports it. If the learner's answer was wrong, say what likely misled them. Do not change or dispute the answer key.

Respond with JSON only, in this exact shape:
{"explanation": "...", "tip": "one short strategy tip for this question type"}`
}

func BuildUserPrompt(m MistakeContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question type: %s\n", strings.ReplaceAll(m.SetType, "_", " "))
	if m.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", m.Instructions)
	}
	if m.PassageTitle != "" {
		fmt.Fprintf(&b, "\nPassage: %s\n", m.PassageTitle)
	}
	if m.PassageText != "" {
		text := m.PassageText
		if r := []rune(text); len(r) > maxPassageChars {
			text = string(r[:maxPassageChars]) + " ..."
		}
		fmt.Fprintf(&b, "%s\n", text)
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", m.Prompt)
	for i, opt := range m.Options {
		fmt.Fprintf(&b, "  %d. %s\n", i, opt)
	}

	submitted := m.Submitted
	if submitted == "" {
		submitted = "(no answer)"
	}
	fmt.Fprintf(&b, "\nLearner's answer: %s\n", submitted)
	fmt.Fprintf(&b, "Correct answer: %s\n", m.Expected)
	if strings.EqualFold(strings.TrimSpace(m.Submitted), strings.TrimSpace(m.Expected)) {
		b.WriteString("The learner answered correctly; confirm why.\n")
	}
	return b.String()
}

// ── Parsing ───────────────────────────────────────────────

func parseExplanation(raw string) (*explanation, error) {
	var e explanation
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &e); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	e.Explanation = strings.TrimSpace(e.Explanation)
	e.Tip = strings.TrimSpace(e.Tip)
	if e.Explanation == "" {
		return nil, fmt.Errorf("empty explanation")
	}
	return &e, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
