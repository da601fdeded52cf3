package models

import "time"

// ── Corpus Content ──────────────────────────────────────

type QuestionSetContent struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Title        string            `json:"title,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Options      []string          `json:"options,omitempty"`
	Headings     []HeadingContent  `json:"headings,omitempty"`
	People       []PersonContent   `json:"people,omitempty"`
	WordBank     []string          `json:"word_bank,omitempty"`
	Questions    []QuestionContent `json:"questions"`
}

type HeadingContent struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type PersonContent struct {
	Letter string `json:"letter"`
	Name   string `json:"name"`
}

type QuestionContent struct {
	ID           string   `json:"id"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Answer       string   `json:"answer,omitempty"`
	Answers      []string `json:"answers,omitempty"`
}

type PassageSummary struct {
	ID       string   `json:"id"`
	Skill    string   `json:"skill"`
	Title    string   `json:"title"`
	SetTypes []string `json:"set_types"`
}

// ── Request Types ─────────────────────────────────────

type StartSessionRequest struct {
	Skill     string `json:"skill"`
	Type      string `json:"type"`
	PassageID string `json:"passage_id,omitempty"`
}

type SetAnswerRequest struct {
	Slot  string  `json:"slot"`
	Index *int    `json:"index,omitempty"`
	Value *string `json:"value,omitempty"`
}

type PlaceWordRequest struct {
	Word    string `json:"word"`
	BlankID string `json:"blank_id"`
}

type ExplainRequest struct {
	Slot string `json:"slot"`
}

// ── Response Types ────────────────────────────────────

// SessionView is what a learner sees: prompts and side tables, no answer keys.
type SessionView struct {
	ID           string             `json:"id"`
	State        string             `json:"state"`
	PassageID    string             `json:"passage_id"`
	PassageTitle string             `json:"passage_title"`
	PassageText  string             `json:"passage_text"`
	SetID        string             `json:"set_id"`
	Type         string             `json:"type"`
	Title        string             `json:"title,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
	Headings     []HeadingContent   `json:"headings,omitempty"`
	People       []PersonContent    `json:"people,omitempty"`
	WordPool     []string           `json:"word_pool,omitempty"`
	Questions    []QuestionView     `json:"questions"`
	Answers      map[string]string  `json:"answers"`
	Result       *SessionResultView `json:"result,omitempty"`
	Corrections  map[string]bool    `json:"corrections,omitempty"`
}

type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
	Slots   []string `json:"slots"`
}

type SessionResultView struct {
	SessionID    string           `json:"session_id"`
	CorrectCount int              `json:"correct_count"`
	TotalCount   int              `json:"total_count"`
	Percentage   int              `json:"percentage"`
	XPEarned     int              `json:"xp_earned"`
	Label        string           `json:"label"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	Items        []ItemResultView `json:"items"`
	Gamification *RecordOutcome   `json:"gamification,omitempty"`
}

type ItemResultView struct {
	Slot       string `json:"slot"`
	QuestionID string `json:"question_id"`
	Submitted  string `json:"submitted"`
	Expected   string `json:"expected"`
	Correct    bool   `json:"correct"`
}

type IncompleteResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing"`
}

type ExplainResponse struct {
	Slot        string `json:"slot"`
	Submitted   string `json:"submitted"`
	Expected    string `json:"expected"`
	Explanation string `json:"explanation"`
	Tip         string `json:"tip,omitempty"`
}
