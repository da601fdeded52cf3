package models

import "time"

// ── Core Gamification Structs ─────────────────────────────

type UserGamification struct {
	UserID             int64      `json:"user_id"`
	TotalXP            int64      `json:"total_xp"`
	CurrentStreak      int        `json:"current_streak"`
	LongestStreak      int        `json:"longest_streak"`
	LastActiveDate     *time.Time `json:"last_active_date"`
	SessionsCompleted  int        `json:"sessions_completed"`
	PerfectSessions    int        `json:"perfect_sessions"`
	SlotsAnsweredTotal int        `json:"slots_answered_total"`
	SlotsCorrectTotal  int        `json:"slots_correct_total"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PracticeResult is one graded practice session as persisted.
type PracticeResult struct {
	SessionID    string    `json:"session_id"`
	UserID       int64     `json:"user_id"`
	PassageID    string    `json:"passage_id"`
	SetID        string    `json:"set_id"`
	SetType      string    `json:"set_type"`
	CorrectCount int       `json:"correct_count"`
	TotalCount   int       `json:"total_count"`
	Percentage   int       `json:"percentage"`
	XPEarned     int       `json:"xp_earned"`
	CompletedAt  time.Time `json:"completed_at"`
}

// ── Response Types ────────────────────────────────────────

type GamificationResponse struct {
	TotalXP            int64            `json:"total_xp"`
	WeeklyXP           int64            `json:"weekly_xp"`
	Level              int              `json:"level"`
	XPIntoLevel        int64            `json:"xp_into_level"`
	XPForNextLevel     int64            `json:"xp_for_next_level"`
	CurrentStreak      int              `json:"current_streak"`
	LongestStreak      int              `json:"longest_streak"`
	SessionsCompleted  int              `json:"sessions_completed"`
	PerfectSessions    int              `json:"perfect_sessions"`
	SlotsAnsweredTotal int              `json:"slots_answered_total"`
	SlotsCorrectTotal  int              `json:"slots_correct_total"`
	Achievements       []string         `json:"achievements"`
	RecentResults      []PracticeResult `json:"recent_results"`
}

// RecordOutcome is what the ledger reports back after a session is recorded.
type RecordOutcome struct {
	Recorded             bool     `json:"recorded"`
	TotalXP              int64    `json:"total_xp"`
	Level                int      `json:"level"`
	CurrentStreak        int      `json:"current_streak"`
	AchievementsUnlocked []string `json:"achievements_unlocked"`
}

type LeaderboardResponse struct {
	Period      string             `json:"period"`
	Entries     []LeaderboardEntry `json:"entries"`
	CurrentUser *LeaderboardEntry  `json:"current_user,omitempty"`
}

type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id"`
	DisplayName   string `json:"display_name"`
	Username      string `json:"username"`
	WeeklyXP      int64  `json:"weekly_xp"`
	CurrentStreak int    `json:"current_streak"`
	IsCurrentUser bool   `json:"is_current_user"`
}
