package gamification

import (
	"net/url"
	"testing"
	"time"

	"github.com/ielts-prep/backend/internal/models"
)

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp        int64
		level     int
		intoLevel int64
		forNext   int64
	}{
		{0, 1, 0, 100},
		{99, 1, 99, 100},
		{100, 2, 0, 200},
		{299, 2, 199, 200},
		{300, 3, 0, 300},
		{999, 4, 399, 400},
		{1000, 5, 0, 500},
		{-50, 1, 0, 100},
	}
	for _, tt := range tests {
		level, into, next := LevelForXP(tt.xp)
		if level != tt.level || into != tt.intoLevel || next != tt.forNext {
			t.Errorf("LevelForXP(%d) = (%d, %d, %d), want (%d, %d, %d)",
				tt.xp, level, into, next, tt.level, tt.intoLevel, tt.forNext)
		}
	}
}

func TestNextStreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2026, 3, 10+offset, 8, 0, 0, 0, time.UTC)
		return &d
	}

	tests := []struct {
		name    string
		last    *time.Time
		current int
		want    int
	}{
		{"first activity", nil, 0, 1},
		{"same day", day(0), 4, 4},
		{"same day zero streak", day(0), 0, 1},
		{"yesterday", day(-1), 4, 5},
		{"gap", day(-2), 9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextStreak(tt.last, now, tt.current); got != tt.want {
				t.Errorf("NextStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreakAlive(t *testing.T) {
	now := time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)
	yesterday := time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)
	older := time.Date(2026, 3, 8, 23, 0, 0, 0, time.UTC)

	if !StreakAlive(&yesterday, now) {
		t.Error("streak from yesterday should be alive")
	}
	if StreakAlive(&older, now) {
		t.Error("streak from two days ago should be broken")
	}
	if StreakAlive(nil, now) {
		t.Error("no activity should not count as a live streak")
	}
}

func TestCheckAchievements(t *testing.T) {
	gam := &models.UserGamification{
		SessionsCompleted:  10,
		PerfectSessions:    1,
		SlotsAnsweredTotal: 120,
		CurrentStreak:      3,
		TotalXP:            1000,
	}
	got := map[string]bool{}
	for _, a := range CheckAchievements(gam) {
		got[a] = true
		if _, ok := Achievements[a]; !ok {
			t.Errorf("achievement %q has no definition", a)
		}
	}
	for _, want := range []string{"first_session", "sessions_10", "perfect_1", "answers_100", "streak_3", "xp_1000"} {
		if !got[want] {
			t.Errorf("missing achievement %q", want)
		}
	}
	for _, not := range []string{"sessions_50", "perfect_10", "answers_500", "streak_7", "xp_10000"} {
		if got[not] {
			t.Errorf("unexpected achievement %q", not)
		}
	}
}

func TestCheckAchievements_Empty(t *testing.T) {
	if got := CheckAchievements(&models.UserGamification{}); len(got) != 0 {
		t.Errorf("CheckAchievements(empty) = %v, want none", got)
	}
}

func TestIntQueryParam(t *testing.T) {
	q := url.Values{"limit": {"15"}, "bad": {"x"}, "neg": {"-3"}}
	if got := intQueryParam(q, "limit", 20); got != 15 {
		t.Errorf("limit = %d, want 15", got)
	}
	if got := intQueryParam(q, "bad", 20); got != 20 {
		t.Errorf("bad = %d, want 20", got)
	}
	if got := intQueryParam(q, "neg", 20); got != 20 {
		t.Errorf("neg = %d, want 20", got)
	}
	if got := intQueryParam(q, "missing", 7); got != 7 {
		t.Errorf("missing = %d, want 7", got)
	}
}
