package gamification

import "github.com/ielts-prep/backend/internal/models"

// AchievementDef defines a single achievement.
type AchievementDef struct {
	Name        string
	Description string
}

// Achievements maps achievement keys to their definitions.
var Achievements = map[string]AchievementDef{
	"first_session": {Name: "First Steps", Description: "Complete your first practice set"},
	"sessions_10":   {Name: "Regular", Description: "Complete 10 practice sets"},
	"sessions_50":   {Name: "Committed", Description: "Complete 50 practice sets"},
	"perfect_1":     {Name: "Flawless", Description: "Score 100% on a practice set"},
	"perfect_10":    {Name: "Perfectionist", Description: "Score 100% on 10 practice sets"},
	"answers_100":   {Name: "Century", Description: "Answer 100 questions"},
	"answers_500":   {Name: "Scholar", Description: "Answer 500 questions"},
	"streak_3":      {Name: "Getting Started", Description: "3-day streak"},
	"streak_7":      {Name: "Week Warrior", Description: "7-day streak"},
	"streak_30":     {Name: "Monthly Master", Description: "30-day streak"},
	"xp_1000":       {Name: "Rising Star", Description: "Earn 1,000 total XP"},
	"xp_10000":      {Name: "Powerhouse", Description: "Earn 10,000 total XP"},
}

// CheckAchievements returns every achievement key the current state qualifies
// for. The caller filters out the ones already earned.
func CheckAchievements(gam *models.UserGamification) []string {
	var earned []string

	milestone := func(value, threshold int, key string) {
		if value >= threshold {
			earned = append(earned, key)
		}
	}

	milestone(gam.SessionsCompleted, 1, "first_session")
	milestone(gam.SessionsCompleted, 10, "sessions_10")
	milestone(gam.SessionsCompleted, 50, "sessions_50")

	milestone(gam.PerfectSessions, 1, "perfect_1")
	milestone(gam.PerfectSessions, 10, "perfect_10")

	milestone(gam.SlotsAnsweredTotal, 100, "answers_100")
	milestone(gam.SlotsAnsweredTotal, 500, "answers_500")

	milestone(gam.CurrentStreak, 3, "streak_3")
	milestone(gam.CurrentStreak, 7, "streak_7")
	milestone(gam.CurrentStreak, 30, "streak_30")

	if gam.TotalXP >= 1000 {
		earned = append(earned, "xp_1000")
	}
	if gam.TotalXP >= 10000 {
		earned = append(earned, "xp_10000")
	}

	return earned
}
