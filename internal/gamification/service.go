package gamification

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ielts-prep/backend/internal/models"
)

type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// ── Session Completion ──────────────────────────────────

// RecordSession credits a graded session to the learner. The XP credited is
// exactly res.XPEarned. Recording the same session id twice is a no-op that
// reports Recorded=false.
func (s *Service) RecordSession(ctx context.Context, res models.PracticeResult) (*models.RecordOutcome, error) {
	saved, err := s.store.SaveSessionResult(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("save session result: %w", err)
	}

	gam, err := s.store.GetGamification(ctx, res.UserID)
	if err != nil {
		return nil, err
	}
	out := &models.RecordOutcome{Recorded: saved, AchievementsUnlocked: []string{}}
	if !saved {
		out.TotalXP = gam.TotalXP
		out.Level, _, _ = LevelForXP(gam.TotalXP)
		out.CurrentStreak = gam.CurrentStreak
		return out, nil
	}

	now := s.now()
	streak := NextStreak(gam.LastActiveDate, now, gam.CurrentStreak)
	longest := gam.LongestStreak
	if streak > longest {
		longest = streak
	}
	if err := s.store.UpdateStreak(ctx, res.UserID, streak, longest, now.UTC().Truncate(24*time.Hour)); err != nil {
		log.Printf("[gamification] failed to update streak for user %d: %v", res.UserID, err)
	} else {
		gam.CurrentStreak = streak
		gam.LongestStreak = longest
	}

	out.TotalXP = gam.TotalXP
	out.Level, _, _ = LevelForXP(gam.TotalXP)
	out.CurrentStreak = gam.CurrentStreak
	out.AchievementsUnlocked = awardNew(ctx, s.store, gam)

	log.Printf("[gamification] user %d: session %s +%d XP (total %d)", res.UserID, res.SessionID, res.XPEarned, gam.TotalXP)
	return out, nil
}

// achievementLedger is the part of Store that awarding needs.
type achievementLedger interface {
	GetUserAchievements(ctx context.Context, userID int64) ([]string, error)
	AwardAchievement(ctx context.Context, userID int64, achievement string) error
	LogXPEvent(ctx context.Context, userID int64, eventType string, xpAmount int, metadata map[string]interface{}) error
}

func awardNew(ctx context.Context, ledger achievementLedger, gam *models.UserGamification) []string {
	existing, err := ledger.GetUserAchievements(ctx, gam.UserID)
	if err != nil {
		log.Printf("[gamification] failed to load achievements for user %d: %v", gam.UserID, err)
		return []string{}
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a] = true
	}

	unlocked := []string{}
	for _, a := range CheckAchievements(gam) {
		if have[a] {
			continue
		}
		if err := ledger.AwardAchievement(ctx, gam.UserID, a); err != nil {
			log.Printf("[gamification] failed to award %s to user %d: %v", a, gam.UserID, err)
			continue
		}
		if err := ledger.LogXPEvent(ctx, gam.UserID, "achievement_unlocked", 0, map[string]interface{}{
			"achievement": a,
		}); err != nil {
			log.Printf("[gamification] failed to log %s unlock for user %d: %v", a, gam.UserID, err)
		}
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// ── Get Gamification State ──────────────────────────────

func (s *Service) GetGamification(ctx context.Context, userID int64) (*models.GamificationResponse, error) {
	gam, err := s.store.GetGamification(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.store.GetUserAchievements(ctx, userID)
	if err != nil {
		achievements = []string{}
	}
	weekly, _ := s.store.GetWeeklyXP(ctx, userID)
	recent, err := s.store.GetRecentResults(ctx, userID, 10)
	if err != nil {
		log.Printf("[gamification] failed to load recent results for user %d: %v", userID, err)
		recent = []models.PracticeResult{}
	}

	streak := gam.CurrentStreak
	if !StreakAlive(gam.LastActiveDate, s.now()) {
		streak = 0
	}

	level, into, next := LevelForXP(gam.TotalXP)
	return &models.GamificationResponse{
		TotalXP:            gam.TotalXP,
		WeeklyXP:           weekly,
		Level:              level,
		XPIntoLevel:        into,
		XPForNextLevel:     next,
		CurrentStreak:      streak,
		LongestStreak:      gam.LongestStreak,
		SessionsCompleted:  gam.SessionsCompleted,
		PerfectSessions:    gam.PerfectSessions,
		SlotsAnsweredTotal: gam.SlotsAnsweredTotal,
		SlotsCorrectTotal:  gam.SlotsCorrectTotal,
		Achievements:       achievements,
		RecentResults:      recent,
	}, nil
}

// ── Leaderboard ─────────────────────────────────────────

func (s *Service) GetGlobalLeaderboard(ctx context.Context, userID int64, limit int) (*models.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = 20
	}

	entries, err := s.store.GetGlobalLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	found := false
	for i := range entries {
		if entries[i].UserID == userID {
			entries[i].IsCurrentUser = true
			found = true
		}
	}

	var currentUser *models.LeaderboardEntry
	if !found {
		rank, _ := s.store.GetUserRank(ctx, userID)
		if rank > 0 {
			weekly, _ := s.store.GetWeeklyXP(ctx, userID)
			currentUser = &models.LeaderboardEntry{
				Rank:          rank,
				UserID:        userID,
				WeeklyXP:      weekly,
				IsCurrentUser: true,
			}
		}
	}

	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	return &models.LeaderboardResponse{
		Period:      "weekly",
		Entries:     entries,
		CurrentUser: currentUser,
	}, nil
}
