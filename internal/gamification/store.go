package gamification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ielts-prep/backend/internal/models"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ── Core Gamification CRUD ──────────────────────────────

func (s *Store) EnsureUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_gamification (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("upsert gamification: %w", err)
	}
	return nil
}

func (s *Store) GetGamification(ctx context.Context, userID int64) (*models.UserGamification, error) {
	if err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	var g models.UserGamification
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, total_xp, current_streak, longest_streak, last_active_date,
		        sessions_completed, perfect_sessions, slots_answered_total, slots_correct_total,
		        created_at, updated_at
		 FROM user_gamification WHERE user_id = $1`,
		userID,
	).Scan(&g.UserID, &g.TotalXP, &g.CurrentStreak, &g.LongestStreak, &g.LastActiveDate,
		&g.SessionsCompleted, &g.PerfectSessions, &g.SlotsAnsweredTotal, &g.SlotsCorrectTotal,
		&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get gamification: %w", err)
	}
	return &g, nil
}

// ── Session Ledger ──────────────────────────────────────

// SaveSessionResult writes the result row, the XP delta, the counters and the
// XP event in one transaction. A session id already on the ledger is left
// untouched and reported as not saved.
func (s *Store) SaveSessionResult(ctx context.Context, res models.PracticeResult) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_gamification (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		res.UserID,
	); err != nil {
		return false, fmt.Errorf("upsert gamification: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO practice_results
		 (session_id, user_id, passage_id, set_id, set_type,
		  correct_count, total_count, percentage, xp_earned, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.UserID, res.PassageID, res.SetID, res.SetType,
		res.CorrectCount, res.TotalCount, res.Percentage, res.XPEarned, res.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert practice result: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return false, nil
	}

	perfect := 0
	if res.TotalCount > 0 && res.CorrectCount == res.TotalCount {
		perfect = 1
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_gamification SET
		    total_xp = total_xp + $2,
		    sessions_completed = sessions_completed + 1,
		    perfect_sessions = perfect_sessions + $3,
		    slots_answered_total = slots_answered_total + $4,
		    slots_correct_total = slots_correct_total + $5,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		res.UserID, res.XPEarned, perfect, res.TotalCount, res.CorrectCount,
	); err != nil {
		return false, fmt.Errorf("apply session totals: %w", err)
	}

	meta, _ := json.Marshal(map[string]interface{}{
		"session_id": res.SessionID,
		"set_id":     res.SetID,
		"set_type":   res.SetType,
		"correct":    res.CorrectCount,
		"total":      res.TotalCount,
	})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		res.UserID, "practice_session", res.XPEarned, string(meta),
	); err != nil {
		return false, fmt.Errorf("log xp event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

func (s *Store) UpdateStreak(ctx context.Context, userID int64, current, longest int, activeOn time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_gamification SET
		    current_streak = $2, longest_streak = $3, last_active_date = $4,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, current, longest, activeOn,
	)
	return err
}

func (s *Store) LogXPEvent(ctx context.Context, userID int64, eventType string, xpAmount int, metadata map[string]interface{}) error {
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err == nil {
			s := string(b)
			metaJSON = &s
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO xp_events (user_id, event_type, xp_amount, metadata)
		 VALUES ($1, $2, $3, $4)`,
		userID, eventType, xpAmount, metaJSON,
	)
	return err
}

func (s *Store) GetWeeklyXP(ctx context.Context, userID int64) (int64, error) {
	var xp int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(xp_amount), 0) FROM xp_events
		 WHERE user_id = $1 AND created_at >= date_trunc('week', NOW())`,
		userID,
	).Scan(&xp)
	return xp, err
}

func (s *Store) GetRecentResults(ctx context.Context, userID int64, limit int) ([]models.PracticeResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, passage_id, set_id, set_type,
		        correct_count, total_count, percentage, xp_earned, completed_at
		 FROM practice_results
		 WHERE user_id = $1
		 ORDER BY completed_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get recent results: %w", err)
	}
	defer rows.Close()

	results := []models.PracticeResult{}
	for rows.Next() {
		var r models.PracticeResult
		if err := rows.Scan(&r.SessionID, &r.UserID, &r.PassageID, &r.SetID, &r.SetType,
			&r.CorrectCount, &r.TotalCount, &r.Percentage, &r.XPEarned, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan practice result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ── Leaderboard ─────────────────────────────────────────

func (s *Store) GetGlobalLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.name, COALESCE(u.username, ''), w.weekly_xp, g.current_streak,
		        ROW_NUMBER() OVER (ORDER BY w.weekly_xp DESC) AS rank
		 FROM (
		     SELECT user_id, SUM(xp_amount) AS weekly_xp
		     FROM xp_events
		     WHERE created_at >= date_trunc('week', NOW())
		     GROUP BY user_id
		 ) w
		 JOIN users u ON u.id = w.user_id
		 JOIN user_gamification g ON g.user_id = w.user_id
		 WHERE w.weekly_xp > 0
		 ORDER BY w.weekly_xp DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get global leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		var fullName string
		if err := rows.Scan(&e.UserID, &fullName, &e.Username, &e.WeeklyXP, &e.CurrentStreak, &e.Rank); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		e.DisplayName = models.User{Name: fullName}.DisplayName()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) GetUserRank(ctx context.Context, userID int64) (int, error) {
	var rank int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(
		    (SELECT rank FROM (
		        SELECT user_id, ROW_NUMBER() OVER (ORDER BY SUM(xp_amount) DESC) AS rank
		        FROM xp_events
		        WHERE created_at >= date_trunc('week', NOW())
		        GROUP BY user_id
		        HAVING SUM(xp_amount) > 0
		    ) r WHERE r.user_id = $1),
		    0
		)`,
		userID,
	).Scan(&rank)
	return rank, err
}

// ── Achievements ────────────────────────────────────────

func (s *Store) GetUserAchievements(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement FROM achievements WHERE user_id = $1 ORDER BY earned_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	achievements := []string{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		achievements = append(achievements, a)
	}
	return achievements, rows.Err()
}

func (s *Store) AwardAchievement(ctx context.Context, userID int64, achievement string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (user_id, achievement) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement) DO NOTHING`,
		userID, achievement,
	)
	return err
}
