package gamification

import "time"

// LevelStep is the extra XP each level costs over the previous one:
// level 1 -> 2 needs 100 XP, 2 -> 3 needs 200, and so on.
const LevelStep = 100

// LevelForXP returns the level reached with totalXP, the XP earned inside that
// level and the XP the level needs in full.
func LevelForXP(totalXP int64) (level int, intoLevel, forNext int64) {
	if totalXP < 0 {
		totalXP = 0
	}
	level = 1
	remaining := totalXP
	for {
		need := int64(level * LevelStep)
		if remaining < need {
			return level, remaining, need
		}
		remaining -= need
		level++
	}
}

// NextStreak returns the streak after activity at now. Activity on the same
// UTC day changes nothing; the next day extends the streak; any gap resets it.
func NextStreak(lastActive *time.Time, now time.Time, current int) int {
	today := now.UTC().Truncate(24 * time.Hour)
	if lastActive == nil {
		return 1
	}
	last := lastActive.UTC().Truncate(24 * time.Hour)
	switch days := int(today.Sub(last).Hours() / 24); {
	case days <= 0:
		if current < 1 {
			return 1
		}
		return current
	case days == 1:
		return current + 1
	default:
		return 1
	}
}

// StreakAlive reports whether a streak last extended on lastActive can still
// be extended at now.
func StreakAlive(lastActive *time.Time, now time.Time) bool {
	if lastActive == nil {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	last := lastActive.UTC().Truncate(24 * time.Hour)
	return today.Sub(last) <= 24*time.Hour
}
