package practice

import "math"

// XPPerCorrect is the flat reward for each correctly answered slot.
const XPPerCorrect = 10

type SessionResult struct {
	CorrectCount int    `json:"correct_count"`
	TotalCount   int    `json:"total_count"`
	Percentage   int    `json:"percentage"`
	XPEarned     int    `json:"xp_earned"`
	Label        string `json:"label"`
}

// Score derives the session outcome from a grading result.
func Score(r GradingResult) SessionResult {
	return SessionResult{
		CorrectCount: r.CorrectCount,
		TotalCount:   r.TotalCount,
		Percentage:   Percentage(r.CorrectCount, r.TotalCount),
		XPEarned:     XPEarned(r.CorrectCount),
		Label:        PerformanceLabel(Percentage(r.CorrectCount, r.TotalCount)),
	}
}

// Percentage rounds 100*correct/total to the nearest integer, clamped to [0,100].
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(correct) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func XPEarned(correct int) int {
	if correct < 0 {
		return 0
	}
	return correct * XPPerCorrect
}

// PerformanceLabel maps a percentage to a display band. Informational only.
func PerformanceLabel(percentage int) string {
	switch {
	case percentage >= 90:
		return "Excellent"
	case percentage >= 80:
		return "Very Good"
	case percentage >= 70:
		return "Good"
	case percentage >= 60:
		return "Fair"
	default:
		return "Keep Practicing"
	}
}
