package services

import (
	"fmt"
	"math"
	"strings"
)

// ScoreAnswer computes the per-question score. Length rewards up to ~50 words,
// time is a multiplier that degrades to a floor of 0.5 when the budget is
// overrun; finishing at or under budget always yields factor 1 (the raw ratio
// can exceed 1 for early answers, the upper clamp is authoritative).
func ScoreAnswer(answerText string, difficulty Difficulty, timeTakenSec, secondsAllowed int) int {
	trimmed := strings.TrimSpace(answerText)
	if trimmed == "" {
		return 0
	}
	words := len(strings.Fields(trimmed))
	lengthScore := math.Min(float64(words)/50, 1)

	timeFactor := 1 - float64(timeTakenSec-secondsAllowed)/float64(secondsAllowed)
	timeFactor = math.Max(0.5, math.Min(1, timeFactor))

	base := 10.0
	switch difficulty {
	case DifficultyMedium:
		base = 20
	case DifficultyHard:
		base = 30
	}
	return int(math.Round(base * lengthScore * timeFactor))
}

// FinalScore sums per-question scores and clamps into 0..100.
func FinalScore(scores []int) int {
	total := 0
	for _, s := range scores {
		total += s
	}
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// Summarize selects one of four narrative templates by score band.
func Summarize(name string, total int) string {
	switch {
	case total >= 80:
		return fmt.Sprintf("%s shows strong full-stack proficiency and clear communication.", name)
	case total >= 60:
		return fmt.Sprintf("%s demonstrates solid fundamentals with room to deepen system design.", name)
	case total >= 40:
		return fmt.Sprintf("%s has core knowledge; would benefit from more practical experience.", name)
	default:
		return fmt.Sprintf("%s needs improvement across React/Node basics and problem solving.", name)
	}
}
