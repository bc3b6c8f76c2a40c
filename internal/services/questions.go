package services

import (
	"math/rand"

	"github.com/google/uuid"
)

// questionBank holds the canned question texts per tier. Sampling is uniform
// with replacement, so one session may see the same text twice; the uuid
// identity keeps the two slots individually addressable.
var questionBank = map[Difficulty][]string{
	DifficultyEasy: {
		"What is React state and how do you update it?",
		"Explain the difference between let, const, and var.",
		"What is a REST API?",
	},
	DifficultyMedium: {
		"How does React reconciliation work? Explain keys.",
		"Explain async/await and the event loop in Node.js.",
		"How would you design pagination for a large list?",
	},
	DifficultyHard: {
		"How would you architect SSR + CSR for a React/Node app?",
		"Explain horizontal scaling and stateless services with session storage.",
		"Design a rate limiter for an API gateway in Node.js.",
	},
}

// interviewPlan fixes the slate: two easy, two medium, two hard, in that
// order, with the per-tier time budgets.
var interviewPlan = []struct {
	difficulty Difficulty
	seconds    int
}{
	{DifficultyEasy, 20},
	{DifficultyEasy, 20},
	{DifficultyMedium, 60},
	{DifficultyMedium, 60},
	{DifficultyHard, 120},
	{DifficultyHard, 120},
}

type QuestionGenerator struct {
	pick  func(n int) int
	newID func() string
}

func NewQuestionGenerator() *QuestionGenerator {
	return &QuestionGenerator{
		pick:  rand.Intn,
		newID: uuid.NewString,
	}
}

// Generate produces the six-question slate for one session. Every question
// gets a fresh ID regardless of sampled text.
func (g *QuestionGenerator) Generate() []Question {
	questions := make([]Question, 0, len(interviewPlan))
	for _, slot := range interviewPlan {
		bank := questionBank[slot.difficulty]
		questions = append(questions, Question{
			ID:             g.newID(),
			Text:           bank[g.pick(len(bank))],
			Difficulty:     slot.difficulty,
			SecondsAllowed: slot.seconds,
		})
	}
	return questions
}
