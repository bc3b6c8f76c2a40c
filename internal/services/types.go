package services

import "time"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is immutable once generated. Identity is the generated ID, never
// the text: two questions sampled with the same text stay distinguishable.
type Question struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Difficulty     Difficulty `json:"difficulty"`
	SecondsAllowed int        `json:"seconds_allowed"`
}

// Answer is created once per question and never mutated. Difficulty and
// SecondsAllowed are snapshotted from the question at submission time so that
// scoring never re-joins against the live question list.
type Answer struct {
	QuestionID     string     `json:"question_id"`
	AnswerText     string     `json:"answer_text"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	TimeTakenSec   int        `json:"time_taken_sec"`
	Difficulty     Difficulty `json:"difficulty"`
	SecondsAllowed int        `json:"seconds_allowed"`
}

type ChatRole string

const (
	RoleSystem    ChatRole = "system"
	RoleAssistant ChatRole = "assistant"
	RoleUser      ChatRole = "user"
)

// ChatMessage entries form an append-only transcript in insertion order.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      ChatRole  `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CandidateProfile is mutable only before a session starts; once Start
// succeeds it is frozen as the identity of the produced result.
type CandidateProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// InterviewProgress is the in-flight record of one session. Invariants:
// 0 <= CurrentIndex <= len(Questions); len(Answers) == CurrentIndex until
// completion; QuestionStartedAt is nil whenever no timer is running.
type InterviewProgress struct {
	CurrentIndex      int           `json:"current_index"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	Questions         []Question    `json:"questions"`
	Answers           []Answer      `json:"answers"`
	ChatHistory       []ChatMessage `json:"chat_history"`
	QuestionStartedAt *time.Time    `json:"question_started_at,omitempty"`
}

// QA pairs an answer with its originating question and resolved score.
type QA struct {
	Question     Question `json:"question"`
	AnswerText   string   `json:"answer_text"`
	Score        int      `json:"score"`
	TimeTakenSec int      `json:"time_taken_sec"`
}

// CandidateResult is created exactly once at completion and upserted by
// profile ID.
type CandidateResult struct {
	CandidateProfile
	Score       int           `json:"score"`
	Summary     string        `json:"summary"`
	ChatHistory []ChatMessage `json:"chat_history"`
	QA          []QA          `json:"qa"`
}

// SessionState is the durable shape of the single in-flight session.
type SessionState struct {
	Profile  *CandidateProfile  `json:"profile,omitempty"`
	Progress *InterviewProgress `json:"progress,omitempty"`
	PausedAt *time.Time         `json:"paused_at,omitempty"`
}

// Snapshot is the full persisted state, read once at startup.
type Snapshot struct {
	Results []*CandidateResult `json:"results"`
	Session SessionState       `json:"session"`
}

// Reviewer is a dashboard account.
type Reviewer struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
