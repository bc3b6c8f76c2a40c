package services

import (
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionStore is the durable-write contract the state machine needs. The
// full snapshot is read once at startup; afterwards the two halves of it are
// written through independently as they change.
type SessionStore interface {
	SaveSession(st *SessionState) error
	UpsertResult(r *CandidateResult) error
}

// SessionService owns the single in-flight interview session. Every mutation
// goes through one lock-serialized entry point, so the timer-driven and the
// user-driven submit paths converge; the silent no-op on an already-advanced
// index is the only concession to that race.
type SessionService struct {
	mu    sync.Mutex
	store SessionStore
	state SessionState
	draft string
	timer *time.Timer

	now      func() time.Time
	newID    func() string
	generate func() []Question

	writes chan func()
	closed bool
	done   chan struct{}
}

// NewSessionService restores the given session state (may be zero) and starts
// the background persistence writer. A live unpaused session found on disk is
// marked paused so the resume/reset choice stays explicit after a crash.
func NewSessionService(store SessionStore, restored SessionState) *SessionService {
	s := &SessionService{
		store:    store,
		state:    restored,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		generate: NewQuestionGenerator().Generate,
		writes:   make(chan func(), 128),
		done:     make(chan struct{}),
	}
	if p := s.state.Progress; p != nil && p.CompletedAt == nil && s.state.PausedAt == nil {
		at := s.now()
		s.state.PausedAt = &at
	}
	go s.runWriter()
	return s
}

func (s *SessionService) runWriter() {
	defer close(s.done)
	for fn := range s.writes {
		fn()
	}
}

// enqueue hands a durable write to the background writer. Writes never block
// or roll back an in-memory transition; a full queue skips the intermediate
// session write, which a later write supersedes.
func (s *SessionService) enqueue(fn func()) {
	select {
	case s.writes <- fn:
	default:
		log.Printf("session service: persistence queue full, skipping write")
	}
}

func (s *SessionService) persistSessionLocked() {
	if s.closed {
		return
	}
	st := cloneSessionState(s.state)
	s.enqueue(func() {
		if err := s.store.SaveSession(&st); err != nil {
			log.Printf("session service: save session: %v", err)
		}
	})
}

// persistResultLocked blocks on a full queue instead of dropping: the result
// upsert happens once per session and no later write supersedes it.
func (s *SessionService) persistResultLocked(r *CandidateResult) {
	if s.closed {
		return
	}
	s.writes <- func() {
		if err := s.store.UpsertResult(r); err != nil {
			log.Printf("session service: upsert result %s: %v", r.ID, err)
		}
	}
}

// SessionView is the read model served to the interviewee UI.
type SessionView struct {
	State        string            `json:"state"` // not_started | in_progress | completed
	Profile      *CandidateProfile `json:"profile,omitempty"`
	CurrentIndex int               `json:"current_index"`
	Question     *Question         `json:"question,omitempty"`
	RemainingSec int               `json:"remaining_sec"`
	Draft        string            `json:"draft,omitempty"`
	PausedAt     *time.Time        `json:"paused_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	ChatHistory  []ChatMessage     `json:"chat_history"`
}

func (s *SessionService) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{State: "not_started", PausedAt: s.state.PausedAt, Profile: s.state.Profile, Draft: s.draft}
	p := s.state.Progress
	if p == nil {
		return v
	}
	v.CurrentIndex = p.CurrentIndex
	v.CompletedAt = p.CompletedAt
	v.ChatHistory = append([]ChatMessage(nil), p.ChatHistory...)
	if p.CompletedAt != nil {
		v.State = "completed"
		return v
	}
	v.State = "in_progress"
	q := p.Questions[p.CurrentIndex]
	v.Question = &q
	v.RemainingSec = s.remainingLocked()
	return v
}

// remainingLocked reports whole seconds left on the current question's budget.
// While paused the clock reads as of the pause instant, so the value holds
// steady until Resume.
func (s *SessionService) remainingLocked() int {
	p := s.state.Progress
	if p == nil || p.CompletedAt != nil || p.QuestionStartedAt == nil {
		return 0
	}
	ref := s.now()
	if s.state.PausedAt != nil {
		ref = *s.state.PausedAt
	}
	elapsed := int(ref.Sub(*p.QuestionStartedAt).Seconds())
	remaining := p.Questions[p.CurrentIndex].SecondsAllowed - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Start freezes the profile as the session identity, generates the slate and
// arms the first question's timer. Valid only when no session exists.
func (s *SessionService) Start(profile CandidateProfile) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Progress != nil {
		if s.state.Progress.CompletedAt != nil {
			return SessionView{}, NewConflictError("previous interview not cleared, reset first")
		}
		return SessionView{}, NewConflictError("an interview is already in progress")
	}
	if err := ValidateProfile(profile); err != nil {
		return SessionView{}, err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Email = strings.TrimSpace(profile.Email)
	profile.Phone = NormalizePhone(profile.Phone)
	if profile.ID == "" {
		profile.ID = s.newID()
	}

	now := s.now()
	startedAt := now
	welcome := ChatMessage{
		ID:        s.newID(),
		Role:      RoleAssistant,
		Text:      "Welcome " + profile.Name + "! You will answer 6 timed questions of increasing difficulty. Each question's timer starts the moment it appears, and the answer is submitted automatically when time runs out. Good luck!",
		Timestamp: now,
	}
	s.state = SessionState{
		Profile: &profile,
		Progress: &InterviewProgress{
			CurrentIndex:      0,
			StartedAt:         startedAt,
			Questions:         s.generate(),
			Answers:           []Answer{},
			ChatHistory:       []ChatMessage{welcome},
			QuestionStartedAt: &startedAt,
		},
	}
	s.draft = ""
	s.armTimerLocked(0, time.Duration(s.state.Progress.Questions[0].SecondsAllowed)*time.Second)
	s.persistSessionLocked()
	return s.viewLocked(), nil
}

func (s *SessionService) viewLocked() SessionView {
	// View re-acquires the lock; build inline instead.
	p := s.state.Progress
	v := SessionView{State: "in_progress", Profile: s.state.Profile, CurrentIndex: p.CurrentIndex, ChatHistory: append([]ChatMessage(nil), p.ChatHistory...)}
	q := p.Questions[p.CurrentIndex]
	v.Question = &q
	v.RemainingSec = s.remainingLocked()
	return v
}

// UpdateDraft holds the answer text the timeout path will submit.
func (s *SessionService) UpdateDraft(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Progress
	if p == nil || p.CompletedAt != nil {
		return NewConflictError("no interview in progress")
	}
	s.draft = text
	return nil
}

// Submit records the answer for the question at index. A call for an index
// the session has already advanced past is a silent no-op; that is the guard
// against a timer-driven and a user-driven submit firing for the same
// question. Any other misuse is surfaced.
func (s *SessionService) Submit(index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitLocked(index, text)
}

func (s *SessionService) submitLocked(index int, text string) error {
	p := s.state.Progress
	if p == nil {
		return NewConflictError("no interview in progress")
	}
	if index < p.CurrentIndex {
		// Already answered. The losing side of a timer/user race lands
		// here, including a duplicate submit for the final question after
		// its winner completed the session.
		return nil
	}
	if p.CompletedAt != nil {
		return NewConflictError("no interview in progress")
	}
	if s.state.PausedAt != nil {
		return NewConflictError("interview is paused")
	}
	if index != p.CurrentIndex {
		return NewInvalidError("question is not active yet")
	}

	now := s.now()
	elapsed := 0
	if p.QuestionStartedAt != nil {
		elapsed = int(now.Sub(*p.QuestionStartedAt).Seconds())
	}
	q := p.Questions[index]
	p.Answers = append(p.Answers, Answer{
		QuestionID:     q.ID,
		AnswerText:     text,
		SubmittedAt:    now,
		TimeTakenSec:   elapsed,
		Difficulty:     q.Difficulty,
		SecondsAllowed: q.SecondsAllowed,
	})
	s.cancelTimerLocked()
	s.draft = ""

	if index == len(p.Questions)-1 {
		s.completeLocked(now)
	} else {
		p.CurrentIndex++
		p.QuestionStartedAt = &now
		next := p.Questions[p.CurrentIndex]
		s.appendAssistantLocked(now, "Question "+itoa(p.CurrentIndex+1)+" of "+itoa(len(p.Questions))+": "+next.Text)
		s.armTimerLocked(p.CurrentIndex, time.Duration(next.SecondsAllowed)*time.Second)
	}
	s.persistSessionLocked()
	return nil
}

// completeLocked finishes the session: scores every answer against its
// snapshotted question metadata, builds the result record and queues its
// upsert.
func (s *SessionService) completeLocked(now time.Time) {
	p := s.state.Progress
	p.CompletedAt = &now
	p.QuestionStartedAt = nil
	p.CurrentIndex = len(p.Questions)
	s.appendAssistantLocked(now, "That was the last question. Thank you "+s.state.Profile.Name+", your interview is complete and the results have been recorded.")

	scores := make([]int, 0, len(p.Answers))
	qa := make([]QA, 0, len(p.Answers))
	for i, a := range p.Answers {
		score := ScoreAnswer(a.AnswerText, a.Difficulty, a.TimeTakenSec, a.SecondsAllowed)
		scores = append(scores, score)
		qa = append(qa, QA{
			Question:     p.Questions[i],
			AnswerText:   a.AnswerText,
			Score:        score,
			TimeTakenSec: a.TimeTakenSec,
		})
	}
	total := FinalScore(scores)
	result := &CandidateResult{
		CandidateProfile: *s.state.Profile,
		Score:            total,
		Summary:          Summarize(s.state.Profile.Name, total),
		ChatHistory:      append([]ChatMessage(nil), p.ChatHistory...),
		QA:               qa,
	}
	s.persistResultLocked(result)
}

func (s *SessionService) appendAssistantLocked(at time.Time, text string) {
	s.state.Progress.ChatHistory = append(s.state.Progress.ChatHistory, ChatMessage{
		ID:        s.newID(),
		Role:      RoleAssistant,
		Text:      text,
		Timestamp: at,
	})
}

// armTimerLocked schedules the auto-submit for the question at index. The
// callback re-checks index, question identity, pause and completion under the
// lock, so a timer that lost a cancellation race fires as a no-op.
func (s *SessionService) armTimerLocked(index int, d time.Duration) {
	s.cancelTimerLocked()
	questionID := s.state.Progress.Questions[index].ID
	s.timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		p := s.state.Progress
		if p == nil || p.CompletedAt != nil || s.state.PausedAt != nil {
			return
		}
		if p.CurrentIndex != index || p.Questions[index].ID != questionID {
			return
		}
		if err := s.submitLocked(index, s.draft); err != nil {
			log.Printf("session service: timeout submit for question %d: %v", index, err)
		}
	})
}

func (s *SessionService) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pause flags an interrupted-but-resumable session. Progress data is left
// untouched; only the timer is disarmed.
func (s *SessionService) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked()
}

func (s *SessionService) pauseLocked() error {
	p := s.state.Progress
	if p == nil || p.CompletedAt != nil {
		return NewConflictError("no interview in progress")
	}
	if s.state.PausedAt != nil {
		return nil
	}
	at := s.now()
	s.state.PausedAt = &at
	s.cancelTimerLocked()
	s.persistSessionLocked()
	return nil
}

// Resume clears the pause flag and re-arms the timer with the budget frozen
// at pause time. The question clock is shifted forward so time spent paused
// does not count against the answer.
func (s *SessionService) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Progress
	if p == nil || p.CompletedAt != nil {
		return NewConflictError("no interview in progress")
	}
	if s.state.PausedAt == nil {
		return nil
	}
	remaining := s.remainingLocked()
	s.state.PausedAt = nil
	if p.QuestionStartedAt != nil {
		spent := p.Questions[p.CurrentIndex].SecondsAllowed - remaining
		at := s.now().Add(-time.Duration(spent) * time.Second)
		p.QuestionStartedAt = &at
	}
	s.armTimerLocked(p.CurrentIndex, time.Duration(remaining)*time.Second)
	s.persistSessionLocked()
	return nil
}

// Reset unconditionally discards profile and progress from any state.
func (s *SessionService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelTimerLocked()
	s.state = SessionState{}
	s.draft = ""
	s.persistSessionLocked()
}

// Shutdown auto-pauses a live session and flushes pending writes. Called on
// process teardown; the final session state is written synchronously.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	if p := s.state.Progress; p != nil && p.CompletedAt == nil && s.state.PausedAt == nil {
		at := s.now()
		s.state.PausedAt = &at
		s.cancelTimerLocked()
	}
	st := cloneSessionState(s.state)
	s.closed = true
	close(s.writes)
	s.mu.Unlock()

	<-s.done
	if err := s.store.SaveSession(&st); err != nil {
		log.Printf("session service: final save: %v", err)
	}
}

func cloneSessionState(st SessionState) SessionState {
	out := st
	if st.Profile != nil {
		p := *st.Profile
		out.Profile = &p
	}
	if st.PausedAt != nil {
		t := *st.PausedAt
		out.PausedAt = &t
	}
	if st.Progress != nil {
		pr := *st.Progress
		pr.Questions = append([]Question(nil), st.Progress.Questions...)
		pr.Answers = append([]Answer(nil), st.Progress.Answers...)
		pr.ChatHistory = append([]ChatMessage(nil), st.Progress.ChatHistory...)
		if st.Progress.CompletedAt != nil {
			t := *st.Progress.CompletedAt
			pr.CompletedAt = &t
		}
		if st.Progress.QuestionStartedAt != nil {
			t := *st.Progress.QuestionStartedAt
			pr.QuestionStartedAt = &t
		}
		out.Progress = &pr
	}
	return out
}
