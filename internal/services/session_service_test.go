package services

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type stubSessionStore struct {
	mu       sync.Mutex
	sessions []SessionState
	results  []CandidateResult

	saveErr error
}

func (s *stubSessionStore) SaveSession(st *SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions = append(s.sessions, cloneSessionState(*st))
	return nil
}

func (s *stubSessionStore) UpsertResult(r *CandidateResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, *r)
	return nil
}

func (s *stubSessionStore) lastSession(t *testing.T) SessionState {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		t.Fatal("no session writes recorded")
	}
	return s.sessions[len(s.sessions)-1]
}

func (s *stubSessionStore) resultCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func fixedSlate(seconds ...int) []Question {
	difficulties := []Difficulty{DifficultyEasy, DifficultyEasy, DifficultyMedium, DifficultyMedium, DifficultyHard, DifficultyHard}
	qs := make([]Question, len(seconds))
	for i, sec := range seconds {
		qs[i] = Question{
			ID:             "q" + itoa(i),
			Text:           "question " + itoa(i),
			Difficulty:     difficulties[i%len(difficulties)],
			SecondsAllowed: sec,
		}
	}
	return qs
}

func newTestService(store *stubSessionStore, restored SessionState) *SessionService {
	svc := NewSessionService(store, restored)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	id := 0
	svc.newID = func() string {
		id++
		return "id-" + itoa(id)
	}
	svc.generate = func() []Question { return fixedSlate(20, 20, 60, 60, 120, 120) }
	return svc
}

func validProfile() CandidateProfile {
	return CandidateProfile{Name: "Jane Doe", Email: "jane@example.com", Phone: "555-123-4567"}
}

func TestStartCreatesSession(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	view, err := svc.Start(validProfile())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.State != "in_progress" {
		t.Fatalf("state=%q", view.State)
	}
	if view.CurrentIndex != 0 {
		t.Fatalf("current index=%d", view.CurrentIndex)
	}
	if view.Question == nil || view.Question.ID != "q0" {
		t.Fatalf("question=%+v", view.Question)
	}
	if len(view.ChatHistory) != 1 || !strings.Contains(view.ChatHistory[0].Text, "Welcome Jane Doe") {
		t.Fatalf("chat history=%+v", view.ChatHistory)
	}
	if view.Profile == nil || view.Profile.Phone != "5551234567" {
		t.Fatalf("profile phone not normalized: %+v", view.Profile)
	}

	svc.Shutdown()
	saved := store.lastSession(t)
	if saved.Progress == nil || len(saved.Progress.Questions) != 6 {
		t.Fatalf("saved progress=%+v", saved.Progress)
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	if _, err := svc.Start(validProfile()); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, err := svc.Start(validProfile())
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestStartRejectsInvalidProfile(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	_, err := svc.Start(CandidateProfile{Name: "", Email: "jane@example.com", Phone: "5551234567"})
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("got %v, want invalid", err)
	}
}

func TestSubmitFullInterview(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	if _, err := svc.Start(validProfile()); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 6; i++ {
		if err := svc.Submit(i, "an answer with a handful of words in it"); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	view := svc.View()
	if view.State != "completed" {
		t.Fatalf("state=%q", view.State)
	}
	if view.CurrentIndex != 6 {
		t.Fatalf("current index=%d", view.CurrentIndex)
	}
	last := view.ChatHistory[len(view.ChatHistory)-1]
	if !strings.Contains(last.Text, "interview is complete") {
		t.Fatalf("final message=%q", last.Text)
	}

	svc.Shutdown()
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.results) != 1 {
		t.Fatalf("results=%d, want 1", len(store.results))
	}
	r := store.results[0]
	if r.Name != "Jane Doe" || len(r.QA) != 6 {
		t.Fatalf("result=%+v", r)
	}
	if r.Score < 0 || r.Score > 100 {
		t.Fatalf("score=%d out of range", r.Score)
	}
	if r.Summary == "" {
		t.Fatal("empty summary")
	}
}

func TestSubmitAfterCompletionConflicts(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	for i := 0; i < 6; i++ {
		svc.Submit(i, "answer")
	}
	err := svc.Submit(6, "late")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestSubmitPastIndexIsSilentNoop(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	if err := svc.Submit(0, "first"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Submit(0, "duplicate"); err != nil {
		t.Fatalf("duplicate submit should be a no-op, got %v", err)
	}
	view := svc.View()
	if view.CurrentIndex != 1 {
		t.Fatalf("current index=%d, want 1", view.CurrentIndex)
	}
}

func TestFinalQuestionDoubleSubmit(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	svc.Start(validProfile())
	for i := 0; i < 5; i++ {
		svc.Submit(i, "answer")
	}
	if err := svc.Submit(5, "timeout draft"); err != nil {
		t.Fatalf("final submit: %v", err)
	}
	// The slower side of a timer/user race on the last question must land
	// as a no-op even though the winner completed the session.
	if err := svc.Submit(5, "user click"); err != nil {
		t.Fatalf("duplicate final submit should be a no-op, got %v", err)
	}

	view := svc.View()
	if view.State != "completed" || view.CurrentIndex != 6 {
		t.Fatalf("view=%+v", view)
	}
	svc.mu.Lock()
	answers := append([]Answer(nil), svc.state.Progress.Answers...)
	svc.mu.Unlock()
	if len(answers) != 6 || answers[5].AnswerText != "timeout draft" {
		t.Fatalf("answers=%+v", answers)
	}

	svc.Shutdown()
	if store.resultCount() != 1 {
		t.Fatalf("results=%d, want 1", store.resultCount())
	}
}

func TestSubmitFutureIndexRejected(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	err := svc.Submit(3, "skipping ahead")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("got %v, want invalid", err)
	}
}

func TestSubmitAdvancesWithQuestionMessage(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	svc.Submit(0, "answer")
	view := svc.View()
	last := view.ChatHistory[len(view.ChatHistory)-1]
	if last.Text != "Question 2 of 6: question 1" {
		t.Fatalf("message=%q", last.Text)
	}
}

func TestTimeoutSubmitsDraft(t *testing.T) {
	store := &stubSessionStore{}
	svc := NewSessionService(store, SessionState{})
	defer svc.Shutdown()
	svc.generate = func() []Question { return fixedSlate(1, 60, 60, 60, 60, 60) }

	if _, err := svc.Start(validProfile()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := svc.UpdateDraft("typed but never submitted"); err != nil {
		t.Fatalf("draft: %v", err)
	}
	time.Sleep(1300 * time.Millisecond)

	view := svc.View()
	if view.CurrentIndex != 1 {
		t.Fatalf("current index=%d, want 1 after timeout", view.CurrentIndex)
	}
	if view.Draft != "" {
		t.Fatalf("draft not cleared: %q", view.Draft)
	}

	svc.mu.Lock()
	answers := append([]Answer(nil), svc.state.Progress.Answers...)
	svc.mu.Unlock()
	if len(answers) != 1 {
		t.Fatalf("answers=%d, want exactly 1", len(answers))
	}
	if answers[0].AnswerText != "typed but never submitted" {
		t.Fatalf("answer text=%q", answers[0].AnswerText)
	}
	if answers[0].TimeTakenSec != 1 {
		t.Fatalf("time taken=%d, want 1", answers[0].TimeTakenSec)
	}
}

func TestPauseBlocksSubmitAndCancelsTimer(t *testing.T) {
	svc := NewSessionService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()
	svc.generate = func() []Question { return fixedSlate(1, 60, 60, 60, 60, 60) }

	svc.Start(validProfile())
	if err := svc.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	time.Sleep(1300 * time.Millisecond)

	view := svc.View()
	if view.CurrentIndex != 0 {
		t.Fatalf("timer fired while paused, index=%d", view.CurrentIndex)
	}
	err := svc.Submit(0, "while paused")
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorConflict {
		t.Fatalf("got %v, want conflict", err)
	}
	if err := svc.Pause(); err != nil {
		t.Fatalf("second pause should be a no-op, got %v", err)
	}
}

func TestResumeReacceptsSubmit(t *testing.T) {
	svc := newTestService(&stubSessionStore{}, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	svc.Pause()
	if err := svc.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := svc.Submit(0, "after resume"); err != nil {
		t.Fatalf("submit after resume: %v", err)
	}
	if view := svc.View(); view.PausedAt != nil {
		t.Fatalf("still paused: %+v", view.PausedAt)
	}
}

func TestPauseFreezesRemaining(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})
	defer svc.Shutdown()
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	svc.Start(validProfile())
	current = current.Add(5 * time.Second)
	if err := svc.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}

	current = current.Add(100 * time.Second)
	if got := svc.View().RemainingSec; got != 15 {
		t.Fatalf("remaining while paused=%d, want 15", got)
	}

	if err := svc.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := svc.View().RemainingSec; got != 15 {
		t.Fatalf("remaining after resume=%d, want 15", got)
	}

	// time spent paused does not count against the answer
	if err := svc.Submit(0, "answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	svc.mu.Lock()
	taken := svc.state.Progress.Answers[0].TimeTakenSec
	svc.mu.Unlock()
	if taken != 5 {
		t.Fatalf("time taken=%d, want 5", taken)
	}
}

func TestResultWriteSurvivesFullQueue(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	svc.Start(validProfile())
	for i := 0; i < 5; i++ {
		svc.Submit(i, "answer")
	}

	// jam the writer, then fill the queue so session writes start dropping
	gate := make(chan struct{})
	svc.enqueue(func() { <-gate })
	for i := 0; i < cap(svc.writes)+8; i++ {
		svc.enqueue(func() {})
	}

	done := make(chan struct{})
	go func() {
		svc.Submit(5, "final answer")
		close(done)
	}()

	close(gate)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("final submit never unblocked")
	}

	svc.Shutdown()
	if store.resultCount() != 1 {
		t.Fatalf("results=%d, want 1 even with a full queue", store.resultCount())
	}
}

func TestResetClearsEverything(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	svc.Start(validProfile())
	svc.Submit(0, "answer")
	svc.Reset()

	view := svc.View()
	if view.State != "not_started" || view.Profile != nil {
		t.Fatalf("view after reset=%+v", view)
	}

	svc.Shutdown()
	saved := store.lastSession(t)
	if saved.Profile != nil || saved.Progress != nil {
		t.Fatalf("saved state not cleared: %+v", saved)
	}
}

func TestRestoredLiveSessionIsPaused(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	qStarted := started
	restored := SessionState{
		Profile: &CandidateProfile{ID: "cand-1", Name: "Jane Doe", Email: "jane@example.com", Phone: "5551234567"},
		Progress: &InterviewProgress{
			CurrentIndex:      2,
			StartedAt:         started,
			Questions:         fixedSlate(20, 20, 60, 60, 120, 120),
			Answers:           []Answer{{QuestionID: "q0"}, {QuestionID: "q1"}},
			QuestionStartedAt: &qStarted,
		},
	}
	svc := NewSessionService(&stubSessionStore{}, restored)
	defer svc.Shutdown()

	view := svc.View()
	if view.PausedAt == nil {
		t.Fatal("restored live session should come back paused")
	}
	if view.CurrentIndex != 2 {
		t.Fatalf("current index=%d", view.CurrentIndex)
	}
}

func TestRestoredCompletedSessionNotPaused(t *testing.T) {
	done := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	restored := SessionState{
		Profile: &CandidateProfile{ID: "cand-1", Name: "Jane Doe", Email: "jane@example.com", Phone: "5551234567"},
		Progress: &InterviewProgress{
			CurrentIndex: 6,
			Questions:    fixedSlate(20, 20, 60, 60, 120, 120),
			CompletedAt:  &done,
		},
	}
	svc := NewSessionService(&stubSessionStore{}, restored)
	defer svc.Shutdown()

	view := svc.View()
	if view.State != "completed" {
		t.Fatalf("state=%q", view.State)
	}
	if view.PausedAt != nil {
		t.Fatal("completed session must not be flagged paused")
	}
}

func TestShutdownPausesAndFlushes(t *testing.T) {
	store := &stubSessionStore{}
	svc := newTestService(store, SessionState{})

	svc.Start(validProfile())
	svc.Shutdown()

	saved := store.lastSession(t)
	if saved.PausedAt == nil {
		t.Fatal("shutdown should pause the live session")
	}
	if saved.Progress == nil || saved.Progress.CurrentIndex != 0 {
		t.Fatalf("saved progress=%+v", saved.Progress)
	}
}

func TestSaveErrorDoesNotBlockProgress(t *testing.T) {
	store := &stubSessionStore{saveErr: errors.New("disk full")}
	svc := newTestService(store, SessionState{})
	defer svc.Shutdown()

	svc.Start(validProfile())
	if err := svc.Submit(0, "answer"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if view := svc.View(); view.CurrentIndex != 1 {
		t.Fatalf("current index=%d", view.CurrentIndex)
	}
}
