package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/swipehire/interview-assistant/internal/services"
)

// SQLiteStore is the durable store behind the interview service: the list of
// finished candidate results (written by upsert only), the single in-flight
// session row, and reviewer accounts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	if err := RunMigrations(db, ""); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LoadSnapshot performs the single full read at startup.
func (s *SQLiteStore) LoadSnapshot() (*services.Snapshot, error) {
	results, err := s.ListResults()
	if err != nil {
		return nil, err
	}
	session, err := s.loadSession()
	if err != nil {
		return nil, err
	}
	return &services.Snapshot{Results: results, Session: *session}, nil
}

func (s *SQLiteStore) loadSession() (*services.SessionState, error) {
	var profileJSON, progressJSON sql.NullString
	var pausedAt sql.NullTime
	err := s.db.QueryRow("SELECT profile, progress, paused_at FROM session WHERE id = 1").
		Scan(&profileJSON, &progressJSON, &pausedAt)
	if err == sql.ErrNoRows {
		return &services.SessionState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}

	st := &services.SessionState{}
	if profileJSON.Valid && profileJSON.String != "" {
		var p services.CandidateProfile
		if err := json.Unmarshal([]byte(profileJSON.String), &p); err != nil {
			return nil, fmt.Errorf("decode session profile: %w", err)
		}
		st.Profile = &p
	}
	if progressJSON.Valid && progressJSON.String != "" {
		var p services.InterviewProgress
		if err := json.Unmarshal([]byte(progressJSON.String), &p); err != nil {
			return nil, fmt.Errorf("decode session progress: %w", err)
		}
		st.Progress = &p
	}
	if pausedAt.Valid {
		t := pausedAt.Time
		st.PausedAt = &t
	}
	return st, nil
}

// SaveSession writes through the in-flight session state. NULL columns mean
// no active session.
func (s *SQLiteStore) SaveSession(st *services.SessionState) error {
	var profileJSON, progressJSON any
	if st.Profile != nil {
		b, err := json.Marshal(st.Profile)
		if err != nil {
			return fmt.Errorf("encode session profile: %w", err)
		}
		profileJSON = string(b)
	}
	if st.Progress != nil {
		b, err := json.Marshal(st.Progress)
		if err != nil {
			return fmt.Errorf("encode session progress: %w", err)
		}
		progressJSON = string(b)
	}
	var pausedAt any
	if st.PausedAt != nil {
		pausedAt = *st.PausedAt
	}
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO session (id, profile, progress, paused_at) VALUES (1, ?, ?, ?)",
		profileJSON, progressJSON, pausedAt)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// UpsertResult inserts or replaces the result keyed by candidate id. There is
// no deletion path.
func (s *SQLiteStore) UpsertResult(r *services.CandidateResult) error {
	chatJSON, err := json.Marshal(r.ChatHistory)
	if err != nil {
		return fmt.Errorf("encode chat history: %w", err)
	}
	qaJSON, err := json.Marshal(r.QA)
	if err != nil {
		return fmt.Errorf("encode qa: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO results (id, name, email, phone, score, summary, chat_history, qa, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name, email = excluded.email, phone = excluded.phone,
            score = excluded.score, summary = excluded.summary,
            chat_history = excluded.chat_history, qa = excluded.qa,
            updated_at = excluded.updated_at`,
		r.ID, r.Name, r.Email, r.Phone, r.Score, r.Summary, string(chatJSON), string(qaJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert result %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListResults() ([]*services.CandidateResult, error) {
	rows, err := s.db.Query("SELECT id, name, email, phone, score, summary, chat_history, qa FROM results ORDER BY updated_at")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []*services.CandidateResult
	for rows.Next() {
		r, err := scanResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLiteStore) GetResult(id string) (*services.CandidateResult, error) {
	row := s.db.QueryRow("SELECT id, name, email, phone, score, summary, chat_history, qa FROM results WHERE id = ?", id)
	r, err := scanResult(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func scanResult(scan func(dest ...any) error) (*services.CandidateResult, error) {
	var r services.CandidateResult
	var chatJSON, qaJSON string
	if err := scan(&r.ID, &r.Name, &r.Email, &r.Phone, &r.Score, &r.Summary, &chatJSON, &qaJSON); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(chatJSON), &r.ChatHistory); err != nil {
		return nil, fmt.Errorf("decode chat history for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(qaJSON), &r.QA); err != nil {
		return nil, fmt.Errorf("decode qa for %s: %w", r.ID, err)
	}
	return &r, nil
}

func (s *SQLiteStore) FindReviewerByEmail(email string) (*services.Reviewer, error) {
	var r services.Reviewer
	err := s.db.QueryRow("SELECT id, email, pass_hash, created_at FROM reviewers WHERE email = ?", email).
		Scan(&r.ID, &r.Email, &r.PassHash, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reviewer: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) AddReviewer(r *services.Reviewer) error {
	_, err := s.db.Exec("INSERT INTO reviewers (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.Email, r.PassHash, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reviewer: %w", err)
	}
	return nil
}
