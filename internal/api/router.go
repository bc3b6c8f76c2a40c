package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/swipehire/interview-assistant/internal/middleware"
	"github.com/swipehire/interview-assistant/internal/services"
)

// Resume uploads larger than this are rejected outright.
const maxResumeBytes = 10 << 20

type Router struct {
	sessions   *services.SessionService
	candidates *services.CandidateService
	auth       *services.AuthService
}

func NewRouter(sessions *services.SessionService, candidates *services.CandidateService, auth *services.AuthService) *Router {
	return &Router{sessions: sessions, candidates: candidates, auth: auth}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/register", rt.handleRegister)   // POST
	mux.HandleFunc("/api/auth/login", rt.handleLogin)         // POST
	mux.HandleFunc("/api/resume", rt.handleResume)            // POST multipart
	mux.HandleFunc("/api/session", rt.handleSession)          // GET
	mux.HandleFunc("/api/session/start", rt.handleStart)      // POST
	mux.HandleFunc("/api/session/answer", rt.handleAnswer)    // POST
	mux.HandleFunc("/api/session/draft", rt.handleDraft)      // POST
	mux.HandleFunc("/api/session/pause", rt.handlePause)      // POST
	mux.HandleFunc("/api/session/resume", rt.handleSessionResume)   // POST
	mux.HandleFunc("/api/session/reset", rt.handleReset)      // POST
	mux.Handle("/api/candidates", middleware.RequireAuth(http.HandlerFunc(rt.handleCandidates)))        // GET
	mux.Handle("/api/candidates/export", middleware.RequireAuth(http.HandlerFunc(rt.handleExport)))     // GET
	mux.Handle("/api/candidates/", middleware.RequireAuth(http.HandlerFunc(rt.handleCandidateDetail))) // GET /api/candidates/{id}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		http.Error(w, se.Message, status)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Register(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := rt.auth.Login(req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"token": res.Token, "user_id": res.UserID})
}

// POST /api/resume — multipart upload, field "file". Returns inferred fields
// the UI offers as pre-filled (and overridable) values. Extraction problems
// never block the flow: the response always leaves manual entry open.
func (rt *Router) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxResumeBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field required", http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxResumeBytes))
	if err != nil {
		http.Error(w, "read upload", http.StatusBadRequest)
		return
	}

	profile, err := services.ParseResume(data, header.Filename)
	switch {
	case errors.Is(err, services.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, services.ErrExtractionFailure):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, services.ErrEmptyExtraction):
		writeJSON(w, map[string]any{"profile": services.InferredProfile{}, "warning": err.Error()})
		return
	case err != nil:
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"profile": profile})
}

// GET /api/session
func (rt *Router) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, rt.sessions.View())
}

// POST /api/session/start
func (rt *Router) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var profile services.CandidateProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	view, err := rt.sessions.Start(profile)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, view)
}

// POST /api/session/answer — the user-driven submit path.
func (rt *Router) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.sessions.Submit(req.Index, req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rt.sessions.View())
}

// POST /api/session/draft — keeps the server-held answer text current so a
// timeout submits what the candidate had typed.
func (rt *Router) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rt.sessions.UpdateDraft(req.Text); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]bool{"ok": true})
}

func (rt *Router) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := rt.sessions.Pause(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rt.sessions.View())
}

func (rt *Router) handleSessionResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := rt.sessions.Resume(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, rt.sessions.View())
}

func (rt *Router) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rt.sessions.Reset()
	writeJSON(w, rt.sessions.View())
}

// GET /api/candidates?q=&sort=score|name&order=asc|desc
func (rt *Router) handleCandidates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := rt.candidates.List(r.URL.Query().Get("q"), r.URL.Query().Get("sort"), r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"candidates": list})
}

// GET /api/candidates/{id}
func (rt *Router) handleCandidateDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/candidates/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	result, err := rt.candidates.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, result)
}

// GET /api/candidates/export
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	b, err := rt.candidates.ExportCSV()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=candidates.csv")
	_, _ = w.Write(b)
}
