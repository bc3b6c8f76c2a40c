package services

import (
	"sort"
	"strings"
)

type CandidateStore interface {
	ListResults() ([]*CandidateResult, error)
	GetResult(id string) (*CandidateResult, error)
}

// CandidateService serves the reviewer dashboard: browse finished results,
// search by name or email, sort by score or name.
type CandidateService struct {
	store CandidateStore
}

func NewCandidateService(store CandidateStore) *CandidateService {
	return &CandidateService{store: store}
}

// CandidateSummary is the list-row view; the transcript and per-question
// detail stay behind Get.
type CandidateSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Score   int    `json:"score"`
	Summary string `json:"summary"`
}

// List returns candidate summaries filtered by a case-insensitive substring
// over name and email. sortBy is "score" (default, descending) or "name"
// (ascending); order "asc"/"desc" overrides the default direction.
func (s *CandidateService) List(query, sortBy, order string) ([]CandidateSummary, error) {
	results, err := s.store.ListResults()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]CandidateSummary, 0, len(results))
	for _, r := range results {
		if q != "" && !strings.Contains(strings.ToLower(r.Name), q) && !strings.Contains(strings.ToLower(r.Email), q) {
			continue
		}
		out = append(out, CandidateSummary{ID: r.ID, Name: r.Name, Email: r.Email, Phone: r.Phone, Score: r.Score, Summary: r.Summary})
	}

	asc := order == "asc"
	switch sortBy {
	case "name":
		if order == "" {
			asc = true
		}
		sort.SliceStable(out, func(i, j int) bool {
			less := strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
			if asc {
				return less
			}
			return !less
		})
	default: // score
		sort.SliceStable(out, func(i, j int) bool {
			if asc {
				return out[i].Score < out[j].Score
			}
			return out[i].Score > out[j].Score
		})
	}
	return out, nil
}

// Get returns the full result record, transcript included.
func (s *CandidateService) Get(id string) (*CandidateResult, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewInvalidError("candidate id required")
	}
	r, err := s.store.GetResult(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("candidate not found")
	}
	return r, nil
}

// ExportCSV renders the filtered, sorted list as CSV using the full records.
func (s *CandidateService) ExportCSV() ([]byte, error) {
	results, err := s.store.ListResults()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return ExportResultsCSV(results)
}
