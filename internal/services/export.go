package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// ExportResultsCSV renders one row per candidate result, in the order given.
func ExportResultsCSV(results []*CandidateResult) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "name", "email", "phone", "score", "summary", "completed_at"})
	for _, r := range results {
		completed := ""
		if len(r.ChatHistory) > 0 {
			completed = r.ChatHistory[len(r.ChatHistory)-1].Timestamp.Format(time.RFC3339)
		}
		rec := []string{r.ID, r.Name, r.Email, r.Phone, itoa(r.Score), r.Summary, completed}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
