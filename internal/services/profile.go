package services

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(?:\+\d{1,3}[\s-]?)?(?:\(\d{2,4}\)[\s-]?)?\d{3,4}[\s-]?\d{3,4}[\s-]?\d{0,4}`)
	lineRe  = regexp.MustCompile(`\r?\n|[ \t]{2,}`)
	wsRe    = regexp.MustCompile(`\s+`)

	anchoredEmailRe = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	nameRe          = regexp.MustCompile(`^[\p{L}][\p{L} .'-]*$`)
	digitsRe        = regexp.MustCompile(`\D`)
)

// InferredProfile carries best-effort fields pulled from resume text.
// Empty fields mean the heuristic found nothing; callers must let the user
// override every value before a session starts.
type InferredProfile struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Lines containing these words are never taken as the candidate's name.
var headingWords = []string{"resume", "curriculum vitae", "cv", "profile"}

// InferProfile scans extracted resume text for an email, a phone number and a
// likely name line. The phone match is a hint only; the 10-digit rule is
// enforced by ValidateProfile at session start, not here.
func InferProfile(text string) InferredProfile {
	var out InferredProfile

	email := emailRe.FindString(text)
	phone := phoneRe.FindString(text)
	out.Email = email
	if phone != "" {
		out.Phone = strings.TrimSpace(wsRe.ReplaceAllString(phone, " "))
	}

	for _, line := range splitLines(text) {
		lower := strings.ToLower(line)
		if email != "" && strings.Contains(line, email) {
			continue
		}
		if phone != "" && strings.Contains(line, phone) {
			continue
		}
		if containsAny(lower, headingWords) {
			continue
		}
		if len(strings.Fields(line)) <= 4 && strings.ContainsFunc(line, isLetter) {
			out.Name = line
			break
		}
	}
	return out
}

// splitLines breaks text on line breaks or runs of two-plus horizontal
// whitespace (PDF extraction often yields a single long line with wide gaps
// between what were separate lines), trimming and dropping blanks.
func splitLines(text string) []string {
	var lines []string
	for _, l := range lineRe.Split(text, -1) {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	return digitsRe.ReplaceAllString(phone, "")
}

// ValidateProfile enforces the shape rules that gate session start. It never
// runs against inferred values directly; the user confirms the fields first.
func ValidateProfile(p CandidateProfile) error {
	name := strings.TrimSpace(p.Name)
	if name == "" || len(name) > 100 || !nameRe.MatchString(name) {
		return NewInvalidError("name must be letters, spaces and basic punctuation")
	}
	if !anchoredEmailRe.MatchString(strings.TrimSpace(p.Email)) {
		return NewInvalidError("email is not valid")
	}
	if len(NormalizePhone(p.Phone)) != 10 {
		return NewInvalidError("phone must contain exactly 10 digits")
	}
	return nil
}
