package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ExtractResumeText turns an uploaded resume into plain text. Only PDF and
// DOCX are accepted; the declared extension decides which decoder runs.
// An empty result from a well-formed document is not an error.
func ExtractResumeText(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	default:
		return "", ErrUnsupportedFormat
	}
}

// ParseResume is the one-shot pre-session workflow: extract text, then infer
// profile fields. ErrEmptyExtraction means the document parsed but offered
// nothing to infer from; every failure here is recoverable by manual entry.
func ParseResume(data []byte, filename string) (InferredProfile, error) {
	text, err := ExtractResumeText(data, filename)
	if err != nil {
		return InferredProfile{}, err
	}
	if strings.TrimSpace(text) == "" {
		return InferredProfile{}, ErrEmptyExtraction
	}
	return InferProfile(text), nil
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: pdf parse: %v", ErrExtractionFailure, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: pdf open: %v", ErrExtractionFailure, err)
	}

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: pdf page %d: %v", ErrExtractionFailure, i, err)
		}
		out.WriteString(content)
		out.WriteString("\n")
	}
	return out.String(), nil
}

// extractDOCX reads word/document.xml from the zip container and collects the
// literal text of every w:t run in document order, space-joined. Styling,
// images and layout nodes are ignored. A container without the document part
// extracts to the empty string.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: docx open: %v", ErrExtractionFailure, err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", nil
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: docx document part: %v", ErrExtractionFailure, err)
	}
	defer rc.Close()

	xmlBytes, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("%w: docx read: %v", ErrExtractionFailure, err)
	}

	runs, err := collectTextRuns(xmlBytes)
	if err != nil {
		return "", fmt.Errorf("%w: docx parse: %v", ErrExtractionFailure, err)
	}
	return strings.Join(runs, " "), nil
}

func collectTextRuns(xmlBytes []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(xmlBytes))
	var runs []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "t" {
			continue
		}
		var v string
		if err := dec.DecodeElement(&v, &se); err != nil {
			return nil, err
		}
		runs = append(runs, v)
	}
	return runs, nil
}
