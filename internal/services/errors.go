package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorUnauthorized ErrorCode = "unauthorized"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error   { return &ServiceError{Code: ErrorInvalid, Message: msg} }
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

var (
	// ErrUnsupportedFormat is returned when an uploaded resume is neither
	// PDF nor DOCX. Fatal to the extraction call only; profile entry stays
	// fully manual.
	ErrUnsupportedFormat = errors.New("unsupported file type, upload PDF or DOCX")
	// ErrExtractionFailure indicates a corrupt or unreadable document.
	ErrExtractionFailure = errors.New("could not read document")
	// ErrEmptyExtraction flags a document that parsed fine but yielded no
	// usable text; profile fields simply stay unset.
	ErrEmptyExtraction = errors.New("no text found in document")
)
