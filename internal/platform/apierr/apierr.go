package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the service-level error carried across layer boundaries. Status
// is the HTTP status the transport should answer with, Code is a stable
// machine-readable identifier, Err is the underlying cause.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// Failure kinds the service distinguishes.
const (
	CodeFilesNotFound       = "files_not_found"
	CodeMissingCredential   = "missing_credential"
	CodeVocabularyNotLoaded = "vocabulary_not_loaded"
	CodeIndexCreation       = "index_creation"
	CodeTransientStore      = "transient_store"
	CodeParse               = "parse"
	CodeValidation          = "validation"
)

func FilesNotFound(err error) *Error {
	return New(http.StatusNotFound, CodeFilesNotFound, err)
}

func MissingCredential(err error) *Error {
	return New(http.StatusUnauthorized, CodeMissingCredential, err)
}

func VocabularyNotLoaded(err error) *Error {
	return New(http.StatusBadRequest, CodeVocabularyNotLoaded, err)
}

func IndexCreation(err error) *Error {
	return New(http.StatusInternalServerError, CodeIndexCreation, err)
}

func TransientStore(err error) *Error {
	return New(http.StatusInternalServerError, CodeTransientStore, err)
}

func Parse(err error) *Error {
	return New(http.StatusBadRequest, CodeParse, err)
}

func Validation(err error) *Error {
	return New(http.StatusBadRequest, CodeValidation, err)
}

// FromError unwraps err down to the first *Error in its chain.
func FromError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code string) bool {
	ae, ok := FromError(err)
	return ok && ae.Code == code
}
