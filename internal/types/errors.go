package types

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable failure taxonomy. Kinds are stable: the
// CLI maps them to exit codes and the session API returns them verbatim.
type ErrorKind string

const (
	// Input errors.
	KindPDFUnreadable  ErrorKind = "pdf_unreadable"
	KindPDFEncrypted   ErrorKind = "pdf_encrypted"
	KindPDFEmpty       ErrorKind = "pdf_empty"
	KindUploadTooLarge ErrorKind = "upload_too_large"
	KindBadSession     ErrorKind = "bad_session"

	// Identification errors.
	KindCatalogMissing       ErrorKind = "catalog_missing"
	KindAIMalformed          ErrorKind = "ai_malformed"
	KindAIUnreachable        ErrorKind = "ai_unreachable"
	KindAITimeout            ErrorKind = "ai_timeout"
	KindProviderUnauthorized ErrorKind = "provider_unauthorized"

	// Extraction errors (per-page, non-fatal).
	KindOCRUnavailable ErrorKind = "ocr_unavailable"
	KindPageFailed     ErrorKind = "page_failed"

	// Persistence errors.
	KindStoreUnreachable ErrorKind = "store_unreachable"
	KindStoreConflict    ErrorKind = "store_conflict"
	KindStoreOversize    ErrorKind = "store_oversize"

	// Terminal verdicts and control flow.
	KindRejectedDuplicate ErrorKind = "rejected_duplicate"
	KindCancelled         ErrorKind = "cancelled"
	KindDeadlineExceeded  ErrorKind = "deadline_exceeded"
)

// PipelineError carries a taxonomy kind plus the stage where it was observed
// and an optional remediation hint for the user-visible message.
type PipelineError struct {
	Kind  ErrorKind
	Stage string
	Hint  string
	Err   error
}

// NewError builds a PipelineError wrapping an underlying cause.
func NewError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: err}
}

// Errorf builds a PipelineError from a format string.
func Errorf(kind ErrorKind, stage, format string, args ...any) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Err: fmt.Errorf(format, args...)}
}

func (e *PipelineError) Error() string {
	msg := string(e.Kind)
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *PipelineError) Unwrap() error { return e.Err }

// WithHint attaches a remediation hint and returns the error.
func (e *PipelineError) WithHint(hint string) *PipelineError {
	e.Hint = hint
	return e
}

// KindOf extracts the taxonomy kind from an error chain. Returns empty string
// when no PipelineError is present.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
