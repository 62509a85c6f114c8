package kyc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStaleRecord is returned by a repository when an optimistic version check
// fails. The service surfaces it to callers as an invalid transition so a
// stale client refreshes instead of retrying blindly.
var ErrStaleRecord = errors.New("kyc: record was modified concurrently")

// ErrStorageUnavailable indicates the object-storage collaborator failed.
// The caller may retry; no reference was committed.
var ErrStorageUnavailable = errors.New("kyc: document storage unavailable")

// FieldError is a single field-level validation failure
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MissingItem names one incomplete field within a section
type MissingItem struct {
	Section Section `json:"section"`
	Field   string  `json:"field"`
}

// InvalidTransitionError reports a lifecycle action attempted from a state
// that does not allow it. The record is never mutated on this error.
type InvalidTransitionError struct {
	From   Status
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("kyc: cannot %s from status %q", e.Action, e.From)
}

// IncompleteApplicationError reports a submit attempt on an application that
// is missing required data. Missing lists every unmet item.
type IncompleteApplicationError struct {
	Missing []MissingItem
}

func (e *IncompleteApplicationError) Error() string {
	fields := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		fields[i] = string(m.Section) + "." + m.Field
	}
	return "kyc: application incomplete: " + strings.Join(fields, ", ")
}

// UploadRejectedError reports a document refused by upload policy.
// The user can correct and retry immediately.
type UploadRejectedError struct {
	Reason string
}

func (e *UploadRejectedError) Error() string {
	return "kyc: upload rejected: " + e.Reason
}

// PartialApprovalError reports that the record reached approved but the
// expert-profile flag update failed. An operator must reconcile; the caller
// must not treat the approval as clean.
type PartialApprovalError struct {
	ExpertID string
	Cause    error
}

func (e *PartialApprovalError) Error() string {
	return fmt.Sprintf("kyc: record approved but profile update failed for expert %s: %v", e.ExpertID, e.Cause)
}

func (e *PartialApprovalError) Unwrap() error {
	return e.Cause
}
