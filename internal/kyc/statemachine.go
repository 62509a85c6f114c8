package kyc

import (
	"trade-scout/expert-portal/expert-portal-backend/pkg/workflows"
)

// verificationTransitions is the full lifecycle of a verification record.
// approved is terminal; a rejected or resubmission-required record re-enters
// in_progress on the next expert edit and may be resubmitted.
var verificationTransitions = map[string][]string{
	string(StatusNotStarted):           {string(StatusInProgress)},
	string(StatusInProgress):           {string(StatusSubmitted)},
	string(StatusSubmitted):            {string(StatusUnderReview)},
	string(StatusUnderReview):          {string(StatusApproved), string(StatusRejected), string(StatusResubmissionRequired)},
	string(StatusRejected):             {string(StatusInProgress)},
	string(StatusResubmissionRequired): {string(StatusInProgress), string(StatusSubmitted)},
	string(StatusApproved):             {},
}

var stateMachine = workflows.NewStateMachine(verificationTransitions)

// CanTransition checks the lifecycle table for a status change.
func CanTransition(from, to Status) bool {
	return stateMachine.CanTransition(string(from), string(to))
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from Status) []Status {
	allowed := stateMachine.GetAllowedTransitions(string(from))
	statuses := make([]Status, len(allowed))
	for i, s := range allowed {
		statuses[i] = Status(s)
	}
	return statuses
}

// IsTerminal reports whether the record can never leave the given status.
func IsTerminal(s Status) bool {
	return stateMachine.IsTerminal(string(s))
}
