package models

import dErrors "verdeck/pkg/domain-errors"

// Outcome is an administrator's terminal decision on a submission.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

// ParseOutcome validates an outcome supplied at a trust boundary.
func ParseOutcome(s string) (Outcome, error) {
	o := Outcome(s)
	if o != OutcomeApprove && o != OutcomeReject {
		return "", dErrors.New(dErrors.CodeValidation, "outcome must be approve or reject")
	}
	return o, nil
}
