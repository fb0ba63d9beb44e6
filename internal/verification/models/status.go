package models

// Status is the primary lifecycle state of an entity.
//
// Legal edges:
//
//	pending → email_verified → submitted → verified
//	                                     → rejected → submitted
//
// verified is terminal. rejected permits resubmission once readiness is
// re-established, starting a new review cycle.
type Status string

const (
	StatusPending       Status = "pending"
	StatusEmailVerified Status = "email_verified"
	StatusSubmitted     Status = "submitted"
	StatusVerified      Status = "verified"
	StatusRejected      Status = "rejected"
)

// allowedTransitions is the single source of truth for legal status edges.
var allowedTransitions = map[Status][]Status{
	StatusPending:       {StatusEmailVerified, StatusSubmitted},
	StatusEmailVerified: {StatusSubmitted},
	StatusSubmitted:     {StatusVerified, StatusRejected},
	StatusRejected:      {StatusSubmitted},
	StatusVerified:      {},
}

// CanTransitionTo reports whether the edge s → to is legal.
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range allowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no owner-driven transition leaves this status.
func (s Status) Terminal() bool {
	return s == StatusVerified
}

func (s Status) String() string { return string(s) }

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}
