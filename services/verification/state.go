// Package verification implements the listing review workflow:
// pending -> under_review -> verified | rejected.
package verification

import "venuebook/models"

var transitions = map[models.VerificationStatus][]models.VerificationStatus{
	models.StatusPending:     {models.StatusUnderReview},
	models.StatusUnderReview: {models.StatusVerified, models.StatusRejected},
	models.StatusVerified:    nil,
	models.StatusRejected:    nil,
}

// CanTransition reports whether a listing may move from one status to another.
func CanTransition(from, to models.VerificationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates lists the statuses reachable from from. Terminal states have none.
func NextStates(from models.VerificationStatus) []models.VerificationStatus {
	next := transitions[from]
	out := make([]models.VerificationStatus, len(next))
	copy(out, next)
	return out
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.VerificationStatus) bool {
	_, known := transitions[status]
	return known && len(transitions[status]) == 0
}
