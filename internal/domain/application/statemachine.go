package application

import "fmt"

// PhaseOrder is the fixed forward-only progression of an application.
var PhaseOrder = []Phase{
	PhasePreQualification,
	PhaseLoanApplication,
	PhaseApplicationProcessing,
	PhaseUnderwriting,
	PhaseCreditDecision,
	PhaseQualityCheck,
	PhaseLoanFunding,
}

// PhaseDependencies maps each phase to the predecessor that must be
// completed before the phase may start. Pre-qualification has none.
var PhaseDependencies = map[Phase]Phase{
	PhaseLoanApplication:       PhasePreQualification,
	PhaseApplicationProcessing: PhaseLoanApplication,
	PhaseUnderwriting:          PhaseApplicationProcessing,
	PhaseCreditDecision:        PhaseUnderwriting,
	PhaseQualityCheck:          PhaseCreditDecision,
	PhaseLoanFunding:           PhaseQualityCheck,
}

// statusTransitions is the static adjacency table for per-phase status.
// completed and failed are terminal; requires_review pauses the phase until
// manual input re-enters it.
var statusTransitions = map[Status][]Status{
	StatusPending:        {StatusInProgress},
	StatusInProgress:     {StatusCompleted, StatusFailed, StatusRequiresReview},
	StatusRequiresReview: {StatusInProgress},
	StatusCompleted:      {},
	StatusFailed:         {},
}

func (s Status) CanTransition(to Status) bool {
	for _, n := range statusTransitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// Transition validates cur -> next against the adjacency table.
func Transition(cur, next Status) (Status, error) {
	if !cur.CanTransition(next) {
		return cur, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur, next)
	}
	return next, nil
}

// NextPhase returns the phase following p, or "" when p is the last one.
func NextPhase(p Phase) Phase {
	for i, ph := range PhaseOrder {
		if ph == p && i+1 < len(PhaseOrder) {
			return PhaseOrder[i+1]
		}
	}
	return ""
}

func ValidPhase(p Phase) bool {
	for _, ph := range PhaseOrder {
		if ph == p {
			return true
		}
	}
	return false
}

// PhaseIndex returns the position of p in PhaseOrder, or -1.
func PhaseIndex(p Phase) int {
	for i, ph := range PhaseOrder {
		if ph == p {
			return i
		}
	}
	return -1
}
