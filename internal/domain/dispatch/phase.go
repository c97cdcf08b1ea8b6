package dispatch

import "fmt"

// Phase is the worker-side classification of a record on each poll tick.
type Phase string

const (
	// PhaseIdle means the worker has no order: Ready or on Break.
	PhaseIdle Phase = "IDLE"

	// PhasePendingOffer means a customer has requested the worker and the
	// worker has not answered yet.
	PhasePendingOffer Phase = "PENDING_OFFER"

	// PhaseWorking means the worker accepted and priced the job.
	PhaseWorking Phase = "WORKING"
)

// String returns the string representation of the Phase.
func (p Phase) String() string { return string(p) }

// Transition names a single-row state change.
type Transition string

const (
	TransitionSubmit          Transition = "submit"
	TransitionAccept          Transition = "accept"
	TransitionReject          Transition = "reject"
	TransitionCancel          Transition = "cancel"
	TransitionComplete        Transition = "complete"
	TransitionExpire          Transition = "expire"
	TransitionSetAvailability Transition = "set_availability"
	TransitionUpdateLocation  Transition = "update_location"
	TransitionUpdateProfile   Transition = "update_profile"
)

// String returns the string representation of the Transition.
func (t Transition) String() string { return string(t) }

// validateTransition checks if a phase change is valid and returns an error if not.
func (p Phase) validateTransition(target Phase) error {
	if !p.isValidTransition(target) {
		return fmt.Errorf("invalid phase transition from %s to %s", p, target)
	}
	return nil
}

// isValidTransition enforces the order lifecycle:
// Idle -> PendingOffer -> Working -> Idle, or PendingOffer -> Idle.
func (p Phase) isValidTransition(target Phase) bool {
	switch p {
	case PhaseIdle:
		return target == PhasePendingOffer
	case PhasePendingOffer:
		return target == PhaseWorking || target == PhaseIdle
	case PhaseWorking:
		return target == PhaseIdle
	default:
		return false
	}
}

// sourcePhase is the phase each order transition must start from. Transitions
// absent from the map are phase-independent profile edits.
var sourcePhase = map[Transition]Phase{
	TransitionSubmit:   PhaseIdle,
	TransitionAccept:   PhasePendingOffer,
	TransitionReject:   PhasePendingOffer,
	TransitionExpire:   PhasePendingOffer,
	TransitionCancel:   PhaseWorking,
	TransitionComplete: PhaseWorking,
}

// targetPhase is the phase each order transition lands in.
var targetPhase = map[Transition]Phase{
	TransitionSubmit:   PhasePendingOffer,
	TransitionAccept:   PhaseWorking,
	TransitionReject:   PhaseIdle,
	TransitionExpire:   PhaseIdle,
	TransitionCancel:   PhaseIdle,
	TransitionComplete: PhaseIdle,
}

// checkPhase verifies rec is in the phase t requires.
func checkPhase(t Transition, rec WorkerRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	from := rec.Phase()
	want, ok := sourcePhase[t]
	if !ok {
		return nil
	}
	if from != want {
		return &TransitionError{Transition: t, From: from}
	}
	if err := from.validateTransition(targetPhase[t]); err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalTransition, err)
	}
	return nil
}
