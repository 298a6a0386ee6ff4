package dcpr

import "errors"

// Status is the lifecycle state of a DCPR request.
type Status string

const (
	StatusUnderPreparation              Status = "UNDER_PREPARATION"
	StatusAwaitingNSIFReview            Status = "AWAITING_NSIF_REVIEW"
	StatusUnderNSIFReview               Status = "UNDER_NSIF_REVIEW"
	StatusModificationRequestedByNSIF   Status = "UNDER_MODIFICATION_REQUESTED_BY_NSIF"
	StatusAwaitingCSIReview             Status = "AWAITING_CSI_REVIEW"
	StatusUnderCSIReview                Status = "UNDER_CSI_REVIEW"
	StatusModificationRequestedByCSI    Status = "UNDER_MODIFICATION_REQUESTED_BY_CSI"
	StatusAccepted                      Status = "ACCEPTED"
	StatusRejected                      Status = "REJECTED"
)

// Terminal reports whether no further status-changing operation applies.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	switch s {
	case StatusUnderPreparation, StatusAwaitingNSIFReview, StatusUnderNSIFReview,
		StatusModificationRequestedByNSIF, StatusAwaitingCSIReview, StatusUnderCSIReview,
		StatusModificationRequestedByCSI, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Action is a moderation verb driving a review-phase transition.
type Action string

const (
	// ActionNone requests the unconditional transition for the current status.
	ActionNone                 Action = ""
	ActionApprove              Action = "APPROVE"
	ActionReject               Action = "REJECT"
	ActionRequestClarification Action = "REQUEST_CLARIFICATION"
	ActionResign               Action = "RESIGN"
)

// ModerationActions are the verbs accepted by the moderate operation.
var ModerationActions = []Action{ActionApprove, ActionReject, ActionRequestClarification}

// IsModeration reports whether a is a valid moderate() verb.
func (a Action) IsModeration() bool {
	for _, m := range ModerationActions {
		if a == m {
			return true
		}
	}
	return false
}

// Transition is the explicit result of consulting the lattice. Advance is false
// only for terminal statuses, where every action is absorbed without change.
type Transition struct {
	Advance bool
	To      Status
}

// ErrUnhandledTransition marks a (status, action) pair outside the lattice
// table. Callers must treat it as fatal for the operation; committing a
// spurious no-op transition is never allowed.
var ErrUnhandledTransition = errors.New("dcpr: unhandled status transition")

func advance(to Status) (Transition, error) {
	return Transition{Advance: true, To: to}, nil
}

// Next resolves the lattice transition for the current status and an optional
// action. Terminal statuses absorb every action.
func Next(current Status, action Action) (Transition, error) {
	switch current {
	case StatusUnderPreparation:
		if action == ActionNone {
			return advance(StatusAwaitingNSIFReview)
		}
	case StatusModificationRequestedByNSIF:
		if action == ActionNone {
			return advance(StatusUnderNSIFReview)
		}
	case StatusModificationRequestedByCSI:
		if action == ActionNone {
			return advance(StatusUnderCSIReview)
		}
	case StatusAwaitingNSIFReview:
		if action == ActionNone {
			return advance(StatusUnderNSIFReview)
		}
	case StatusAwaitingCSIReview:
		if action == ActionNone {
			return advance(StatusUnderCSIReview)
		}
	case StatusUnderNSIFReview:
		switch action {
		case ActionApprove:
			return advance(StatusAwaitingCSIReview)
		case ActionReject:
			return advance(StatusRejected)
		case ActionRequestClarification:
			return advance(StatusModificationRequestedByNSIF)
		case ActionResign:
			return advance(StatusAwaitingNSIFReview)
		}
	case StatusUnderCSIReview:
		switch action {
		case ActionApprove:
			return advance(StatusAccepted)
		case ActionReject:
			return advance(StatusRejected)
		case ActionRequestClarification:
			return advance(StatusModificationRequestedByCSI)
		case ActionResign:
			return advance(StatusAwaitingCSIReview)
		}
	case StatusAccepted, StatusRejected:
		return Transition{}, nil
	}
	return Transition{}, ErrUnhandledTransition
}
