package dcpr

// Decision is the outcome of one authorization predicate. A denial always
// carries a human-readable reason, surfaced to the caller alongside the
// eventual HTTP status.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Sysadmins bypass role and identity checks, but status gating still applies:
// a sysadmin cannot moderate a request that is not under review any more than
// a bound reviewer can.

// CanCreate authorizes request creation: any authenticated identity holding
// membership in at least one organization.
func CanCreate(actor Actor) Decision {
	if actor.Anonymous() {
		return deny("you must be logged in to create a DCPR request")
	}
	if actor.Sysadmin || len(actor.Organizations) > 0 {
		return allow()
	}
	return deny("only members of an organization may create DCPR requests")
}

// CanShow authorizes read access. Anonymous callers are permitted; visibility
// is gated by status.
func CanShow(req *Request, actor Actor) Decision {
	if !actor.Anonymous() && (actor.Sysadmin || actor.ID == req.OwnerUser) {
		return allow()
	}
	if req.Status.Terminal() {
		return allow()
	}
	switch req.Status {
	case StatusAwaitingNSIFReview, StatusUnderNSIFReview:
		if actor.MemberOf(BodyNSIF.OrgName()) {
			return allow()
		}
	case StatusAwaitingCSIReview, StatusUnderCSIReview:
		if actor.MemberOf(BodyCSI.OrgName()) {
			return allow()
		}
	}
	return deny("you are not authorized to view this request")
}

// ownerUpdatableStatuses are the statuses during which the owner may edit or
// submit the request.
var ownerUpdatableStatuses = map[Status]bool{
	StatusUnderPreparation:            true,
	StatusModificationRequestedByNSIF: true,
	StatusModificationRequestedByCSI:  true,
}

// CanUpdateByOwner authorizes owner edits (and submission, which is an owner
// action with the same gate).
func CanUpdateByOwner(req *Request, actor Actor) Decision {
	if !ownerUpdatableStatuses[req.Status] {
		return deny("request cannot currently be updated by its owner")
	}
	if actor.Sysadmin || actor.ID == req.OwnerUser {
		return allow()
	}
	return deny("current user is not authorized to update this request")
}

// CanSubmit mirrors the owner-update gate: submission is an owner action.
func CanSubmit(req *Request, actor Actor) Decision {
	return CanUpdateByOwner(req, actor)
}

// CanModerate authorizes review-phase updates and moderation verbs for the
// given body: the request must currently be under that body's review and the
// actor must be the bound reviewer (or a sysadmin).
func CanModerate(req *Request, actor Actor, body ReviewBody) Decision {
	switch body {
	case BodyNSIF:
		if req.Status != StatusUnderNSIFReview {
			return deny("request cannot currently be moderated on behalf of the NSIF")
		}
		if actor.Sysadmin || actor.ID == req.NSIFReviewer {
			return allow()
		}
		return deny("current user is not authorized to moderate this request on behalf of the NSIF")
	case BodyCSI:
		if req.Status != StatusUnderCSIReview {
			return deny("request cannot currently be moderated on behalf of the CSI")
		}
		if actor.Sysadmin || actor.ID == req.CSIModerator {
			return allow()
		}
		return deny("current user is not authorized to moderate this request on behalf of the CSI")
	}
	return deny("unknown reviewing body")
}

// CanClaim authorizes claiming the reviewer role for the given body.
func CanClaim(req *Request, actor Actor, body ReviewBody) Decision {
	awaiting := StatusAwaitingNSIFReview
	if body == BodyCSI {
		awaiting = StatusAwaitingCSIReview
	}
	if !actor.Sysadmin && !actor.MemberOf(body.OrgName()) {
		return deny("current user is not authorized to claim the reviewer role for this request")
	}
	if req.Status != awaiting {
		return deny("request cannot currently be claimed for review")
	}
	return allow()
}

// CanResign authorizes releasing the reviewer role for the given body.
func CanResign(req *Request, actor Actor, body ReviewBody) Decision {
	switch body {
	case BodyNSIF:
		if req.Status != StatusUnderNSIFReview {
			return deny("request is not currently under NSIF review")
		}
		if actor.Sysadmin || actor.ID == req.NSIFReviewer {
			return allow()
		}
	case BodyCSI:
		if req.Status != StatusUnderCSIReview {
			return deny("request is not currently under CSI review")
		}
		if actor.Sysadmin || actor.ID == req.CSIModerator {
			return allow()
		}
	default:
		return deny("unknown reviewing body")
	}
	return deny("current user is not authorized to resign the reviewer role for this request")
}

// CanDelete authorizes deletion: the owner, only while the request has not
// been submitted yet.
func CanDelete(req *Request, actor Actor) Decision {
	if req.Status != StatusUnderPreparation {
		return deny("submitted requests cannot be deleted")
	}
	if actor.Sysadmin || actor.ID == req.OwnerUser {
		return allow()
	}
	return deny("current user is not authorized to delete this request")
}

// CanListPending authorizes the member-gated pending listings.
func CanListPending(actor Actor, body ReviewBody) Decision {
	if actor.Sysadmin || actor.MemberOf(body.OrgName()) {
		return allow()
	}
	return deny("only members of the reviewing organization may list its pending requests")
}
