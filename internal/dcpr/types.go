package dcpr

import (
	"encoding/json"
	"time"
)

// ReviewBody identifies one of the two sequential reviewing organizations.
type ReviewBody string

const (
	BodyNSIF ReviewBody = "NSIF"
	BodyCSI  ReviewBody = "CSI"
)

// Valid reports whether b names a known reviewing body.
func (b ReviewBody) Valid() bool { return b == BodyNSIF || b == BodyCSI }

// OrgName is the organization whose members may claim reviews for b.
func (b ReviewBody) OrgName() string { return string(b) }

// Request is a Data Capture Proposal Request under multi-party review.
//
// NSIFReviewer and CSIModerator record the last holder of each reviewing
// role. They are never cleared on resignation; only a subsequent successful
// claim overwrites them. Gating therefore relies on Status, not on these
// fields being empty.
type Request struct {
	ReferenceID string `json:"csi_reference_id"`
	Status      Status `json:"status"`

	OwnerUser    string `json:"owner_user"`
	NSIFReviewer string `json:"nsif_reviewer,omitempty"`
	CSIModerator string `json:"csi_moderator,omitempty"`

	// Payload is the proposal content. Opaque to the workflow core.
	Payload json.RawMessage `json:"payload,omitempty"`

	NSIFReviewNotes    string   `json:"nsif_review_notes,omitempty"`
	CSIModerationNotes string   `json:"csi_moderation_notes,omitempty"`
	SupportingDocs     []string `json:"supporting_documents,omitempty"`

	SubmissionDate     *time.Time `json:"submission_date,omitempty"`
	NSIFReviewDate     *time.Time `json:"nsif_review_date,omitempty"`
	NSIFModerationDate *time.Time `json:"nsif_moderation_date,omitempty"`
	CSIModerationDate  *time.Time `json:"csi_moderation_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy safe to hand out across store boundaries.
func (r *Request) Clone() *Request {
	out := *r
	if r.Payload != nil {
		out.Payload = append(json.RawMessage(nil), r.Payload...)
	}
	if r.SupportingDocs != nil {
		out.SupportingDocs = append([]string(nil), r.SupportingDocs...)
	}
	for _, p := range []**time.Time{&out.SubmissionDate, &out.NSIFReviewDate, &out.NSIFModerationDate, &out.CSIModerationDate} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &out
}

// ActivityType tags which workflow transition a management activity records.
type ActivityType string

const (
	ActivityCreateRequest        ActivityType = "create_dcpr_request"
	ActivityUpdateByOwner        ActivityType = "update_dcpr_request_by_owner"
	ActivityUpdateByNSIF         ActivityType = "update_dcpr_request_by_nsif"
	ActivityUpdateByCSI          ActivityType = "update_dcpr_request_by_csi"
	ActivitySubmitRequest        ActivityType = "submit_dcpr_request"
	ActivityDeleteRequest        ActivityType = "delete_dcpr_request"
	ActivityNSIFAccept           ActivityType = "nsif_accept_dcpr_request"
	ActivityNSIFReject           ActivityType = "nsif_reject_dcpr_request"
	ActivityNSIFRequestChanges   ActivityType = "nsif_request_clarification_dcpr_request"
	ActivityCSIAccept            ActivityType = "csi_accept_dcpr_request"
	ActivityCSIReject            ActivityType = "csi_reject_dcpr_request"
	ActivityCSIRequestChanges    ActivityType = "csi_request_clarification_dcpr_request"
	ActivityBecomeNSIFReviewer   ActivityType = "become_nsif_reviewer_dcpr_request"
	ActivityResignNSIFReviewer   ActivityType = "resign_nsif_reviewer_dcpr_request"
	ActivityBecomeCSIModerator   ActivityType = "become_csi_moderator_dcpr_request"
	ActivityResignCSIModerator   ActivityType = "resign_csi_moderator_dcpr_request"
	ActivitySysadminBecameOwner  ActivityType = "sysadmin_became_owner_dcpr_request"
	ActivitySysadminBecameNSIF   ActivityType = "sysadmin_became_nsif_reviewer_dcpr_request"
	ActivitySysadminBecameCSI    ActivityType = "sysadmin_became_csi_moderator_dcpr_request"
)

// moderationActivity maps (body, verb) to the activity tag recorded for a
// committed moderation. Exhaustive over ModerationActions.
var moderationActivity = map[ReviewBody]map[Action]ActivityType{
	BodyNSIF: {
		ActionApprove:              ActivityNSIFAccept,
		ActionReject:               ActivityNSIFReject,
		ActionRequestClarification: ActivityNSIFRequestChanges,
	},
	BodyCSI: {
		ActionApprove:              ActivityCSIAccept,
		ActionReject:               ActivityCSIReject,
		ActionRequestClarification: ActivityCSIRequestChanges,
	},
}

// ManagementActivity is an append-only audit record of one workflow-affecting
// action. Created exactly once per committed transition, never mutated.
type ManagementActivity struct {
	ID         string       `json:"id"`
	RequestID  string       `json:"request_id"`
	Type       ActivityType `json:"activity_type"`
	Actor      string       `json:"actor"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Actor is an operation's caller with its identity facts already resolved.
// A zero Actor is the anonymous caller.
type Actor struct {
	ID            string
	Sysadmin      bool
	Organizations []string
}

// Anonymous reports whether the actor carries no authenticated identity.
func (a Actor) Anonymous() bool { return a.ID == "" }

// MemberOf reports membership in the named organization.
func (a Actor) MemberOf(org string) bool {
	for _, o := range a.Organizations {
		if o == org {
			return true
		}
	}
	return false
}
