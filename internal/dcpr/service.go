package dcpr

import (
	"context"
	"time"

	"dcpr.org/internal/audit"
	"dcpr.org/internal/ids"
	"dcpr.org/internal/obs"
)

// Store is the durable persistence layer for requests and their audit trail.
// Implementations must commit the request mutation and the supplied activity
// rows atomically; a crash between the two must never lose audit history.
type Store interface {
	Insert(ctx context.Context, req *Request, acts ...*ManagementActivity) error
	Get(ctx context.Context, referenceID string) (*Request, error)
	Update(ctx context.Context, req *Request, acts ...*ManagementActivity) error

	// ClaimReviewer binds reviewerID and advances from -> to in one
	// conditional write: it must fail with a NotAuthorizedError when the
	// request is no longer in the from status, so concurrent claimants
	// cannot both win.
	ClaimReviewer(ctx context.Context, referenceID string, body ReviewBody, reviewerID string, from, to Status, act *ManagementActivity) (*Request, error)

	Delete(ctx context.Context, referenceID string, act *ManagementActivity) error

	ListByOwner(ctx context.Context, ownerID string) ([]*Request, error)
	ListPublic(ctx context.Context) ([]*Request, error)
	ListPendingReview(ctx context.Context, body ReviewBody) ([]*Request, error)
	ListActivities(ctx context.Context, referenceID string) ([]*ManagementActivity, error)
}

// NotificationQueue accepts asynchronous jobs referencing committed
// activities. Enqueue is fire-and-forget relative to the store transaction.
type NotificationQueue interface {
	Enqueue(ctx context.Context, activityID string) error
}

// ActivityPublisher receives committed activities for live fan-out.
type ActivityPublisher interface {
	PublishActivity(req *Request, act *ManagementActivity)
}

// Service orchestrates the DCPR workflow: payload validation, the
// authorization gate, the status lattice, atomic persistence with the audit
// trail, and notification enqueueing.
type Service struct {
	store     Store
	queue     NotificationQueue
	publisher ActivityPublisher
	now       func() time.Time
	newID     func() string
	newRef    func() string
}

// Option configures Service behavior.
type Option func(*Service)

// WithQueue wires the notification queue.
func WithQueue(q NotificationQueue) Option {
	return func(s *Service) { s.queue = q }
}

// WithPublisher wires the live activity publisher.
func WithPublisher(p ActivityPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		newID:  ids.New,
		newRef: ids.NewReference,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) activity(req *Request, typ ActivityType, actor Actor) *ManagementActivity {
	return &ManagementActivity{
		ID:         s.newID(),
		RequestID:  req.ReferenceID,
		Type:       typ,
		Actor:      actor.ID,
		OccurredAt: s.now().UTC(),
	}
}

func (s *Service) committed(ctx context.Context, req *Request, acts []*ManagementActivity, notify bool) {
	for _, act := range acts {
		_ = audit.LogEvent(ctx, "dcpr.activity", map[string]any{
			"activity_id":   act.ID,
			"activity_type": string(act.Type),
			"request_id":    act.RequestID,
			"actor":         act.Actor,
			"status":        string(req.Status),
		})
		if s.publisher != nil {
			s.publisher.PublishActivity(req, act)
		}
	}
	if notify && s.queue != nil && len(acts) > 0 {
		// The notification references the operation's primary activity.
		// Enqueue failures are logged and retried by the dispatcher side;
		// they never unwind the already-committed transaction.
		if err := s.queue.Enqueue(ctx, acts[0].ID); err != nil {
			obs.RecordNotificationEnqueueFailure()
			_ = audit.LogEvent(ctx, "dcpr.notify.enqueue_failed", map[string]any{
				"activity_id": acts[0].ID,
				"error":       err.Error(),
			})
		}
	}
}

// Create registers a new request in UNDER_PREPARATION owned by the actor.
func (s *Service) Create(ctx context.Context, actor Actor, payload CreateRequestPayload) (*Request, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	if d := CanCreate(actor); !d.Allowed {
		obs.RecordGateDenial("create")
		return nil, NotAuthorized(d.Reason)
	}
	now := s.now().UTC()
	req := &Request{
		ReferenceID:    s.newRef(),
		Status:         StatusUnderPreparation,
		OwnerUser:      actor.ID,
		Payload:        payload.content(),
		SupportingDocs: payload.SupportingDocs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	act := s.activity(req, ActivityCreateRequest, actor)
	if err := s.store.Insert(ctx, req, act); err != nil {
		return nil, err
	}
	s.committed(ctx, req, []*ManagementActivity{act}, false)
	return req.Clone(), nil
}

// Show returns the request subject to status-based visibility.
func (s *Service) Show(ctx context.Context, actor Actor, referenceID string) (*Request, error) {
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanShow(req, actor); !d.Allowed {
		obs.RecordGateDenial("show")
		return nil, NotAuthorized(d.Reason)
	}
	return req, nil
}

// UpdateByOwner applies owner edits. When the request is under a
// modification-requested status, the edit also returns it to the matching
// review status; during preparation the status is untouched.
func (s *Service) UpdateByOwner(ctx context.Context, actor Actor, referenceID string, payload OwnerUpdatePayload) (*Request, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanUpdateByOwner(req, actor); !d.Allowed {
		obs.RecordGateDenial("update_by_owner")
		return nil, NotAuthorized(d.Reason)
	}
	req.Payload = payload.content(req.Payload)
	if len(payload.SupportingDocs) > 0 {
		req.SupportingDocs = payload.SupportingDocs
	}

	acts := []*ManagementActivity{s.activity(req, ActivityUpdateByOwner, actor)}
	if actor.Sysadmin && actor.ID != req.OwnerUser {
		req.OwnerUser = actor.ID
		acts = append(acts, s.activity(req, ActivitySysadminBecameOwner, actor))
	}

	from := req.Status
	if from == StatusModificationRequestedByNSIF || from == StatusModificationRequestedByCSI {
		tr, err := Next(from, ActionNone)
		if err != nil {
			return nil, err
		}
		if tr.Advance {
			req.Status = tr.To
		}
	}
	req.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, req, acts...); err != nil {
		return nil, err
	}
	if req.Status != from {
		obs.RecordTransition(string(from), string(ActionNone), string(req.Status))
	}
	s.committed(ctx, req, acts, false)
	return req.Clone(), nil
}

// UpdateByReviewer applies review-phase edits for the given body, stamping
// the body's review date. The status is not changed; only moderation verbs
// move a request out of a review status.
func (s *Service) UpdateByReviewer(ctx context.Context, actor Actor, referenceID string, body ReviewBody, payload ReviewUpdatePayload) (*Request, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	if !body.Valid() {
		return nil, ErrInvalidAction
	}
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanModerate(req, actor, body); !d.Allowed {
		obs.RecordGateDenial("update_by_" + string(body))
		return nil, NotAuthorized(d.Reason)
	}

	now := s.now().UTC()
	var acts []*ManagementActivity
	switch body {
	case BodyNSIF:
		req.NSIFReviewNotes = payload.Notes
		req.NSIFReviewDate = timePtr(now)
		acts = append(acts, s.activity(req, ActivityUpdateByNSIF, actor))
		if actor.Sysadmin && actor.ID != req.NSIFReviewer {
			req.NSIFReviewer = actor.ID
			acts = append(acts, s.activity(req, ActivitySysadminBecameNSIF, actor))
		}
	case BodyCSI:
		req.CSIModerationNotes = payload.Notes
		req.CSIModerationDate = timePtr(now)
		acts = append(acts, s.activity(req, ActivityUpdateByCSI, actor))
		if actor.Sysadmin && actor.ID != req.CSIModerator {
			req.CSIModerator = actor.ID
			acts = append(acts, s.activity(req, ActivitySysadminBecameCSI, actor))
		}
	}
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req, acts...); err != nil {
		return nil, err
	}
	s.committed(ctx, req, acts, false)
	return req.Clone(), nil
}

// Submit marks the request ready for review by the SASDI organizations.
func (s *Service) Submit(ctx context.Context, actor Actor, referenceID string) (*Request, error) {
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanSubmit(req, actor); !d.Allowed {
		obs.RecordGateDenial("submit")
		return nil, NotAuthorized(d.Reason)
	}

	now := s.now().UTC()
	req.SubmissionDate = timePtr(now)

	acts := []*ManagementActivity{s.activity(req, ActivitySubmitRequest, actor)}
	// A sysadmin submitting on the owner's behalf becomes responsible for
	// the request, and that handover is its own audited fact.
	if actor.Sysadmin && actor.ID != req.OwnerUser {
		req.OwnerUser = actor.ID
		acts = append(acts, s.activity(req, ActivitySysadminBecameOwner, actor))
	}

	from := req.Status
	tr, err := Next(from, ActionNone)
	if err != nil {
		return nil, err
	}
	if tr.Advance {
		req.Status = tr.To
	}
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req, acts...); err != nil {
		return nil, err
	}
	if req.Status != from {
		obs.RecordTransition(string(from), string(ActionNone), string(req.Status))
	}
	s.committed(ctx, req, acts, true)
	return req.Clone(), nil
}

// Moderate records the body's verdict: approve, reject or request
// clarification.
func (s *Service) Moderate(ctx context.Context, actor Actor, referenceID string, body ReviewBody, payload ModeratePayload) (*Request, error) {
	if err := validatePayload(payload); err != nil {
		return nil, err
	}
	if !body.Valid() || !payload.Action.IsModeration() {
		return nil, ErrInvalidAction
	}
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanModerate(req, actor, body); !d.Allowed {
		obs.RecordGateDenial("moderate")
		return nil, NotAuthorized(d.Reason)
	}

	now := s.now().UTC()
	var acts []*ManagementActivity
	switch body {
	case BodyNSIF:
		req.NSIFModerationDate = timePtr(now)
		if payload.Notes != "" {
			req.NSIFReviewNotes = payload.Notes
		}
		if actor.Sysadmin && actor.ID != req.NSIFReviewer {
			req.NSIFReviewer = actor.ID
			acts = append(acts, s.activity(req, ActivitySysadminBecameNSIF, actor))
		}
	case BodyCSI:
		req.CSIModerationDate = timePtr(now)
		if payload.Notes != "" {
			req.CSIModerationNotes = payload.Notes
		}
		if actor.Sysadmin && actor.ID != req.CSIModerator {
			req.CSIModerator = actor.ID
			acts = append(acts, s.activity(req, ActivitySysadminBecameCSI, actor))
		}
	}

	from := req.Status
	tr, err := Next(from, payload.Action)
	if err != nil {
		return nil, err
	}
	if tr.Advance {
		req.Status = tr.To
	}
	// The moderation activity leads so the notification references it.
	acts = append([]*ManagementActivity{s.activity(req, moderationActivity[body][payload.Action], actor)}, acts...)
	req.UpdatedAt = now
	if err := s.store.Update(ctx, req, acts...); err != nil {
		return nil, err
	}
	if req.Status != from {
		obs.RecordTransition(string(from), string(payload.Action), string(req.Status))
	}
	s.committed(ctx, req, acts, true)
	return req.Clone(), nil
}

// ClaimReviewer binds the actor as the body's reviewer and moves the request
// under review. The bind is conditional at the store layer: losing a
// concurrent claim surfaces as NotAuthorized.
func (s *Service) ClaimReviewer(ctx context.Context, actor Actor, referenceID string, body ReviewBody) (*Request, error) {
	if !body.Valid() {
		return nil, ErrInvalidAction
	}
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanClaim(req, actor, body); !d.Allowed {
		obs.RecordGateDenial("claim")
		return nil, NotAuthorized(d.Reason)
	}

	from := req.Status
	tr, err := Next(from, ActionNone)
	if err != nil {
		return nil, err
	}
	typ := ActivityBecomeNSIFReviewer
	if body == BodyCSI {
		typ = ActivityBecomeCSIModerator
	}
	act := s.activity(req, typ, actor)
	claimed, err := s.store.ClaimReviewer(ctx, referenceID, body, actor.ID, from, tr.To, act)
	if err != nil {
		return nil, err
	}
	obs.RecordTransition(string(from), string(ActionNone), string(tr.To))
	s.committed(ctx, claimed, []*ManagementActivity{act}, false)
	return claimed.Clone(), nil
}

// ResignReviewer releases the reviewer role, returning the request to the
// matching awaiting status. The bound identity is retained as history.
func (s *Service) ResignReviewer(ctx context.Context, actor Actor, referenceID string, body ReviewBody) (*Request, error) {
	if !body.Valid() {
		return nil, ErrInvalidAction
	}
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanResign(req, actor, body); !d.Allowed {
		obs.RecordGateDenial("resign")
		return nil, NotAuthorized(d.Reason)
	}

	from := req.Status
	tr, err := Next(from, ActionResign)
	if err != nil {
		return nil, err
	}
	if tr.Advance {
		req.Status = tr.To
	}
	typ := ActivityResignNSIFReviewer
	if body == BodyCSI {
		typ = ActivityResignCSIModerator
	}
	act := s.activity(req, typ, actor)
	req.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, req, act); err != nil {
		return nil, err
	}
	if req.Status != from {
		obs.RecordTransition(string(from), string(ActionResign), string(req.Status))
	}
	s.committed(ctx, req, []*ManagementActivity{act}, true)
	return req.Clone(), nil
}

// Delete removes an unsubmitted request. The deletion itself is recorded in
// the audit trail; activity rows outlive the request row.
func (s *Service) Delete(ctx context.Context, actor Actor, referenceID string) error {
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return err
	}
	if d := CanDelete(req, actor); !d.Allowed {
		obs.RecordGateDenial("delete")
		return NotAuthorized(d.Reason)
	}
	act := s.activity(req, ActivityDeleteRequest, actor)
	if err := s.store.Delete(ctx, referenceID, act); err != nil {
		return err
	}
	s.committed(ctx, req, []*ManagementActivity{act}, false)
	return nil
}

// MyRequests lists the actor's own requests.
func (s *Service) MyRequests(ctx context.Context, actor Actor) ([]*Request, error) {
	if actor.Anonymous() {
		return nil, NotAuthorized("you must be logged in to list your requests")
	}
	return s.store.ListByOwner(ctx, actor.ID)
}

// PublicRequests lists moderated (terminal) requests, visible to anyone.
func (s *Service) PublicRequests(ctx context.Context) ([]*Request, error) {
	return s.store.ListPublic(ctx)
}

// PendingReview lists requests awaiting or under the body's review.
func (s *Service) PendingReview(ctx context.Context, actor Actor, body ReviewBody) ([]*Request, error) {
	if !body.Valid() {
		return nil, ErrInvalidAction
	}
	if d := CanListPending(actor, body); !d.Allowed {
		obs.RecordGateDenial("list_pending")
		return nil, NotAuthorized(d.Reason)
	}
	return s.store.ListPendingReview(ctx, body)
}

// Activities returns the request's management activity trail, subject to the
// same visibility gate as Show.
func (s *Service) Activities(ctx context.Context, actor Actor, referenceID string) ([]*ManagementActivity, error) {
	req, err := s.store.Get(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if d := CanShow(req, actor); !d.Allowed {
		obs.RecordGateDenial("activities")
		return nil, NotAuthorized(d.Reason)
	}
	return s.store.ListActivities(ctx, referenceID)
}
