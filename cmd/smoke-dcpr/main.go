package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"dcpr.org/internal/dcpr"
	"dcpr.org/internal/notify"
)

// Exercises the full review workflow end to end against the in-memory
// store: preparation, NSIF clarification round-trip, NSIF approval, CSI
// approval, and notification dispatch.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	jobs := notify.NewInMemoryJobStore()
	svc := dcpr.NewService(dcpr.NewInMemory(), dcpr.WithQueue(notify.NewQueue(jobs)))

	alice := dcpr.Actor{ID: "alice", Organizations: []string{"metro-planning"}}
	bob := dcpr.Actor{ID: "bob", Organizations: []string{"NSIF"}}
	carol := dcpr.Actor{ID: "carol", Organizations: []string{"CSI"}}

	req, err := svc.Create(ctx, alice, dcpr.CreateRequestPayload{
		ProposedProjectName: "Coastal erosion capture",
		CostEstimate:        120000,
	})
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	expectStatus(req, dcpr.StatusUnderPreparation)

	req, err = svc.Submit(ctx, alice, req.ReferenceID)
	if err != nil {
		log.Fatalf("submit: %v", err)
	}
	expectStatus(req, dcpr.StatusAwaitingNSIFReview)

	req, err = svc.ClaimReviewer(ctx, bob, req.ReferenceID, dcpr.BodyNSIF)
	if err != nil {
		log.Fatalf("claim nsif: %v", err)
	}
	expectStatus(req, dcpr.StatusUnderNSIFReview)

	req, err = svc.Moderate(ctx, bob, req.ReferenceID, dcpr.BodyNSIF, dcpr.ModeratePayload{
		Action: dcpr.ActionRequestClarification,
		Notes:  "capture window too vague",
	})
	if err != nil {
		log.Fatalf("request clarification: %v", err)
	}
	expectStatus(req, dcpr.StatusModificationRequestedByNSIF)

	req, err = svc.UpdateByOwner(ctx, alice, req.ReferenceID, dcpr.OwnerUpdatePayload{
		CaptureStartDate: "2026-10-01",
		CaptureEndDate:   "2026-12-15",
	})
	if err != nil {
		log.Fatalf("owner update: %v", err)
	}
	expectStatus(req, dcpr.StatusUnderNSIFReview)

	req, err = svc.Moderate(ctx, bob, req.ReferenceID, dcpr.BodyNSIF, dcpr.ModeratePayload{
		Action: dcpr.ActionApprove,
	})
	if err != nil {
		log.Fatalf("nsif approve: %v", err)
	}
	expectStatus(req, dcpr.StatusAwaitingCSIReview)

	req, err = svc.ClaimReviewer(ctx, carol, req.ReferenceID, dcpr.BodyCSI)
	if err != nil {
		log.Fatalf("claim csi: %v", err)
	}
	expectStatus(req, dcpr.StatusUnderCSIReview)

	req, err = svc.Moderate(ctx, carol, req.ReferenceID, dcpr.BodyCSI, dcpr.ModeratePayload{
		Action: dcpr.ActionApprove,
	})
	if err != nil {
		log.Fatalf("csi approve: %v", err)
	}
	expectStatus(req, dcpr.StatusAccepted)

	acts, err := svc.Activities(ctx, alice, req.ReferenceID)
	if err != nil {
		log.Fatalf("activities: %v", err)
	}
	if len(acts) != 8 {
		log.Fatalf("expected 8 activities, got %d", len(acts))
	}

	depth, err := jobs.Depth(ctx)
	if err != nil {
		log.Fatalf("queue depth: %v", err)
	}
	// submit + clarification + nsif approve + csi approve
	if depth != 4 {
		log.Fatalf("expected 4 queued notifications, got %d", depth)
	}

	fmt.Printf("✅ dcpr smoke test passed: %s accepted\n", req.ReferenceID)
}

func expectStatus(req *dcpr.Request, want dcpr.Status) {
	if req.Status != want {
		log.Fatalf("request %s: expected status %s, got %s", req.ReferenceID, want, req.Status)
	}
}
