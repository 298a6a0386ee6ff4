package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"dcpr.org/internal/dcpr"
	"dcpr.org/internal/notify"
	"dcpr.org/internal/sim"
)

// Drives randomized request lifecycles through the workflow service and
// checks that every one of them lands in a terminal status.
func main() {
	log.SetFlags(0)
	var (
		count = flag.Int("count", 25, "number of request lifecycles to run")
		seed  = flag.Int64("seed", 0, "random seed (0 = time-based)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	jobs := notify.NewInMemoryJobStore()
	svc := dcpr.NewService(dcpr.NewInMemory(), dcpr.WithQueue(notify.NewQueue(jobs)))
	gen := sim.NewGenerator(*seed)

	var stats sim.Counter
	for i := 0; i < *count; i++ {
		status, err := runLifecycle(ctx, svc, gen, &stats)
		if err != nil {
			log.Fatalf("lifecycle %d: %v", i+1, err)
		}
		if !status.Terminal() {
			log.Fatalf("lifecycle %d ended in non-terminal status %s", i+1, status)
		}
		stats.AddOutcome(status)
	}

	if stats.Resolved() != *count {
		log.Fatalf("resolved %d of %d lifecycles", stats.Resolved(), *count)
	}
	depth, err := jobs.Depth(ctx)
	if err != nil {
		log.Fatalf("queue depth: %v", err)
	}
	fmt.Printf("✅ simulated %d lifecycles: %d accepted, %d rejected, %d clarification rounds, %d notifications queued\n",
		*count, stats.Accepted, stats.Rejected, stats.Clarifications, depth)
}

func runLifecycle(ctx context.Context, svc *dcpr.Service, gen *sim.Generator, stats *sim.Counter) (dcpr.Status, error) {
	owner := gen.Owner().Actor()
	req, err := svc.Create(ctx, owner, gen.NextProposal())
	if err != nil {
		return "", fmt.Errorf("create: %w", err)
	}
	stats.Started++

	req, err = svc.Submit(ctx, owner, req.ReferenceID)
	if err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}

	for _, body := range []dcpr.ReviewBody{dcpr.BodyNSIF, dcpr.BodyCSI} {
		reviewer := gen.Reviewer(body).Actor()
		req, err = svc.ClaimReviewer(ctx, reviewer, req.ReferenceID, body)
		if err != nil {
			return "", fmt.Errorf("claim %s: %w", body, err)
		}

		rounds := 0
		for {
			decision := gen.NextDecision()
			if rounds >= 3 && decision.Action == dcpr.ActionRequestClarification {
				decision.Action = dcpr.ActionApprove
			}
			req, err = svc.Moderate(ctx, reviewer, req.ReferenceID, body, dcpr.ModeratePayload{
				Action: decision.Action,
				Notes:  decision.Notes,
			})
			if err != nil {
				return "", fmt.Errorf("moderate %s: %w", body, err)
			}
			if decision.Action != dcpr.ActionRequestClarification {
				break
			}
			stats.Clarifications++
			rounds++
			req, err = svc.UpdateByOwner(ctx, owner, req.ReferenceID, dcpr.OwnerUpdatePayload{
				ProjectContext: "clarified per reviewer notes",
			})
			if err != nil {
				return "", fmt.Errorf("owner update: %w", err)
			}
		}
		if req.Status == dcpr.StatusRejected {
			return req.Status, nil
		}
	}
	return req.Status, nil
}
