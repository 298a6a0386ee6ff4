package dcpr

import "testing"

func req(status Status) *Request {
	return &Request{
		ReferenceID:  "DCPR-TEST",
		Status:       status,
		OwnerUser:    "alice",
		NSIFReviewer: "bob",
		CSIModerator: "carol",
	}
}

var (
	alice     = Actor{ID: "alice", Organizations: []string{"metro-planning"}}
	bob       = Actor{ID: "bob", Organizations: []string{"NSIF"}}
	carol     = Actor{ID: "carol", Organizations: []string{"CSI"}}
	dave      = Actor{ID: "dave", Organizations: []string{"NSIF"}}
	root      = Actor{ID: "root", Sysadmin: true}
	anonymous = Actor{}
)

func TestCanCreate(t *testing.T) {
	if d := CanCreate(anonymous); d.Allowed {
		t.Fatal("anonymous must not create")
	}
	if d := CanCreate(Actor{ID: "orgless"}); d.Allowed {
		t.Fatal("users without an organization must not create")
	}
	if d := CanCreate(alice); !d.Allowed {
		t.Fatalf("org member should create: %s", d.Reason)
	}
	if d := CanCreate(root); !d.Allowed {
		t.Fatalf("sysadmin should create: %s", d.Reason)
	}
}

func TestCanShowVisibility(t *testing.T) {
	cases := []struct {
		name    string
		status  Status
		actor   Actor
		allowed bool
	}{
		{"owner sees own draft", StatusUnderPreparation, alice, true},
		{"sysadmin sees draft", StatusUnderPreparation, root, true},
		{"stranger blind to draft", StatusUnderPreparation, carol, false},
		{"anonymous blind to draft", StatusUnderPreparation, anonymous, false},
		{"nsif member sees awaiting nsif", StatusAwaitingNSIFReview, bob, true},
		{"csi member blind to awaiting nsif", StatusAwaitingNSIFReview, carol, false},
		{"csi member sees under csi", StatusUnderCSIReview, carol, true},
		{"nsif member blind to under csi", StatusUnderCSIReview, bob, false},
		{"anyone sees accepted", StatusAccepted, anonymous, true},
		{"anyone sees rejected", StatusRejected, anonymous, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := CanShow(req(tc.status), tc.actor)
			if d.Allowed != tc.allowed {
				t.Fatalf("allowed=%v, want %v (%s)", d.Allowed, tc.allowed, d.Reason)
			}
		})
	}
}

func TestCanUpdateByOwner(t *testing.T) {
	for _, status := range []Status{StatusUnderPreparation, StatusModificationRequestedByNSIF, StatusModificationRequestedByCSI} {
		if d := CanUpdateByOwner(req(status), alice); !d.Allowed {
			t.Fatalf("owner should update in %s: %s", status, d.Reason)
		}
		if d := CanUpdateByOwner(req(status), root); !d.Allowed {
			t.Fatalf("sysadmin should update in %s: %s", status, d.Reason)
		}
		if d := CanUpdateByOwner(req(status), bob); d.Allowed {
			t.Fatalf("non-owner must not update in %s", status)
		}
	}
	for _, status := range []Status{StatusAwaitingNSIFReview, StatusUnderNSIFReview, StatusAccepted, StatusRejected} {
		if d := CanUpdateByOwner(req(status), alice); d.Allowed {
			t.Fatalf("owner must not update in %s", status)
		}
	}
}

func TestCanModerate(t *testing.T) {
	if d := CanModerate(req(StatusUnderNSIFReview), bob, BodyNSIF); !d.Allowed {
		t.Fatalf("bound reviewer should moderate: %s", d.Reason)
	}
	if d := CanModerate(req(StatusUnderNSIFReview), root, BodyNSIF); !d.Allowed {
		t.Fatalf("sysadmin should moderate: %s", d.Reason)
	}
	// Organization membership alone is not enough: the role is bound.
	if d := CanModerate(req(StatusUnderNSIFReview), dave, BodyNSIF); d.Allowed {
		t.Fatal("unbound NSIF member must not moderate")
	}
	if d := CanModerate(req(StatusAwaitingNSIFReview), bob, BodyNSIF); d.Allowed {
		t.Fatal("cannot moderate before a claim")
	}
	if d := CanModerate(req(StatusUnderCSIReview), carol, BodyCSI); !d.Allowed {
		t.Fatalf("bound moderator should moderate: %s", d.Reason)
	}
	if d := CanModerate(req(StatusUnderCSIReview), bob, BodyCSI); d.Allowed {
		t.Fatal("NSIF reviewer must not moderate for CSI")
	}
}

func TestCanClaim(t *testing.T) {
	if d := CanClaim(req(StatusAwaitingNSIFReview), bob, BodyNSIF); !d.Allowed {
		t.Fatalf("NSIF member should claim: %s", d.Reason)
	}
	if d := CanClaim(req(StatusAwaitingNSIFReview), carol, BodyNSIF); d.Allowed {
		t.Fatal("non-member must not claim")
	}
	if d := CanClaim(req(StatusUnderNSIFReview), dave, BodyNSIF); d.Allowed {
		t.Fatal("cannot claim once under review")
	}
	if d := CanClaim(req(StatusAwaitingCSIReview), root, BodyCSI); !d.Allowed {
		t.Fatalf("sysadmin should claim: %s", d.Reason)
	}
}

func TestCanResign(t *testing.T) {
	if d := CanResign(req(StatusUnderNSIFReview), bob, BodyNSIF); !d.Allowed {
		t.Fatalf("bound reviewer should resign: %s", d.Reason)
	}
	if d := CanResign(req(StatusUnderNSIFReview), dave, BodyNSIF); d.Allowed {
		t.Fatal("unbound member must not resign")
	}
	if d := CanResign(req(StatusAwaitingNSIFReview), bob, BodyNSIF); d.Allowed {
		t.Fatal("nothing to resign while awaiting review")
	}
}

func TestCanDelete(t *testing.T) {
	if d := CanDelete(req(StatusUnderPreparation), alice); !d.Allowed {
		t.Fatalf("owner should delete a draft: %s", d.Reason)
	}
	if d := CanDelete(req(StatusUnderPreparation), bob); d.Allowed {
		t.Fatal("non-owner must not delete")
	}
	if d := CanDelete(req(StatusAwaitingNSIFReview), alice); d.Allowed {
		t.Fatal("submitted requests are not deletable")
	}
}

func TestCanListPending(t *testing.T) {
	if d := CanListPending(bob, BodyNSIF); !d.Allowed {
		t.Fatalf("NSIF member should list NSIF queue: %s", d.Reason)
	}
	if d := CanListPending(bob, BodyCSI); d.Allowed {
		t.Fatal("NSIF member must not list CSI queue")
	}
	if d := CanListPending(root, BodyCSI); !d.Allowed {
		t.Fatalf("sysadmin should list any queue: %s", d.Reason)
	}
	if d := CanListPending(anonymous, BodyNSIF); d.Allowed {
		t.Fatal("anonymous must not list pending queues")
	}
}
