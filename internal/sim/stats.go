package sim

import "dcpr.org/internal/dcpr"

// Counter tallies simulated request outcomes.
type Counter struct {
	Started        int
	Accepted       int
	Rejected       int
	Clarifications int
}

func (c *Counter) AddOutcome(status dcpr.Status) {
	switch status {
	case dcpr.StatusAccepted:
		c.Accepted++
	case dcpr.StatusRejected:
		c.Rejected++
	}
}

func (c Counter) Resolved() int { return c.Accepted + c.Rejected }
