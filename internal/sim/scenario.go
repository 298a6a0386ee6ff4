package sim

import (
	"fmt"
	"math/rand"
	"time"

	"dcpr.org/internal/dcpr"
)

// Participant is a simulated user driving the workflow.
type Participant struct {
	ID    string
	Orgs  []string
	Label string
}

func (p Participant) Actor() dcpr.Actor {
	return dcpr.Actor{ID: p.ID, Organizations: p.Orgs}
}

// Scenario describes a population of owners and reviewers plus the project
// names their proposals draw from.
type Scenario struct {
	Name     string
	Owners   []Participant
	NSIF     []Participant
	CSI      []Participant
	Projects []string
	Contexts []string
}

func CaptureSeasonScenario() Scenario {
	return Scenario{
		Name: "CaptureSeason",
		Owners: []Participant{
			{ID: "owner-metro-001", Orgs: []string{"metro-planning"}, Label: "Metro Planning Office"},
			{ID: "owner-water-002", Orgs: []string{"water-affairs"}, Label: "Water Affairs Directorate"},
			{ID: "owner-rural-003", Orgs: []string{"rural-development"}, Label: "Rural Development Agency"},
		},
		NSIF: []Participant{
			{ID: "nsif-reviewer-001", Orgs: []string{"NSIF"}, Label: "NSIF desk A"},
			{ID: "nsif-reviewer-002", Orgs: []string{"NSIF"}, Label: "NSIF desk B"},
		},
		CSI: []Participant{
			{ID: "csi-moderator-001", Orgs: []string{"CSI"}, Label: "CSI committee"},
		},
		Projects: []string{
			"Coastal erosion aerial capture",
			"Informal settlement boundary survey",
			"Provincial road network lidar sweep",
			"Wetland classification imagery refresh",
		},
		Contexts: []string{
			"Annual capture season baseline",
			"Post-flood damage assessment",
			"Cadastral modernisation programme",
		},
	}
}

// Decision is one randomized moderation verdict.
type Decision struct {
	Action dcpr.Action
	Notes  string
}

// Generator produces randomized proposals and verdicts for a scenario.
type Generator struct {
	scenario Scenario
	rnd      *rand.Rand
	seq      int
}

func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{scenario: CaptureSeasonScenario(), rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Scenario() Scenario { return g.scenario }

func (g *Generator) Owner() Participant {
	return g.scenario.Owners[g.rnd.Intn(len(g.scenario.Owners))]
}

func (g *Generator) Reviewer(body dcpr.ReviewBody) Participant {
	pool := g.scenario.NSIF
	if body == dcpr.BodyCSI {
		pool = g.scenario.CSI
	}
	return pool[g.rnd.Intn(len(pool))]
}

func (g *Generator) NextProposal() dcpr.CreateRequestPayload {
	g.seq++
	start := time.Now().AddDate(0, 1+g.rnd.Intn(6), 0)
	end := start.AddDate(0, 1+g.rnd.Intn(3), 0)
	return dcpr.CreateRequestPayload{
		ProposedProjectName: fmt.Sprintf("%s #%03d", g.scenario.Projects[g.rnd.Intn(len(g.scenario.Projects))], g.seq),
		ProjectContext:      g.scenario.Contexts[g.rnd.Intn(len(g.scenario.Contexts))],
		CaptureStartDate:    start.Format("2006-01-02"),
		CaptureEndDate:      end.Format("2006-01-02"),
		CostEstimate:        float64((g.rnd.Intn(900) + 100)) * 1000,
	}
}

// NextDecision weights verdicts so most requests eventually pass: 60%
// approve, 25% clarification, 15% reject.
func (g *Generator) NextDecision() Decision {
	roll := g.rnd.Float64()
	switch {
	case roll < 0.60:
		return Decision{Action: dcpr.ActionApprove, Notes: "meets capture standards"}
	case roll < 0.85:
		return Decision{Action: dcpr.ActionRequestClarification, Notes: "capture window needs detail"}
	default:
		return Decision{Action: dcpr.ActionReject, Notes: "duplicates an existing capture"}
	}
}
