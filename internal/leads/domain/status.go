// Package domain provides core business rules for the leads bounded context.
package domain

// Status is a lead's funnel stage.
type Status string

const (
	StatusNew              Status = "new"
	StatusContacted        Status = "contacted"
	StatusQualified        Status = "qualified"
	StatusViewingScheduled Status = "viewing_scheduled"
	StatusNegotiation      Status = "negotiation"
	StatusConverted        Status = "converted"
	StatusLost             Status = "lost"
)

// legalTransitions is the complete funnel edge table. There are no
// self-transitions, no backward moves, and no reopening path out of a
// terminal status.
var legalTransitions = map[Status]map[Status]bool{
	StatusNew:              {StatusContacted: true},
	StatusContacted:        {StatusQualified: true},
	StatusQualified:        {StatusViewingScheduled: true},
	StatusViewingScheduled: {StatusNegotiation: true},
	StatusNegotiation:      {StatusConverted: true, StatusLost: true},
}

var knownStatuses = map[Status]struct{}{
	StatusNew:              {},
	StatusContacted:        {},
	StatusQualified:        {},
	StatusViewingScheduled: {},
	StatusNegotiation:      {},
	StatusConverted:        {},
	StatusLost:             {},
}

// IsKnownStatus reports whether s is a valid lead status.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsTerminal reports whether a lead in this status has left the active
// funnel. Terminal leads do not count toward an agent's workload.
func IsTerminal(s Status) bool {
	return s == StatusConverted || s == StatusLost
}

// CanTransition reports whether from -> to is a legal funnel edge.
func CanTransition(from, to Status) bool {
	return legalTransitions[from][to]
}

// NextStatuses returns the legal destinations from the given status.
func NextStatuses(from Status) []Status {
	edges := legalTransitions[from]
	if len(edges) == 0 {
		return nil
	}
	out := make([]Status, 0, len(edges))
	// Fixed iteration order keeps error messages and tests deterministic.
	for _, s := range []Status{StatusContacted, StatusQualified, StatusViewingScheduled, StatusNegotiation, StatusConverted, StatusLost} {
		if edges[s] {
			out = append(out, s)
		}
	}
	return out
}
