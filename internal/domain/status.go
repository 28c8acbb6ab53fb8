package domain

import "fmt"

// Status tracks how far a scenario has progressed. The zero-ish default
// for new scenarios is StatusPlanned.
type Status string

const (
	StatusPlanned     Status = "planned"
	StatusInProgress  Status = "in_progress"
	StatusImplemented Status = "implemented"
	StatusTested      Status = "tested"
	StatusDeployed    Status = "deployed"
	StatusDeprecated  Status = "deprecated"
)

var statusRank = map[Status]int{
	StatusPlanned:     0,
	StatusInProgress:  1,
	StatusImplemented: 2,
	StatusTested:      3,
	StatusDeployed:    4,
	StatusDeprecated:  5,
}

// ParseStatus accepts the canonical lowercase encodings.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusRank[st]; !ok {
		return "", fmt.Errorf("%w: invalid status %q (valid: planned, in_progress, implemented, tested, deployed, deprecated)", ErrValidation, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

func (s Status) Rank() int { return statusRank[s] }

// DisplayName returns the upper-cased form used in rendered documents.
func (s Status) DisplayName() string {
	switch s {
	case StatusPlanned:
		return "PLANNED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusImplemented:
		return "IMPLEMENTED"
	case StatusTested:
		return "TESTED"
	case StatusDeployed:
		return "DEPLOYED"
	case StatusDeprecated:
		return "DEPRECATED"
	}
	return string(s)
}

// AggregateStatus reduces scenario statuses to a single use-case status.
// Deprecated anywhere wins; all-planned stays planned; otherwise the
// lowest-ranked non-planned status is reported.
func AggregateStatus(statuses []Status) Status {
	if len(statuses) == 0 {
		return StatusPlanned
	}
	allPlanned := true
	var min Status
	for _, s := range statuses {
		if s == StatusDeprecated {
			return StatusDeprecated
		}
		if s == StatusPlanned {
			continue
		}
		allPlanned = false
		if min == "" || s.Rank() < min.Rank() {
			min = s
		}
	}
	if allPlanned {
		return StatusPlanned
	}
	return min
}
