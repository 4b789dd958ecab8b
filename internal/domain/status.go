package domain

import (
	"fmt"
	"strings"
)

// CompensationStatus is the closed set of lifecycle states of a
// CompensationRecord.
type CompensationStatus string

const (
	StatusPending  CompensationStatus = "pending"
	StatusApproved CompensationStatus = "approved"
	StatusRejected CompensationStatus = "rejected"
	StatusApplied  CompensationStatus = "applied"
)

// transitions lists every allowed (from -> to) move. Anything absent is
// rejected, including self-transitions.
var transitions = map[CompensationStatus][]CompensationStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusApplied},
}

// AllStatuses returns the statuses in lifecycle order.
func AllStatuses() []CompensationStatus {
	return []CompensationStatus{StatusPending, StatusApproved, StatusRejected, StatusApplied}
}

// Valid reports whether s is one of the declared statuses.
func (s CompensationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusApplied:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s CompensationStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to CompensationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ParseStatus parses a case-insensitive status name.
func ParseStatus(raw string) (CompensationStatus, error) {
	s := CompensationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown compensation status %q", raw)
	}
	return s, nil
}
