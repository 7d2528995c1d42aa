package entity

import (
	"fmt"
	"strings"
)

// Status is the outreach lifecycle of a prospect.
type Status string

const (
	StatusNew       Status = "new"
	StatusQueued    Status = "queued"
	StatusContacted Status = "contacted"
	StatusReplied   Status = "replied"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusBad       Status = "bad"

	// Written by the two-state deployment. Readable, never written.
	StatusLegacyClosed  Status = "closed"
	StatusLegacyReached Status = "reached"
)

// Statuses lists the writable values in lifecycle order.
var Statuses = []Status{
	StatusNew,
	StatusQueued,
	StatusContacted,
	StatusReplied,
	StatusWon,
	StatusLost,
	StatusBad,
}

// Valid reports whether s may be written.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Closed reports whether the row carries one of the two-state deployment's
// closing values. The lifecycle statuses, won/lost/bad included, stay open.
func (s Status) Closed() bool {
	return s == StatusLegacyClosed || s == StatusLegacyReached
}

// ParseStatus normalizes case and surrounding space.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}
