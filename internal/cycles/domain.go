// Package cycles is the Shape Up read model: betting cycles and the
// projects bet into them.
package cycles

import (
	"errors"
	"time"
)

// ErrNotFound indicates the requested cycle does not exist.
var ErrNotFound = errors.New("cycles: not found")

// CycleStatus tracks where a cycle sits in the Shape Up cadence.
type CycleStatus string

const (
	StatusPlanning  CycleStatus = "PLANNING"
	StatusActive    CycleStatus = "ACTIVE"
	StatusCooldown  CycleStatus = "COOLDOWN"
	StatusCompleted CycleStatus = "COMPLETED"
)

// Cycle is one six-week betting cycle.
type Cycle struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartDate   time.Time   `json:"start_date"`
	EndDate     time.Time   `json:"end_date"`
	Status      CycleStatus `json:"status"`
	Theme       string      `json:"theme,omitempty"`
}

// Project is a bet placed into a cycle. HillPosition runs 0-100 over
// the hill chart: below 50 is figuring-out, above is execution.
type Project struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	CycleID      string   `json:"cycle_id"`
	TeamMembers  []string `json:"team_members"`
	Progress     int      `json:"progress"`
	HillPosition int      `json:"hill_position"`
}
