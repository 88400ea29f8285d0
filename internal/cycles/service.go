package cycles

import (
	"context"
	"sync"
	"time"
)

// Service serves the seeded cycle and project data. Read-mostly; the
// mutex exists for the current-cycle pointer.
type Service struct {
	mu       sync.RWMutex
	cycles   []Cycle
	projects []Project
	now      func() time.Time
}

// NewService constructs a Service with demonstration seed data.
func NewService() *Service {
	return &Service{
		cycles:   seedCycles(),
		projects: seedProjects(),
		now:      time.Now,
	}
}

// ListCycles returns every cycle.
func (s *Service) ListCycles(ctx context.Context) []Cycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Cycle(nil), s.cycles...)
}

// GetCycle fetches one cycle by ID.
func (s *Service) GetCycle(ctx context.Context, id string) (Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cycles {
		if c.ID == id {
			return c, nil
		}
	}
	return Cycle{}, ErrNotFound
}

// CurrentCycle returns the active cycle, if any.
func (s *Service) CurrentCycle(ctx context.Context) (Cycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.cycles {
		if c.Status == StatusActive {
			return c, nil
		}
	}
	return Cycle{}, ErrNotFound
}

// ProjectsByCycle returns the projects bet into a cycle.
func (s *Service) ProjectsByCycle(ctx context.Context, cycleID string) []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Project
	for _, p := range s.projects {
		if p.CycleID == cycleID {
			out = append(out, p)
		}
	}
	return out
}

// RemainingDays reports whole days left in an active cycle, zero for
// any other status or an elapsed end date.
func (s *Service) RemainingDays(cycle Cycle) int {
	if cycle.Status != StatusActive {
		return 0
	}
	d := cycle.EndDate.Sub(s.now())
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

func seedCycles() []Cycle {
	return []Cycle{
		{
			ID:          "1",
			Name:        "Cycle Q2",
			Description: "UX and performance improvements",
			StartDate:   time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC),
			Status:      StatusActive,
			Theme:       "User experience",
		},
		{
			ID:          "2",
			Name:        "Cycle Q3",
			Description: "New collaboration features",
			StartDate:   time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2024, time.July, 15, 0, 0, 0, 0, time.UTC),
			Status:      StatusPlanning,
			Theme:       "Collaboration",
		},
	}
}

func seedProjects() []Project {
	return []Project{
		{
			ID:           "1",
			Name:         "Dashboard redesign",
			Description:  "More intuitive visualisations on the dashboard",
			CycleID:      "1",
			TeamMembers:  []string{"1", "2"},
			Progress:     65,
			HillPosition: 75,
		},
		{
			ID:           "2",
			Name:         "Performance pass",
			Description:  "Improve load and response times across the app",
			CycleID:      "1",
			TeamMembers:  []string{"3"},
			Progress:     30,
			HillPosition: 45,
		},
		{
			ID:           "3",
			Name:         "Comments",
			Description:  "Allow comments on pitches and projects",
			CycleID:      "2",
			TeamMembers:  nil,
			Progress:     0,
			HillPosition: 5,
		},
	}
}
