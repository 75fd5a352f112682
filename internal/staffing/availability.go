package staffing

import (
	"context"
	"sort"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// CapacityReport summarizes an engineer's allocation on the current day.
type CapacityReport struct {
	EngineerID        string `json:"engineer_id"`
	Name              string `json:"name"`
	MaxCapacity       int    `json:"max_capacity"`
	Allocated         int    `json:"allocated"`
	Available         int    `json:"available"`
	ActiveAssignments int    `json:"active_assignments"`
}

// Availability is the result of NextAvailableDate.
type Availability struct {
	EngineerID    string    `json:"engineer_id"`
	AvailableFrom time.Time `json:"available_from"`
	AvailableNow  bool      `json:"available_now"`
	AllocatedNow  int       `json:"allocated_now"`
	MaxCapacity   int       `json:"max_capacity"`
}

// Capacity reports how much of the engineer's capacity is committed today.
func (s *Service) Capacity(ctx context.Context, engineerID string) (*CapacityReport, error) {
	engineer, err := s.loadEngineer(ctx, engineerID)
	if err != nil {
		return nil, err
	}

	active, err := s.store.Assignments().ListOverlapping(ctx, engineer.ID, models.DayInterval(s.now()), "")
	if err != nil {
		return nil, StoreFailure("list active assignments", err)
	}

	allocated := models.SumAllocation(active)
	available := engineer.MaxCapacity - allocated
	if available < 0 {
		available = 0
	}
	return &CapacityReport{
		EngineerID:        engineer.ID,
		Name:              engineer.Name,
		MaxCapacity:       engineer.MaxCapacity,
		Allocated:         allocated,
		Available:         available,
		ActiveAssignments: len(active),
	}, nil
}

// NextAvailableDate returns when the engineer next has free capacity. An
// engineer below capacity today is available at the current instant.
func (s *Service) NextAvailableDate(ctx context.Context, engineerID string) (*Availability, error) {
	engineer, err := s.loadEngineer(ctx, engineerID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.Assignments().ListByEngineer(ctx, engineer.ID)
	if err != nil {
		return nil, StoreFailure("list engineer assignments", err)
	}

	now := s.now()
	allocatedNow := allocationOn(assignments, models.DateOf(now))
	result := &Availability{
		EngineerID:   engineer.ID,
		AllocatedNow: allocatedNow,
		MaxCapacity:  engineer.MaxCapacity,
	}
	if allocatedNow < engineer.MaxCapacity {
		result.AvailableFrom = now
		result.AvailableNow = true
		return result, nil
	}

	switch s.availability {
	case AvailabilityUpperBound:
		result.AvailableFrom = latestEnd(assignments)
	default:
		result.AvailableFrom = firstFreeDay(assignments, models.DateOf(now), engineer.MaxCapacity)
	}
	return result, nil
}

// allocationOn sums the allocation of assignments covering day.
func allocationOn(assignments []*models.Assignment, day time.Time) int {
	total := 0
	for _, a := range assignments {
		if a.ActiveAt(day) {
			total += a.AllocationPercentage
		}
	}
	return total
}

func latestEnd(assignments []*models.Assignment) time.Time {
	var latest time.Time
	for _, a := range assignments {
		if a.EndDate.After(latest) {
			latest = a.EndDate
		}
	}
	return models.DateOf(latest)
}

// firstFreeDay sweeps the days following each assignment end, in order, and
// returns the first one whose total allocation is below maxCapacity.
// Allocation only drops the day after some assignment ends, so no other day
// can be earlier.
func firstFreeDay(assignments []*models.Assignment, today time.Time, maxCapacity int) time.Time {
	seen := make(map[time.Time]struct{})
	var candidates []time.Time
	for _, a := range assignments {
		if a.EndDate.Before(today) {
			continue
		}
		next := models.DateOf(a.EndDate).AddDate(0, 0, 1)
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		candidates = append(candidates, next)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	for _, day := range candidates {
		if allocationOn(assignments, day) < maxCapacity {
			return day
		}
	}
	// Unreachable while maxCapacity > 0: the day after the last end is free.
	return latestEnd(assignments).AddDate(0, 0, 1)
}
