package staffing

import (
	"context"
	"time"

	"github.com/good-yellow-bee/staffplan/internal/models"
)

// OverlappingAllocation sums the allocation of the engineer's assignments
// whose interval intersects iv, skipping excludeID when non-empty.
// Intersection is inclusive: touching endpoints overlap.
func (s *Service) OverlappingAllocation(ctx context.Context, engineerID string, iv models.Interval, excludeID string) (int, error) {
	assignments, err := s.store.Assignments().ListOverlapping(ctx, engineerID, iv, excludeID)
	if err != nil {
		return 0, StoreFailure("list overlapping assignments", err)
	}
	return models.SumAllocation(assignments), nil
}

// AllocatedAt sums the allocation of the engineer's assignments covering the
// calendar day of t.
func (s *Service) AllocatedAt(ctx context.Context, engineerID string, t time.Time) (int, error) {
	return s.OverlappingAllocation(ctx, engineerID, models.DayInterval(t), "")
}
