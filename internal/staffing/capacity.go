package staffing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/metrics"
	"github.com/good-yellow-bee/staffplan/internal/models"
)

// AssignmentInput holds the fields of a new assignment.
type AssignmentInput struct {
	EngineerID           string
	ProjectID            string
	AllocationPercentage int
	StartDate            time.Time
	EndDate              time.Time
	Role                 models.AssignmentRole // defaults to Developer

	// FieldErrors are request fields the caller could not decode, such as
	// a missing allocation or an unparseable date. They are reported as
	// validation failures after the reference format checks.
	FieldErrors []error
}

// AssignmentPatch holds the fields of an assignment update. Nil fields keep
// their stored value.
type AssignmentPatch struct {
	EngineerID           *string
	ProjectID            *string
	AllocationPercentage *int
	StartDate            *time.Time
	EndDate              *time.Time
	Role                 *models.AssignmentRole

	// FieldErrors are reported as validation failures once the assignment
	// is known to exist.
	FieldErrors []error
}

// CreateAssignment validates and persists a new assignment, rejecting it
// when it would push the engineer past max capacity.
func (s *Service) CreateAssignment(ctx context.Context, in AssignmentInput) (*models.Assignment, error) {
	if err := parseID("engineer", in.EngineerID); err != nil {
		return nil, err
	}
	if err := parseID("project", in.ProjectID); err != nil {
		return nil, err
	}

	if len(in.FieldErrors) > 0 {
		return nil, Validation(in.FieldErrors[0])
	}

	role := in.Role
	if role == "" {
		role = models.AssignmentDeveloper
	}
	now := s.now()
	a := &models.Assignment{
		ID:                   uuid.New().String(),
		EngineerID:           in.EngineerID,
		ProjectID:            in.ProjectID,
		AllocationPercentage: in.AllocationPercentage,
		StartDate:            models.DateOf(in.StartDate),
		EndDate:              models.DateOf(in.EndDate),
		Role:                 role,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := a.Validate(); err != nil {
		return nil, Validation(err)
	}

	engineer, err := s.loadEngineer(ctx, a.EngineerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadProject(ctx, a.ProjectID); err != nil {
		return nil, err
	}

	err = s.withEngineerLock(ctx, engineer.ID, func() error {
		var existing int
		var err error
		switch s.createPolicy {
		case CreateCheckNow:
			existing, err = s.AllocatedAt(ctx, engineer.ID, now)
		default:
			existing, err = s.OverlappingAllocation(ctx, engineer.ID, a.Interval(), "")
		}
		if err != nil {
			return err
		}
		if err := checkCapacity("create", a.AllocationPercentage, existing, engineer.MaxCapacity); err != nil {
			return err
		}
		if err := s.store.Assignments().Create(ctx, a); err != nil {
			return StoreFailure("create assignment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reread(ctx, a.ID)
}

// UpdateAssignment applies patch to an existing assignment. The capacity
// check covers the assignment's new interval and excludes the assignment
// itself.
func (s *Service) UpdateAssignment(ctx context.Context, id string, patch AssignmentPatch) (*models.Assignment, error) {
	current, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(patch.FieldErrors) > 0 {
		return nil, Validation(patch.FieldErrors[0])
	}

	a := *current
	if patch.EngineerID != nil {
		a.EngineerID = *patch.EngineerID
	}
	if patch.ProjectID != nil {
		a.ProjectID = *patch.ProjectID
	}
	if patch.AllocationPercentage != nil {
		a.AllocationPercentage = *patch.AllocationPercentage
	}
	if patch.StartDate != nil {
		a.StartDate = models.DateOf(*patch.StartDate)
	}
	if patch.EndDate != nil {
		a.EndDate = models.DateOf(*patch.EndDate)
	}
	if patch.Role != nil {
		a.Role = *patch.Role
	}

	if a.EndDate.Before(a.StartDate) {
		return nil, Validation(models.ErrEndBeforeStart)
	}
	if err := a.Validate(); err != nil {
		return nil, Validation(err)
	}

	// Malformed reference ids surface here, after field validation.
	engineer, err := s.loadEngineer(ctx, a.EngineerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadProject(ctx, a.ProjectID); err != nil {
		return nil, err
	}

	a.UpdatedAt = s.now()
	err = s.withEngineerLock(ctx, engineer.ID, func() error {
		existing, err := s.OverlappingAllocation(ctx, engineer.ID, a.Interval(), a.ID)
		if err != nil {
			return err
		}
		if err := checkCapacity("update", a.AllocationPercentage, existing, engineer.MaxCapacity); err != nil {
			return err
		}
		if err := s.store.Assignments().Update(ctx, &a); err != nil {
			return StoreFailure("update assignment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reread(ctx, a.ID)
}

// DeleteAssignment removes an assignment.
func (s *Service) DeleteAssignment(ctx context.Context, id string) error {
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Assignments().Delete(ctx, a.ID); err != nil {
		return StoreFailure("delete assignment", err)
	}
	return nil
}

// GetAssignment returns the assignment with id.
func (s *Service) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	if err := parseID("assignment", id); err != nil {
		return nil, err
	}
	a, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, StoreFailure("get assignment", err)
	}
	if a == nil {
		return nil, NotFound("assignment not found")
	}
	return a, nil
}

func (s *Service) reread(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := s.store.Assignments().GetByID(ctx, id)
	if err != nil {
		return nil, StoreFailure("reload assignment", err)
	}
	if a == nil {
		return nil, NotFound("assignment not found")
	}
	return a, nil
}

func checkCapacity(op string, attempted, existing, maxCapacity int) error {
	if attempted+existing > maxCapacity {
		metrics.CapacityChecksTotal.WithLabelValues(op, "rejected").Inc()
		return CapacityExceeded(attempted, existing, maxCapacity)
	}
	metrics.CapacityChecksTotal.WithLabelValues(op, "accepted").Inc()
	return nil
}

// withEngineerLock runs fn while holding the engineer's lock.
func (s *Service) withEngineerLock(ctx context.Context, engineerID string, fn func() error) error {
	backend := s.locker.Backend()
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, engineerID)
	metrics.CapacityLockWait.WithLabelValues(backend).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CapacityLockErrors.WithLabelValues(backend).Inc()
		return StoreFailure("acquire engineer lock", err)
	}
	defer unlock()
	return fn()
}
