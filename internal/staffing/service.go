// Package staffing implements the allocation-capacity engine: the rules
// that accept or reject assignment writes against an engineer's maximum
// capacity, and the capacity, availability and skill-gap queries built on
// overlapping date ranges.
package staffing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/staffplan/internal/models"
	"github.com/good-yellow-bee/staffplan/internal/storage"
)

// CreatePolicy selects how a new assignment is checked against capacity.
type CreatePolicy string

const (
	// CreateCheckInterval sums allocations overlapping the new assignment's
	// own interval, the same rule update uses.
	CreateCheckInterval CreatePolicy = "interval"
	// CreateCheckNow sums allocations active on the current day only.
	CreateCheckNow CreatePolicy = "now"
)

// AvailabilityMode selects how NextAvailableDate resolves a fully booked
// engineer.
type AvailabilityMode string

const (
	// AvailabilityExact returns the first day on which allocation drops
	// below capacity.
	AvailabilityExact AvailabilityMode = "exact"
	// AvailabilityUpperBound returns the latest end date across all of the
	// engineer's assignments.
	AvailabilityUpperBound AvailabilityMode = "upper_bound"
)

// ParseCreatePolicy validates a configured create policy.
func ParseCreatePolicy(s string) (CreatePolicy, error) {
	switch p := CreatePolicy(s); p {
	case CreateCheckInterval, CreateCheckNow:
		return p, nil
	default:
		return "", fmt.Errorf("create check must be one of: interval, now")
	}
}

// ParseAvailabilityMode validates a configured availability mode.
func ParseAvailabilityMode(s string) (AvailabilityMode, error) {
	switch m := AvailabilityMode(s); m {
	case AvailabilityExact, AvailabilityUpperBound:
		return m, nil
	default:
		return "", fmt.Errorf("availability must be one of: exact, upper_bound")
	}
}

// Service is the capacity engine. It is safe for concurrent use.
type Service struct {
	store        storage.Storage
	locker       Locker
	now          func() time.Time
	createPolicy CreatePolicy
	availability AvailabilityMode
}

// Option configures a Service.
type Option func(*Service)

// WithLocker sets the per-engineer serialization point.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCreatePolicy sets the capacity rule for new assignments.
func WithCreatePolicy(p CreatePolicy) Option {
	return func(s *Service) { s.createPolicy = p }
}

// WithAvailabilityMode sets the NextAvailableDate algorithm.
func WithAvailabilityMode(m AvailabilityMode) Option {
	return func(s *Service) { s.availability = m }
}

// NewService creates a capacity engine over store. Defaults: in-process
// keyed mutex, wall clock, interval create check, exact availability.
func NewService(store storage.Storage, opts ...Option) *Service {
	s := &Service{
		store:        store,
		locker:       NewKeyedMutex(),
		now:          time.Now,
		createPolicy: CreateCheckInterval,
		availability: AvailabilityExact,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Service) Store() storage.Storage {
	return s.store
}

// parseID rejects ids that are not UUIDs.
func parseID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return InvalidReference("invalid %s id: %q", kind, id)
	}
	return nil
}

// loadEngineer returns the user with id when it exists and is an engineer.
func (s *Service) loadEngineer(ctx context.Context, id string) (*models.User, error) {
	if err := parseID("engineer", id); err != nil {
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return nil, StoreFailure("get engineer", err)
	}
	if user == nil || !user.IsEngineer() {
		return nil, NotFound("engineer not found")
	}
	return user, nil
}

func (s *Service) loadProject(ctx context.Context, id string) (*models.Project, error) {
	if err := parseID("project", id); err != nil {
		return nil, err
	}
	project, err := s.store.Projects().GetByID(ctx, id)
	if err != nil {
		return nil, StoreFailure("get project", err)
	}
	if project == nil {
		return nil, NotFound("project not found")
	}
	return project, nil
}

// Engineer returns the engineer with id. Users that exist but are not
// engineers are reported as not found.
func (s *Service) Engineer(ctx context.Context, id string) (*models.User, error) {
	return s.loadEngineer(ctx, id)
}

// Project returns the project with id.
func (s *Service) Project(ctx context.Context, id string) (*models.Project, error) {
	return s.loadProject(ctx, id)
}

func (s *Service) today() time.Time {
	return models.DateOf(s.now())
}
