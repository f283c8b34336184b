package service

import (
	"context"
	"errors"
	"sync"

	catalogerrors "maharaja/internal/catalog/errors"
	"maharaja/internal/catalog/repository"
	"maharaja/pkg/config"
	apperrors "maharaja/pkg/errors"
	"maharaja/pkg/model"
)

type ResourceService interface {
	GetResource(ctx context.Context, id string) (*model.Resource, error)
	ListActiveResources(ctx context.Context, filter model.ResourceFilter, limit int, offset int64) ([]*model.Resource, int64, error)
	Availability(ctx context.Context, id string, interval model.Interval) (*model.Availability, error)
}

// AvailabilityChecker is satisfied by the bookings conflict checker.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, resourceID string, interval model.Interval) (bool, error)
}

type resourceService struct {
	repo    repository.ResourceRepository
	checker AvailabilityChecker
	cfg     *config.Config
}

func NewResourceService(repo repository.ResourceRepository, checker AvailabilityChecker, cfg *config.Config) ResourceService {
	return &resourceService{
		repo:    repo,
		checker: checker,
		cfg:     cfg,
	}
}

func (s *resourceService) GetResource(ctx context.Context, id string) (*model.Resource, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Resource ID cannot be empty")
	}

	resource, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Resource", id)
		}
		if errors.Is(err, catalogerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid resource ID format")
		}
		s.cfg.Log.Error("Failed to retrieve resource", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve resource", err)
	}
	return resource, nil
}

func (s *resourceService) ListActiveResources(ctx context.Context, filter model.ResourceFilter, limit int, offset int64) ([]*model.Resource, int64, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, 0, apperrors.InvalidInput("Unknown resource kind: " + string(filter.Kind))
	}

	var count int64
	var resources []*model.Resource
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.CountActive(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count resources", "error", err)
			errCount = apperrors.Internal("Failed to count resources", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		resources, err = s.repo.FindActive(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list resources", "limit", limit, "offset", offset, "error", err)
			errFind = apperrors.Internal("Failed to retrieve resources", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return resources, count, nil
}

func (s *resourceService) Availability(ctx context.Context, id string, interval model.Interval) (*model.Availability, error) {
	resource, err := s.GetResource(ctx, id)
	if err != nil {
		return nil, err
	}

	free, err := s.checker.IsAvailable(ctx, resource.ID, interval)
	if err != nil {
		return nil, err
	}

	bookable := resource.Bookable()
	s.cfg.Log.Debug("Availability checked",
		"resource_id", resource.ID,
		"check_in", interval.Start,
		"check_out", interval.End,
		"free", free,
		"bookable", bookable,
	)
	return &model.Availability{
		ResourceID: resource.ID,
		CheckIn:    interval.Start,
		CheckOut:   interval.End,
		Available:  free && bookable,
		Bookable:   bookable,
	}, nil
}
