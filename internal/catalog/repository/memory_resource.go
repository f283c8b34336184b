package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	catalogerrors "maharaja/internal/catalog/errors"
	"maharaja/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryResourceRepository serves a fixed catalog from memory.
type MemoryResourceRepository struct {
	mu        sync.RWMutex
	resources map[string]*model.Resource
}

func NewMemoryResourceRepository(resources ...*model.Resource) *MemoryResourceRepository {
	r := &MemoryResourceRepository{resources: make(map[string]*model.Resource)}
	for _, res := range resources {
		r.Put(res)
	}
	return r
}

func (r *MemoryResourceRepository) Put(res *model.Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		res.ID = primitive.NewObjectID().Hex()
	}
	c := *res
	r.resources[res.ID] = &c
}

func (r *MemoryResourceRepository) FindByID(_ context.Context, id string) (*model.Resource, error) {
	if !primitive.IsValidObjectID(id) {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrInvalidID, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalogerrors.ErrNotFound, id)
	}
	c := *res
	return &c, nil
}

func (r *MemoryResourceRepository) FindActive(_ context.Context, filter model.ResourceFilter, limit int, offset int64) ([]*model.Resource, error) {
	all := r.active(filter)
	if offset >= int64(len(all)) {
		return []*model.Resource{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryResourceRepository) CountActive(_ context.Context, filter model.ResourceFilter) (int64, error) {
	return int64(len(r.active(filter))), nil
}

func (r *MemoryResourceRepository) active(filter model.ResourceFilter) []*model.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		if !res.IsActive {
			continue
		}
		if filter.Kind != "" && res.Kind != filter.Kind {
			continue
		}
		if filter.MinCapacity > 0 && res.Capacity < filter.MinCapacity {
			continue
		}
		c := *res
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *model.Resource) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Name, b.Name))
	})
	return out
}
