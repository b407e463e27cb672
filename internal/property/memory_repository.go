package property

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	storage map[int64]Property
}

// NewMemoryRepository constructs an in-memory repository for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[int64]Property)}
}

func (r *memoryRepository) Create(_ context.Context, p Property) (Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.UpdatedAt = p.CreatedAt
	r.storage[p.ID] = p
	return p, nil
}

func (r *memoryRepository) Get(_ context.Context, id int64) (Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Property{}, ErrPropertyNotFound
	}
	return p, nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	search := strings.ToLower(filter.Search)
	out := []Property{}
	for _, p := range r.storage {
		switch {
		case filter.OwnerID != 0 && p.OwnerID != filter.OwnerID:
			continue
		case filter.AvailableOnly && !p.IsAvailable:
			continue
		case filter.Available != nil && p.IsAvailable != *filter.Available:
			continue
		case filter.Type != "" && p.Type != filter.Type:
			continue
		case filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice):
			continue
		case filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice):
			continue
		case search != "" && !strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Location), search) &&
			!strings.Contains(p.OwnerPhone, search):
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memoryRepository) Update(_ context.Context, p Property) (Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.storage[p.ID]
	if !ok {
		return Property{}, ErrPropertyNotFound
	}
	p.OwnerID = existing.OwnerID
	p.OwnerPhone = existing.OwnerPhone
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.storage[p.ID] = p
	return p, nil
}

func (r *memoryRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[id]; !ok {
		return ErrPropertyNotFound
	}
	delete(r.storage, id)
	return nil
}

func (r *memoryRepository) CountAvailable(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, p := range r.storage {
		if p.IsAvailable {
			n++
		}
	}
	return n, nil
}
