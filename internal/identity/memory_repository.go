package identity

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]User
	phones map[string]int64
}

// NewMemoryRepository builds an in-memory user store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{users: make(map[int64]User), phones: make(map[string]int64)}
}

func (r *memoryRepository) Create(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.phones[user.PhoneNumber]; exists {
		return User{}, ErrPhoneTaken
	}
	r.nextID++
	user.ID = r.nextID
	user.UpdatedAt = user.DateJoined
	r.users[user.ID] = user
	r.phones[user.PhoneNumber] = user.ID
	return user, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (r *memoryRepository) FindByPhone(_ context.Context, phone string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.phones[phone]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := []User{}
	for _, user := range r.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.KYCStatus != "" && user.KYCStatus != filter.KYCStatus {
			continue
		}
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].DateJoined.Equal(users[j].DateJoined) {
			return users[i].ID > users[j].ID
		}
		return users[i].DateJoined.After(users[j].DateJoined)
	})
	return users, nil
}

func (r *memoryRepository) Update(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	// phone number, password and join date are immutable through Update.
	user.PhoneNumber = existing.PhoneNumber
	user.PasswordHash = existing.PasswordHash
	user.DateJoined = existing.DateJoined
	user.LastLogin = existing.LastLogin
	user.UpdatedAt = time.Now().UTC()
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepository) TouchLastLogin(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	t := at.UTC()
	user.LastLogin = &t
	r.users[id] = user
	return nil
}
