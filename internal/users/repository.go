package users

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// RepositoryPort defines data access methods for the user directory.
type RepositoryPort interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	Insert(ctx context.Context, user User) (User, error)
	Save(ctx context.Context, user User) error
	List(ctx context.Context) ([]User, error)
}

// MemoryRepository keeps the directory in process memory. Accounts are
// never hard-deleted; only their grant assignments change. The mutex
// provides the mutual exclusion a multi-client runtime needs.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]User
	idFor  map[string]string // normalized username -> id
	order  []string
	nextID int64
}

// NewMemoryRepository constructs an empty directory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:  make(map[string]User),
		idFor: make(map[string]string),
	}
}

// FindByID fetches one user.
func (r *MemoryRepository) FindByID(ctx context.Context, id string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

// FindByUsername fetches one user through the canonical username form.
func (r *MemoryRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	norm, err := NormalizeUsername(username)
	if err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idFor[norm]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

// Insert stores a new user, assigning the next monotonic ID. The
// username must be free under the canonical form.
func (r *MemoryRepository) Insert(ctx context.Context, user User) (User, error) {
	norm, err := NormalizeUsername(user.Username)
	if err != nil {
		return User{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.idFor[norm]; taken {
		return User{}, ErrUsernameTaken
	}
	user.ID = strconv.FormatInt(r.nextID, 10)
	r.nextID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.byID[user.ID] = cloneUser(user)
	r.idFor[norm] = user.ID
	r.order = append(r.order, user.ID)
	return user, nil
}

// Save replaces an existing user record.
func (r *MemoryRepository) Save(ctx context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[user.ID]; !ok {
		return ErrNotFound
	}
	r.byID[user.ID] = cloneUser(user)
	return nil
}

// List returns every user in registration order.
func (r *MemoryRepository) List(ctx context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneUser(r.byID[id]))
	}
	return out, nil
}

func cloneUser(u User) User {
	u.Grants = append([]string(nil), u.Grants...)
	return u
}

var _ RepositoryPort = (*MemoryRepository)(nil)
