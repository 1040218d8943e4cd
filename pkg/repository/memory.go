package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"watchlist/pkg/models"

	"github.com/google/uuid"
)

// MemoryUserRepository keeps accounts in process memory.
type MemoryUserRepository struct {
	mu         sync.RWMutex
	byUsername map[string]models.Account
	emails     map[string]struct{}
	now        func() time.Time
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		byUsername: make(map[string]models.Account),
		emails:     make(map[string]struct{}),
		now:        time.Now,
	}
}

func (r *MemoryUserRepository) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &acc, nil
}

func (r *MemoryUserRepository) Exists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byUsername[username]
	return ok, nil
}

func (r *MemoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.emails[email]
	return ok, nil
}

// Insert checks both unique fields and writes under one lock.
func (r *MemoryUserRepository) Insert(_ context.Context, username, email, passwordHash string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byUsername[username]; ok {
		return nil, &DuplicateError{Field: "username"}
	}
	if _, ok := r.emails[email]; ok {
		return nil, &DuplicateError{Field: "email"}
	}

	acc := models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now(),
	}
	r.byUsername[username] = acc
	r.emails[email] = struct{}{}
	return &acc, nil
}

// MemoryMovieRepository keeps movies in an id-keyed map plus insertion order.
type MemoryMovieRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.Movie
	order []string
	now   func() time.Time
}

func NewMemoryMovieRepository() *MemoryMovieRepository {
	return &MemoryMovieRepository{
		byID: make(map[string]*models.Movie),
		now:  time.Now,
	}
}

func (r *MemoryMovieRepository) ListByOwner(_ context.Context, ownerID string) ([]models.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	movies := []models.Movie{}
	for _, id := range r.order {
		if m := r.byID[id]; m.OwnerID == ownerID {
			movies = append(movies, *m)
		}
	}
	return movies, nil
}

func (r *MemoryMovieRepository) FindByID(_ context.Context, id string) (*models.Movie, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryMovieRepository) Insert(_ context.Context, m models.Movie) (*models.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m.ID = uuid.NewString()
	m.CreatedAt = r.now()
	r.byID[m.ID] = &m
	r.order = append(r.order, m.ID)

	cp := m
	return &cp, nil
}

func (r *MemoryMovieRepository) SetWatched(_ context.Context, id string, watched bool) (*models.Movie, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	m.Watched = watched
	cp := *m
	return &cp, nil
}

func (r *MemoryMovieRepository) DeleteByID(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, nil
	}
	delete(r.byID, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	return true, nil
}
