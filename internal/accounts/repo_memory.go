package accounts

import (
	"context"
	"strings"
	"sync"
)

// Repository is the persistence contract for users and accounts.
type Repository interface {
	// CreateUserWithAccount stores both records or neither. ErrEmailTaken on duplicate email.
	CreateUserWithAccount(ctx context.Context, u User, a Account) error
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	Account(ctx context.Context, id string) (Account, error)
	UpdateAccount(ctx context.Context, a Account) error
}

// MemoryRepo keeps users and accounts in process memory.
type MemoryRepo struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	accounts map[string]Account
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		accounts: make(map[string]Account),
	}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (r *MemoryRepo) CreateUserWithAccount(ctx context.Context, u User, a Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := emailKey(u.Email)
	if _, exists := r.byEmail[k]; exists {
		return ErrEmailTaken
	}
	r.users[u.ID] = u
	r.byEmail[k] = u.ID
	r.accounts[a.ID] = a
	return nil
}

func (r *MemoryRepo) UserByEmail(ctx context.Context, email string) (User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return r.users[id], nil
}

func (r *MemoryRepo) UserByID(ctx context.Context, id string) (User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) Account(ctx context.Context, id string) (Account, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) UpdateAccount(ctx context.Context, a Account) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	r.accounts[a.ID] = a
	return nil
}
