package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemUserRepository is an in-memory UserRepository used by tests and the
// -inmem demo mode. All operations are guarded by a single mutex, which gives
// the same atomic counter semantics the postgres repository gets from SQL.
type InMemUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
	links map[string]ExternalLogin // key: provider + "|" + subjectID
}

// NewInMemUserRepository creates an empty in-memory user repository.
func NewInMemUserRepository() *InMemUserRepository {
	return &InMemUserRepository{
		users: make(map[uuid.UUID]*User),
		links: make(map[string]ExternalLogin),
	}
}

func linkKey(provider, subjectID string) string {
	return provider + "|" + subjectID
}

func (r *InMemUserRepository) FindUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.users[id]; ok {
		return *u, nil
	}
	return User{}, ErrUserNotFound
}

func (r *InMemUserRepository) FindUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *InMemUserRepository) FindUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Username, username) {
			return *u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *InMemUserRepository) FindUserByPhone(ctx context.Context, phone string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.PhoneNumber == phone && phone != "" {
			return *u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *InMemUserRepository) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	u := &User{
		ID:             uuid.New(),
		Username:       arg.Username,
		Email:          arg.Email,
		PhoneNumber:    arg.PhoneNumber,
		PasswordHash:   arg.PasswordHash,
		EmailConfirmed: arg.EmailConfirmed,
		SecurityStamp:  arg.SecurityStamp,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.users[u.ID] = u
	return *u, nil
}

func (r *InMemUserRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.users, id)
	for key, link := range r.links {
		if link.UserID == id {
			delete(r.links, key)
		}
	}
	return nil
}

func (r *InMemUserRepository) IncrementFailedAccess(ctx context.Context, id uuid.UUID) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return 0, ErrUserNotFound
	}
	u.FailedAccessCount++
	u.UpdatedAt = time.Now().UTC()
	return u.FailedAccessCount, nil
}

func (r *InMemUserRepository) ResetFailedAccess(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedAccessCount = 0
	u.LockoutEnd = nil
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemUserRepository) SetLockoutEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.LockoutEnd = &end
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemUserRepository) UpdateSecurityStamp(ctx context.Context, id uuid.UUID, stamp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.SecurityStamp = stamp
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemUserRepository) MarkEmailConfirmed(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.EmailConfirmed = true
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *InMemUserRepository) FindUserByExternalLogin(ctx context.Context, provider, subjectID string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[linkKey(provider, subjectID)]
	if !ok {
		return User{}, ErrUserNotFound
	}
	u, ok := r.users[link.UserID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return *u, nil
}

func (r *InMemUserRepository) AddExternalLogin(ctx context.Context, userID uuid.UUID, provider, subjectID string) (ExternalLogin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := linkKey(provider, subjectID)
	if _, exists := r.links[key]; exists {
		return ExternalLogin{}, ErrDuplicateExternalLogin
	}
	if _, ok := r.users[userID]; !ok {
		return ExternalLogin{}, ErrUserNotFound
	}
	link := ExternalLogin{
		ID:        uuid.New(),
		UserID:    userID,
		Provider:  provider,
		SubjectID: subjectID,
		CreatedAt: time.Now().UTC(),
	}
	r.links[key] = link
	return link, nil
}
