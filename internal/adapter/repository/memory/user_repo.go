package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mailgate/internal/domain/user"
	"mailgate/pkg/security"
)

// UserRepo keeps users in an unbounded in-process list.
// Contents are lost when the process exits.
type UserRepo struct {
	mu    sync.RWMutex
	users []user.User
	log   *zap.Logger
	now   func() time.Time
}

// NewUserRepo creates an empty in-memory user repository.
func NewUserRepo(log *zap.Logger) *UserRepo {
	return &UserRepo{log: log, now: time.Now}
}

// Create appends a user to the list and returns its ID.
// Email uniqueness is not enforced here.
func (r *UserRepo) Create(_ context.Context, u *user.User) (string, error) {
	if u == nil {
		return "", errors.New("user cannot be nil")
	}

	record := *u
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	r.mu.Lock()
	r.users = append(r.users, record)
	total := len(r.users)
	r.mu.Unlock()

	r.log.Info("user stored in memory", zap.String("id", record.ID), zap.Int("total", total))
	return record.ID, nil
}

// GetByEmail finds a user by email, ignoring case and surrounding spaces.
// Returns nil when absent.
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := security.NormalizeEmail(email)
	for i := range r.users {
		if security.NormalizeEmail(r.users[i].Email) == want {
			found := r.users[i]
			return &found, nil
		}
	}

	r.log.Debug("user not found by email", zap.String("email", email))
	return nil, nil
}

// Count returns the number of stored users.
func (r *UserRepo) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
