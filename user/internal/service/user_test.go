package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
)

const testSecret = "secret"

type memoryRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]repository.User
}

func (r *memoryRepository) InsertUser(_ context.Context, param repository.InsertUserParams) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == param.Email {
			return repository.User{}, repository.ErrEmailAlreadyExists
		}
	}
	now := time.Now().UTC()
	user := repository.User{
		ID:        uuid.New(),
		Username:  param.Username,
		Email:     param.Email,
		Password:  param.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrUserNotFound
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func setupService(t *testing.T) (*UserService, *memoryRepository) {
	t.Helper()
	repo := &memoryRepository{users: map[uuid.UUID]repository.User{}}
	svc := NewUserService(repo, testSecret, metrics.New("user"))
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func alice() request.Register {
	return request.Register{Username: "alice", Email: "alice@example.com", Password: "correct-horse"}
}

func TestRegister(t *testing.T) {
	svc, repo := setupService(t)
	c := context.Background()

	user, err := svc.Register(c, alice())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	stored := repo.users[user.ID]
	assert.NotEqual(t, "correct-horse", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("correct-horse")))

	_, err = svc.Register(c, alice())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrEmailAlreadyExists)
	assert.Equal(t, inErrors.KindConflict, inErrors.KindOf(err))
}

func TestLogin(t *testing.T) {
	svc, _ := setupService(t)
	c := context.Background()
	now := time.Now()
	svc.now = func() time.Time { return now }

	user, err := svc.Register(c, alice())
	require.NoError(t, err)

	token, err := svc.Login(c, request.Login{Email: "alice@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(auth.TokenTTL), token.ExpiresAt)

	jwtToken, err := auth.VerifyToken(c, testSecret, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), auth.UserIDFromContext(auth.AttachJwtToken(c, jwtToken)))
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := setupService(t)
	c := context.Background()
	_, err := svc.Register(c, alice())
	require.NoError(t, err)

	tests := []struct {
		name  string
		param request.Login
	}{
		{name: "unknown email", param: request.Login{Email: "bob@example.com", Password: "correct-horse"}},
		{name: "wrong password", param: request.Login{Email: "alice@example.com", Password: "battery-staple"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(c, tt.param)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, inErrors.KindUnauthorized, inErrors.KindOf(err))
		})
	}
}

func TestFindUserByID(t *testing.T) {
	svc, _ := setupService(t)
	c := context.Background()
	registered, err := svc.Register(c, alice())
	require.NoError(t, err)

	user, err := svc.FindUserByID(c, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.FindUserByID(c, uuid.New())
	require.Error(t, err)
	assert.Equal(t, inErrors.KindNotFound, inErrors.KindOf(err))
}
