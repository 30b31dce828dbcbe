package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/user/pkg/response"
)

var (
	ErrUserNotFound       = inErrors.NotFound("user not found")
	ErrEmailAlreadyExists = inErrors.Conflict("email already exists")
)

type User struct {
	ID        uuid.UUID
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u User) Response() response.User {
	return response.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type InsertUserParams struct {
	Username string
	Email    string
	Password string
}

type UserRepository interface {
	InsertUser(c context.Context, param InsertUserParams) (User, error)
	FindByEmail(c context.Context, email string) (User, error)
	FindByID(c context.Context, id uuid.UUID) (User, error)
}
