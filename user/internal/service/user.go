package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Alturino/storefront/internal/auth"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/user/internal/repository"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

const (
	opRegister     = "register"
	opLogin        = "login"
	opFindUserByID = "find_user_by_id"
)

// ErrInvalidCredentials covers both unknown emails and wrong passwords.
var ErrInvalidCredentials = inErrors.Unauthorized("invalid email or password")

type UserService struct {
	repo      repository.UserRepository
	secretKey string
	metrics   *metrics.Metrics
	cost      int
	now       func() time.Time
}

func NewUserService(repo repository.UserRepository, secretKey string, m *metrics.Metrics) *UserService {
	return &UserService{
		repo:      repo,
		secretKey: secretKey,
		metrics:   m,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
	}
}

func (u *UserService) Register(c context.Context, param request.Register) (user response.User, err error) {
	c, span := otel.Tracer.Start(c, "UserService Register")
	defer span.End()
	defer func() { u.metrics.Operation(opRegister, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Register").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "hashing password").Logger()
	logger.Trace().Msg("hashing password")
	hashed, err := bcrypt.GenerateFromPassword([]byte(param.Password), u.cost)
	if err != nil {
		err = inErrors.Internal("failed hashing password", errors.Join(err, inErrors.ErrFailedHashToken))
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("hashed password")

	logger = logger.With().Str(log.KeyProcess, "inserting user to database").Logger()
	logger.Trace().Msg("inserting user to database")
	inserted, err := u.repo.InsertUser(logger.WithContext(c), repository.InsertUserParams{
		Username: param.Username,
		Email:    param.Email,
		Password: string(hashed),
	})
	if err != nil {
		err = fmt.Errorf("failed registering user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Info().Str(log.KeyUserID, inserted.ID.String()).Msg("inserted user to database")

	return inserted.Response(), nil
}

func (u *UserService) Login(c context.Context, param request.Login) (token response.Token, err error) {
	c, span := otel.Tracer.Start(c, "UserService Login")
	defer span.End()
	defer func() { u.metrics.Operation(opLogin, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService Login").
		Str(log.KeyEmail, param.Email).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding user").Logger()
	logger.Trace().Msg("finding user by email")
	user, err := u.repo.FindByEmail(logger.WithContext(c), param.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg("user not found")
		return response.Token{}, ErrInvalidCredentials
	}
	if err != nil {
		err = fmt.Errorf("failed finding user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Token{}, err
	}
	logger = logger.With().Str(log.KeyUserID, user.ID.String()).Logger()
	logger.Trace().Msg("found user by email")

	logger = logger.With().Str(log.KeyProcess, "verifying password").Logger()
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(param.Password)); err != nil {
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg("password mismatch")
		return response.Token{}, ErrInvalidCredentials
	}
	logger.Trace().Msg("verified password")

	logger = logger.With().Str(log.KeyProcess, "signing token").Logger()
	now := u.now()
	signed, err := auth.IssueToken(u.secretKey, user.ID.String(), now)
	if err != nil {
		err = inErrors.Internal("failed signing token", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Token{}, err
	}
	logger.Info().Msg("signed token")

	return response.Token{Token: signed, ExpiresAt: now.Add(auth.TokenTTL)}, nil
}

func (u *UserService) FindUserByID(c context.Context, id uuid.UUID) (user response.User, err error) {
	c, span := otel.Tracer.Start(c, "UserService FindUserByID")
	defer span.End()
	defer func() { u.metrics.Operation(opFindUserByID, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "UserService FindUserByID").
		Str(log.KeyUserID, id.String()).
		Str(log.KeyProcess, "finding user").
		Logger()

	logger.Trace().Msg("finding user")
	found, err := u.repo.FindByID(logger.WithContext(c), id)
	if err != nil {
		err = fmt.Errorf("failed finding userId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.User{}, err
	}
	logger.Trace().Msg("found user")

	return found.Response(), nil
}
