package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	queryInsertUser  = `insert into users (username, email, password) values ($1, $2, $3) returning id, username, email, password, created_at, updated_at`
	queryFindByEmail = `select id, username, email, password, created_at, updated_at from users where email = $1`
	queryFindByID    = `select id, username, email, password, created_at, updated_at from users where id = $1`

	pgUniqueViolation = "23505"
)

type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	user := User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func (r *PostgresUserRepository) InsertUser(c context.Context, param InsertUserParams) (User, error) {
	c, span := otel.Tracer.Start(c, "PostgresUserRepository InsertUser")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresUserRepository InsertUser").
		Str(log.KeyEmail, param.Email).
		Str(log.KeyProcess, "inserting user").
		Logger()

	logger.Trace().Msg("inserting user")
	user, err := scanUser(r.pool.QueryRow(c, queryInsertUser, param.Username, param.Email, param.Password))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			err = fmt.Errorf("%w: email=%s", ErrEmailAlreadyExists, param.Email)
		} else {
			err = fmt.Errorf("failed inserting user with error=%w", err)
		}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return User{}, err
	}
	logger.Trace().Str(log.KeyUserID, user.ID.String()).Msg("inserted user")

	return user, nil
}

func (r *PostgresUserRepository) FindByEmail(c context.Context, email string) (User, error) {
	return r.findOne(c, "PostgresUserRepository FindByEmail", queryFindByEmail, email)
}

func (r *PostgresUserRepository) FindByID(c context.Context, id uuid.UUID) (User, error) {
	return r.findOne(c, "PostgresUserRepository FindByID", queryFindByID, id)
}

func (r *PostgresUserRepository) findOne(c context.Context, tag string, query string, arg any) (User, error) {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyProcess, "finding user").
		Logger()

	logger.Trace().Msg("finding user")
	user, err := scanUser(r.pool.QueryRow(c, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("user not found")
		return User{}, ErrUserNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed finding user with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return User{}, err
	}
	logger.Trace().Str(log.KeyUserID, user.ID.String()).Msg("found user")

	return user, nil
}
