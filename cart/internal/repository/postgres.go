package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

const (
	queryFindCartByUserID    = `select id, user_id, session_id, created_at, updated_at from carts where user_id = $1`
	queryFindCartBySessionID = `select id, user_id, session_id, created_at, updated_at from carts where session_id = $1`
	queryFindCartItems       = `select product_id, price, quantity from cart_items where cart_id = $1 order by position`
	queryInsertCart          = `insert into carts (id, user_id, session_id, created_at, updated_at) values ($1, $2, $3, $4, $5)`
	queryUpdateCart          = `update carts set user_id = $2, session_id = $3, updated_at = $4 where id = $1`
	queryDeleteCartItems     = `delete from cart_items where cart_id = $1`
	queryInsertCartItem      = `insert into cart_items (cart_id, product_id, price, quantity, position) values ($1, $2, $3, $4, $5)`
	queryDeleteCart          = `delete from carts where id = $1`

	pgUniqueViolation = "23505"
)

type PostgresCartRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresCartRepository(pool *pgxpool.Pool) *PostgresCartRepository {
	return &PostgresCartRepository{pool: pool}
}

func (r *PostgresCartRepository) FindByUserID(c context.Context, userID string) (*domain.Cart, error) {
	return r.findOne(c, "PostgresCartRepository FindByUserID", queryFindCartByUserID, userID)
}

func (r *PostgresCartRepository) FindBySessionID(c context.Context, sessionID string) (*domain.Cart, error) {
	return r.findOne(c, "PostgresCartRepository FindBySessionID", queryFindCartBySessionID, sessionID)
}

func (r *PostgresCartRepository) findOne(
	c context.Context,
	tag string,
	query string,
	owner string,
) (*domain.Cart, error) {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyProcess, "finding cart").
		Logger()

	var (
		id                uuid.UUID
		userID, sessionID pgtype.Text
		createdAt         time.Time
		updatedAt         time.Time
	)
	logger.Trace().Msg("finding cart")
	err := r.pool.QueryRow(c, query, owner).Scan(&id, &userID, &sessionID, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("cart not found")
		return nil, ErrCartNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger = logger.With().Str(log.KeyCartID, id.String()).Logger()
	logger.Trace().Msg("found cart")

	logger = logger.With().Str(log.KeyProcess, "finding cart items").Logger()
	logger.Trace().Msg("finding cart items")
	rows, err := r.pool.Query(c, queryFindCartItems, id)
	if err != nil {
		err = fmt.Errorf("failed finding items of cartId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Item, error) {
		var (
			item  domain.Item
			price pgtype.Numeric
		)
		if err := row.Scan(&item.ProductID, &price, &item.Quantity); err != nil {
			return domain.Item{}, err
		}
		item.Price = infra.DecimalFromNumeric(price)
		return item, nil
	})
	if err != nil {
		err = fmt.Errorf("failed scanning items of cartId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyCartItems, len(items)).Msg("found cart items")

	cart, err := domain.Restore(id, userID.String, sessionID.String, items, createdAt, updatedAt)
	if err != nil {
		err = fmt.Errorf("failed restoring cartId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	return cart, nil
}

func (r *PostgresCartRepository) Save(c context.Context, cart *domain.Cart) error {
	c, span := otel.Tracer.Start(c, "PostgresCartRepository Save")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCartRepository Save").
		Str(log.KeyCartID, cart.ID().String()).
		Logger()

	err := r.inTx(c, func(tx pgx.Tx) error {
		logger = logger.With().Str(log.KeyProcess, "inserting cart").Logger()
		logger.Trace().Msg("inserting cart")
		_, err := tx.Exec(
			c,
			queryInsertCart,
			cart.ID(),
			infra.TextFromString(cart.UserID()),
			infra.TextFromString(cart.SessionID()),
			cart.CreatedAt(),
			cart.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed inserting cartId=%s with error=%w", cart.ID(), err)
		}
		logger.Trace().Msg("inserted cart")
		return insertItems(c, tx, cart)
	})
	if err != nil {
		err = translateError(err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	return nil
}

// Update rewrites the owner columns and replaces every item row.
func (r *PostgresCartRepository) Update(c context.Context, cart *domain.Cart) error {
	c, span := otel.Tracer.Start(c, "PostgresCartRepository Update")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCartRepository Update").
		Str(log.KeyCartID, cart.ID().String()).
		Logger()

	err := r.inTx(c, func(tx pgx.Tx) error {
		logger = logger.With().Str(log.KeyProcess, "updating cart").Logger()
		logger.Trace().Msg("updating cart")
		tag, err := tx.Exec(
			c,
			queryUpdateCart,
			cart.ID(),
			infra.TextFromString(cart.UserID()),
			infra.TextFromString(cart.SessionID()),
			cart.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("failed updating cartId=%s with error=%w", cart.ID(), err)
		}
		if tag.RowsAffected() == 0 {
			return ErrCartNotFound
		}
		logger.Trace().Msg("updated cart")

		logger = logger.With().Str(log.KeyProcess, "deleting cart items").Logger()
		if _, err := tx.Exec(c, queryDeleteCartItems, cart.ID()); err != nil {
			return fmt.Errorf("failed deleting items of cartId=%s with error=%w", cart.ID(), err)
		}
		return insertItems(c, tx, cart)
	})
	if err != nil {
		err = translateError(err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	return nil
}

func (r *PostgresCartRepository) DeleteCart(c context.Context, cartID uuid.UUID) error {
	c, span := otel.Tracer.Start(c, "PostgresCartRepository DeleteCart")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresCartRepository DeleteCart").
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "deleting cart").
		Logger()

	logger.Trace().Msg("deleting cart")
	tag, err := r.pool.Exec(c, queryDeleteCart, cartID)
	if err != nil {
		err = fmt.Errorf("failed deleting cartId=%s with error=%w", cartID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	logger.Trace().Msg("deleted cart")

	return nil
}

func (r *PostgresCartRepository) inTx(c context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(c, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed initializing transaction with error=%w", err)
	}
	defer func() {
		if err := tx.Rollback(c); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			zerolog.Ctx(c).Error().Err(err).Msgf("failed rolling back transaction with error=%s", err.Error())
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(c); err != nil {
		return fmt.Errorf("failed committing transaction with error=%w", err)
	}
	return nil
}

func insertItems(c context.Context, tx pgx.Tx, cart *domain.Cart) error {
	items := cart.Items()
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for position, item := range items {
		batch.Queue(
			queryInsertCartItem,
			cart.ID(),
			item.ProductID,
			infra.NumericFromDecimal(item.Price),
			item.Quantity,
			position,
		)
	}
	if err := tx.SendBatch(c, batch).Close(); err != nil {
		return fmt.Errorf("failed inserting items of cartId=%s with error=%w", cart.ID(), err)
	}
	return nil
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrCartOwnerTaken, pgErr.ConstraintName)
	}
	return err
}
