package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/infra"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

const (
	queryInsertProduct   = `insert into products (name, price, quantity) values ($1, $2, $3) returning id, name, price, quantity, created_at, updated_at`
	queryFindProducts    = `select id, name, price, quantity, created_at, updated_at from products order by created_at, name`
	queryFindProductByID = `select id, name, price, quantity, created_at, updated_at from products where id = $1`

	pgUniqueViolation = "23505"
)

type PostgresProductRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProductRepository(pool *pgxpool.Pool) *PostgresProductRepository {
	return &PostgresProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (response.Product, error) {
	var (
		product response.Product
		price   pgtype.Numeric
	)
	err := row.Scan(
		&product.ID,
		&product.Name,
		&price,
		&product.Quantity,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return response.Product{}, err
	}
	product.Price = infra.DecimalFromNumeric(price)
	return product, nil
}

func (r *PostgresProductRepository) InsertProduct(
	c context.Context,
	param request.Product,
) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "PostgresProductRepository InsertProduct")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresProductRepository InsertProduct").
		Str(log.KeyProcess, "inserting product").
		Logger()

	logger.Trace().Msg("inserting product")
	product, err := scanProduct(r.pool.QueryRow(
		c,
		queryInsertProduct,
		param.Name,
		infra.NumericFromDecimal(param.Price),
		param.Quantity,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			err = fmt.Errorf("%w: name=%s", ErrProductAlreadyExists, param.Name)
		} else {
			err = fmt.Errorf("failed inserting product with error=%w", err)
		}
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Str(log.KeyProductID, product.ID.String()).Msg("inserted product")

	return product, nil
}

func (r *PostgresProductRepository) FindProducts(c context.Context) ([]response.Product, error) {
	c, span := otel.Tracer.Start(c, "PostgresProductRepository FindProducts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresProductRepository FindProducts").
		Str(log.KeyProcess, "finding products").
		Logger()

	logger.Trace().Msg("finding products")
	rows, err := r.pool.Query(c, queryFindProducts)
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (response.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		err = fmt.Errorf("failed scanning products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Trace().Int(log.KeyProducts, len(products)).Msg("found products")

	return products, nil
}

func (r *PostgresProductRepository) FindProductByID(c context.Context, id uuid.UUID) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "PostgresProductRepository FindProductByID")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "PostgresProductRepository FindProductByID").
		Str(log.KeyProductID, id.String()).
		Str(log.KeyProcess, "finding product").
		Logger()

	logger.Trace().Msg("finding product")
	product, err := scanProduct(r.pool.QueryRow(c, queryFindProductByID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Trace().Msg("product not found")
		return response.Product{}, ErrProductNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Trace().Msg("found product")

	return product, nil
}
