package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/internal/cache"
	"github.com/Alturino/storefront/product/internal/repository"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

const (
	opInsertProduct   = "insert_product"
	opGetProducts     = "get_products"
	opFindProductByID = "find_product_by_id"
)

type ProductService struct {
	repo    repository.ProductRepository
	cache   *cache.ProductCache
	metrics *metrics.Metrics
}

func NewProductService(
	repo repository.ProductRepository,
	productCache *cache.ProductCache,
	m *metrics.Metrics,
) *ProductService {
	return &ProductService{repo: repo, cache: productCache, metrics: m}
}

func (svc *ProductService) InsertProduct(
	c context.Context,
	param request.Product,
) (product response.Product, err error) {
	c, span := otel.Tracer.Start(c, "ProductService InsertProduct")
	defer span.End()
	defer func() { svc.metrics.Operation(opInsertProduct, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService InsertProduct").
		Logger()

	logger = logger.With().Str(log.KeyProcess, "inserting product to database").Logger()
	logger.Trace().Msg("inserting product to database")
	c = logger.WithContext(c)
	product, err = svc.repo.InsertProduct(c, param)
	if err != nil {
		err = fmt.Errorf("failed inserting product with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger = logger.With().Str(log.KeyProductID, product.ID.String()).Logger()
	logger.Info().Msg("inserted product to database")

	logger = logger.With().Str(log.KeyProcess, "inserting product to cache").Logger()
	logger.Trace().Msg("inserting product to cache")
	if err := svc.cache.SetProduct(logger.WithContext(c), product); err != nil {
		svc.metrics.CacheFailure("set_product")
		logger.Warn().Err(err).Msg("ignoring cache failure while inserting product")
		return product, nil
	}
	logger.Trace().Msg("inserted product to cache")

	return product, nil
}

func (svc *ProductService) GetProducts(c context.Context) (products []response.Product, err error) {
	c, span := otel.Tracer.Start(c, "ProductService GetProducts")
	defer span.End()
	defer func() { svc.metrics.Operation(opGetProducts, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService GetProducts").
		Str(log.KeyProcess, "finding products in database").
		Logger()

	logger.Trace().Msg("finding products in database")
	products, err = svc.repo.FindProducts(logger.WithContext(c))
	if err != nil {
		err = fmt.Errorf("failed finding products with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Int(log.KeyProducts, len(products)).Msg("found products in database")

	if products == nil {
		products = []response.Product{}
	}
	return products, nil
}

// FindProductByID reads through the cache; cache failures fall back to the
// database.
func (svc *ProductService) FindProductByID(
	c context.Context,
	id uuid.UUID,
) (product response.Product, err error) {
	c, span := otel.Tracer.Start(c, "ProductService FindProductByID")
	defer span.End()
	defer func() { svc.metrics.Operation(opFindProductByID, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductService FindProductByID").
		Str(log.KeyProductID, id.String()).
		Logger()
	c = logger.WithContext(c)

	logger = logger.With().Str(log.KeyProcess, "finding product in cache").Logger()
	logger.Trace().Msg("finding product in cache")
	product, err = svc.cache.GetProduct(c, id)
	switch {
	case err == nil:
		svc.metrics.CacheLookup(true)
		logger.Debug().Msg("found product in cache")
		return product, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		svc.metrics.CacheFailure("get_product")
		logger.Warn().Err(err).Msg("ignoring cache failure while finding product")
	}
	svc.metrics.CacheLookup(false)

	logger = logger.With().Str(log.KeyProcess, "finding product in database").Logger()
	logger.Trace().Msg("finding product in database")
	product, err = svc.repo.FindProductByID(c, id)
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", id, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}
	logger.Debug().Msg("found product in database")

	logger = logger.With().Str(log.KeyProcess, "caching product").Logger()
	if err := svc.cache.SetProduct(c, product); err != nil {
		svc.metrics.CacheFailure("set_product")
		logger.Warn().Err(err).Msg("ignoring cache failure while caching product")
	}

	return product, nil
}
