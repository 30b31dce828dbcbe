package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
	"github.com/Alturino/storefront/product/pkg/response"
)

const keyProductPrefix = "product:"

var ErrCacheMiss = errors.New("cache miss")

func productKey(id uuid.UUID) string {
	return keyProductPrefix + id.String()
}

type ProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProductCache(client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{client: client, ttl: ttl}
}

func (pc *ProductCache) SetProduct(c context.Context, product response.Product) error {
	c, span := otel.Tracer.Start(c, "ProductCache SetProduct")
	defer span.End()

	key := productKey(product.ID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache SetProduct").
		Str(log.KeyCacheKey, key).
		Dur(log.KeyCacheTTL, pc.ttl).
		Str(log.KeyProcess, "setting product").
		Logger()

	value, err := json.Marshal(product)
	if err != nil {
		err = fmt.Errorf("failed marshalling productId=%s with error=%w", product.ID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}

	logger.Trace().Msg("setting product")
	if err := pc.client.Set(c, key, value, pc.ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set product")

	return nil
}

// GetProduct returns ErrCacheMiss for absent and undecodable entries.
func (pc *ProductCache) GetProduct(c context.Context, id uuid.UUID) (response.Product, error) {
	c, span := otel.Tracer.Start(c, "ProductCache GetProduct")
	defer span.End()

	key := productKey(id)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "ProductCache GetProduct").
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "getting product").
		Logger()

	logger.Trace().Msg("getting product")
	value, err := pc.client.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("product not cached")
		return response.Product{}, ErrCacheMiss
	}
	if err != nil {
		err = fmt.Errorf("failed getting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Product{}, err
	}

	product := response.Product{}
	if err := json.Unmarshal(value, &product); err != nil {
		err = fmt.Errorf("failed unmarshalling key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return response.Product{}, ErrCacheMiss
	}
	logger.Trace().Msg("got product")

	return product, nil
}
