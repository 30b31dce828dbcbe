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

	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

var ErrCacheMiss = errors.New("cache miss")

const scanBatch = 100

type CartCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	sessionTTL time.Duration
}

func NewCartCache(client *redis.Client, defaultTTL, sessionTTL time.Duration) *CartCache {
	return &CartCache{client: client, defaultTTL: defaultTTL, sessionTTL: sessionTTL}
}

func (cc *CartCache) userIndexTTL() time.Duration {
	return 2 * cc.defaultTTL
}

func (cc *CartCache) SetCart(
	c context.Context,
	cartID uuid.UUID,
	cart *domain.Cart,
	isSessionCart bool,
) error {
	c, span := otel.Tracer.Start(c, "CartCache SetCart")
	defer span.End()

	ttl := cc.defaultTTL
	if isSessionCart {
		ttl = cc.sessionTTL
	}
	key := cartKey(cartID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartCache SetCart").
		Str(log.KeyCacheKey, key).
		Dur(log.KeyCacheTTL, ttl).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "marshalling cart").Logger()
	logger.Trace().Msg("marshalling cart")
	value, err := json.Marshal(cart)
	if err != nil {
		err = fmt.Errorf("failed marshalling cartId=%s with error=%w", cartID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("marshalled cart")

	logger = logger.With().Str(log.KeyProcess, "setting cart").Logger()
	logger.Trace().Msg("setting cart")
	if err := cc.client.Set(c, key, value, ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set cart")

	return nil
}

// GetCart returns ErrCacheMiss for absent and undecodable blobs alike.
func (cc *CartCache) GetCart(c context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartCache GetCart")
	defer span.End()

	key := cartKey(cartID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartCache GetCart").
		Str(log.KeyCacheKey, key).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "getting cart").Logger()
	logger.Trace().Msg("getting cart")
	value, err := cc.client.Get(c, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logger.Trace().Msg("cart not cached")
		return nil, ErrCacheMiss
	}
	if err != nil {
		err = fmt.Errorf("failed getting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}

	logger = logger.With().Str(log.KeyProcess, "unmarshalling cart").Logger()
	cart := &domain.Cart{}
	if err := json.Unmarshal(value, cart); err != nil {
		err = fmt.Errorf("failed unmarshalling key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return nil, ErrCacheMiss
	}
	logger.Trace().Msg("got cart")

	return cart, nil
}

func (cc *CartCache) SetUserCartID(c context.Context, userID string, cartID uuid.UUID) error {
	return cc.setIndex(c, "CartCache SetUserCartID", userCartKey(userID), cartID, cc.userIndexTTL())
}

func (cc *CartCache) GetUserCartID(c context.Context, userID string) (uuid.UUID, error) {
	return cc.getIndex(c, "CartCache GetUserCartID", userCartKey(userID))
}

func (cc *CartCache) SetSessionCartID(c context.Context, sessionID string, cartID uuid.UUID) error {
	return cc.setIndex(c, "CartCache SetSessionCartID", sessionCartKey(sessionID), cartID, cc.sessionTTL)
}

func (cc *CartCache) GetSessionCartID(c context.Context, sessionID string) (uuid.UUID, error) {
	return cc.getIndex(c, "CartCache GetSessionCartID", sessionCartKey(sessionID))
}

func (cc *CartCache) DeleteCart(c context.Context, cartID uuid.UUID) error {
	return cc.del(c, "CartCache DeleteCart", cartKey(cartID))
}

func (cc *CartCache) DeleteUserCart(c context.Context, userID string) error {
	return cc.del(c, "CartCache DeleteUserCart", userCartKey(userID))
}

func (cc *CartCache) DeleteSessionCart(c context.Context, sessionID string) error {
	return cc.del(c, "CartCache DeleteSessionCart", sessionCartKey(sessionID))
}

func (cc *CartCache) setIndex(
	c context.Context,
	tag string,
	key string,
	cartID uuid.UUID,
	ttl time.Duration,
) error {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyCacheKey, key).
		Str(log.KeyCartID, cartID.String()).
		Dur(log.KeyCacheTTL, ttl).
		Str(log.KeyProcess, "setting cart index").
		Logger()

	logger.Trace().Msg("setting cart index")
	if err := cc.client.Set(c, key, cartID.String(), ttl).Err(); err != nil {
		err = fmt.Errorf("failed setting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("set cart index")

	return nil
}

func (cc *CartCache) getIndex(c context.Context, tag string, key string) (uuid.UUID, error) {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "getting cart index").
		Logger()

	logger.Trace().Msg("getting cart index")
	value, err := cc.client.Get(c, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrCacheMiss
	}
	if err != nil {
		err = fmt.Errorf("failed getting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return uuid.Nil, err
	}

	cartID, err := uuid.Parse(value)
	if err != nil {
		err = fmt.Errorf("failed parsing cartId=%s from key=%s with error=%w", value, key, err)
		otel.RecordError(err, span)
		logger.Warn().Err(err).Msg(err.Error())
		return uuid.Nil, ErrCacheMiss
	}
	logger.Trace().Msg("got cart index")

	return cartID, nil
}

func (cc *CartCache) del(c context.Context, tag string, key string) error {
	c, span := otel.Tracer.Start(c, tag)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, tag).
		Str(log.KeyCacheKey, key).
		Str(log.KeyProcess, "deleting key").
		Logger()

	logger.Trace().Msg("deleting key")
	if err := cc.client.Del(c, key).Err(); err != nil {
		err = fmt.Errorf("failed deleting key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return err
	}
	logger.Trace().Msg("deleted key")

	return nil
}
