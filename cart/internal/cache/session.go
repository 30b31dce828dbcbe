package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// ExtendSessionCartTTL resets the session index and the cart blob it points
// to. It reports false when the session has no cart.
func (cc *CartCache) ExtendSessionCartTTL(c context.Context, sessionID string) (bool, error) {
	c, span := otel.Tracer.Start(c, "CartCache ExtendSessionCartTTL")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartCache ExtendSessionCartTTL").
		Str(log.KeySessionID, sessionID).
		Dur(log.KeyCacheTTL, cc.sessionTTL).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "finding session cart").Logger()
	cartID, err := cc.GetSessionCartID(c, sessionID)
	if errors.Is(err, ErrCacheMiss) {
		logger.Debug().Msg("session has no cart")
		return false, nil
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart of sessionId=%s with error=%w", sessionID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}

	logger = logger.With().
		Str(log.KeyCartID, cartID.String()).
		Str(log.KeyProcess, "extending session cart").
		Logger()
	logger.Debug().Msg("extending session cart")
	pipe := cc.client.TxPipeline()
	pipe.Expire(c, sessionCartKey(sessionID), cc.sessionTTL)
	pipe.Expire(c, cartKey(cartID), cc.sessionTTL)
	if _, err := pipe.Exec(c); err != nil {
		err = fmt.Errorf("failed extending cart of sessionId=%s with error=%w", sessionID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return false, err
	}
	logger.Debug().Msg("extended session cart")

	return true, nil
}

// GetSessionCartRemainingTTL returns the raw store TTL. Values <= 0 mean the
// index is gone or never expires.
func (cc *CartCache) GetSessionCartRemainingTTL(c context.Context, sessionID string) (time.Duration, error) {
	c, span := otel.Tracer.Start(c, "CartCache GetSessionCartRemainingTTL")
	defer span.End()

	key := sessionCartKey(sessionID)
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartCache GetSessionCartRemainingTTL").
		Str(log.KeyCacheKey, key).
		Logger()

	ttl, err := cc.client.TTL(c, key).Result()
	if err != nil {
		err = fmt.Errorf("failed getting ttl of key=%s with error=%w", key, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return 0, err
	}
	logger.Trace().Dur(log.KeyCacheTTL, ttl).Msg("got remaining ttl")

	return ttl, nil
}

func (cc *CartCache) IsSessionCartActive(c context.Context, sessionID string) (bool, error) {
	ttl, err := cc.GetSessionCartRemainingTTL(c, sessionID)
	if err != nil {
		return false, err
	}
	return ttl > 0, nil
}

// CleanupExpiredSessionCarts removes session indices the store reports as
// expired, together with the cart blobs they reference. Redis usually evicts
// these on its own, so most sweeps remove nothing.
func (cc *CartCache) CleanupExpiredSessionCarts(c context.Context) (int, error) {
	c, span := otel.Tracer.Start(c, "CartCache CleanupExpiredSessionCarts")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartCache CleanupExpiredSessionCarts").
		Str(log.KeyProcess, "scanning session carts").
		Logger()

	logger.Debug().Msg("scanning session carts")
	removed := 0
	iter := cc.client.Scan(c, 0, patternSessionCart, scanBatch).Iterator()
	for iter.Next(c) {
		key := iter.Val()
		ttl, err := cc.client.TTL(c, key).Result()
		if err != nil {
			err = fmt.Errorf("failed getting ttl of key=%s with error=%w", key, err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return removed, err
		}
		if ttl > 0 {
			continue
		}

		keys := []string{key}
		value, err := cc.client.Get(c, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			err = fmt.Errorf("failed getting key=%s with error=%w", key, err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return removed, err
		}
		if cartID, parseErr := uuid.Parse(value); parseErr == nil {
			keys = append(keys, cartKey(cartID))
		}

		if err := cc.client.Del(c, keys...).Err(); err != nil {
			err = fmt.Errorf("failed deleting keys=%s with error=%w", strings.Join(keys, ","), err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return removed, err
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		err = fmt.Errorf("failed scanning session carts with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return removed, err
	}
	logger.Info().Int(log.KeyRemovedSessionKeys, removed).Msg("scanned session carts")

	return removed, nil
}
