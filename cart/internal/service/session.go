package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/cart/internal/event"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

// MergeOnLogin folds the anonymous session cart into the user's cart. When
// the user has no cart yet the session cart is re-owned instead.
func (svc *CartService) MergeOnLogin(c context.Context, param request.Merge) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService MergeOnLogin")
	defer span.End()
	defer func() { svc.metrics.Operation(opMergeOnLogin, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService MergeOnLogin").
		Str(log.KeyUserID, param.UserID).
		Str(log.KeySessionID, param.SessionID).
		Logger()

	switch {
	case strings.TrimSpace(param.UserID) == "":
		err = domain.ErrMissingUserID
	case strings.TrimSpace(param.SessionID) == "":
		err = ErrMissingSessionID
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "loading session cart").Logger()
	logger.Trace().Msg("loading session cart")
	sessionCart, err := svc.loadBy(c, ownerSession, param.SessionID, readStored)
	if errors.Is(err, repository.ErrCartNotFound) {
		logger.Debug().Msg("session has no cart, nothing to merge")
		userCart, _, err := svc.loadOrNew(c, request.Owner{UserID: param.UserID}, readCached)
		if err != nil {
			err = fmt.Errorf("failed loading user cart with error=%w", err)
			otel.RecordError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return response.Cart{}, err
		}
		return response.FromDomain(userCart), nil
	}
	if err != nil {
		err = fmt.Errorf("failed loading session cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger = logger.With().Str(log.KeyMergedCartID, sessionCart.ID().String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "loading user cart").Logger()
	logger.Trace().Msg("loading user cart")
	userCart, err := svc.loadBy(c, ownerUser, param.UserID, readStored)
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		userCart, err = svc.transfer(c, sessionCart, param.UserID)
	case err == nil:
		err = svc.merge(c, userCart, sessionCart)
	}
	if err != nil {
		err = fmt.Errorf("failed merging session cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Str(log.KeyCartID, userCart.ID().String()).Msg("merged session cart")

	svc.forget(c, "delete_session_index", func(c context.Context) error {
		return svc.cache.DeleteSessionCart(c, param.SessionID)
	})
	svc.refreshCache(c, userCart)

	e := cartEvent(event.TypeMerged, userCart)
	e.SessionID = param.SessionID
	svc.publish(c, e)

	return response.FromDomain(userCart), nil
}

func (svc *CartService) transfer(c context.Context, sessionCart *domain.Cart, userID string) (*domain.Cart, error) {
	if err := sessionCart.TransferToUser(userID); err != nil {
		return nil, err
	}
	if err := svc.repo.Update(c, sessionCart); err != nil {
		return nil, fmt.Errorf("failed re-owning cartId=%s with error=%w", sessionCart.ID(), err)
	}
	return sessionCart, nil
}

func (svc *CartService) merge(c context.Context, userCart, sessionCart *domain.Cart) error {
	userCart.MergeWith(sessionCart)
	if err := svc.repo.Update(c, userCart); err != nil {
		return fmt.Errorf("failed updating cartId=%s with error=%w", userCart.ID(), err)
	}
	if err := svc.repo.DeleteCart(c, sessionCart.ID()); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return fmt.Errorf("failed discarding cartId=%s with error=%w", sessionCart.ID(), err)
	}
	svc.forget(c, "delete_cart", func(c context.Context) error {
		return svc.cache.DeleteCart(c, sessionCart.ID())
	})
	return nil
}

func (svc *CartService) ExtendSession(c context.Context, sessionID string) (res response.SessionExtended, err error) {
	c, span := otel.Tracer.Start(c, "CartService ExtendSession")
	defer span.End()
	defer func() { svc.metrics.Operation(opExtendSession, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ExtendSession").
		Str(log.KeySessionID, sessionID).
		Logger()

	if strings.TrimSpace(sessionID) == "" {
		err = ErrMissingSessionID
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.SessionExtended{}, err
	}

	extended, err := svc.cache.ExtendSessionCartTTL(c, sessionID)
	if err != nil {
		svc.metrics.CacheFailure("extend_session")
		err = inErrors.Downstream(msgCacheUnavailable, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.SessionExtended{}, err
	}
	logger.Info().Bool(log.KeySessionExtended, extended).Msg("extended session cart")

	return response.SessionExtended{SessionID: sessionID, Extended: extended}, nil
}

func (svc *CartService) SessionStatus(c context.Context, sessionID string) (res response.SessionStatus, err error) {
	c, span := otel.Tracer.Start(c, "CartService SessionStatus")
	defer span.End()
	defer func() { svc.metrics.Operation(opSessionStatus, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService SessionStatus").
		Str(log.KeySessionID, sessionID).
		Logger()

	if strings.TrimSpace(sessionID) == "" {
		err = ErrMissingSessionID
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.SessionStatus{}, err
	}

	ttl, err := svc.cache.GetSessionCartRemainingTTL(c, sessionID)
	if err != nil {
		svc.metrics.CacheFailure("session_ttl")
		err = inErrors.Downstream(msgCacheUnavailable, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.SessionStatus{}, err
	}

	res = response.SessionStatus{SessionID: sessionID, Active: ttl > 0}
	if res.Active {
		res.RemainingSeconds = ttl.Seconds()
	}
	return res, nil
}

func (svc *CartService) CleanupExpiredSessions(c context.Context) (removed int, err error) {
	c, span := otel.Tracer.Start(c, "CartService CleanupExpiredSessions")
	defer span.End()
	defer func() { svc.metrics.Operation(opCleanupSessions, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService CleanupExpiredSessions").
		Logger()

	removed, err = svc.cache.CleanupExpiredSessionCarts(c)
	if err != nil {
		svc.metrics.CacheFailure("cleanup_sessions")
		err = fmt.Errorf("failed cleaning up session carts with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return removed, err
	}
	logger.Debug().Int(log.KeyRemovedSessionKeys, removed).Msg("cleaned up session carts")

	return removed, nil
}
