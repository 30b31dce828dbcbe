package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/cart/internal/event"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/otel"
)

var (
	ErrInsufficientStock = inErrors.Conflict("requested quantity exceeds available stock")
	ErrMissingSessionID  = inErrors.Validation("session id is required")
)

const (
	MessageNothingToDelete = "no cart found, nothing to delete"
	MessageDeleted         = "cart deleted"
	msgCacheUnavailable    = "cart cache unavailable"
)

func (svc *CartService) load(c context.Context, owner request.Owner, mode readMode) (*domain.Cart, error) {
	if owner.IsUser() {
		return svc.loadBy(c, ownerUser, owner.UserID, mode)
	}
	return svc.loadBy(c, ownerSession, owner.SessionID, mode)
}

func newCart(owner request.Owner) (*domain.Cart, error) {
	if owner.IsUser() {
		return domain.NewForUser(owner.UserID)
	}
	return domain.NewForSession(owner.SessionID)
}

// loadOrNew reports whether the returned cart still has to be saved.
func (svc *CartService) loadOrNew(c context.Context, owner request.Owner, mode readMode) (*domain.Cart, bool, error) {
	cart, err := svc.load(c, owner, mode)
	if errors.Is(err, repository.ErrCartNotFound) {
		cart, err = newCart(owner)
		return cart, true, err
	}
	return cart, false, err
}

// GetCart never fails for a missing cart; it answers with an unsaved empty
// one. Concurrent reads for the same owner share one lookup.
func (svc *CartService) GetCart(c context.Context, owner request.Owner) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService GetCart")
	defer span.End()
	defer func() { svc.metrics.Operation(opGetCart, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService GetCart").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Logger()

	if err = owner.Validate(); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	key := "session:" + owner.SessionID
	if owner.IsUser() {
		key = "user:" + owner.UserID
	}
	logger = logger.With().Str(log.KeyProcess, "finding cart").Logger()
	logger.Trace().Msg("finding cart")
	// the shared lookup must not die with whichever caller happened to start it
	detached := context.WithoutCancel(c)
	v, err, shared := svc.reads.Do(key, func() (any, error) {
		cart, _, err := svc.loadOrNew(detached, owner, readCached)
		if err != nil {
			return nil, err
		}
		return response.FromDomain(cart), nil
	})
	if err != nil {
		err = fmt.Errorf("failed finding cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Debug().Bool(log.KeySharedRead, shared).Msg("found cart")

	return v.(response.Cart), nil
}

func (svc *CartService) AddItem(
	c context.Context,
	owner request.Owner,
	param request.AddItem,
) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService AddItem")
	defer span.End()
	defer func() { svc.metrics.Operation(opAddItem, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService AddItem").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Str(log.KeyProductID, param.ProductID).
		Int(log.KeyCartItemQuantity, param.Quantity).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "validating request").Logger()
	if err = validateAddItem(owner, param); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
	logger.Trace().Msg("loading cart")
	cart, isNew, err := svc.loadOrNew(c, owner, readStored)
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID().String()).Bool(log.KeyNewCart, isNew).Logger()
	logger.Trace().Msg("loaded cart")

	logger = logger.With().Str(log.KeyProcess, "finding product").Logger()
	logger.Trace().Msg("finding product")
	product, err := svc.products.FindProduct(c, param.ProductID)
	if err != nil {
		err = fmt.Errorf("failed finding productId=%s with error=%w", param.ProductID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	if cart.Quantity(param.ProductID)+param.Quantity > product.Quantity {
		err = fmt.Errorf("failed adding %d of productId=%s with stock=%d with error=%w", param.Quantity, param.ProductID, product.Quantity, ErrInsufficientStock)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Trace().Msg("found product")

	logger = logger.With().Str(log.KeyProcess, "adding item").Logger()
	if err = cart.AddItem(param.ProductID, param.Quantity, product.Price); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	logger = logger.With().Str(log.KeyProcess, "persisting cart").Logger()
	logger.Trace().Msg("persisting cart")
	if err = svc.persist(c, cart, isNew); err != nil {
		err = fmt.Errorf("failed persisting cartId=%s with error=%w", cart.ID(), err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("added item")

	svc.refreshCache(c, cart)
	e := cartEvent(event.TypeItemAdded, cart)
	e.ProductID, e.Quantity = param.ProductID, param.Quantity
	svc.publish(c, e)

	return response.FromDomain(cart), nil
}

func validateAddItem(owner request.Owner, param request.AddItem) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(param.ProductID) == "" {
		return domain.ErrMissingProductID
	}
	if param.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (svc *CartService) RemoveItem(
	c context.Context,
	owner request.Owner,
	param request.RemoveItem,
) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService RemoveItem")
	defer span.End()
	defer func() { svc.metrics.Operation(opRemoveItem, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService RemoveItem").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Str(log.KeyProductID, param.ProductID).
		Logger()

	if err = owner.Validate(); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	cart, err := svc.mutate(c, owner, func(cart *domain.Cart) error {
		return cart.RemoveItem(param.ProductID)
	})
	if err != nil {
		err = fmt.Errorf("failed removing productId=%s with error=%w", param.ProductID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("removed item")

	e := cartEvent(event.TypeItemRemoved, cart)
	e.ProductID = param.ProductID
	svc.publish(c, e)

	return response.FromDomain(cart), nil
}

// UpdateItemQuantity fails with ErrCartNotFound when the owner has no cart.
func (svc *CartService) UpdateItemQuantity(
	c context.Context,
	owner request.Owner,
	param request.UpdateItem,
) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService UpdateItemQuantity")
	defer span.End()
	defer func() { svc.metrics.Operation(opUpdateItem, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService UpdateItemQuantity").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Str(log.KeyProductID, param.ProductID).
		Int(log.KeyCartItemQuantity, param.Quantity).
		Logger()

	if err = owner.Validate(); err == nil && param.Quantity < 0 {
		err = domain.ErrNegativeQuantity
	}
	if err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	cart, err := svc.mutate(c, owner, func(cart *domain.Cart) error {
		if param.Quantity > 0 && cart.HasItem(param.ProductID) {
			if err := svc.checkStock(c, param.ProductID, param.Quantity); err != nil {
				return err
			}
		}
		return cart.UpdateItemQuantity(param.ProductID, param.Quantity)
	})
	if err != nil {
		err = fmt.Errorf("failed updating productId=%s with error=%w", param.ProductID, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Msg("updated item quantity")

	e := cartEvent(event.TypeItemUpdated, cart)
	e.ProductID, e.Quantity = param.ProductID, param.Quantity
	svc.publish(c, e)

	return response.FromDomain(cart), nil
}

// checkStock fails with ErrInsufficientStock when quantity exceeds what the
// product service reports as available.
func (svc *CartService) checkStock(c context.Context, productID string, quantity int) error {
	product, err := svc.products.FindProduct(c, productID)
	if err != nil {
		return fmt.Errorf("failed finding productId=%s with error=%w", productID, err)
	}
	if quantity > product.Quantity {
		return fmt.Errorf("failed setting %d of productId=%s with stock=%d with error=%w", quantity, productID, product.Quantity, ErrInsufficientStock)
	}
	return nil
}

// mutate loads an existing cart, applies fn, persists and refreshes the cache.
func (svc *CartService) mutate(
	c context.Context,
	owner request.Owner,
	fn func(cart *domain.Cart) error,
) (*domain.Cart, error) {
	cart, err := svc.load(c, owner, readStored)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := svc.repo.Update(c, cart); err != nil {
		return nil, fmt.Errorf("failed persisting cartId=%s with error=%w", cart.ID(), err)
	}
	svc.refreshCache(c, cart)
	return cart, nil
}

// ClearCart answers with a fresh empty cart when the owner has none.
func (svc *CartService) ClearCart(c context.Context, owner request.Owner) (res response.Cart, err error) {
	c, span := otel.Tracer.Start(c, "CartService ClearCart")
	defer span.End()
	defer func() { svc.metrics.Operation(opClearCart, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService ClearCart").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Logger()

	if err = owner.Validate(); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}

	cart, err := svc.mutate(c, owner, func(cart *domain.Cart) error {
		cart.Clear()
		return nil
	})
	if errors.Is(err, repository.ErrCartNotFound) {
		logger.Debug().Msg("no cart to clear")
		empty, err := newCart(owner)
		if err != nil {
			return response.Cart{}, err
		}
		return response.FromDomain(empty), nil
	}
	if err != nil {
		err = fmt.Errorf("failed clearing cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return response.Cart{}, err
	}
	logger.Info().Str(log.KeyCartID, cart.ID().String()).Msg("cleared cart")

	svc.publish(c, cartEvent(event.TypeCleared, cart))

	return response.FromDomain(cart), nil
}

// DeleteCart is idempotent. The row goes first, then every cache key tied to
// the cart is dropped concurrently.
func (svc *CartService) DeleteCart(c context.Context, owner request.Owner) (message string, err error) {
	c, span := otel.Tracer.Start(c, "CartService DeleteCart")
	defer span.End()
	defer func() { svc.metrics.Operation(opDeleteCart, err) }()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService DeleteCart").
		Str(log.KeyUserID, owner.UserID).
		Str(log.KeySessionID, owner.SessionID).
		Logger()

	if err = owner.Validate(); err != nil {
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}

	logger = logger.With().Str(log.KeyProcess, "loading cart").Logger()
	cart, err := svc.load(c, owner, readCached)
	if errors.Is(err, repository.ErrCartNotFound) {
		logger.Debug().Msg(MessageNothingToDelete)
		return MessageNothingToDelete, nil
	}
	if err != nil {
		err = fmt.Errorf("failed loading cart with error=%w", err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}
	logger = logger.With().Str(log.KeyCartID, cart.ID().String()).Logger()

	logger = logger.With().Str(log.KeyProcess, "deleting cart").Logger()
	logger.Trace().Msg("deleting cart")
	if err = svc.repo.DeleteCart(c, cart.ID()); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		err = fmt.Errorf("failed deleting cartId=%s with error=%w", cart.ID(), err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return "", err
	}

	logger = logger.With().Str(log.KeyProcess, "invalidating cache").Logger()
	logger.Trace().Msg("invalidating cache")
	svc.invalidate(c, cart, owner)
	logger.Info().Msg("deleted cart")

	svc.publish(c, cartEvent(event.TypeDeleted, cart))

	return MessageDeleted, nil
}

func (svc *CartService) invalidate(c context.Context, cart *domain.Cart, owner request.Owner) {
	userIDs := uniqueNonBlank(cart.UserID(), owner.UserID)
	sessionIDs := uniqueNonBlank(cart.SessionID(), owner.SessionID)

	g, gc := errgroup.WithContext(c)
	g.Go(func() error {
		svc.forget(gc, "delete_cart", func(c context.Context) error { return svc.cache.DeleteCart(c, cart.ID()) })
		return nil
	})
	for _, userID := range userIDs {
		g.Go(func() error {
			svc.forget(gc, "delete_user_index", func(c context.Context) error { return svc.cache.DeleteUserCart(c, userID) })
			return nil
		})
	}
	for _, sessionID := range sessionIDs {
		g.Go(func() error {
			svc.forget(gc, "delete_session_index", func(c context.Context) error { return svc.cache.DeleteSessionCart(c, sessionID) })
			return nil
		})
	}
	_ = g.Wait()
}

func uniqueNonBlank(values ...string) []string {
	unique := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		seen := false
		for _, u := range unique {
			if u == v {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, v)
		}
	}
	return unique
}
