package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Alturino/storefront/cart/internal/cache"
	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/cart/internal/event"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

const (
	opGetCart         = "get_cart"
	opAddItem         = "add_item"
	opRemoveItem      = "remove_item"
	opUpdateItem      = "update_item_quantity"
	opClearCart       = "clear_cart"
	opDeleteCart      = "delete_cart"
	opMergeOnLogin    = "merge_on_login"
	opExtendSession   = "extend_session"
	opSessionStatus   = "session_status"
	opCleanupSessions = "cleanup_sessions"
)

type ProductFinder interface {
	FindProduct(c context.Context, productID string) (productRes.Product, error)
}

type CartService struct {
	repo      repository.CartRepository
	cache     *cache.CartCache
	products  ProductFinder
	publisher event.Publisher
	metrics   *metrics.Metrics
	reads     *singleflight.Group
}

func NewCartService(
	repo repository.CartRepository,
	cartCache *cache.CartCache,
	products ProductFinder,
	publisher event.Publisher,
	m *metrics.Metrics,
) *CartService {
	return &CartService{
		repo:      repo,
		cache:     cartCache,
		products:  products,
		publisher: publisher,
		metrics:   m,
		reads:     &singleflight.Group{},
	}
}

type ownerKind uint8

const (
	ownerUser ownerKind = iota
	ownerSession
)

func (k ownerKind) String() string {
	if k == ownerUser {
		return "user"
	}
	return "session"
}

// readMode picks where a cart is loaded from. Reads go through the cache;
// anything that is persisted afterwards starts from the repository so a
// stale blob left behind by a failed cache write is never written back.
type readMode uint8

const (
	readCached readMode = iota
	readStored
)

// loadBy resolves a cart through the cache index, then the cached blob, then
// the repository. Cache failures fall through to the repository.
func (svc *CartService) loadBy(c context.Context, kind ownerKind, owner string, mode readMode) (*domain.Cart, error) {
	c, span := otel.Tracer.Start(c, "CartService loadBy")
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService loadBy").
		Str(log.KeyOwnerKind, kind.String()).
		Str(log.KeyOwner, owner).
		Logger()

	if mode == readCached {
		logger = logger.With().Str(log.KeyProcess, "finding cart in cache").Logger()
		logger.Trace().Msg("finding cart in cache")
		if cart, ok := svc.fromCache(c, kind, owner); ok {
			logger.Debug().Str(log.KeyCartID, cart.ID().String()).Msg("found cart in cache")
			return cart, nil
		}
	}

	logger = logger.With().Str(log.KeyProcess, "finding cart in database").Logger()
	logger.Trace().Msg("finding cart in database")
	var (
		cart *domain.Cart
		err  error
	)
	if kind == ownerUser {
		cart, err = svc.repo.FindByUserID(c, owner)
	} else {
		cart, err = svc.repo.FindBySessionID(c, owner)
	}
	if errors.Is(err, repository.ErrCartNotFound) {
		logger.Debug().Msg("cart not found")
		return nil, repository.ErrCartNotFound
	}
	if err != nil {
		err = fmt.Errorf("failed finding cart of %s=%s with error=%w", kind, owner, err)
		otel.RecordError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Debug().Str(log.KeyCartID, cart.ID().String()).Msg("found cart in database")

	if mode == readCached {
		svc.refreshCache(c, cart)
	}
	return cart, nil
}

func (svc *CartService) fromCache(c context.Context, kind ownerKind, owner string) (*domain.Cart, bool) {
	logger := zerolog.Ctx(c)

	getIndex := svc.cache.GetSessionCartID
	if kind == ownerUser {
		getIndex = svc.cache.GetUserCartID
	}
	cartID, err := getIndex(c, owner)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			svc.metrics.CacheFailure("get_index")
			logger.Warn().Err(err).Msg("ignoring cache failure while reading cart index")
		}
		svc.metrics.CacheLookup(false)
		return nil, false
	}

	cart, err := svc.cache.GetCart(c, cartID)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			svc.metrics.CacheFailure("get_cart")
			logger.Warn().Err(err).Msg("ignoring cache failure while reading cart")
		}
		svc.metrics.CacheLookup(false)
		return nil, false
	}

	// the index may outlive an ownership transfer
	if (kind == ownerUser && cart.UserID() != owner) || (kind == ownerSession && cart.SessionID() != owner) {
		svc.metrics.CacheLookup(false)
		return nil, false
	}
	svc.metrics.CacheLookup(true)
	return cart, true
}

// refreshCache writes the blob and the owner index. Failures are counted and
// logged only; a blob that could not be rewritten is dropped when possible.
func (svc *CartService) refreshCache(c context.Context, cart *domain.Cart) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "CartService refreshCache").
		Str(log.KeyCartID, cart.ID().String()).
		Logger()

	if err := svc.cache.SetCart(c, cart.ID(), cart, cart.IsSessionCart()); err != nil {
		svc.metrics.CacheFailure("set_cart")
		logger.Warn().Err(err).Msg("ignoring cache failure while writing cart")
		svc.forget(c, "delete_cart", func(c context.Context) error { return svc.cache.DeleteCart(c, cart.ID()) })
		return
	}

	var err error
	if cart.IsSessionCart() {
		err = svc.cache.SetSessionCartID(c, cart.SessionID(), cart.ID())
	} else {
		err = svc.cache.SetUserCartID(c, cart.UserID(), cart.ID())
	}
	if err != nil {
		svc.metrics.CacheFailure("set_index")
		logger.Warn().Err(err).Msg("ignoring cache failure while writing cart index")
	}
}

func (svc *CartService) forget(c context.Context, operation string, fn func(context.Context) error) {
	if err := fn(c); err != nil {
		svc.metrics.CacheFailure(operation)
		zerolog.Ctx(c).Warn().Err(err).Str(log.KeyCacheOperation, operation).Msg("ignoring cache failure while invalidating")
	}
}

func (svc *CartService) publish(c context.Context, e event.Event) {
	e.OccurredAt = time.Now().UTC()
	if err := svc.publisher.Publish(c, e); err != nil {
		zerolog.Ctx(c).Warn().Err(err).Str(log.KeyEventType, string(e.Type)).Msg("ignoring event publish failure")
	}
}

func (svc *CartService) persist(c context.Context, cart *domain.Cart, isNew bool) error {
	if isNew {
		return svc.repo.Save(c, cart)
	}
	return svc.repo.Update(c, cart)
}

func cartEvent(kind event.Type, cart *domain.Cart) event.Event {
	return event.Event{
		Type:      kind,
		CartID:    cart.ID(),
		UserID:    cart.UserID(),
		SessionID: cart.SessionID(),
	}
}
