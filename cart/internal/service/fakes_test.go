package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/internal/cache"
	"github.com/Alturino/storefront/cart/internal/domain"
	"github.com/Alturino/storefront/cart/internal/event"
	"github.com/Alturino/storefront/cart/internal/repository"
	"github.com/Alturino/storefront/internal/metrics"
	productRes "github.com/Alturino/storefront/product/pkg/response"
)

// memoryRepository stores JSON snapshots so the service never shares
// pointers with it.
type memoryRepository struct {
	mu      sync.Mutex
	carts   map[uuid.UUID][]byte
	err     error
	finds   int
	saves   int
	updates int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{carts: map[uuid.UUID][]byte{}}
}

func (r *memoryRepository) find(match func(*domain.Cart) bool) (*domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if r.err != nil {
		return nil, r.err
	}
	for _, raw := range r.carts {
		cart := &domain.Cart{}
		if err := json.Unmarshal(raw, cart); err != nil {
			return nil, err
		}
		if match(cart) {
			return cart, nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (r *memoryRepository) FindByUserID(_ context.Context, userID string) (*domain.Cart, error) {
	return r.find(func(cart *domain.Cart) bool { return cart.UserID() == userID })
}

func (r *memoryRepository) FindBySessionID(_ context.Context, sessionID string) (*domain.Cart, error) {
	return r.find(func(cart *domain.Cart) bool { return cart.SessionID() == sessionID })
}

func (r *memoryRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.carts[cart.ID()]; ok {
		return repository.ErrCartOwnerTaken
	}
	r.saves++
	return r.store(cart)
}

func (r *memoryRepository) Update(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.carts[cart.ID()]; !ok {
		return repository.ErrCartNotFound
	}
	r.updates++
	return r.store(cart)
}

func (r *memoryRepository) DeleteCart(_ context.Context, cartID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if _, ok := r.carts[cartID]; !ok {
		return repository.ErrCartNotFound
	}
	delete(r.carts, cartID)
	return nil
}

func (r *memoryRepository) store(cart *domain.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	r.carts[cart.ID()] = raw
	return nil
}

func (r *memoryRepository) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

type stubProducts struct {
	products map[string]productRes.Product
	err      error
	calls    int
}

func (s *stubProducts) FindProduct(_ context.Context, productID string) (productRes.Product, error) {
	s.calls++
	if s.err != nil {
		return productRes.Product{}, s.err
	}
	product, ok := s.products[productID]
	if !ok {
		return productRes.Product{}, errProductMissing
	}
	return product, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]event.Type, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type fixture struct {
	svc       *CartService
	repo      *memoryRepository
	products  *stubProducts
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	cache     *cache.CartCache
	redis     *miniredis.Miniredis
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		repo: newMemoryRepository(),
		products: &stubProducts{products: map[string]productRes.Product{
			"p1": {Name: "keyboard", Price: decimal.NewFromInt(1000), Quantity: 10},
			"p2": {Name: "mouse", Price: decimal.NewFromInt(2000), Quantity: 10},
			"p3": {Name: "monitor", Price: decimal.NewFromInt(3000), Quantity: 1},
		}},
		publisher: &recordingPublisher{},
		metrics:   metrics.New("cart"),
		cache:     cache.NewCartCache(client, time.Hour, 30*time.Minute),
		redis:     mr,
	}
	f.svc = NewCartService(f.repo, f.cache, f.products, f.publisher, f.metrics)
	return f
}

func (f *fixture) seed(t *testing.T, cart *domain.Cart) {
	t.Helper()
	require.NoError(t, f.repo.Save(context.Background(), cart))
}

func seededCart(t *testing.T, userID, sessionID string, quantities map[string]int) *domain.Cart {
	t.Helper()
	cart, err := domain.New(userID, sessionID)
	require.NoError(t, err)
	for _, productID := range []string{"p1", "p2", "p3"} {
		if q, ok := quantities[productID]; ok {
			require.NoError(t, cart.AddItem(productID, q, decimal.NewFromInt(1000)))
		}
	}
	return cart
}
