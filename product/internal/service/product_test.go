package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/product/internal/cache"
	"github.com/Alturino/storefront/product/internal/repository"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

type memoryRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]response.Product
	order    []uuid.UUID
	finds    int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{products: map[uuid.UUID]response.Product{}}
}

func (r *memoryRepository) InsertProduct(_ context.Context, param request.Product) (response.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Name == param.Name {
			return response.Product{}, repository.ErrProductAlreadyExists
		}
	}
	now := time.Now().UTC()
	product := response.Product{
		ID:        uuid.New(),
		Name:      param.Name,
		Price:     param.Price,
		Quantity:  param.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.products[product.ID] = product
	r.order = append(r.order, product.ID)
	return product, nil
}

func (r *memoryRepository) FindProducts(context.Context) ([]response.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var products []response.Product
	for _, id := range r.order {
		products = append(products, r.products[id])
	}
	return products, nil
}

func (r *memoryRepository) FindProductByID(_ context.Context, id uuid.UUID) (response.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	product, ok := r.products[id]
	if !ok {
		return response.Product{}, repository.ErrProductNotFound
	}
	return product, nil
}

func setupService(t *testing.T) (*ProductService, *memoryRepository, *metrics.Metrics, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepository()
	m := metrics.New("product")
	return NewProductService(repo, cache.NewProductCache(client, time.Hour), m), repo, m, mr
}

func keyboard() request.Product {
	return request.Product{Name: "keyboard", Price: decimal.RequireFromString("149.90"), Quantity: 5}
}

func TestInsertProduct(t *testing.T) {
	svc, repo, _, mr := setupService(t)
	c := context.Background()

	product, err := svc.InsertProduct(c, keyboard())
	require.NoError(t, err)
	assert.Equal(t, "keyboard", product.Name)
	assert.True(t, mr.Exists("product:"+product.ID.String()))

	_, err = svc.InsertProduct(c, keyboard())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrProductAlreadyExists)
	assert.Equal(t, inErrors.KindConflict, inErrors.KindOf(err))
	assert.Len(t, repo.products, 1)
}

func TestGetProducts(t *testing.T) {
	svc, _, _, _ := setupService(t)
	c := context.Background()

	products, err := svc.GetProducts(c)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)

	_, err = svc.InsertProduct(c, keyboard())
	require.NoError(t, err)
	_, err = svc.InsertProduct(c, request.Product{Name: "mouse", Price: decimal.NewFromInt(20), Quantity: 1})
	require.NoError(t, err)

	products, err = svc.GetProducts(c)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "keyboard", products[0].Name)
	assert.Equal(t, "mouse", products[1].Name)
}

func TestFindProductByIDReadsThroughCache(t *testing.T) {
	svc, repo, m, mr := setupService(t)
	c := context.Background()

	inserted, err := svc.InsertProduct(c, keyboard())
	require.NoError(t, err)
	mr.FlushAll()

	product, err := svc.FindProductByID(c, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, product.ID)
	assert.Equal(t, 1, repo.finds)
	assert.True(t, mr.Exists("product:"+inserted.ID.String()))

	product, err = svc.FindProductByID(c, inserted.ID)
	require.NoError(t, err)
	assert.True(t, inserted.Price.Equal(product.Price))
	assert.Equal(t, 1, repo.finds)

	count, err := testutil.GatherAndCount(m.Registry(), "product_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFindProductByIDNotFound(t *testing.T) {
	svc, _, _, _ := setupService(t)

	_, err := svc.FindProductByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Equal(t, inErrors.KindNotFound, inErrors.KindOf(err))
}

func TestFindProductByIDCacheDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemoryRepository()
	m := metrics.New("product")
	svc := NewProductService(repo, cache.NewProductCache(client, time.Hour), m)
	c := context.Background()

	inserted, err := svc.InsertProduct(c, keyboard())
	require.NoError(t, err)
	mr.Close()

	product, err := svc.FindProductByID(c, inserted.ID)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, product.ID)
	assert.Equal(t, 1, repo.finds)

	count, err := testutil.GatherAndCount(m.Registry(), "product_cache_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
