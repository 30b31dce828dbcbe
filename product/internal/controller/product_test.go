package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/product/pkg/request"
	"github.com/Alturino/storefront/product/pkg/response"
)

type stubService struct {
	inserted request.Product
	products []response.Product
	err      error
}

func (s *stubService) InsertProduct(_ context.Context, param request.Product) (response.Product, error) {
	s.inserted = param
	if s.err != nil {
		return response.Product{}, s.err
	}
	return response.Product{ID: uuid.New(), Name: param.Name, Price: param.Price, Quantity: param.Quantity}, nil
}

func (s *stubService) GetProducts(context.Context) ([]response.Product, error) {
	return s.products, s.err
}

func (s *stubService) FindProductByID(_ context.Context, id uuid.UUID) (response.Product, error) {
	if s.err != nil {
		return response.Product{}, s.err
	}
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return response.Product{}, inErrors.NotFound("product not found")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Kind string `json:"kind"`
	} `json:"error"`
}

func serve(t *testing.T, svc *stubService, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	router := mux.NewRouter()
	AttachProductController(router, svc)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	env := envelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestInsertProduct(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{name: "created", body: `{"name":"keyboard","price":"149.90","quantity":5}`, wantStatus: http.StatusCreated},
		{name: "numeric price", body: `{"name":"keyboard","price":149.90,"quantity":5}`, wantStatus: http.StatusCreated},
		{name: "malformed body", body: `{"name":`, wantStatus: http.StatusBadRequest, wantKind: "validation"},
		{name: "blank name", body: `{"name":"  ","price":"1","quantity":1}`, wantStatus: http.StatusBadRequest, wantKind: "validation"},
		{name: "zero price", body: `{"name":"keyboard","price":"0","quantity":1}`, wantStatus: http.StatusBadRequest, wantKind: "validation"},
		{name: "negative quantity", body: `{"name":"keyboard","price":"1","quantity":-1}`, wantStatus: http.StatusBadRequest, wantKind: "validation"},
		{
			name:       "duplicate",
			body:       `{"name":"keyboard","price":"1","quantity":1}`,
			err:        inErrors.Conflict("product already exists"),
			wantStatus: http.StatusConflict,
			wantKind:   "conflict",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.err}
			rec, env := serve(t, svc, http.MethodPost, "/products", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantKind == "" {
				assert.True(t, env.Success)
				product := response.Product{}
				require.NoError(t, json.Unmarshal(env.Data, &product))
				assert.Equal(t, "keyboard", product.Name)
				assert.True(t, decimal.RequireFromString("149.90").Equal(svc.inserted.Price))
				return
			}
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantKind, env.Error.Kind)
		})
	}
}

func TestGetProducts(t *testing.T) {
	svc := &stubService{products: []response.Product{
		{ID: uuid.New(), Name: "keyboard", Price: decimal.NewFromInt(150), Quantity: 2, CreatedAt: time.Now()},
		{ID: uuid.New(), Name: "mouse", Price: decimal.NewFromInt(20), Quantity: 8, CreatedAt: time.Now()},
	}}

	rec, env := serve(t, svc, http.MethodGet, "/products", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	products := []response.Product{}
	require.NoError(t, json.Unmarshal(env.Data, &products))
	require.Len(t, products, 2)
	assert.Equal(t, "mouse", products[1].Name)
}

func TestFindProductByID(t *testing.T) {
	id := uuid.New()
	svc := &stubService{products: []response.Product{{ID: id, Name: "keyboard", Price: decimal.NewFromInt(150), Quantity: 2}}}

	t.Run("found", func(t *testing.T) {
		rec, env := serve(t, svc, http.MethodGet, "/products/"+id.String(), "")
		assert.Equal(t, http.StatusOK, rec.Code)
		product := response.Product{}
		require.NoError(t, json.Unmarshal(env.Data, &product))
		assert.Equal(t, id, product.ID)
	})
	t.Run("not found", func(t *testing.T) {
		rec, env := serve(t, svc, http.MethodGet, "/products/"+uuid.NewString(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "not_found", env.Error.Kind)
	})
	t.Run("invalid id", func(t *testing.T) {
		rec, env := serve(t, svc, http.MethodGet, "/products/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation", env.Error.Kind)
	})
}
