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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/cart/pkg/request"
	"github.com/Alturino/storefront/cart/pkg/response"
	"github.com/Alturino/storefront/internal/auth"
	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/middleware"
)

const testSecret = "secret"

type stubService struct {
	owner      request.Owner
	addItem    request.AddItem
	updateItem request.UpdateItem
	removeItem request.RemoveItem
	merge      request.Merge
	sessionID  string
	err        error
}

func (s *stubService) cart(owner request.Owner) (response.Cart, error) {
	s.owner = owner
	if s.err != nil {
		return response.Cart{}, s.err
	}
	return response.Cart{ID: uuid.New(), UserID: owner.UserID, SessionID: owner.SessionID, Items: []response.CartItem{}}, nil
}

func (s *stubService) GetCart(_ context.Context, owner request.Owner) (response.Cart, error) {
	return s.cart(owner)
}

func (s *stubService) AddItem(_ context.Context, owner request.Owner, param request.AddItem) (response.Cart, error) {
	s.addItem = param
	return s.cart(owner)
}

func (s *stubService) RemoveItem(_ context.Context, owner request.Owner, param request.RemoveItem) (response.Cart, error) {
	s.removeItem = param
	return s.cart(owner)
}

func (s *stubService) UpdateItemQuantity(_ context.Context, owner request.Owner, param request.UpdateItem) (response.Cart, error) {
	s.updateItem = param
	return s.cart(owner)
}

func (s *stubService) ClearCart(_ context.Context, owner request.Owner) (response.Cart, error) {
	return s.cart(owner)
}

func (s *stubService) DeleteCart(_ context.Context, owner request.Owner) (string, error) {
	s.owner = owner
	return "cart deleted", s.err
}

func (s *stubService) MergeOnLogin(_ context.Context, param request.Merge) (response.Cart, error) {
	s.merge = param
	return s.cart(request.Owner{UserID: param.UserID})
}

func (s *stubService) ExtendSession(_ context.Context, sessionID string) (response.SessionExtended, error) {
	s.sessionID = sessionID
	return response.SessionExtended{SessionID: sessionID, Extended: true}, s.err
}

func (s *stubService) SessionStatus(_ context.Context, sessionID string) (response.SessionStatus, error) {
	s.sessionID = sessionID
	return response.SessionStatus{SessionID: sessionID, Active: true, RemainingSeconds: 60}, s.err
}

func newRouter(svc CartService) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.OptionalAuth(testSecret), middleware.Session)
	AttachCartController(router, svc)
	return router
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func serve(t *testing.T, svc CartService, method, target, body string, header map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	res := envelope{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return rec.Code, res
}

func sessionHeader(sessionID string) map[string]string {
	return map[string]string{constants.HeaderSessionID: sessionID}
}

func TestGetCart(t *testing.T) {
	svc := &stubService{}

	status, res := serve(t, svc, http.MethodGet, "/carts", "", sessionHeader("s1"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	assert.Equal(t, request.Owner{SessionID: "s1"}, svc.owner)
	data := response.CartData{}
	require.NoError(t, json.Unmarshal(res.Data, &data))
	assert.Equal(t, "s1", data.Cart.SessionID)
}

func TestGetCartWithBearerToken(t *testing.T) {
	svc := &stubService{}
	token, err := auth.IssueToken(testSecret, "u1", time.Now())
	require.NoError(t, err)

	status, _ := serve(t, svc, http.MethodGet, "/carts", "", map[string]string{
		constants.HeaderAuthorization: "Bearer " + token,
		constants.HeaderSessionID:     "s1",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, request.Owner{UserID: "u1", SessionID: "s1"}, svc.owner)
}

func TestAddItem(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedKind   string
	}{
		{name: "added", body: `{"product_id":"p1","quantity":2}`, expectedStatus: http.StatusOK},
		{name: "malformed body", body: `{"product_id":`, expectedStatus: http.StatusBadRequest, expectedKind: "validation"},
		{name: "zero quantity", body: `{"product_id":"p1","quantity":0}`, expectedStatus: http.StatusBadRequest, expectedKind: "validation"},
		{name: "blank product", body: `{"product_id":"  ","quantity":1}`, expectedStatus: http.StatusBadRequest, expectedKind: "validation"},
		{name: "unknown product", body: `{"product_id":"p9","quantity":1}`, serviceErr: inErrors.NotFound("product not found"), expectedStatus: http.StatusNotFound, expectedKind: "not_found"},
		{name: "out of stock", body: `{"product_id":"p1","quantity":99}`, serviceErr: inErrors.Conflict("requested quantity exceeds available stock"), expectedStatus: http.StatusConflict, expectedKind: "conflict"},
		{name: "product service down", body: `{"product_id":"p1","quantity":1}`, serviceErr: inErrors.Downstream("product service unavailable", nil), expectedStatus: http.StatusServiceUnavailable, expectedKind: "downstream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{err: tt.serviceErr}

			status, res := serve(t, svc, http.MethodPost, "/carts/items", tt.body, sessionHeader("s1"))

			assert.Equal(t, tt.expectedStatus, status)
			if tt.expectedKind == "" {
				assert.True(t, res.Success)
				assert.Equal(t, request.AddItem{ProductID: "p1", Quantity: 2}, svc.addItem)
				return
			}
			assert.False(t, res.Success)
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.expectedKind, res.Error.Kind)
		})
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	svc := &stubService{}

	status, _ := serve(t, svc, http.MethodPut, "/carts/items/p1", `{"quantity":0}`, sessionHeader("s1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, request.UpdateItem{ProductID: "p1", Quantity: 0}, svc.updateItem)

	status, res := serve(t, svc, http.MethodPut, "/carts/items/p1", `{"quantity":-1}`, sessionHeader("s1"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, res.Success)

	status, _ = serve(t, svc, http.MethodDelete, "/carts/items/p2", "", sessionHeader("s1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, request.RemoveItem{ProductID: "p2"}, svc.removeItem)
}

func TestMissingCartIsNotFound(t *testing.T) {
	svc := &stubService{err: inErrors.NotFound("cart not found")}

	status, res := serve(t, svc, http.MethodPut, "/carts/items/p1", `{"quantity":1}`, sessionHeader("s1"))

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "cart not found", res.Message)
}

func TestUnclassifiedErrorIsHidden(t *testing.T) {
	svc := &stubService{err: context.DeadlineExceeded}

	status, res := serve(t, svc, http.MethodPost, "/carts/clear", "", sessionHeader("s1"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", res.Message)
}

func TestDeleteCart(t *testing.T) {
	svc := &stubService{}

	status, res := serve(t, svc, http.MethodDelete, "/carts", "", sessionHeader("s1"))

	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	assert.Equal(t, "cart deleted", res.Message)
}

func TestMergeOnLogin(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "u1", time.Now())
	require.NoError(t, err)

	t.Run("requires token", func(t *testing.T) {
		status, res := serve(t, &stubService{}, http.MethodPost, "/carts/merge", "", sessionHeader("s1"))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.False(t, res.Success)
	})

	t.Run("requires session", func(t *testing.T) {
		status, _ := serve(t, &stubService{}, http.MethodPost, "/carts/merge", "", map[string]string{
			constants.HeaderAuthorization: "Bearer " + token,
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("merges", func(t *testing.T) {
		svc := &stubService{}
		status, _ := serve(t, svc, http.MethodPost, "/carts/merge", "", map[string]string{
			constants.HeaderAuthorization: "Bearer " + token,
			constants.HeaderSessionID:     "s1",
		})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, request.Merge{UserID: "u1", SessionID: "s1"}, svc.merge)
	})
}

func TestSessionEndpoints(t *testing.T) {
	svc := &stubService{}

	status, res := serve(t, svc, http.MethodPost, "/carts/session/extend", "", sessionHeader("s1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "session extended", res.Message)
	assert.Equal(t, "s1", svc.sessionID)

	status, res = serve(t, svc, http.MethodGet, "/carts/session", "", sessionHeader("s2"))
	assert.Equal(t, http.StatusOK, status)
	status2 := response.SessionStatus{}
	require.NoError(t, json.Unmarshal(res.Data, &status2))
	assert.True(t, status2.Active)
	assert.Equal(t, "s2", svc.sessionID)
}
