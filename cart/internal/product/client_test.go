package product

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal/constants"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/log"
)

func TestFindProduct(t *testing.T) {
	productID := uuid.New()
	var gotRequestID, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get(constants.HeaderRequestID)
		w.Header().Set(constants.HeaderContentType, constants.HeaderValueJson)
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"` + productID.String() + `","name":"keyboard","price":"49.90","quantity":7}}`))
	}))
	defer server.Close()

	c := log.AttachRequestIDToContext(context.Background(), "req-1")
	product, err := NewClient(server.URL+"/", time.Second).FindProduct(c, productID.String())

	require.NoError(t, err)
	assert.Equal(t, "/products/"+productID.String(), gotPath)
	assert.Equal(t, "req-1", gotRequestID)
	assert.Equal(t, productID, product.ID)
	assert.Equal(t, "keyboard", product.Name)
	assert.True(t, decimal.RequireFromString("49.90").Equal(product.Price))
	assert.Equal(t, 7, product.Quantity)
}

func TestFindProductFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind inErrors.Kind
	}{
		{name: "not found", status: http.StatusNotFound, wantKind: inErrors.KindNotFound},
		{name: "bad id", status: http.StatusBadRequest, wantKind: inErrors.KindNotFound},
		{name: "server error", status: http.StatusInternalServerError, wantKind: inErrors.KindDownstream},
		{name: "broken body", status: http.StatusOK, body: "{", wantKind: inErrors.KindDownstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL, time.Second).FindProduct(context.Background(), "p1")

			require.Error(t, err)
			assert.Equal(t, tt.wantKind, inErrors.KindOf(err))
		})
	}
}

func TestFindProductTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, 50*time.Millisecond).FindProduct(context.Background(), "p1")

	require.Error(t, err)
	assert.Equal(t, inErrors.KindDownstream, inErrors.KindOf(err))
}

func TestFindProductUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	_, err := NewClient(server.URL, time.Second).FindProduct(context.Background(), "p1")

	assert.Equal(t, inErrors.KindDownstream, inErrors.KindOf(err))
}
