package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

func sampleOrderRequest() *models.OrderRequest {
	return &models.OrderRequest{Order: models.OrderRequestBody{
		LineItems:       []models.OrderLineItem{{VariantID: 123, Quantity: 2, Price: "250.00"}},
		FinancialStatus: "pending",
		Gateway:         "Cash on Delivery",
	}}
}

func TestShopifyClient_CreateOrder(t *testing.T) {
	var (
		gotPath, gotToken, gotKey string
		gotBody                   models.OrderRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		gotKey = r.Header.Get("Idempotency-Key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order":{"id":1001,"name":"#1001","total_price":"500.00","line_items":[{"title":"Kurta","quantity":2}]}}`))
	}))
	defer srv.Close()

	c := NewShopifyClient(srv.URL, "shpat_x", "", time.Second)
	created, err := c.CreateOrder(context.Background(), sampleOrderRequest(), "key-1")
	require.NoError(t, err)

	assert.Equal(t, "/admin/api/2024-10/orders.json", gotPath)
	assert.Equal(t, "shpat_x", gotToken)
	assert.Equal(t, "key-1", gotKey)
	assert.Equal(t, "250.00", gotBody.Order.LineItems[0].Price)

	assert.Equal(t, "#1001", created.Order.Name)
	assert.Equal(t, models.FlexString("1001"), created.Order.ID)
	assert.Equal(t, models.FlexString("500.00"), created.Order.TotalPrice)
	assert.JSONEq(t, `{"order":{"id":1001,"name":"#1001","total_price":"500.00","line_items":[{"title":"Kurta","quantity":2}]}}`, string(created.Raw))
}

func TestShopifyClient_BareOrderBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"name":"#7"}`))
	}))
	defer srv.Close()

	created, err := NewShopifyClient(srv.URL, "t", "2024-07", time.Second).CreateOrder(context.Background(), sampleOrderRequest(), "")
	require.NoError(t, err)
	assert.Equal(t, "#7", created.Order.Name)
}

func TestShopifyClient_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
	}{
		{"unprocessable", http.StatusUnprocessableEntity, `{"errors":{"line_items":["invalid"]}}`, 422},
		{"unauthorized", http.StatusUnauthorized, `{"errors":"Invalid API key"}`, 401},
		{"bad json on success", http.StatusOK, `not json`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewShopifyClient(srv.URL, "t", "", time.Second).CreateOrder(context.Background(), sampleOrderRequest(), "")
			var apiErr *CommerceAPIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.body, apiErr.Body)
		})
	}
}

func TestShopifyClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewShopifyClient(srv.URL, "t", "", 20*time.Millisecond).CreateOrder(context.Background(), sampleOrderRequest(), "")
	var apiErr *CommerceAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
}

func TestNewShopifyClient_Domain(t *testing.T) {
	c := NewShopifyClient("my-shop.myshopify.com/", "t", "", 0)
	assert.Equal(t, "https://my-shop.myshopify.com/admin/api/2024-10", c.baseURL)
}
