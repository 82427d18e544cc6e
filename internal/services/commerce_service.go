package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

const (
	defaultAPIVersion      = "2024-10"
	defaultCommerceTimeout = 15 * time.Second
	idempotencyHeader      = "Idempotency-Key"
)

// CommerceClient creates orders on the commerce platform.
type CommerceClient interface {
	CreateOrder(ctx context.Context, req *models.OrderRequest, idempotencyKey string) (*CreatedOrder, error)
}

// CreatedOrder is the parsed create-order response plus the raw body returned to the storefront.
type CreatedOrder struct {
	Order models.Order
	Raw   json.RawMessage
}

type ShopifyClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewShopifyClient builds the admin REST client for a store domain such as
// "my-shop.myshopify.com". A full URL is accepted too (used by tests).
func NewShopifyClient(storeDomain, token, apiVersion string, timeout time.Duration) *ShopifyClient {
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	if timeout <= 0 {
		timeout = defaultCommerceTimeout
	}
	base := strings.TrimRight(storeDomain, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return &ShopifyClient{
		baseURL: fmt.Sprintf("%s/admin/api/%s", base, apiVersion),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// CreateOrder делает ровно один вызов без повторов; любая не-2xx ответка,
// транспортная ошибка или кривой JSON превращаются в *CommerceAPIError.
func (s *ShopifyClient) CreateOrder(ctx context.Context, req *models.OrderRequest, idempotencyKey string) (*CreatedOrder, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &CommerceAPIError{Err: fmt.Errorf("encode order: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/orders.json", bytes.NewReader(payload))
	if err != nil {
		return nil, &CommerceAPIError{Err: fmt.Errorf("build request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Shopify-Access-Token", s.token)
	if idempotencyKey != "" {
		httpReq.Header.Set(idempotencyHeader, idempotencyKey)
	}

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &CommerceAPIError{Err: fmt.Errorf("create order request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &CommerceAPIError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	slog.Debug("[commerce][create]", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CommerceAPIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	created, err := parseCreatedOrder(body)
	if err != nil {
		return nil, &CommerceAPIError{Err: err, Body: string(body)}
	}
	return created, nil
}

// parseCreatedOrder unwraps the {"order": {...}} envelope when present.
func parseCreatedOrder(body []byte) (*CreatedOrder, error) {
	var envelope struct {
		Order json.RawMessage `json:"order"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	inner := envelope.Order
	if len(inner) == 0 || string(inner) == "null" {
		inner = body
	}
	var order models.Order
	if err := json.Unmarshal(inner, &order); err != nil {
		return nil, fmt.Errorf("parse order: %w", err)
	}
	return &CreatedOrder{Order: order, Raw: json.RawMessage(body)}, nil
}
