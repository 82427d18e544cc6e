package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

const (
	codGateway      = "Cash on Delivery"
	pendingStatus   = "pending"
	codOrderTag     = "cod-otp"
	sessionNoteName = "cod_session"
	defaultCountry  = "India"

	// maxQuantity caps a single COD line; anything above falls back to 1.
	maxQuantity = 10000
)

// OrderBuilder maps a verified draft onto the commerce create-order payload.
type OrderBuilder struct {
	Country string
}

func NewOrderBuilder(country string) *OrderBuilder {
	if country == "" {
		country = defaultCountry
	}
	return &OrderBuilder{Country: country}
}

// Build: количество и вариант берём из черновика как есть, а цену за единицу
// вычисляем из total, чтобы платформа приняла скидку витрины.
func (b *OrderBuilder) Build(s *models.OtpSession) (*models.OrderRequest, error) {
	d := s.Draft
	variantID, err := parseVariantID(d.VariantID)
	if err != nil {
		return nil, err
	}
	qty := parseQuantity(d.Quantity)

	item := models.OrderLineItem{VariantID: variantID, Quantity: qty}
	if price, ok := UnitPrice(d.Total, qty); ok {
		item.Price = price
	}

	addr := models.Address{
		Name:     d.Name,
		Address1: d.House,
		Address2: joinNonBlank(", ", d.Street, d.Landmark),
		City:     d.City,
		Province: d.State,
		Phone:    d.Phone,
		Zip:      d.Pincode,
		Country:  b.Country,
	}

	req := &models.OrderRequest{Order: models.OrderRequestBody{
		LineItems:       []models.OrderLineItem{item},
		BillingAddress:  addr,
		ShippingAddress: addr,
		FinancialStatus: pendingStatus,
		Gateway:         codGateway,
		Tags:            codOrderTag,
	}}
	if s.IdempotencyKey != "" {
		req.Order.NoteAttributes = []models.NoteAttribute{{Name: sessionNoteName, Value: s.IdempotencyKey}}
	}
	return req, nil
}

// UnitPrice returns total/quantity with two decimals, or false when either
// side is missing or not positive.
func UnitPrice(total models.FlexString, qty int) (string, bool) {
	if qty <= 0 {
		return "", false
	}
	t, err := decimal.NewFromString(strings.TrimSpace(total.String()))
	if err != nil || !t.IsPositive() {
		return "", false
	}
	return t.DivRound(decimal.NewFromInt(int64(qty)), 2).StringFixed(2), true
}

func parseVariantID(v models.FlexString) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: variant_id %q is not a valid id", ErrValidation, v)
	}
	return id, nil
}

// parseQuantity falls back to 1 for anything that is not a positive integer
// up to maxQuantity.
func parseQuantity(v models.FlexString) int {
	s := strings.TrimSpace(v.String())
	if n, err := strconv.Atoi(s); err == nil {
		if n > 0 && n <= maxQuantity {
			return n
		}
		return 1
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() || !d.IsInteger() || d.GreaterThan(decimal.NewFromInt(maxQuantity)) {
		return 1
	}
	return int(d.IntPart())
}

func joinNonBlank(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
