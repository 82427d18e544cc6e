package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

func TestTelegramAlerts_Disabled(t *testing.T) {
	alerts, err := NewTelegramAlerts("", 0)
	require.NoError(t, err)
	assert.Nil(t, alerts)

	assert.NotPanics(t, func() {
		alerts.OrderPlaced("1", &models.Order{})
		alerts.OrderFailed("1", errors.New("x"))
	})
}

func TestTelegramAlerts_EscapesHTML(t *testing.T) {
	tg := &fakeTelegram{}
	alerts := newTelegramAlertsWithSender(tg, 7)

	alerts.OrderPlaced("919876543210", &models.Order{
		Name:       "#1001",
		LineItems:  []models.LineItem{{Title: "Tee <XL>"}},
		TotalPrice: "500.00",
	})
	alerts.OrderFailed("919876543210", errors.New(`http 422: {"errors":"<bad>"}`))

	sent := tg.sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0], "Tee &lt;XL&gt;")
	assert.Contains(t, sent[0], "500.00 INR")
	assert.Contains(t, sent[1], "&lt;bad&gt;")
}
