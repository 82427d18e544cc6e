package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/zapikart/shopify-mpwa/internal/metrics"
	"github.com/zapikart/shopify-mpwa/internal/utils"
)

const (
	defaultDispatchTimeout = 20 * time.Second
	channelWhatsApp        = "whatsapp"
)

var errEmptyNumber = errors.New("phone number has no digits")

// MessageSender is the outbound gateway (MPWA in production).
type MessageSender interface {
	SendMessage(ctx context.Context, number, message string) (*utils.SendMessageResponse, error)
}

// NotificationService sends customer messages. Notify is synchronous;
// Dispatch is fire-and-forget with its own result channel.
type NotificationService struct {
	sender  MessageSender
	timeout time.Duration
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

func NewNotificationService(sender MessageSender, timeout time.Duration, m *metrics.Metrics) *NotificationService {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &NotificationService{sender: sender, timeout: timeout, metrics: m}
}

func (n *NotificationService) Notify(ctx context.Context, phone, text string) error {
	number := utils.CleanPhone(phone)
	if number == "" {
		n.metrics.IncNotification(channelWhatsApp, "skipped")
		return &NotificationError{Phone: phone, Err: errEmptyNumber}
	}
	if _, err := n.sender.SendMessage(ctx, number, text); err != nil {
		n.metrics.IncNotification(channelWhatsApp, "error")
		return &NotificationError{Phone: number, Err: err}
	}
	n.metrics.IncNotification(channelWhatsApp, "ok")
	slog.Info("[notify][send] ok", "phone", number)
	return nil
}

// Dispatch sends in the background, detached from any request context.
// The returned channel receives exactly one value (nil on success) and is then closed.
func (n *NotificationService) Dispatch(phone, text string) <-chan error {
	result := make(chan error, 1)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer close(result)

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		err := n.Notify(ctx, phone, text)
		if err != nil {
			slog.Warn("[notify][dispatch] failed", "error", err)
		}
		result <- err
	}()
	return result
}

// Wait blocks until every dispatched message has finished.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}
