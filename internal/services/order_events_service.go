package services

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/utils"
)

type OrderEvent string

const (
	OrderCreated   OrderEvent = "created"
	OrderUpdated   OrderEvent = "updated"
	OrderCancelled OrderEvent = "cancelled"
)

// OrderEventsService turns commerce webhooks into customer messages.
type OrderEventsService struct {
	notifier Notifier
	email    EmailService

	bg sync.WaitGroup
}

func NewOrderEventsService(notifier Notifier, email EmailService) *OrderEventsService {
	return &OrderEventsService{notifier: notifier, email: email}
}

// Handle dispatches the message for ev and reports whether one was queued.
// Orders without a phone are acknowledged silently.
func (s *OrderEventsService) Handle(ev OrderEvent, o *models.Order) bool {
	var text string
	switch ev {
	case OrderCreated:
		text = OrderCreatedMessage(o)
		s.sendReceipt(o)
	case OrderUpdated:
		text = OrderUpdatedMessage(o)
	case OrderCancelled:
		text = OrderCancelledMessage(o)
	default:
		slog.Warn("[webhook] unknown event", "event", ev)
		return false
	}

	phone := utils.CleanPhone(o.Phone())
	if phone == "" {
		slog.Info("[webhook] no phone on order, skipping", "event", ev, "order", o.Name)
		return false
	}
	s.notifier.Dispatch(phone, text)
	slog.Info("[webhook] message dispatched", "event", ev, "order", o.Name, "phone", phone)
	return true
}

func (s *OrderEventsService) sendReceipt(o *models.Order) {
	if s.email == nil || strings.TrimSpace(o.Email) == "" {
		return
	}
	order := *o
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		if err := s.email.SendOrderReceipt(order.Email, &order); err != nil {
			slog.Warn("[email][receipt] failed", "order", order.Name, "error", err)
		}
	}()
}

func (s *OrderEventsService) Wait() {
	s.bg.Wait()
}
