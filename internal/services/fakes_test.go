package services

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/gomail.v2"

	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/repositories"
	"github.com/zapikart/shopify-mpwa/internal/utils"
)

type sentMessage struct {
	Number string
	Text   string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, number, message string) (*utils.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, sentMessage{Number: number, Text: message})
	ok := true
	return &utils.SendMessageResponse{Status: &ok}, nil
}

func (f *fakeSender) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

func (f *fakeSender) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var otpInMessage = regexp.MustCompile(`\*(\d{6})\*`)

// lastOTP pulls the code out of the most recent OTP message.
func (f *fakeSender) lastOTP(t *testing.T) string {
	t.Helper()
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if m := otpInMessage.FindStringSubmatch(msgs[i].Text); m != nil {
			return m[1]
		}
	}
	t.Fatal("no otp message sent")
	return ""
}

type commerceCall struct {
	Req            models.OrderRequest
	IdempotencyKey string
}

type fakeCommerce struct {
	mu    sync.Mutex
	calls []commerceCall
	err   error

	// onCreate runs before the order is recorded, outside the mutex.
	onCreate func()
}

func (f *fakeCommerce) CreateOrder(_ context.Context, req *models.OrderRequest, key string) (*CreatedOrder, error) {
	if f.onCreate != nil {
		f.onCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, commerceCall{Req: *req, IdempotencyKey: key})
	if f.err != nil {
		return nil, f.err
	}
	raw := json.RawMessage(`{"order":{"id":1001,"name":"#1001"}}`)
	return &CreatedOrder{Order: models.Order{ID: "1001", Name: "#1001"}, Raw: raw}, nil
}

func (f *fakeCommerce) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeCommerce) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeTelegram struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeDialer struct {
	mu   sync.Mutex
	msgs []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m...)
	return f.err
}

type checkoutFixture struct {
	svc      *CheckoutService
	store    *repositories.MemoryOtpSessionRepository
	sender   *fakeSender
	commerce *fakeCommerce
	notifier *NotificationService
	telegram *fakeTelegram
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		store:    repositories.NewMemoryOtpSessionRepository(),
		sender:   &fakeSender{},
		commerce: &fakeCommerce{},
		telegram: &fakeTelegram{},
	}
	f.notifier = NewNotificationService(f.sender, 0, nil)
	f.svc = NewCheckoutService(
		f.store,
		NewOrderBuilder(""),
		f.commerce,
		f.notifier,
		newTelegramAlertsWithSender(f.telegram, 42),
		nil,
		CheckoutOptions{BcryptCost: bcrypt.MinCost},
	)
	return f
}

// settle waits for every background dispatch and alert.
func (f *checkoutFixture) settle() {
	f.svc.Wait()
	f.notifier.Wait()
}

func validDraft() models.CheckoutDraft {
	return models.CheckoutDraft{
		Name:      "Asha",
		Phone:     "9876543210",
		House:     "12B",
		Street:    "MG Road",
		Landmark:  "Near Park",
		City:      "Pune",
		State:     "MH",
		Pincode:   "411001",
		VariantID: "123",
		Quantity:  "2",
		Total:     "500",
	}
}
