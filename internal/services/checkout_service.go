package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/zapikart/shopify-mpwa/internal/metrics"
	"github.com/zapikart/shopify-mpwa/internal/models"
	"github.com/zapikart/shopify-mpwa/internal/repositories"
	"github.com/zapikart/shopify-mpwa/internal/utils"
)

// Настройки безопасности OTP (переопределяются конфигом)
const (
	defaultOTPTTL      = 10 * time.Minute
	defaultMaxAttempts = 5
)

// Notifier is the customer messaging channel as seen by the checkout flow.
type Notifier interface {
	Notify(ctx context.Context, phone, text string) error
	Dispatch(phone, text string) <-chan error
}

type CheckoutOptions struct {
	OTPTTL      time.Duration
	MaxAttempts int
	BcryptCost  int
}

// CheckoutService: двухшаговый COD: Start выдаёт OTP, Verify по нему создаёт заказ.
type CheckoutService struct {
	sessions repositories.OtpSessionRepository
	builder  *OrderBuilder
	commerce CommerceClient
	notifier Notifier
	alerts   *TelegramAlerts
	metrics  *metrics.Metrics

	ttl         time.Duration
	maxAttempts int
	bcryptCost  int

	now      func() time.Time
	generate func() string
	bg       sync.WaitGroup
}

func NewCheckoutService(
	sessions repositories.OtpSessionRepository,
	builder *OrderBuilder,
	commerce CommerceClient,
	notifier Notifier,
	alerts *TelegramAlerts,
	m *metrics.Metrics,
	opts CheckoutOptions,
) *CheckoutService {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = defaultOTPTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &CheckoutService{
		sessions:    sessions,
		builder:     builder,
		commerce:    commerce,
		notifier:    notifier,
		alerts:      alerts,
		metrics:     m,
		ttl:         opts.OTPTTL,
		maxAttempts: opts.MaxAttempts,
		bcryptCost:  opts.BcryptCost,
		now:         time.Now,
		generate:    GenerateOTP,
	}
}

// ValidateDraft checks the fields a session cannot exist without.
func ValidateDraft(d *models.CheckoutDraft) error {
	if utils.CleanPhone(d.Phone) == "" || d.VariantID.Empty() || d.Quantity.Empty() {
		return ErrValidation
	}
	if _, err := parseVariantID(d.VariantID); err != nil {
		return err
	}
	return nil
}

// Start stores a fresh session for the draft's phone (overwriting any previous one)
// and sends the OTP. A gateway failure comes back as *NotificationError.
func (s *CheckoutService) Start(ctx context.Context, draft models.CheckoutDraft) error {
	if err := ValidateDraft(&draft); err != nil {
		return err
	}
	phone := utils.CleanPhone(draft.Phone)

	otp := s.generate()
	hash, err := bcrypt.GenerateFromPassword([]byte(otp), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("bcrypt generate: %w", err)
	}

	now := s.now()
	sess := &models.OtpSession{
		Phone:          phone,
		OTPHash:        string(hash),
		Draft:          draft,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
		IdempotencyKey: uuid.NewString(),
	}
	if err := s.putSession(ctx, sess); err != nil {
		return err
	}
	s.metrics.IncOTPIssued()

	if err := s.notifier.Notify(ctx, draft.Phone, OTPMessage(draft.Name, otp, draft.Total)); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}

	slog.Info("[cod][start] otp sent", "phone", phone, "expires_at", sess.ExpiresAt)
	return nil
}

// Verify checks the OTP and, on match, creates the order. The session is removed
// only after the commerce API confirms the order, so a failed call can be retried
// with the same code.
func (s *CheckoutService) Verify(ctx context.Context, phone, otp string) (*CreatedOrder, error) {
	key := utils.CleanPhone(phone)
	if key == "" {
		s.metrics.IncVerification("expired")
		return nil, ErrSessionExpired
	}

	unlock, err := s.sessions.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lock otp session: %w", err)
	}
	defer unlock()

	// once the lock is held, session writes and the order call must finish
	// even if the caller goes away
	detached := context.WithoutCancel(ctx)

	sess, err := s.sessions.Get(ctx, key)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		s.metrics.IncVerification("expired")
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load otp session: %w", err)
	}
	if sess.Expired(s.now()) {
		_ = s.sessions.Remove(detached, key)
		s.metrics.IncVerification("expired")
		return nil, ErrSessionExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(sess.OTPHash), []byte(strings.TrimSpace(otp))); err != nil {
		return nil, s.rejectAttempt(detached, sess)
	}

	req, err := s.builder.Build(sess)
	if err != nil {
		return nil, err
	}

	created, err := s.commerce.CreateOrder(detached, req, sess.IdempotencyKey)
	if err != nil {
		s.metrics.IncCommerceCall("error")
		s.metrics.IncVerification("commerce_error")
		slog.Error("[cod][verify] order create failed", "phone", key, "error", err)
		s.background(func() { s.alerts.OrderFailed(key, err) })
		return nil, fmt.Errorf("%w: %w", ErrOrderCreationFailed, err)
	}
	s.metrics.IncCommerceCall("ok")
	s.metrics.IncVerification("verified")

	if err := s.sessions.Remove(detached, key); err != nil {
		slog.Error("[cod][verify] remove session failed", "phone", key, "error", err)
	}

	s.notifier.Dispatch(sess.Draft.Phone, CODPlacedMessage(&created.Order))
	s.background(func() { s.alerts.OrderPlaced(key, &created.Order) })

	slog.Info("[cod][verify] order created", "phone", key, "order", created.Order.Name)
	return created, nil
}

// putSession holds the phone's lock only for the write, so a slow OTP send
// never blocks a verify for the same phone.
func (s *CheckoutService) putSession(ctx context.Context, sess *models.OtpSession) error {
	unlock, err := s.sessions.Lock(ctx, sess.Phone)
	if err != nil {
		return fmt.Errorf("lock otp session: %w", err)
	}
	defer unlock()
	if err := s.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("store otp session: %w", err)
	}
	return nil
}

func (s *CheckoutService) rejectAttempt(ctx context.Context, sess *models.OtpSession) error {
	sess.Attempts++
	if sess.Attempts >= s.maxAttempts {
		if err := s.sessions.Remove(ctx, sess.Phone); err != nil {
			return fmt.Errorf("remove otp session: %w", err)
		}
		s.metrics.IncVerification("too_many_attempts")
		slog.Warn("[cod][verify] too many attempts", "phone", sess.Phone)
		return ErrTooManyAttempts
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("store otp session: %w", err)
	}
	s.metrics.IncVerification("invalid")
	return ErrInvalidOTP
}

func (s *CheckoutService) background(fn func()) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn()
	}()
}

// Wait blocks until background alerts have finished.
func (s *CheckoutService) Wait() {
	s.bg.Wait()
}
