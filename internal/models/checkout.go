package models

import "time"

// CheckoutDraft: данные формы COD до подтверждения телефона.
type CheckoutDraft struct {
	Name      string     `json:"name"`
	Phone     string     `json:"phone"`
	House     string     `json:"house"`
	Street    string     `json:"street"`
	Landmark  string     `json:"landmark"`
	City      string     `json:"city"`
	State     string     `json:"state"`
	Pincode   FlexString `json:"pincode"`
	VariantID FlexString `json:"variant_id"`
	Quantity  FlexString `json:"quantity"`
	Total     FlexString `json:"total"`
}

// OtpSession is one pending verification, keyed by phone.
// Only the bcrypt hash of the code is kept.
type OtpSession struct {
	Phone          string        `json:"phone"`
	OTPHash        string        `json:"otp_hash"`
	Draft          CheckoutDraft `json:"draft"`
	CreatedAt      time.Time     `json:"created_at"`
	ExpiresAt      time.Time     `json:"expires_at"`
	Attempts       int           `json:"attempts"`
	IdempotencyKey string        `json:"idempotency_key"`
}

func (s *OtpSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TTL is the remaining lifetime; zero when there is no expiry.
func (s *OtpSession) TTL(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
