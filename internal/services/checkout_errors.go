package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation          = errors.New("missing phone / variant / quantity")
	ErrSessionExpired      = errors.New("session expired")
	ErrInvalidOTP          = errors.New("invalid otp")
	ErrTooManyAttempts     = errors.New("too many attempts")
	ErrOrderCreationFailed = errors.New("order creation failed")
)

// CommerceAPIError: ошибка коммерческого API. StatusCode == 0 означает
// транспортную ошибку (таймаут, соединение, невалидный JSON в ответе).
type CommerceAPIError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *CommerceAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("commerce api: %v", e.Err)
	}
	return fmt.Sprintf("commerce api: http %d: %s", e.StatusCode, e.Body)
}

func (e *CommerceAPIError) Unwrap() error { return e.Err }

// NotificationError is a failed outbound customer message.
type NotificationError struct {
	Phone string
	Err   error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Phone, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
