package services

import (
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"github.com/zapikart/shopify-mpwa/internal/models"
)

type EmailService interface {
	SendOrderReceipt(email string, o *models.Order) error
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer mailDialer
	from   string
}

// NewEmailService returns nil when SMTP is not configured.
func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	if smtpHost == "" {
		return nil
	}
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendOrderReceipt(email string, o *models.Order) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Order %s confirmed", firstNonEmpty(o.Name, "")))

	summary := html.EscapeString(BuildOrderSummary(o))
	body := fmt.Sprintf(`
		<h2>Thank you for your order!</h2>
		<p>Here are your order details:</p>
		<pre style="font-family:inherit">%s</pre>
		<p>We will let you know when it ships.</p>
	`, summary)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send order receipt: %w", err)
	}
	return nil
}
