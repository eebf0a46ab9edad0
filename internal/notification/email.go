package notification

import (
	"fmt"
	"net/smtp"
)

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService delivers account mail over SMTP. Delivery is fire-and-forget
// from the credential flow's point of view: a failure is reported to the
// caller but never rolls back state already written.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// SendPasswordResetEmail delivers a reset token to the account's registered
// address.
func (s *EmailService) SendPasswordResetEmail(to, token string) error {
	subject := "Password Reset Request"
	body := fmt.Sprintf(
		"A password reset has been requested for your account.\r\n\r\n"+
			"Fill in this token in the Email Token field:\r\n\r\n%s\r\n\r\n"+
			"This token will expire in 1 hour. If you did not request this reset, ignore this email.",
		token)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
