// Package email sends account and login notifications to voters
package email

import (
	"fmt"
	"log"
	"strings"

	"ballotbox/internal/config"

	"gopkg.in/gomail.v2"
)

// Sender delivers account notifications to voters
type Sender interface {
	// SendCredentials mails a newly registered voter their voter ID and
	// temporary password
	SendCredentials(to, name, voterID, tempPassword string) error
	// SendOTP mails a one-time login code
	SendOTP(to, name, code string) error
}

// SMTPSender sends mail through a configured SMTP relay
type SMTPSender struct {
	config *config.EmailConfig
}

// NewSMTPSender creates a new SMTP-backed sender
func NewSMTPSender(config *config.EmailConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

func (s *SMTPSender) configured() bool {
	return s.config.SMTPHost != "" && s.config.FromAddress != ""
}

// SendCredentials mails a newly registered voter their login credentials
func (s *SMTPSender) SendCredentials(to, name, voterID, tempPassword string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Voter Registration Confirmed</h2>
    <p>Hello %s,</p>
    <p>Your voter account has been created. Use the credentials below to log in:</p>
    <p>Voter ID: <strong>%s</strong></p>
    <p>Temporary password: <strong>%s</strong></p>
    <p>You will be asked to choose a new password on first login.</p>
  </div>
</body>
</html>`, name, voterID, tempPassword)

	return s.send(to, "Your voter account", body)
}

// SendOTP mails a one-time login code
func (s *SMTPSender) SendOTP(to, name, code string) error {
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>Login Verification Code</h2>
    <p>Hello %s,</p>
    <p>Your one-time login code is:</p>
    <div style="font-size: 28px; font-weight: bold; letter-spacing: 3px;">%s</div>
    <p>The code expires in 10 minutes.</p>
  </div>
</body>
</html>`, name, code)

	return s.send(to, "Your login code", body)
}

func (s *SMTPSender) send(to, subject, htmlBody string) error {
	if !s.configured() {
		log.Printf("Email config missing, skipping mail to %s", to)
		return nil
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.FromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.config.SMTPHost, s.config.SMTPPort, s.config.SMTPUsername, s.config.SMTPPassword)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
