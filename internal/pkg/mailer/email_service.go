package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendSubscriptionReceipt(toEmail, fullName, planName string, amount float64, currency string, periodEnd time.Time) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
}

func NewEmailService(host string, port int, username, password, senderEmail string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
	}
}

func (s *emailService) SendSubscriptionReceipt(toEmail, fullName, planName string, amount float64, currency string, periodEnd time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "Your HeartLink subscription is active")

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Thanks, %s!</h2>
			<p>Your <b>%s</b> subscription is now active.</p>
			<p>Amount paid: %.2f %s</p>
			<p>Valid until: %s</p>
			<p>If you didn't make this purchase, contact support immediately.</p>
		</div>
	`, fullName, planName, amount, currency, periodEnd.Format("January 2, 2006"))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending receipt to %s: %w", toEmail, err)
	}
	return nil
}
