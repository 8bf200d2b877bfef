package mailer

import (
	"fmt"

	"tour-booking-service/config"
	"tour-booking-service/internal/util"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer sends templated notification emails over SMTP. Every send is
// best effort: callers log failures but never fail their own work
// because an email did not go out.
type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	adminEmail string
	logger     *zap.Logger
}

// NewMailer creates a new SMTP mailer
func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		adminEmail: cfg.AdminEmail,
		logger:     util.GetLogger(),
	}
}

// SendConfirmation emails a booking confirmation to the customer
func (m *Mailer) SendConfirmation(email, name, tourName string, numParticipants int, bookingID int64) error {
	if m.from == "" {
		m.logger.Warn("Mail configuration incomplete, confirmation email not sent",
			zap.Int64("booking_id", bookingID))
		return fmt.Errorf("mailer not configured")
	}

	body := fmt.Sprintf(`<p>Hello %s,</p>
<p>Your booking for the <strong>%s</strong> tour has been confirmed!</p>
<p><strong>Booking ID:</strong> %d</p>
<p><strong>Number of Participants:</strong> %d</p>
<p>Thank you for choosing our tour booking system.</p>
<p>Best regards,<br>The Tour Booking Team</p>`, name, tourName, bookingID, numParticipants)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", fmt.Sprintf("Tour Booking Confirmation: %s", tourName))
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		util.EmailsFailedTotal.Inc()
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	util.EmailsSentTotal.Inc()
	m.logger.Info("Confirmation email sent",
		zap.String("to", email),
		zap.Int64("booking_id", bookingID))
	return nil
}

// SendContact forwards a contact-form message to the admin inbox
func (m *Mailer) SendContact(name, email, subject, message string) error {
	if m.from == "" || m.adminEmail == "" {
		m.logger.Warn("Mail configuration incomplete, contact email not sent")
		return fmt.Errorf("mailer not configured")
	}

	body := fmt.Sprintf(`<p>New message from the website contact form:</p>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Subject:</strong> %s</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap;">%s</p>`, name, email, subject, message)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.adminEmail)
	msg.SetHeader("Reply-To", email)
	msg.SetHeader("Subject", fmt.Sprintf("New Contact Form: %s (from %s)", subject, name))
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		util.EmailsFailedTotal.Inc()
		return fmt.Errorf("failed to send contact email: %w", err)
	}

	util.EmailsSentTotal.Inc()
	return nil
}
