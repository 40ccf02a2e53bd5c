// Package notify sends e-mail to visitors about their inquiries and bookings.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alextreichler/estatehub/internal/models"
	"github.com/sony/gobreaker"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	InquiryReplied(ctx context.Context, in *models.Inquiry) error
	BookingStatusChanged(ctx context.Context, b *models.Booking) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer delivers mail through an SMTP relay behind a circuit breaker.
type SMTPMailer struct {
	from string
	send func(m *gomail.Message) error
	cb   *gobreaker.CircuitBreaker
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		from: cfg.From,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
		cb:   CircuitBreaker("smtp"),
	}
}

func (s *SMTPMailer) InquiryReplied(ctx context.Context, in *models.Inquiry) error {
	subject, body := inquiryReplyMessage(in)
	return s.deliver(ctx, in.Email, subject, body)
}

func (s *SMTPMailer) BookingStatusChanged(ctx context.Context, b *models.Booking) error {
	if b.UserEmail == "" {
		return errors.New("booking has no contact e-mail")
	}
	subject, body := bookingStatusMessage(b)
	return s.deliver(ctx, b.UserEmail, subject, body)
}

func (s *SMTPMailer) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("empty email address")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.send(m)
	})
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	slog.Info("Mail sent", "to", to, "subject", subject)
	return nil
}

func CircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     10 * time.Second,
			Interval:    0,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 2
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				slog.Warn("Circuit breaker changed state", "name", name, "from", from.String(), "to", to.String())
			},
		},
	)
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogMailer struct{}

func (LogMailer) InquiryReplied(ctx context.Context, in *models.Inquiry) error {
	subject, body := inquiryReplyMessage(in)
	slog.Info("Mail (not sent, SMTP disabled)", "to", in.Email, "subject", subject, "body", body)
	return nil
}

func (LogMailer) BookingStatusChanged(ctx context.Context, b *models.Booking) error {
	subject, body := bookingStatusMessage(b)
	slog.Info("Mail (not sent, SMTP disabled)", "to", b.UserEmail, "subject", subject, "body", body)
	return nil
}

func inquiryReplyMessage(in *models.Inquiry) (string, string) {
	subject := "Reply to your inquiry"
	if in.PropertyTitle != "" {
		subject += ": " + in.PropertyTitle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", in.Name)
	fmt.Fprintf(&b, "You wrote:\n%s\n\n", in.Message)
	fmt.Fprintf(&b, "Our reply:\n%s\n", in.AdminReply)
	return subject, b.String()
}

func bookingStatusMessage(bk *models.Booking) (string, string) {
	subject := fmt.Sprintf("Your viewing request is %s", strings.ToLower(string(bk.Status)))
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", bk.UserName)
	fmt.Fprintf(&b, "Your viewing of %q on %s (%s) is now %s.\n", bk.PropertyTitle, bk.BookingDate.Format("2 Jan 2006"), bk.BookingTime, bk.Status)
	if bk.AdminNotes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", bk.AdminNotes)
	}
	return subject, b.String()
}
