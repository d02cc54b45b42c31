// Package mailer sends order invoices.
package mailer

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// dialer is the part of gomail.Dialer the sender uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPSender struct {
	d    dialer
	from string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &SMTPSender{
		d:    gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from: cfg.From,
	}
}

func (s *SMTPSender) SendInvoice(ctx context.Context, recipient string, o *order.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m, err := buildMessage(s.from, recipient, o)
	if err != nil {
		return err
	}
	if err := s.d.DialAndSend(m); err != nil {
		return fmt.Errorf("mailer: send invoice %s: %w", o.ID, err)
	}
	return nil
}

func buildMessage(from, recipient string, o *order.Order) (*gomail.Message, error) {
	body, err := RenderInvoice(o)
	if err != nil {
		return nil, fmt.Errorf("mailer: render invoice: %w", err)
	}
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Your invoice for order "+o.ID)
	m.SetBody("text/html", body)
	return m, nil
}

// LogSender records invoices in the log instead of mailing them; used when SMTP is not configured.
type LogSender struct {
	log observability.Logger
}

func NewLogSender(logger observability.Logger) *LogSender {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogSender{log: logger.With(observability.F("component", "mailer"))}
}

func (s *LogSender) SendInvoice(ctx context.Context, recipient string, o *order.Order) error {
	if _, err := RenderInvoice(o); err != nil {
		return fmt.Errorf("mailer: render invoice: %w", err)
	}
	logctx.FromOr(ctx, s.log).Info("invoice_logged",
		observability.F("order_id", o.ID),
		observability.F("recipient", recipient),
		observability.F("total", o.Total.StringFixed(2)),
	)
	return nil
}
