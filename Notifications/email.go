package Notifications

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"

	"Aerofield/Config"
)

// Email mails billing notices to the office recipients.
type Email struct {
	cfg  Config.SMTPConfig
	send func(ctx context.Context, recipients []string, msg []byte) error
}

func NewEmail(cfg Config.SMTPConfig) *Email {
	e := &Email{cfg: cfg}
	e.send = e.deliver
	return e
}

func (e *Email) Send(ctx context.Context, n Notice) error {
	switch n.Kind {
	case DebtCreated, PaymentApplied:
	default:
		return nil
	}
	return e.send(ctx, e.cfg.To, e.message(n))
}

// message renders n as a plain text mail with deterministic headers.
func (e *Email) message(n Notice) []byte {
	headers := map[string]string{
		"From":         fmt.Sprintf("%s <%s>", e.cfg.FromName, e.cfg.From),
		"To":           strings.Join(e.cfg.To, ", "),
		"Subject":      n.Title,
		"MIME-Version": "1.0",
		"Content-Type": "text/plain; charset=UTF-8",
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(n.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (e *Email) deliver(ctx context.Context, recipients []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", e.cfg.Host, e.cfg.Port)
	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	if !e.cfg.TLS {
		return smtp.SendMail(addr, auth, e.cfg.From, recipients, msg)
	}

	dialer := &tls.Dialer{Config: &tls.Config{ServerName: e.cfg.Host}}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.cfg.Host)
	if err != nil {
		return fmt.Errorf("create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication: %w", err)
		}
	}
	if err := client.Mail(e.cfg.From); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	for _, r := range recipients {
		if err := client.Rcpt(r); err != nil {
			return fmt.Errorf("add recipient %s: %w", r, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("open data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return client.Quit()
}
