// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/danielhkuo/hoa-assembly/cliparse"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender picks SMTP when enabled, Resend when an API key is configured,
// and otherwise a sender that only logs.
func NewSender(cfg cliparse.EmailConfig) Sender {
	switch {
	case cfg.SMTPEnabled:
		return &SMTPSender{cfg: cfg}
	case cfg.ResendAPIKey != "":
		return &ResendSender{
			cfg:      cfg,
			client:   &http.Client{Timeout: 15 * time.Second},
			endpoint: "https://api.resend.com/emails",
		}
	default:
		return LogSender{}
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	cfg      cliparse.EmailConfig
	client   *http.Client
	endpoint string
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    s.cfg.FromEmail,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}
	return nil
}

// SMTPSender relays messages through an SMTP server.
type SMTPSender struct {
	cfg cliparse.EmailConfig
}

func (s *SMTPSender) Send(_ context.Context, msg Message) error {
	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort

	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
	}

	to := headerValue(msg.To)
	if err := smtp.SendMail(addr, auth, s.cfg.SMTPUser, []string{to}, smtpMessage(s.cfg.FromEmail, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// smtpMessage builds the raw message. Header values are folded onto one line
// and the subject is encoded as an RFC 2047 word when it is not plain ASCII.
func smtpMessage(from string, msg Message) []byte {
	raw := "From: " + headerValue(from) + "\r\n" +
		"To: " + headerValue(msg.To) + "\r\n" +
		"Subject: " + mime.QEncoding.Encode("UTF-8", headerValue(msg.Subject)) + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"\r\n" +
		msg.HTML
	return []byte(raw)
}

// headerValue replaces line breaks so a value cannot start a new header.
func headerValue(v string) string {
	return strings.Join(strings.Fields(v), " ")
}

// LogSender logs messages instead of sending them. Used when no email
// provider is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("email not sent (no provider configured)", "to", msg.To, "subject", msg.Subject)
	return nil
}
