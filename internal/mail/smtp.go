package mail

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
)

// Config for the SMTP calendar sender.
type Config struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
	UseTLS   bool // STARTTLS before authenticating
}

// Sender delivers the serialized calendar as a text/calendar attachment.
type Sender struct {
	cfg    Config
	logger *slog.Logger
}

func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.From == "" {
		cfg.From = "no-reply@example.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{cfg: cfg, logger: logger}
}

const (
	calendarSubject = "BRM Contract Renewals Calendar"
	calendarBody    = "Attached is the calendar of contract renewals and notice deadlines."
)

// SendCalendar emails the ICS payload to the recipients with the fixed
// subject and body.
func (s *Sender) SendCalendar(to []string, ics string, filename string) error {
	msg, err := buildMessage(s.cfg.From, to, calendarSubject, calendarBody, ics, filename)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.logger.Debug("mail.close", "error", err)
		}
	}()

	if s.cfg.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish: %w", err)
	}

	s.logger.Info("mail.calendar.sent", "recipients", len(to), "bytes", len(msg))
	return client.Quit()
}

// buildMessage assembles a multipart MIME message with a plain-text body and
// a single text/calendar attachment.
func buildMessage(from string, to []string, subject, body, ics, filename string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="` + mw.Boundary() + `"`,
		"",
		"",
	}

	textPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type": {`text/plain; charset="utf-8"`},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	attachPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {`text/calendar; charset="utf-8"; name="` + filename + `"`},
		"Content-Disposition":       {`attachment; filename="` + filename + `"`},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(ics))
	for len(encoded) > 0 {
		n := min(76, len(encoded))
		if _, err := attachPart.Write([]byte(encoded[:n] + "\r\n")); err != nil {
			return nil, err
		}
		encoded = encoded[n:]
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append([]byte(strings.Join(headers, "\r\n")), buf.Bytes()...), nil
}
