package mailer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sudhan/stockpicks/pkg/config"
	"github.com/sudhan/stockpicks/pkg/logger"
)

const attachmentName = "top_25_stocks.csv"

// sendFunc matches smtp.SendMail; swapped out in tests
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer delivers the final report over SMTP with the ranking attached
// as a CSV file
// ⭐ SSOT: 이메일 발송은 여기서만
type Mailer struct {
	cfg    config.EmailConfig
	logger *logger.Logger
	send   sendFunc
}

// New creates a mailer. The recipient must be configured: a run whose
// output cannot be delivered should fail before doing any work.
func New(cfg config.EmailConfig, log *logger.Logger) (*Mailer, error) {
	if cfg.Recipient == "" {
		return nil, fmt.Errorf("email recipient not configured")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host not configured")
	}
	return &Mailer{
		cfg:    cfg,
		logger: log.WithField("module", "mailer"),
		send:   smtp.SendMail,
	}, nil
}

// SendReport sends the report with the CSV attached
func (m *Mailer) SendReport(ctx context.Context, subject, body string, attachment []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(m.cfg.From, m.cfg.Recipient, subject, body, attachment)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.Recipient}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.WithFields(map[string]interface{}{
		"recipient": m.cfg.Recipient,
		"subject":   subject,
		"csv_bytes": len(attachment),
	}).Info("Report email sent")

	return nil
}

// buildMessage assembles a multipart/mixed MIME message with a plain
// text body and one base64-encoded CSV attachment
func buildMessage(from, to, subject, body string, attachment []byte) ([]byte, error) {
	boundary, err := randomBoundary()
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/csv; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n", attachmentName)
	b.WriteString("\r\n")
	b.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(attachment)))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String()), nil
}

func randomBoundary() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate boundary: %w", err)
	}
	return fmt.Sprintf("=_%x", buf), nil
}

// wrapBase64 folds encoded content at 76 columns per RFC 2045
func wrapBase64(s string) string {
	const width = 76
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteString("\r\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
