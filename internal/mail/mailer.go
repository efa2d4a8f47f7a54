// ABOUTME: SMTP mail delivery for login links and member notifications
// ABOUTME: Globally rate limited; a blank host disables sending entirely

package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"github.com/kredsnet/medlemsportal/internal/ratelimit"
)

// ErrRateLimited is returned when the global outbound email budget is spent.
var ErrRateLimited = errors.New("email rate limit exceeded")

// maxPerMinute caps outbound mail across all recipients.
const maxPerMinute = 30

// Mailer delivers portal email. Close releases the rate limiter's sweep
// goroutine; the mailer must not be used afterwards.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
	SendLoginLink(ctx context.Context, to, name, url string) error
	Close()
}

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	host    string
	port    int
	user    string
	pass    string
	from    string
	appName string
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// NewSMTPMailer creates a mailer for the given relay. An empty host returns
// a disabled mailer that logs instead of sending, for local development.
func NewSMTPMailer(host string, port int, user, pass, from, appName string) Mailer {
	logger := slog.Default().With("component", "mail")
	if host == "" {
		logger.Warn("smtp host not configured, email delivery disabled")
		return &nopMailer{logger: logger}
	}
	return &SMTPMailer{
		host:    host,
		port:    port,
		user:    user,
		pass:    pass,
		from:    from,
		appName: appName,
		limiter: ratelimit.New(maxPerMinute, time.Minute),
		logger:  logger,
	}
}

// Send delivers a single HTML email. All sends draw from one global budget
// so a burst of notifications cannot get the relay blacklisted.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.limiter.Allow("outbound") {
		m.logger.Warn("dropping email, rate limit exceeded", "to", to)
		return ErrRateLimited
	}

	msg := buildMessage(m.from, to, subject, htmlBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	m.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}

// SendLoginLink delivers a passwordless login email.
func (m *SMTPMailer) SendLoginLink(ctx context.Context, to, name, url string) error {
	subject := fmt.Sprintf("Log in to %s", m.appName)
	body := loginLinkBody(name, url, m.appName)
	return m.Send(ctx, to, subject, body)
}

// Close stops the outbound rate limiter.
func (m *SMTPMailer) Close() {
	m.limiter.Close()
}

// buildMessage assembles a minimal MIME message with an HTML body.
func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// loginLinkBody renders the magic link email. The link is valid for a short
// window and single use, the copy says so.
func loginLinkBody(name, url, appName string) string {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	return fmt.Sprintf(`<p>%s,</p>
<p>Click the link below to log in to %s. The link works once and expires in 15 minutes.</p>
<p><a href="%s">Log in</a></p>
<p>If you did not request this email you can ignore it.</p>`, greeting, appName, url)
}

// nopMailer logs instead of sending when SMTP is not configured.
type nopMailer struct {
	logger *slog.Logger
}

func (m *nopMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.Info("email delivery disabled", "to", to, "subject", subject)
	return nil
}

func (m *nopMailer) SendLoginLink(ctx context.Context, to, name, url string) error {
	m.logger.Info("email delivery disabled, login link not sent", "to", to, "url", url)
	return nil
}

func (m *nopMailer) Close() {}
