// Package mailer sends best-effort notification mails over SMTP.
//
// Sending never fails the calling operation: Send returns a plain bool and
// swallows every error after logging it. A mailer with incomplete
// configuration is a silent no-op that always reports false.
package mailer

import (
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invtrail/inventory-trail-go/audittrail"
)

const (
	logMsgIncompleteConfig = "smtp configuration incomplete, message not sent"
	logMsgSendFailed       = "failed to send mail"
	logMsgNoRecipients     = "no recipients resolved, message not sent"

	crlf = "\r\n"
)

// Message is one outgoing notification. To falls back to the configured admin
// address when empty. SubjectActor, when set, is appended to the subject and
// to the sender display name.
type Message struct {
	Subject      string
	Body         string
	To           []string
	Cc           []string
	Bcc          []string
	ReplyTo      string
	SubjectActor string
	ExtraHeaders map[string]string
}

// Mailer sends Messages through one SMTP account.
type Mailer struct {
	cfg       Config
	logger    audittrail.Logger
	transport func(cfg Config, from string, recipients []string, raw []byte) error
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the logger used for swallowed send failures.
func WithLogger(logger audittrail.Logger) Option {
	return func(m *Mailer) {
		m.logger = logger
	}
}

// New creates a Mailer for the given SMTP configuration.
func New(cfg Config, options ...Option) *Mailer {
	m := &Mailer{
		cfg:       cfg,
		transport: smtpTransport,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Send delivers the message and reports whether it went out. It never returns
// an error: missing configuration, empty recipient lists and SMTP failures all
// log and report false.
func (m *Mailer) Send(msg Message) bool {
	recipients := nonEmpty(msg.To)
	if len(recipients) == 0 && m.cfg.AdminTo != "" {
		recipients = []string{m.cfg.AdminTo}
	}

	if !m.cfg.complete() {
		m.logWarn(logMsgIncompleteConfig)
		return false
	}

	if len(recipients) == 0 {
		m.logWarn(logMsgNoRecipients)
		return false
	}

	raw := m.buildMessage(msg, recipients)

	allRecipients := append(append(append([]string{}, recipients...), nonEmpty(msg.Cc)...), nonEmpty(msg.Bcc)...)

	if sendErr := m.transport(m.cfg, m.cfg.From, allRecipients, raw); sendErr != nil {
		m.logWarn(logMsgSendFailed, "error", sendErr.Error())
		return false
	}

	return true
}

// buildMessage renders the RFC 822 wire form: headers, blank line, body.
// Bcc recipients are on the envelope only, never in a header.
func (m *Mailer) buildMessage(msg Message, recipients []string) []byte {
	subject := msg.Subject
	fromDisplay := m.cfg.FromName

	if msg.SubjectActor != "" {
		subject = fmt.Sprintf("%s · por %s", subject, msg.SubjectActor)
		fromDisplay = fmt.Sprintf("%s (%s)", m.cfg.FromName, msg.SubjectActor)
	}

	var b strings.Builder

	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString(crlf)
	}

	writeHeader("From", fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromDisplay), m.cfg.From))
	writeHeader("To", strings.Join(recipients, ", "))

	if cc := nonEmpty(msg.Cc); len(cc) > 0 {
		writeHeader("Cc", strings.Join(cc, ", "))
	}

	if isValidAddress(msg.ReplyTo) {
		writeHeader("Reply-To", msg.ReplyTo)
	}

	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.cfg.Host))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/plain; charset="utf-8"`)

	for _, key := range sortedKeys(msg.ExtraHeaders) {
		writeHeader(key, msg.ExtraHeaders[key])
	}

	b.WriteString(crlf)
	b.WriteString(msg.Body)

	return []byte(b.String())
}

func (m *Mailer) logWarn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}

// smtpTransport performs the actual SMTP delivery, either over implicit TLS or
// STARTTLS. TLS 1.2 is the floor in both modes.
func smtpTransport(cfg Config, from string, recipients []string, raw []byte) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	tlsConfig := &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	var (
		client *smtp.Client
		err    error
	)

	if cfg.UseSSL {
		conn, dialErr := tls.DialWithDialer(&net.Dialer{Timeout: 25 * time.Second}, "tcp", addr, tlsConfig)
		if dialErr != nil {
			return dialErr
		}

		client, err = smtp.NewClient(conn, cfg.Host)
		if err != nil {
			_ = conn.Close()
			return err
		}
	} else {
		client, err = smtp.Dial(addr)
		if err != nil {
			return err
		}

		if startErr := client.StartTLS(tlsConfig); startErr != nil {
			_ = client.Close()
			return startErr
		}
	}

	defer func() { _ = client.Close() }()

	auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	if authErr := client.Auth(auth); authErr != nil {
		return authErr
	}

	if mailErr := client.Mail(from); mailErr != nil {
		return mailErr
	}

	for _, recipient := range recipients {
		if rcptErr := client.Rcpt(recipient); rcptErr != nil {
			return rcptErr
		}
	}

	writer, dataErr := client.Data()
	if dataErr != nil {
		return dataErr
	}

	if _, writeErr := writer.Write(raw); writeErr != nil {
		_ = writer.Close()
		return writeErr
	}

	if closeErr := writer.Close(); closeErr != nil {
		return closeErr
	}

	return client.Quit()
}

func isValidAddress(s string) bool {
	return s != "" &&
		strings.Contains(s, "@") &&
		strings.Contains(s, ".") &&
		!strings.ContainsAny(s, " <>")
}

func nonEmpty(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}

	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
