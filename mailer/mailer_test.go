package mailer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "soporte@example.com",
		Password: "secret",
		From:     "soporte@example.com",
		FromName: "Soporte TI",
		AdminTo:  "admins@example.com",
	}
}

type capturedSend struct {
	from       string
	recipients []string
	raw        string
}

func capturingMailer(cfg Config, captured *capturedSend) *Mailer {
	m := New(cfg)
	m.transport = func(_ Config, from string, recipients []string, raw []byte) error {
		captured.from = from
		captured.recipients = recipients
		captured.raw = string(raw)
		return nil
	}

	return m
}

func Test_Send_builds_headers_and_envelope(t *testing.T) {
	var captured capturedSend
	m := capturingMailer(testConfig(), &captured)

	ok := m.Send(Message{
		Subject:      "[INCIDENCIA #7] Pantalla dañada",
		Body:         "Descripción del problema",
		To:           []string{"admin1@example.com", "admin2@example.com"},
		Bcc:          []string{"auditoria@example.com"},
		ReplyTo:      "jperez@example.com",
		SubjectActor: "jperez",
		ExtraHeaders: map[string]string{
			"X-System": "Incidents",
			"X-Inc-ID": "7",
			"X-Event":  "NEW_INC",
		},
	})

	require.True(t, ok)
	assert.Equal(t, "soporte@example.com", captured.from)
	assert.Equal(t, []string{"admin1@example.com", "admin2@example.com", "auditoria@example.com"}, captured.recipients)

	assert.Contains(t, captured.raw, "To: admin1@example.com, admin2@example.com\r\n")
	assert.Contains(t, captured.raw, "Reply-To: jperez@example.com\r\n")
	assert.Contains(t, captured.raw, "X-System: Incidents\r\n")
	assert.Contains(t, captured.raw, "X-Inc-ID: 7\r\n")
	assert.Contains(t, captured.raw, "Message-ID: <")
	assert.Contains(t, captured.raw, "@smtp.example.com>\r\n")
	assert.NotContains(t, captured.raw, "auditoria@example.com", "bcc must stay off the headers")

	headerEnd := strings.Index(captured.raw, "\r\n\r\n")
	require.Positive(t, headerEnd)
	assert.Equal(t, "Descripción del problema", captured.raw[headerEnd+4:])
}

func Test_Send_enriches_subject_and_sender_with_actor(t *testing.T) {
	var captured capturedSend
	m := capturingMailer(testConfig(), &captured)

	require.True(t, m.Send(Message{Subject: "Asignada", To: []string{"x@example.com"}, SubjectActor: "mruiz"}))

	assert.Contains(t, captured.raw, "por mruiz")
	assert.Contains(t, captured.raw, "(mruiz)")
}

func Test_Send_falls_back_to_admin_recipient(t *testing.T) {
	var captured capturedSend
	m := capturingMailer(testConfig(), &captured)

	require.True(t, m.Send(Message{Subject: "Aviso", Body: "sin destinatarios"}))

	assert.Equal(t, []string{"admins@example.com"}, captured.recipients)
}

func Test_Send_reports_false_on_incomplete_config(t *testing.T) {
	cfg := testConfig()
	cfg.Password = ""

	var captured capturedSend
	m := capturingMailer(cfg, &captured)

	assert.False(t, m.Send(Message{Subject: "Aviso", To: []string{"x@example.com"}}))
	assert.Empty(t, captured.recipients)
}

func Test_Send_reports_false_without_any_recipient(t *testing.T) {
	cfg := testConfig()
	cfg.AdminTo = ""

	var captured capturedSend
	m := capturingMailer(cfg, &captured)

	assert.False(t, m.Send(Message{Subject: "Aviso"}))
}

func Test_Send_swallows_transport_failures(t *testing.T) {
	m := New(testConfig())
	m.transport = func(_ Config, _ string, _ []string, _ []byte) error {
		return errors.New("550 relay denied")
	}

	assert.False(t, m.Send(Message{Subject: "Aviso", To: []string{"x@example.com"}}))
}

func Test_Send_skips_malformed_reply_to(t *testing.T) {
	var captured capturedSend
	m := capturingMailer(testConfig(), &captured)

	require.True(t, m.Send(Message{Subject: "Aviso", To: []string{"x@example.com"}, ReplyTo: "not an address"}))

	assert.NotContains(t, captured.raw, "Reply-To:")
}
