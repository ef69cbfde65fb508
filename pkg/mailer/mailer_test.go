package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-panel/pkg/config"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
)

type failingTransport struct{ calls int }

func (f *failingTransport) Name() string { return "failing" }

func (f *failingTransport) Send(context.Context, Message) error {
	f.calls++
	return errors.New("relay refused")
}

func sampleMessage() Message {
	return Message{
		To:      []Address{{Name: "Ana Pérez", Email: "ana@example.com"}},
		Subject: "Matrícula confirmada",
		HTML:    "<p>Bienvenida</p>",
	}
}

func TestValidAddress(t *testing.T) {
	assert.True(t, ValidAddress("ana@example.com"))
	assert.False(t, ValidAddress("Ana <ana@example.com>"))
	assert.False(t, ValidAddress("not-an-email"))
	assert.False(t, ValidAddress("luis@example"))
	assert.False(t, ValidAddress("  "))
	assert.Equal(t, "ana@example.com", NormalizeAddress("  Ana@Example.COM "))
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, sampleMessage().Validate())

	msg := sampleMessage()
	msg.To = nil
	assert.Error(t, msg.Validate())

	msg = sampleMessage()
	msg.Subject = " "
	assert.Error(t, msg.Validate())

	msg = sampleMessage()
	msg.HTML = ""
	assert.Error(t, msg.Validate())
}

func TestNewSelectsTransport(t *testing.T) {
	transport, err := New(config.MailConfig{Transport: config.MailTransportConsole}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleTransport{}, transport)

	transport, err = New(config.MailConfig{Transport: config.MailTransportSMTP, BreakerEnabled: true}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Breaker{}, transport)
	assert.Equal(t, "smtp", transport.Name())

	_, err = New(config.MailConfig{Transport: config.MailTransportSendGrid}, nil)
	assert.Error(t, err)

	_, err = New(config.MailConfig{Transport: "pigeon"}, nil)
	assert.Error(t, err)
}

func TestConsoleTransportRecordsMessages(t *testing.T) {
	transport := NewConsoleTransport(Address{Email: "no-reply@example.com"}, nil)
	require.NoError(t, transport.Send(context.Background(), sampleMessage()))
	assert.Len(t, transport.Sent(), 1)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	next := &failingTransport{}
	breaker := NewBreaker(next, nil)

	for i := 0; i < 3; i++ {
		assert.Error(t, breaker.Send(context.Background(), sampleMessage()))
	}
	err := breaker.Send(context.Background(), sampleMessage())
	assert.ErrorIs(t, err, appErrors.ErrMailUnavailable)
	assert.Equal(t, 3, next.calls)
}

func TestSendGridTransportPostsV3Payload(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	transport := NewSendGridTransport("key", Address{Name: "Secretaría", Email: "no-reply@example.com"})
	transport.host = server.URL

	msg := sampleMessage()
	msg.Attachments = []Attachment{{Filename: "recibo.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}}
	require.NoError(t, transport.Send(context.Background(), msg))

	require.NotNil(t, payload)
	assert.Equal(t, "Matrícula confirmada", payload["subject"])
	attachments, ok := payload["attachments"].([]interface{})
	require.True(t, ok)
	assert.Len(t, attachments, 1)
}

func TestSendGridTransportReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	transport := NewSendGridTransport("bad", Address{Email: "no-reply@example.com"})
	transport.host = server.URL
	assert.Error(t, transport.Send(context.Background(), sampleMessage()))
}

func TestSMTPTransportBuildsHeaders(t *testing.T) {
	transport := NewSMTPTransport(Address{Name: "Secretaría", Email: "no-reply@example.com"}, "localhost", 25, "", "")
	m := transport.build(sampleMessage())

	subject := m.GetHeader("Subject")
	require.Len(t, subject, 1)
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject[0])
	require.NoError(t, err)
	assert.Equal(t, "Matrícula confirmada", decoded)
	require.Len(t, m.GetHeader("To"), 1)
	assert.Contains(t, m.GetHeader("To")[0], "ana@example.com")
}
