package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ---------------------------------------------------------------------------
// HTTP relay
// ---------------------------------------------------------------------------

func TestHTTPRelay_Email(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	relay := NewHTTPRelay(ChannelEmail, srv.URL, time.Second, zerolog.Nop())
	err := relay.Send(context.Background(), Message{
		Channel:      ChannelEmail,
		Recipient:    "ravi@example.com",
		Subject:      "Appointment Confirmation",
		TemplateID:   "tpl-1",
		TemplateData: map[string]string{"patient_name": "Ravi"},
	})
	require.NoError(t, err)

	assert.Equal(t, "ravi@example.com", got["to"])
	assert.Equal(t, "Appointment Confirmation", got["subject"])
	assert.Equal(t, "tpl-1", got["template_id"])
	assert.Equal(t, map[string]interface{}{"patient_name": "Ravi"}, got["template_data"])
}

func TestHTTPRelay_PushPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	relay := NewHTTPRelay(ChannelPush, srv.URL, time.Second, zerolog.Nop())
	require.NoError(t, relay.Send(context.Background(), Message{
		Channel: ChannelPush, Recipient: "7", Subject: "Prescription Ready", Body: "available",
		Data: map[string]interface{}{"prescription_id": 3},
	}))
	assert.Equal(t, "7", got["user_id"])
	assert.Equal(t, "Prescription Ready", got["title"])
	assert.Equal(t, "available", got["message"])
	assert.Equal(t, float64(3), got["data"].(map[string]interface{})["prescription_id"])
}

func TestHTTPRelay_NonOKIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	relay := NewHTTPRelay(ChannelSMS, srv.URL, time.Second, zerolog.Nop())
	err := relay.Send(context.Background(), Message{Channel: ChannelSMS, Recipient: "+91", Body: "x"})
	assert.Error(t, err)
}

func TestHTTPRelay_UnreachableIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	relay := NewHTTPRelay(ChannelSMS, url, time.Second, zerolog.Nop())
	assert.Error(t, relay.Send(context.Background(), Message{Channel: ChannelSMS, Recipient: "+91"}))
}

func TestHTTPRelay_UnconfiguredLogsAndSucceeds(t *testing.T) {
	var buf bytes.Buffer
	relay := NewHTTPRelay(ChannelSMS, "", time.Second, zerolog.New(&buf))
	require.NoError(t, relay.Send(context.Background(), Message{Channel: ChannelSMS, Recipient: "+91987", Body: "hello"}))
	assert.Contains(t, buf.String(), "+91987")
}

// ---------------------------------------------------------------------------
// SMTP
// ---------------------------------------------------------------------------

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPSender_WithAttachment(t *testing.T) {
	dialer := &fakeDialer{}
	s := &SMTPSender{dialer: dialer, from: "noreply@medbook.example"}

	err := s.Send(context.Background(), Message{
		Channel:     ChannelEmail,
		Recipient:   "ravi@example.com",
		Subject:     "Your Prescription is Ready",
		Body:        "Dear Ravi",
		Attachments: []Attachment{{Name: "prescription_9.pdf", Content: []byte("%PDF-1.3")}},
	})
	require.NoError(t, err)
	require.Len(t, dialer.sent, 1)

	m := dialer.sent[0]
	assert.Equal(t, []string{"ravi@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"noreply@medbook.example"}, m.GetHeader("From"))

	var raw bytes.Buffer
	_, err = m.WriteTo(&raw)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), "prescription_9.pdf")
	assert.Contains(t, raw.String(), "Dear Ravi")
}

func TestSMTPSender_Error(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{err: errors.New("535 auth failed")}, from: "x@example.com"}
	err := s.Send(context.Background(), Message{Recipient: "a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

// ---------------------------------------------------------------------------
// Twilio
// ---------------------------------------------------------------------------

type fakeTwilio struct {
	params *openapi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	return &openapi.ApiV2010Message{}, f.err
}

func TestTwilioSender(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, from: "+15005550006"}

	require.NoError(t, s.Send(context.Background(), Message{Channel: ChannelSMS, Recipient: "+919800000001", Body: "confirmed"}))
	require.NotNil(t, api.params)
	assert.Equal(t, "+919800000001", *api.params.To)
	assert.Equal(t, "+15005550006", *api.params.From)
	assert.Equal(t, "confirmed", *api.params.Body)

	api.err = errors.New("invalid number")
	assert.Error(t, s.Send(context.Background(), Message{Recipient: "bad"}))
}

// ---------------------------------------------------------------------------
// MQTT
// ---------------------------------------------------------------------------

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakePublisher struct {
	topic   string
	qos     byte
	payload []byte
	err     error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.topic, p.qos = topic, qos
	p.payload, _ = payload.([]byte)
	return newFakeToken(p.err)
}

func TestMQTTSender(t *testing.T) {
	pub := &fakePublisher{}
	s := &MQTTSender{client: pub, prefix: "medbook/push"}

	require.NoError(t, s.Send(context.Background(), Message{
		Channel: ChannelPush, Recipient: "7", Subject: "Appointment Reminder", Body: "in 24 hours",
		Data: map[string]interface{}{"appointment_id": 42},
	}))
	assert.Equal(t, "medbook/push/7", pub.topic)
	assert.Equal(t, byte(1), pub.qos)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.payload, &payload))
	assert.Equal(t, "Appointment Reminder", payload["title"])
	assert.Equal(t, float64(42), payload["data"].(map[string]interface{})["appointment_id"])

	pub.err = errors.New("not connected")
	assert.Error(t, s.Send(context.Background(), Message{Recipient: "7"}))
}

// ---------------------------------------------------------------------------
// Channel selection
// ---------------------------------------------------------------------------

func TestBuildSenders_DefaultsToRelays(t *testing.T) {
	senders, closeFn, err := BuildSenders(ChannelConfig{Timeout: time.Second}, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelPush} {
		_, ok := senders[ch].(*HTTPRelay)
		assert.True(t, ok, "expected HTTP relay for %s", ch)
	}
}

func TestBuildSenders_DirectProviders(t *testing.T) {
	senders, closeFn, err := BuildSenders(ChannelConfig{
		SMTPHost:          "smtp.example.com",
		SMTPPort:          587,
		SMTPUsername:      "mailer@example.com",
		TwilioAccountSID:  "AC00000000000000000000000000000000",
		TwilioAuthToken:   "token",
		TwilioPhoneNumber: "+15005550006",
		Timeout:           time.Second,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	smtp, ok := senders[ChannelEmail].(*SMTPSender)
	require.True(t, ok)
	assert.Equal(t, "mailer@example.com", smtp.from)
	_, ok = senders[ChannelSMS].(*TwilioSender)
	assert.True(t, ok)
	_, ok = senders[ChannelPush].(*HTTPRelay)
	assert.True(t, ok)
}
