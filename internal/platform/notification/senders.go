package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gomail/gomail"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ---------------------------------------------------------------------------
// HTTP relay
// ---------------------------------------------------------------------------

// HTTPRelay posts messages as JSON to an external notification service. An
// empty URL logs the message and reports success.
type HTTPRelay struct {
	client  *resty.Client
	url     string
	channel Channel
	logger  zerolog.Logger
}

func NewHTTPRelay(channel Channel, url string, timeout time.Duration, logger zerolog.Logger) *HTTPRelay {
	return &HTTPRelay{
		client:  resty.New().SetTimeout(timeout),
		url:     url,
		channel: channel,
		logger:  logger,
	}
}

func (r *HTTPRelay) payload(msg Message) map[string]interface{} {
	switch r.channel {
	case ChannelEmail:
		return map[string]interface{}{
			"to":            msg.Recipient,
			"subject":       msg.Subject,
			"template_id":   msg.TemplateID,
			"template_data": msg.TemplateData,
		}
	case ChannelPush:
		data := msg.Data
		if data == nil {
			data = map[string]interface{}{}
		}
		return map[string]interface{}{
			"user_id": msg.Recipient,
			"title":   msg.Subject,
			"message": msg.Body,
			"data":    data,
		}
	default:
		return map[string]interface{}{
			"to":      msg.Recipient,
			"message": msg.Body,
		}
	}
}

func (r *HTTPRelay) Send(ctx context.Context, msg Message) error {
	body := r.payload(msg)
	if r.url == "" {
		r.logger.Info().
			Str("channel", string(r.channel)).
			Str("recipient", msg.Recipient).
			Str("subject", msg.Subject).
			Str("body", msg.Body).
			Msg("notification relay not configured, logging message")
		return nil
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(r.url)
	if err != nil {
		return fmt.Errorf("%s relay: %w", r.channel, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%s relay returned status %d", r.channel, resp.StatusCode())
	}
	return nil
}

// runWithContext runs fn on its own goroutine so clients without context
// support still honour cancellation.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---------------------------------------------------------------------------
// SMTP
// ---------------------------------------------------------------------------

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender delivers email messages over SMTP, including attachments.
type SMTPSender struct {
	dialer mailDialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) buildMessage(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}
	return m
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := s.buildMessage(msg)
	if err := runWithContext(ctx, func() error { return s.dialer.DialAndSend(m) }); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Twilio SMS
// ---------------------------------------------------------------------------

// messageCreator is satisfied by the Twilio v2010 API service.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender delivers SMS through Twilio's REST API.
type TwilioSender struct {
	api  messageCreator
	from string
}

func NewTwilioSender(accountSID, authToken, from string) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioSender{api: client.Api, from: from}
}

func (s *TwilioSender) Send(ctx context.Context, msg Message) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(msg.Recipient)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	err := runWithContext(ctx, func() error {
		_, err := s.api.CreateMessage(params)
		return err
	})
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// MQTT push
// ---------------------------------------------------------------------------

// publisher is satisfied by mqtt.Client.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTSender publishes push messages to {prefix}/{user_id}.
type MQTTSender struct {
	client publisher
	prefix string
}

// NewMQTTSender connects to the broker. The returned close function
// disconnects the client.
func NewMQTTSender(brokerURL, clientID, topicPrefix string) (*MQTTSender, func(), error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, nil, fmt.Errorf("connect to MQTT broker: %w", token.Error())
	}
	closeFn := func() { client.Disconnect(250) }
	return &MQTTSender{client: client, prefix: strings.TrimSuffix(topicPrefix, "/")}, closeFn, nil
}

func (s *MQTTSender) Send(ctx context.Context, msg Message) error {
	data := msg.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"title":   msg.Subject,
		"message": msg.Body,
		"data":    data,
	})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}

	topic := s.prefix + "/" + msg.Recipient
	token := s.client.Publish(topic, 1, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Channel selection
// ---------------------------------------------------------------------------

// ChannelConfig selects a sender per channel. Direct providers win over the
// HTTP relay: SMTP for email, Twilio for SMS, MQTT for push.
type ChannelConfig struct {
	EmailServiceURL string
	SMSServiceURL   string
	PushServiceURL  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	MQTTBrokerURL   string
	MQTTClientID    string
	MQTTTopicPrefix string

	Timeout time.Duration
}

// BuildSenders constructs the per-channel senders. The returned close
// function releases provider connections.
func BuildSenders(cfg ChannelConfig, logger zerolog.Logger) (map[Channel]Sender, func(), error) {
	senders := make(map[Channel]Sender, 3)
	closeFn := func() {}

	if cfg.SMTPHost != "" {
		from := cfg.SMTPFrom
		if from == "" {
			from = cfg.SMTPUsername
		}
		senders[ChannelEmail] = NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, from)
		logger.Info().Str("channel", "email").Str("provider", "smtp").Msg("notification channel ready")
	} else {
		senders[ChannelEmail] = NewHTTPRelay(ChannelEmail, cfg.EmailServiceURL, cfg.Timeout, logger)
	}

	if cfg.TwilioAccountSID != "" {
		senders[ChannelSMS] = NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
		logger.Info().Str("channel", "sms").Str("provider", "twilio").Msg("notification channel ready")
	} else {
		senders[ChannelSMS] = NewHTTPRelay(ChannelSMS, cfg.SMSServiceURL, cfg.Timeout, logger)
	}

	if cfg.MQTTBrokerURL != "" {
		push, disconnect, err := NewMQTTSender(cfg.MQTTBrokerURL, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			return nil, nil, err
		}
		senders[ChannelPush] = push
		closeFn = disconnect
		logger.Info().Str("channel", "push").Str("provider", "mqtt").Msg("notification channel ready")
	} else {
		senders[ChannelPush] = NewHTTPRelay(ChannelPush, cfg.PushServiceURL, cfg.Timeout, logger)
	}

	return senders, closeFn, nil
}
