// Package notification fans appointment and prescription events out to
// email, SMS and push channels. Delivery is best effort: every message gets a
// result in the Report and nothing is returned as an error.
package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// Channel is the delivery medium of a message.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Attachment is a file sent along with an email.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is one outbound notification on one channel. For push messages the
// recipient is the user id.
type Message struct {
	Channel      Channel
	Recipient    string
	Subject      string
	Body         string
	TemplateID   string
	TemplateData map[string]string
	Data         map[string]interface{}
	Attachments  []Attachment
}

// Event is a named group of messages produced by a domain action.
type Event struct {
	Name     string
	Messages []Message
}

// Sender delivers a message on a single channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Result is the outcome of one message.
type Result struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

// Report collects the results of dispatching one event.
type Report struct {
	Event   string   `json:"event"`
	Results []Result `json:"results"`
}

// OK reports whether every message was delivered.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if !res.Success {
			return false
		}
	}
	return true
}

// Failures returns the results that did not succeed.
func (r Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Dispatcher
// ---------------------------------------------------------------------------

var ErrNoSender = errors.New("no sender configured for channel")

// Dispatcher sends each message of an event concurrently, one goroutine per
// message, each bounded by the per-message timeout.
type Dispatcher struct {
	senders map[Channel]Sender
	timeout time.Duration
	logger  zerolog.Logger
}

func NewDispatcher(senders map[Channel]Sender, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := make(map[Channel]Sender, len(senders))
	for ch, snd := range senders {
		s[ch] = snd
	}
	return &Dispatcher{senders: s, timeout: timeout, logger: logger}
}

// Dispatch delivers ev and waits for every message. Messages without a
// recipient are skipped. Failures are logged and recorded in the report.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Report {
	var msgs []Message
	for _, m := range ev.Messages {
		if m.Recipient != "" {
			msgs = append(msgs, m)
		}
	}

	results := make([]Result, len(msgs))
	var wg sync.WaitGroup
	for i, m := range msgs {
		wg.Add(1)
		go func(i int, m Message) {
			defer wg.Done()
			results[i] = d.send(ctx, ev.Name, m)
		}(i, m)
	}
	wg.Wait()

	return Report{Event: ev.Name, Results: results}
}

func (d *Dispatcher) send(ctx context.Context, event string, m Message) Result {
	res := Result{Channel: m.Channel, Recipient: m.Recipient}

	sender, ok := d.senders[m.Channel]
	if !ok || sender == nil {
		res.Error = ErrNoSender.Error()
		d.logger.Warn().Str("event", event).Str("channel", string(m.Channel)).Msg("notification channel not configured")
		return res
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := sender.Send(sendCtx, m); err != nil {
		res.Error = err.Error()
		d.logger.Warn().Err(err).
			Str("event", event).
			Str("channel", string(m.Channel)).
			Str("recipient", m.Recipient).
			Msg("notification delivery failed")
		return res
	}
	res.Success = true
	return res
}

// ---------------------------------------------------------------------------
// Recorder (test double)
// ---------------------------------------------------------------------------

// Recorder is a Sender that keeps every message it is given. FailWith makes
// subsequent sends fail.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	FailWith error
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.FailWith
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// NewRecordingDispatcher returns a dispatcher whose every channel is r.
func NewRecordingDispatcher(r *Recorder) *Dispatcher {
	return NewDispatcher(map[Channel]Sender{
		ChannelEmail: r,
		ChannelSMS:   r,
		ChannelPush:  r,
	}, time.Second, zerolog.Nop())
}
