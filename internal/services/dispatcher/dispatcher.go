package dispatcher

import (
	"context"
	"errors"
	"strings"

	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/metrics"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/phraserouter"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/whatsapp"
	"github.com/rs/zerolog"
)

// ErrNotWhatsAppWebhook is returned for notifications from any object other than a WhatsApp Business Account.
var ErrNotWhatsAppWebhook = errors.New("not a WhatsApp Business Account webhook")

// Summary counts what happened to the eligible messages of one notification.
type Summary struct {
	Examined   int
	Skipped    int
	Duplicates int
	Unmatched  int
	Sent       int
	Failed     int
}

// Dispatcher routes inbound text messages to template sends.
type Dispatcher struct {
	router    *phraserouter.Router
	sender    TemplateSender
	guard     ReplayGuard
	publisher EventPublisher
	source    string
	logger    zerolog.Logger
}

// Option configures optional Dispatcher collaborators.
type Option func(*Dispatcher)

// WithReplayGuard skips messages whose IDs the guard has already seen.
func WithReplayGuard(guard ReplayGuard) Option {
	return func(d *Dispatcher) {
		d.guard = guard
	}
}

// WithEventPublisher publishes an outcome event for every routed message.
// source is used as the event source.
func WithEventPublisher(publisher EventPublisher, source string) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
		d.source = source
	}
}

// New creates a Dispatcher.
func New(router *phraserouter.Router, sender TemplateSender, logger zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		router: router,
		sender: sender,
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes the first message of every messages change in payload, in order.
// Per-message failures are logged and counted; once the object type is valid the error is always nil.
func (d *Dispatcher) Dispatch(ctx context.Context, payload *whatsapp.NotificationPayload) (Summary, error) {
	var summary Summary
	if !payload.IsWhatsAppBusinessAccount() {
		return summary, ErrNotWhatsAppWebhook
	}

	for msg := range payload.EligibleMessages() {
		summary.Examined++
		switch d.handleMessage(ctx, payload, msg) {
		case resultSkipped:
			summary.Skipped++
		case resultDuplicate:
			summary.Duplicates++
		case resultUnmatched:
			summary.Unmatched++
		case resultSent:
			summary.Sent++
		case resultFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

type messageResult int

const (
	resultSkipped messageResult = iota
	resultDuplicate
	resultUnmatched
	resultSent
	resultFailed
)

func (d *Dispatcher) handleMessage(ctx context.Context, payload *whatsapp.NotificationPayload, msg whatsapp.InboundMessage) messageResult {
	logger := d.logger.With().
		Str("message_id", msg.ID).
		Str("from", msg.From).
		Str("type", msg.Type).
		Logger()

	body, ok := msg.TextBody()
	if !ok {
		logger.Debug().Msg("Skipping non-text message")
		return resultSkipped
	}
	if d.guard != nil && d.guard.Seen(msg.ID) {
		logger.Info().Msg("Skipping already handled message")
		return resultDuplicate
	}

	text := strings.ToLower(body)
	template, matched := d.router.Route(text)
	if !matched {
		metrics.UnmatchedMessages.Inc()
		logger.Info().Str("text", text).Msg("No matching template for message")
		d.publish(ctx, logger, Outcome{MessageID: msg.ID, Recipient: msg.From, Status: StatusUnmatched})
		return resultUnmatched
	}

	logger.Info().
		Str("template", template).
		Str("contact_name", payload.ContactName(msg.From)).
		Msg("Matched key phrase, sending template")

	resp, err := d.sender.SendTemplate(ctx, msg.From, template)
	if err != nil {
		// The sender already logged the failure; it must not affect the acknowledgement.
		d.publish(ctx, logger, Outcome{MessageID: msg.ID, Recipient: msg.From, Template: template, Status: StatusFailed, Error: err.Error()})
		return resultFailed
	}
	d.publish(ctx, logger, Outcome{
		MessageID:          msg.ID,
		Recipient:          msg.From,
		Template:           template,
		Status:             StatusSent,
		OutboundMessageIDs: resp.MessageIDs(),
	})
	return resultSent
}

func (d *Dispatcher) publish(ctx context.Context, logger zerolog.Logger, outcome Outcome) {
	if d.publisher == nil {
		return
	}
	payload, err := d.newOutcomeEvent(outcome)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to build dispatch outcome event")
		return
	}
	if err := d.publisher.Publish(ctx, outcome.Recipient, payload); err != nil {
		logger.Error().Err(err).Msg("Failed to publish dispatch outcome event")
	}
}
