package webhook

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DIMO-Network/server-garage/pkg/richerrors"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/metrics"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/dispatcher"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/whatsapp"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	modeSubscribe = "subscribe"

	msgOK                  = "OK"
	msgBadRequest          = "Bad Request"
	msgForbidden           = "Forbidden"
	msgUnauthorized        = "Unauthorized"
	msgNotWhatsAppWebhook  = "Not a WhatsApp Business Account webhook"
	msgInternalServerError = "Internal Server Error"
)

var (
	errMissingModeOrToken   = errors.New("hub.mode and hub.verify_token are required")
	errVerificationMismatch = errors.New("verification mode or token mismatch")
	errNullPayload          = errors.New("notification payload is null")
)

// Dispatcher processes decoded notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *whatsapp.NotificationPayload) (dispatcher.Summary, error)
}

// Config holds the secrets the controller checks inbound requests against.
type Config struct {
	// VerifyToken is the shared secret expected in hub.verify_token.
	VerifyToken string
	// AppSecret, when set, is used to verify the X-Hub-Signature-256 header of notifications.
	AppSecret string
}

// WebhookController handles the WhatsApp webhook subscription handshake and event notifications.
type WebhookController struct {
	cfg        Config
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(cfg Config, d Dispatcher, logger zerolog.Logger) *WebhookController {
	return &WebhookController{
		cfg:        cfg,
		dispatcher: d,
		logger:     logger.With().Str("component", "webhook_controller").Logger(),
	}
}

// VerifySubscription godoc
// @Summary      Verify the webhook subscription
// @Description  Challenge/response handshake used by the platform to confirm ownership of the endpoint.
// @Tags         Webhook
// @Produce      plain
// @Param        hub.mode          query  string  true  "Must be subscribe"
// @Param        hub.verify_token  query  string  true  "Shared verification secret"
// @Param        hub.challenge     query  string  false "Value echoed back on success"
// @Success      200  {string}  string  "The challenge"
// @Failure      400  "Bad Request"
// @Failure      403  "Forbidden"
// @Router       /api/webhook [get]
func (w *WebhookController) VerifySubscription(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if err := w.verify(mode, token); err != nil {
		return err
	}

	metrics.Verifications.WithLabelValues(metrics.ResultSuccess).Inc()
	w.logger.Info().Msg("WEBHOOK_VERIFIED")
	return c.Status(fiber.StatusOK).SendString(challenge)
}

func (w *WebhookController) verify(mode, token string) error {
	if mode == "" || token == "" {
		metrics.Verifications.WithLabelValues(metrics.ResultInvalid).Inc()
		return richerrors.Error{
			ExternalMsg: msgBadRequest,
			Err:         errMissingModeOrToken,
			Code:        fiber.StatusBadRequest,
		}
	}
	if mode != modeSubscribe || subtle.ConstantTimeCompare([]byte(token), []byte(w.cfg.VerifyToken)) != 1 {
		metrics.Verifications.WithLabelValues(metrics.ResultForbidden).Inc()
		return richerrors.Error{
			ExternalMsg: msgForbidden,
			Err:         errVerificationMismatch,
			Code:        fiber.StatusForbidden,
		}
	}
	return nil
}

// ReceiveNotification godoc
// @Summary      Receive a webhook notification
// @Description  Routes the first message of every messages change to a template send. Always acknowledges a valid WhatsApp Business Account notification.
// @Tags         Webhook
// @Accept       json
// @Produce      plain
// @Param        request  body  whatsapp.NotificationPayload  true  "Notification payload"
// @Success      200  "OK"
// @Failure      400  "Not a WhatsApp Business Account webhook"
// @Failure      401  "Unauthorized"
// @Failure      500  "Internal Server Error"
// @Router       /api/webhook [post]
func (w *WebhookController) ReceiveNotification(c *fiber.Ctx) error {
	body := c.Body()

	if w.cfg.AppSecret != "" {
		if err := verifySignature(body, c.Get(SignatureHeader), w.cfg.AppSecret); err != nil {
			metrics.Notifications.WithLabelValues(metrics.ResultForbidden).Inc()
			return richerrors.Error{
				ExternalMsg: msgUnauthorized,
				Err:         err,
				Code:        fiber.StatusUnauthorized,
			}
		}
	}

	var payload whatsapp.NotificationPayload
	if err := decodePayload(body, &payload); err != nil {
		metrics.Notifications.WithLabelValues(metrics.ResultFailure).Inc()
		return richerrors.Error{
			ExternalMsg: msgInternalServerError,
			Err:         fmt.Errorf("failed to decode notification payload: %w", err),
			Code:        fiber.StatusInternalServerError,
		}
	}
	w.logger.Debug().RawJSON("payload", body).Msg("Received webhook")

	summary, err := w.dispatcher.Dispatch(c.UserContext(), &payload)
	if err != nil {
		if errors.Is(err, dispatcher.ErrNotWhatsAppWebhook) {
			metrics.Notifications.WithLabelValues(metrics.ResultIgnored).Inc()
			return richerrors.Error{
				ExternalMsg: msgNotWhatsAppWebhook,
				Err:         fmt.Errorf("unexpected object %q: %w", payload.Object, err),
				Code:        fiber.StatusBadRequest,
			}
		}
		metrics.Notifications.WithLabelValues(metrics.ResultFailure).Inc()
		return richerrors.Error{
			ExternalMsg: msgInternalServerError,
			Err:         fmt.Errorf("failed to dispatch notification: %w", err),
			Code:        fiber.StatusInternalServerError,
		}
	}

	metrics.Notifications.WithLabelValues(metrics.ResultSuccess).Inc()
	w.logger.Debug().
		Int("examined", summary.Examined).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Int("unmatched", summary.Unmatched).
		Int("skipped", summary.Skipped).
		Int("duplicates", summary.Duplicates).
		Msg("Notification processed")
	return c.Status(fiber.StatusOK).SendString(msgOK)
}

// decodePayload requires body to be a JSON object; a bare null is rejected.
func decodePayload(body []byte, payload *whatsapp.NotificationPayload) error {
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return errNullPayload
	}
	return json.Unmarshal(body, payload)
}
