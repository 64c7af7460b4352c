package templatesender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/DIMO-Network/server-garage/pkg/richerrors"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/metrics"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/whatsapp"
	"github.com/rs/zerolog"
)

const (
	// SendFailureCode is the code returned when a template send failed.
	SendFailureCode = -1

	// DefaultTemplate is sent when no template name is given.
	DefaultTemplate = "toxic_survey"
	// DefaultGraphAPIURL is the base URL of the Graph API.
	DefaultGraphAPIURL = "https://graph.facebook.com"
	// DefaultGraphAPIVersion is the Graph API version used for sends.
	DefaultGraphAPIVersion = "v22.0"

	// Maximum response body size to read for error logging
	maxResponseBodySize = 1024
)

// Config identifies the sending phone number and its credentials.
type Config struct {
	// BaseURL is the Graph API base URL. Defaults to DefaultGraphAPIURL.
	BaseURL string
	// APIVersion is the Graph API version. Defaults to DefaultGraphAPIVersion.
	APIVersion string
	// PhoneNumberID is the WhatsApp Business phone number ID messages are sent from.
	PhoneNumberID string
	// AccessToken is the bearer token for the Graph API.
	AccessToken string
}

// Sender sends approved template messages through the WhatsApp Cloud API.
type Sender struct {
	client   *http.Client
	endpoint string
	token    string
	logger   zerolog.Logger
}

// NewSender creates a Sender. A nil client uses a client without a timeout.
func NewSender(cfg Config, client *http.Client, logger zerolog.Logger) *Sender {
	if client == nil {
		client = &http.Client{}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultGraphAPIURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultGraphAPIVersion
	}
	return &Sender{
		client:   client,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", baseURL, version, url.PathEscape(cfg.PhoneNumberID)),
		token:    cfg.AccessToken,
		logger:   logger.With().Str("component", "template_sender").Logger(),
	}
}

// Endpoint returns the messages endpoint the sender posts to.
func (s *Sender) Endpoint() string {
	return s.endpoint
}

// SendTemplate sends templateName to recipient. It makes exactly one attempt.
// Returns the platform response on success, a richerrors.Error with SendFailureCode otherwise.
func (s *Sender) SendTemplate(ctx context.Context, recipient, templateName string) (*whatsapp.SendResponse, error) {
	if templateName == "" {
		templateName = DefaultTemplate
	}
	logger := s.logger.With().Str("recipient", recipient).Str("template", templateName).Logger()

	resp, err := s.send(ctx, recipient, templateName)
	if err != nil {
		metrics.TemplateSends.WithLabelValues(templateName, metrics.ResultFailure).Inc()
		logger.Error().Err(err).Msg("Error sending WhatsApp template")
		return nil, err
	}
	metrics.TemplateSends.WithLabelValues(templateName, metrics.ResultSuccess).Inc()
	logger.Info().Strs("message_ids", resp.MessageIDs()).Msg("Template sent successfully")
	return resp, nil
}

func (s *Sender) send(ctx context.Context, recipient, templateName string) (*whatsapp.SendResponse, error) {
	body, err := json.Marshal(whatsapp.NewTemplateMessage(recipient, templateName))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal template message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(body))
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, richerrors.Error{
				Code: SendFailureCode,
				Err:  fmt.Errorf("invalid URL: %w", err),
			}
		}
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("failed to create send request: %w", err),
		}
	}

	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("failed to POST template message: %w", err),
		}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read response body for error details (limited size for security)
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("graph API returned status code %d: %s", resp.StatusCode, describeErrorBody(respBody)),
		}
	}

	var out whatsapp.SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, richerrors.Error{
			Code: SendFailureCode,
			Err:  fmt.Errorf("failed to decode send response: %w", err),
		}
	}
	return &out, nil
}

// describeErrorBody prefers the Graph API error envelope and falls back to the raw body.
func describeErrorBody(body []byte) string {
	var graphErr whatsapp.GraphError
	if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
		return graphErr.Error.String()
	}
	return string(body)
}
