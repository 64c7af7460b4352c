package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Settings contains the application config
type Settings struct {
	Port        int    `env:"PORT"`
	MonPort     int    `env:"MON_PORT"`
	EnablePprof bool   `env:"ENABLE_PPROF"`
	LogLevel    string `env:"LOG_LEVEL"`
	ServiceName string `env:"SERVICE_NAME"`

	// VerifyToken is the shared secret configured for the webhook subscription.
	VerifyToken string `env:"WHATSAPP_VERIFY_TOKEN"`
	// AccessToken is the bearer token used for the Graph API.
	AccessToken   string `env:"WHATSAPP_TOKEN"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	// AppSecret enables X-Hub-Signature-256 verification of notifications when set.
	AppSecret       string `env:"APP_SECRET"`
	GraphAPIURL     string `env:"GRAPH_API_URL"`
	GraphAPIVersion string `env:"GRAPH_API_VERSION"`
	// SendTimeout bounds each outbound send. Zero leaves sends unbounded.
	SendTimeout time.Duration `env:"SEND_TIMEOUT"`

	// ReplayWindow enables message ID de-duplication for the given window when non-zero.
	ReplayWindow time.Duration `env:"REPLAY_WINDOW"`

	KafkaBrokers  string `env:"KAFKA_BROKERS"`
	OutcomesTopic string `env:"OUTCOMES_TOPIC"`
}

const (
	defaultPort        = 8080
	defaultMonPort     = 8888
	defaultLogLevel    = "info"
	defaultServiceName = "whatsapp-webhook-responder"
)

// ApplyDefaults fills unset optional settings.
func (s *Settings) ApplyDefaults() {
	if s.Port == 0 {
		s.Port = defaultPort
	}
	if s.MonPort == 0 {
		s.MonPort = defaultMonPort
	}
	if s.LogLevel == "" {
		s.LogLevel = defaultLogLevel
	}
	if s.ServiceName == "" {
		s.ServiceName = defaultServiceName
	}
}

// Validate returns an error listing every missing required setting.
func (s *Settings) Validate() error {
	var errs []error
	if strings.TrimSpace(s.VerifyToken) == "" {
		errs = append(errs, errors.New("WHATSAPP_VERIFY_TOKEN is required"))
	}
	if strings.TrimSpace(s.AccessToken) == "" {
		errs = append(errs, errors.New("WHATSAPP_TOKEN is required"))
	}
	if strings.TrimSpace(s.PhoneNumberID) == "" {
		errs = append(errs, errors.New("WHATSAPP_PHONE_NUMBER_ID is required"))
	}
	if s.SendTimeout < 0 {
		errs = append(errs, fmt.Errorf("SEND_TIMEOUT must not be negative, got %s", s.SendTimeout))
	}
	if s.ReplayWindow < 0 {
		errs = append(errs, fmt.Errorf("REPLAY_WINDOW must not be negative, got %s", s.ReplayWindow))
	}
	if (s.KafkaBrokers == "") != (s.OutcomesTopic == "") {
		errs = append(errs, errors.New("KAFKA_BROKERS and OUTCOMES_TOPIC must be set together"))
	}
	return errors.Join(errs...)
}

// OutcomesEnabled reports whether dispatch outcomes are published to Kafka.
func (s *Settings) OutcomesEnabled() bool {
	return s.KafkaBrokers != "" && s.OutcomesTopic != ""
}

// Brokers returns the configured Kafka broker addresses.
func (s *Settings) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(s.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
