package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/DIMO-Network/server-garage/pkg/fibercommon"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/config"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/controllers/webhook"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/kafka"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/dispatcher"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/phraserouter"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/replayguard"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/services/templatesender"
	"github.com/IBM/sarama"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// WebhookPath is where the platform delivers verification requests and notifications.
const WebhookPath = "/api/webhook"

// CreateServers builds the web server and its dependencies.
// The returned cleanup func releases resources once the server has stopped.
func CreateServers(ctx context.Context, settings *config.Settings, logger zerolog.Logger) (*fiber.App, func(), error) {
	eventDispatcher, cleanup, err := CreateDispatcher(ctx, settings, nil, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	controller := webhook.NewWebhookController(webhook.Config{
		VerifyToken: settings.VerifyToken,
		AppSecret:   settings.AppSecret,
	}, eventDispatcher, logger)

	return CreateFiberApp(logger, controller), cleanup, nil
}

// CreateDispatcher wires the phrase router, template sender and optional replay guard and outcome publisher.
// A nil client uses a client bounded by settings.SendTimeout.
func CreateDispatcher(_ context.Context, settings *config.Settings, client *http.Client, logger zerolog.Logger) (*dispatcher.Dispatcher, func(), error) {
	router, err := phraserouter.New(phraserouter.DefaultTable)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create phrase router: %w", err)
	}

	if client == nil {
		client = &http.Client{Timeout: settings.SendTimeout}
	}
	sender := templatesender.NewSender(templatesender.Config{
		BaseURL:       settings.GraphAPIURL,
		APIVersion:    settings.GraphAPIVersion,
		PhoneNumberID: settings.PhoneNumberID,
		AccessToken:   settings.AccessToken,
	}, client, logger)
	logger.Info().Str("endpoint", sender.Endpoint()).Int("routes", router.Len()).Msg("Template sender configured")

	var opts []dispatcher.Option
	if settings.ReplayWindow > 0 {
		opts = append(opts, dispatcher.WithReplayGuard(replayguard.New(settings.ReplayWindow, 2*settings.ReplayWindow)))
		logger.Info().Dur("window", settings.ReplayWindow).Msg("Replay guard enabled")
	}

	cleanup := func() {}
	if settings.OutcomesEnabled() {
		clusterConfig := sarama.NewConfig()
		clusterConfig.Version = sarama.V2_8_1_0

		publisher, err := kafka.NewPublisher(&kafka.Config{
			ClusterConfig:   clusterConfig,
			BrokerAddresses: settings.Brokers(),
			Topic:           settings.OutcomesTopic,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create outcomes publisher: %w", err)
		}
		opts = append(opts, dispatcher.WithEventPublisher(publisher, settings.ServiceName))
		cleanup = func() {
			if err := publisher.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close outcomes publisher")
			}
		}
		logger.Info().Msgf("Publishing dispatch outcomes to topic: %s", settings.OutcomesTopic)
	}

	return dispatcher.New(router, sender, logger, opts...), cleanup, nil
}

// CreateFiberApp sets up the API routes.
func CreateFiberApp(logger zerolog.Logger, controller *webhook.WebhookController) *fiber.App {
	logger.Info().Msg("Starting WhatsApp Webhook Responder...")

	app := fiber.New(fiber.Config{
		ErrorHandler:          webhook.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(fibercommon.ContextLoggerMiddleware)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Welcome to the WhatsApp Webhook Responder!")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"data": "Server is up and running",
		})
	})

	logger.Info().Msg("Registering routes...")
	app.Get(WebhookPath, controller.VerifySubscription)
	app.Post(WebhookPath, controller.ReceiveNotification)

	return app
}
