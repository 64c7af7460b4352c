// Command webhook_receiver stands in for the Graph API messages endpoint during local development.
// Point GRAPH_API_URL at it to watch template sends without reaching the platform.
package main

import (
	"encoding/json"
	"flag"
	"strings"

	"github.com/DIMO-Network/server-garage/pkg/logging"
	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/whatsapp"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newApp(logger zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/:version/:phoneNumberID/messages", func(c *fiber.Ctx) error {
		token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(whatsapp.GraphError{Error: whatsapp.GraphErrorDetail{
				Message: "Invalid OAuth access token.",
				Type:    "OAuthException",
				Code:    190,
			}})
		}

		var msg whatsapp.TemplateMessage
		if err := json.Unmarshal(c.Body(), &msg); err != nil || msg.To == "" || msg.Template.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(whatsapp.GraphError{Error: whatsapp.GraphErrorDetail{
				Message: "(#100) Invalid parameter",
				Type:    "OAuthException",
				Code:    100,
			}})
		}

		logger.Info().
			Str("version", c.Params("version")).
			Str("phoneNumberId", c.Params("phoneNumberID")).
			Str("to", msg.To).
			Str("template", msg.Template.Name).
			Str("language", msg.Template.Language.Code).
			Msg("Template send received")
		return c.JSON(whatsapp.NewSendResponse(msg.To, "wamid."+uuid.NewString()))
	})
	return app
}

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	flag.Parse()

	logger := logging.GetAndSetDefaultLogger("webhook-receiver")
	logger.Info().Str("addr", *addr).Msg("Graph API stub listening")
	if err := newApp(logger).Listen(*addr); err != nil {
		logger.Fatal().Err(err).Msg("Graph API stub failed")
	}
}
