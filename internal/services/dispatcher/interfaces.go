//go:generate go tool mockgen -source=interfaces.go -destination=interfaces_mock_test.go -package=dispatcher
package dispatcher

import (
	"context"

	"github.com/DIMO-Network/whatsapp-webhook-responder/internal/whatsapp"
)

// TemplateSender sends an approved template message to a recipient.
type TemplateSender interface {
	SendTemplate(ctx context.Context, recipient, templateName string) (*whatsapp.SendResponse, error)
}

// ReplayGuard reports inbound message IDs that were already handled.
type ReplayGuard interface {
	Seen(id string) bool
}

// EventPublisher publishes serialized dispatch outcome events.
type EventPublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}
