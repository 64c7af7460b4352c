package dispatcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DIMO-Network/cloudevent"
	"github.com/google/uuid"
)

const (
	// OutcomeEventType is the cloud event type of dispatch outcome events.
	OutcomeEventType = "dimo.whatsapp.template.dispatch"
	// OutcomeDataVersion is the data version of dispatch outcome events.
	OutcomeDataVersion = "whatsapp.dispatch/v1.0"
)

// Outcome statuses.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusUnmatched = "unmatched"
)

// Outcome records what happened to one routed inbound message.
type Outcome struct {
	MessageID          string   `json:"messageId"`
	Recipient          string   `json:"recipient"`
	Template           string   `json:"template,omitempty"`
	Status             string   `json:"status"`
	Error              string   `json:"error,omitempty"`
	OutboundMessageIDs []string `json:"outboundMessageIds,omitempty"`
}

func (d *Dispatcher) newOutcomeEvent(outcome Outcome) ([]byte, error) {
	event := cloudevent.CloudEvent[Outcome]{
		CloudEventHeader: cloudevent.CloudEventHeader{
			ID:              uuid.NewString(),
			Source:          d.source,
			Subject:         outcome.Recipient,
			Time:            time.Now().UTC(),
			DataContentType: "application/json",
			DataVersion:     OutcomeDataVersion,
			Type:            OutcomeEventType,
			SpecVersion:     "1.0",
		},
		Data: outcome,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome event: %w", err)
	}
	return payload, nil
}
