package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultForbidden = "forbidden"
	ResultInvalid   = "invalid"
	ResultIgnored   = "ignored"
)

var (
	Verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_webhook_verifications_total",
		Help: "Subscription verification requests by result",
	}, []string{"result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_webhook_notifications_total",
		Help: "Inbound notifications by result",
	}, []string{"result"})

	UnmatchedMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "whatsapp_webhook_unmatched_messages_total",
		Help: "Text messages that matched no routing phrase",
	})

	TemplateSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "whatsapp_template_sends_total",
		Help: "Outbound template sends by template and result",
	}, []string{"template", "result"})
)
