package whatsapp

import "fmt"

// TemplateMessage is the request body of a template send on the Graph API messages endpoint.
type TemplateMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Template         TemplateBody `json:"template"`
}

// TemplateBody names the approved template to send.
type TemplateBody struct {
	Name     string   `json:"name"`
	Language Language `json:"language"`
	// Components is reserved for dynamic template parameters and is always sent as an array.
	Components []any `json:"components"`
}

// Language selects the template translation.
type Language struct {
	Code string `json:"code"`
}

// NewTemplateMessage builds the send body for templateName addressed to recipient.
func NewTemplateMessage(recipient, templateName string) TemplateMessage {
	return TemplateMessage{
		MessagingProduct: messagingProductWhatsApp,
		RecipientType:    recipientTypeIndividual,
		To:               recipient,
		Type:             messageTypeTemplate,
		Template: TemplateBody{
			Name:       templateName,
			Language:   Language{Code: LanguageEnUS},
			Components: []any{},
		},
	}
}

// SendResponse is the Graph API response to a successful send.
type SendResponse struct {
	MessagingProduct string        `json:"messaging_product"`
	Contacts         []SentContact `json:"contacts"`
	Messages         []SentMessage `json:"messages"`
}

// SentContact maps the requested recipient to its WhatsApp ID.
type SentContact struct {
	Input string `json:"input"`
	WaID  string `json:"wa_id"`
}

// SentMessage identifies an accepted outbound message.
type SentMessage struct {
	ID string `json:"id"`
}

// NewSendResponse builds the success body the platform returns for a send to recipient.
func NewSendResponse(recipient string, messageIDs ...string) SendResponse {
	resp := SendResponse{
		MessagingProduct: messagingProductWhatsApp,
		Contacts:         []SentContact{{Input: recipient, WaID: recipient}},
		Messages:         make([]SentMessage, 0, len(messageIDs)),
	}
	for _, id := range messageIDs {
		resp.Messages = append(resp.Messages, SentMessage{ID: id})
	}
	return resp
}

// MessageIDs returns the IDs the platform assigned to the sent messages.
func (r *SendResponse) MessageIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// GraphError is the error envelope returned by the Graph API.
type GraphError struct {
	Error GraphErrorDetail `json:"error"`
}

// GraphErrorDetail describes a Graph API failure.
type GraphErrorDetail struct {
	Message      string `json:"message"`
	Type         string `json:"type"`
	Code         int    `json:"code"`
	ErrorSubcode int    `json:"error_subcode,omitempty"`
	FBTraceID    string `json:"fbtrace_id"`
}

func (d GraphErrorDetail) String() string {
	return fmt.Sprintf("%s (type=%s code=%d subcode=%d fbtrace_id=%s)", d.Message, d.Type, d.Code, d.ErrorSubcode, d.FBTraceID)
}
