package whatsapp

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePayload(t *testing.T, raw string) *NotificationPayload {
	t.Helper()
	var payload NotificationPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return &payload
}

func TestEligibleMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{
			name:     "no entries",
			raw:      `{"object":"whatsapp_business_account"}`,
			expected: nil,
		},
		{
			name:     "entry without changes",
			raw:      `{"object":"whatsapp_business_account","entry":[{}]}`,
			expected: nil,
		},
		{
			name:     "change without value",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages"}]}]}`,
			expected: nil,
		},
		{
			name:     "empty messages",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[]}}]}]}`,
			expected: nil,
		},
		{
			name:     "messages is not an array",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":{"from":"1"}}}]}]}`,
			expected: nil,
		},
		{
			name:     "null entry is empty",
			raw:      `{"object":"whatsapp_business_account","entry":[null]}`,
			expected: nil,
		},
		{
			name:     "null message decodes as a zero message",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[null]}}]}]}`,
			expected: []string{""},
		},
		{
			name:     "non messages field is ignored",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"statuses","value":{"messages":[{"id":"a"}]}}]}]}`,
			expected: nil,
		},
		{
			name:     "only first message of a change",
			raw:      `{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[{"id":"a"},{"id":"b"}]}}]}]}`,
			expected: []string{"a"},
		},
		{
			name: "first message of every change across entries",
			raw: `{"object":"whatsapp_business_account","entry":[
				{"changes":[{"field":"messages","value":{"messages":[{"id":"a"}]}},{"field":"messages","value":{"messages":[{"id":"b"},{"id":"x"}]}}]},
				{"changes":[{"field":"messages","value":{"messages":[{"id":"c"}]}}]}]}`,
			expected: []string{"a", "b", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			payload := decodePayload(t, tt.raw)

			var ids []string
			for msg := range payload.EligibleMessages() {
				ids = append(ids, msg.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestEligibleMessages_StopsEarly(t *testing.T) {
	t.Parallel()
	payload := decodePayload(t, `{"entry":[{"changes":[
		{"field":"messages","value":{"messages":[{"id":"a"}]}},
		{"field":"messages","value":{"messages":[{"id":"b"}]}}]}]}`)

	var ids []string
	for msg := range payload.EligibleMessages() {
		ids = append(ids, msg.ID)
		break
	}
	assert.Equal(t, []string{"a"}, ids)
}

func TestEligibleMessages_NilPayload(t *testing.T) {
	t.Parallel()
	var payload *NotificationPayload
	assert.Empty(t, slices.Collect(payload.EligibleMessages()))
	assert.False(t, payload.IsWhatsAppBusinessAccount())
}

func TestInboundMessage_TextBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		msg    InboundMessage
		body   string
		isText bool
	}{
		{name: "text message", msg: InboundMessage{Type: "text", Text: &TextContent{Body: "Hi"}}, body: "Hi", isText: true},
		{name: "missing text", msg: InboundMessage{Type: "text"}},
		{name: "empty body", msg: InboundMessage{Type: "text", Text: &TextContent{}}},
		{name: "image message", msg: InboundMessage{Type: "image", Text: &TextContent{Body: "caption"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			body, ok := tt.msg.TextBody()
			assert.Equal(t, tt.isText, ok)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestContactName(t *testing.T) {
	t.Parallel()
	payload := decodePayload(t, `{"entry":[{"changes":[{"field":"messages","value":{
		"contacts":[{"wa_id":"15551234567","profile":{"name":"Ada"}}],
		"messages":[{"from":"15551234567"}]}}]}]}`)

	assert.Equal(t, "Ada", payload.ContactName("15551234567"))
	assert.Empty(t, payload.ContactName("1"))
}

func TestNewTemplateMessage(t *testing.T) {
	t.Parallel()
	body, err := json.Marshal(NewTemplateMessage("15551234567", "toxic_survey"))
	require.NoError(t, err)

	expected := `{
		"messaging_product": "whatsapp",
		"recipient_type": "individual",
		"to": "15551234567",
		"type": "template",
		"template": {"name": "toxic_survey", "language": {"code": "en_US"}, "components": []}
	}`
	assert.JSONEq(t, expected, string(body))
}

func TestSendResponse_MessageIDs(t *testing.T) {
	t.Parallel()
	var resp SendResponse
	require.NoError(t, json.Unmarshal([]byte(`{"messaging_product":"whatsapp","contacts":[{"input":"1","wa_id":"1"}],"messages":[{"id":"wamid.1"}]}`), &resp))
	assert.Equal(t, []string{"wamid.1"}, resp.MessageIDs())

	var nilResp *SendResponse
	assert.Nil(t, nilResp.MessageIDs())
}

func TestNewSendResponse(t *testing.T) {
	t.Parallel()
	body, err := json.Marshal(NewSendResponse("15551234567", "wamid.1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"messaging_product":"whatsapp","contacts":[{"input":"15551234567","wa_id":"15551234567"}],"messages":[{"id":"wamid.1"}]}`, string(body))
}

func TestDecode_ToleratesUnexpectedFieldTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		entryID    string
		value      string
		message    string
		expectedID string
	}{
		{
			name:       "numeric entry id",
			entryID:    `123`,
			value:      `"metadata":{"phone_number_id":"42"}`,
			message:    `"id":"wamid.1","timestamp":"1700000000"`,
			expectedID: "wamid.1",
		},
		{
			name:       "metadata is a string",
			entryID:    `"WABA"`,
			value:      `"metadata":"x"`,
			message:    `"id":"wamid.1"`,
			expectedID: "wamid.1",
		},
		{
			name:       "statuses and contacts are objects",
			entryID:    `"WABA"`,
			value:      `"statuses":{},"contacts":{"wa_id":"1"},"messaging_product":7`,
			message:    `"id":"wamid.1"`,
			expectedID: "wamid.1",
		},
		{
			name:       "numeric timestamp and id",
			entryID:    `"WABA"`,
			value:      `"metadata":{}`,
			message:    `"id":99,"timestamp":1700000000`,
			expectedID: "99",
		},
		{
			name:       "id is an object",
			entryID:    `{}`,
			value:      `"metadata":[]`,
			message:    `"id":{"v":1},"timestamp":true`,
			expectedID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := `{"object":"whatsapp_business_account","entry":[{"id":` + tt.entryID +
				`,"changes":[{"field":"messages","value":{` + tt.value +
				`,"messages":[{"from":"15551234567","type":"text","text":{"body":"I'm interested in the Purif"},` + tt.message + `}]}}]}]}`
			payload := decodePayload(t, raw)

			msgs := slices.Collect(payload.EligibleMessages())
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.expectedID, msgs[0].ID)
			assert.Equal(t, "15551234567", msgs[0].From)
			body, ok := msgs[0].TextBody()
			assert.True(t, ok)
			assert.Equal(t, "I'm interested in the Purif", body)
		})
	}
}

func TestDecode_KeepsWellFormedOptionalFields(t *testing.T) {
	t.Parallel()
	payload := decodePayload(t, `{"object":"whatsapp_business_account","entry":[{"id":"WABA","changes":[{"field":"messages","value":{
		"messaging_product":"whatsapp",
		"metadata":{"display_phone_number":"15550000000","phone_number_id":"42"},
		"contacts":[{"wa_id":"15551234567","profile":{"name":"Ana"}}],
		"messages":[{"from":"15551234567","id":"wamid.1","timestamp":1700000000,"type":"text","text":{"body":"hi"}}]}}]}]}`)

	value := payload.Entry[0].Changes[0].Value
	assert.Equal(t, "WABA", payload.Entry[0].ID)
	assert.Equal(t, "whatsapp", value.MessagingProduct)
	assert.Equal(t, "42", value.Metadata.PhoneNumberID)
	assert.Equal(t, "1700000000", value.Messages[0].Timestamp)
	assert.Equal(t, "Ana", payload.ContactName("15551234567"))
}

func TestDecode_MalformedMessageFails(t *testing.T) {
	t.Parallel()
	var payload NotificationPayload
	err := json.Unmarshal([]byte(`{"object":"whatsapp_business_account","entry":[{"changes":[{"field":"messages","value":{"messages":[{"from":1,"type":"text"}]}}]}]}`), &payload)
	require.Error(t, err)
}
