package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_ChatSchema(t *testing.T) {
	r, err := DecodeJSON([]byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"created": 1700000000,
		"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "XSS in q"}}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "chatcmpl-1", r.ID)
	assert.Equal(t, "gpt-4o", r.Model)
	assert.Equal(t, int64(1700000000), r.Created)
	require.Len(t, r.Choices, 1)
	assert.Equal(t, "stop", r.Choices[0].FinishReason)
	assert.Equal(t, "assistant", r.Choices[0].Message.Role)
	require.NotNil(t, r.Usage)
	assert.Equal(t, int64(15), r.Usage.TotalTokens)
	assert.False(t, r.HasError())
}

func TestDecodeJSON_CompletionSchema(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"choices":[{"text":"SQL injection risk in parameter id","index":0}]}`))
	require.NoError(t, err)

	require.Len(t, r.Choices, 1)
	assert.Nil(t, r.Choices[0].Message)
	text, ok := r.Choices[0].EffectiveText()
	assert.True(t, ok)
	assert.Equal(t, "SQL injection risk in parameter id", text)
}

func TestDecode_NonObjectFails(t *testing.T) {
	for _, payload := range []any{nil, "text", []any{1, 2}, float64(3)} {
		_, err := Decode(payload)
		assert.ErrorIs(t, err, ErrDecode, "payload %v", payload)
	}

	_, err := DecodeJSON([]byte(`not json`))
	assert.ErrorIs(t, err, ErrDecode)

	_, err = DecodeJSON([]byte(`[]`))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecode_ToleratesMissingAndMistypedFields(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"choices": [42, {"message": "oops", "text": 7}], "usage": "n/a", "created": "soon"}`))
	require.NoError(t, err)

	require.Len(t, r.Choices, 2)
	_, ok := r.Choices[0].EffectiveText()
	assert.False(t, ok)
	assert.Nil(t, r.Choices[1].Message)
	assert.Nil(t, r.Choices[1].Text)
	assert.Nil(t, r.Usage)
	assert.Zero(t, r.Created)
}

func TestDecode_FromUnmarshalledAny(t *testing.T) {
	var payload any
	require.NoError(t, json.Unmarshal([]byte(`{"created": 12, "choices":[{"index": 2, "text": "a"}]}`), &payload))

	r, err := Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, int64(12), r.Created)
	assert.Equal(t, 2, r.Choices[0].Index)
}

func TestEffectiveText_ChatWinsOverCompletion(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"choices":[{"text":"flat","message":{"role":"assistant","content":"chat"}}]}`))
	require.NoError(t, err)

	text, ok := r.Choices[0].EffectiveText()
	assert.True(t, ok)
	assert.Equal(t, "chat", text)
}

func TestEffectiveText_NullContentFallsBackToText(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"choices":[{"text":"flat","message":{"role":"assistant","content":null}}]}`))
	require.NoError(t, err)

	text, ok := r.Choices[0].EffectiveText()
	assert.True(t, ok)
	assert.Equal(t, "flat", text)
}

func TestHasErrorAndErrorMessage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		hasErr  bool
		message string
	}{
		{"no error", `{}`, false, unknownAPIError},
		{"with message", `{"error":{"message":"invalid_api_key","type":"invalid_request_error","code":"invalid_api_key"}}`, true, "invalid_api_key"},
		{"without message", `{"error":{"type":"server_error"}}`, true, unknownAPIError},
		{"empty message", `{"error":{"message":""}}`, true, unknownAPIError},
		{"error and choices", `{"error":{"message":"partial"},"choices":[{"text":"x"}]}`, true, "partial"},
		{"numeric code", `{"error":{"message":"m","code":429}}`, true, "m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := DecodeJSON([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.hasErr, r.HasError())
			assert.Equal(t, tt.message, r.ErrorMessage())
			assert.NotEmpty(t, r.ErrorMessage())
		})
	}
}

func TestErrorCodeNumberIsStringified(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"error":{"message":"m","code":429}}`))
	require.NoError(t, err)
	assert.Equal(t, "429", r.Error.Code)
}

func TestChoiceTexts(t *testing.T) {
	r, err := DecodeJSON([]byte(`{"choices":[{"text":"one"},{"message":{"role":"assistant","content":"two"}},{}]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"one", "two", ""}, r.ChoiceTexts())

	var nilResp *Response
	assert.Nil(t, nilResp.ChoiceTexts())
	assert.False(t, nilResp.HasError())
}
