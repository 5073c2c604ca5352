package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const unknownAPIError = "Unknown API error"

// Response is the normalized upstream answer. It covers both the legacy
// completion schema (choices[].text) and the chat schema (choices[].message).
type Response struct {
	Choices []Choice  `json:"choices"`
	Model   string    `json:"model,omitempty"`
	ID      string    `json:"id,omitempty"`
	Created int64     `json:"created,omitempty"`
	Usage   *Usage    `json:"usage,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// Choice is one candidate answer
type Choice struct {
	Text         *string  `json:"text,omitempty"`
	Message      *Message `json:"message,omitempty"`
	Index        int      `json:"index"`
	FinishReason string   `json:"finish_reason,omitempty"`
}

// Message is the chat-style payload of a choice
type Message struct {
	Role    string  `json:"role"`
	Content *string `json:"content,omitempty"`
}

// Usage token accounting, informational only
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// APIError error object returned by the upstream service
type APIError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

// EffectiveText returns message.content when present, otherwise the flat text field.
func (c Choice) EffectiveText() (string, bool) {
	if c.Message != nil && c.Message.Content != nil {
		return *c.Message.Content, true
	}
	if c.Text != nil {
		return *c.Text, true
	}
	return "", false
}

// HasError reports whether the upstream sent an error object
func (r *Response) HasError() bool {
	return r != nil && r.Error != nil
}

// ErrorMessage never returns an empty string.
func (r *Response) ErrorMessage() string {
	if r != nil && r.Error != nil && r.Error.Message != "" {
		return r.Error.Message
	}
	return unknownAPIError
}

// ChoiceTexts returns the effective text of every choice in upstream order
func (r *Response) ChoiceTexts() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		t, _ := c.EffectiveText()
		out = append(out, t)
	}
	return out
}

// DecodeJSON parses raw upstream bytes and normalizes them.
func DecodeJSON(b []byte) (*Response, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return Decode(payload)
}

// Decode normalizes a payload already decoded into any. Only a non-object
// payload is an error; missing or mistyped optional fields are zero values.
func Decode(payload any) (*Response, error) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrDecode, payload)
	}

	r := &Response{
		Model:   stringField(obj, "model"),
		ID:      stringField(obj, "id"),
		Created: intField(obj, "created"),
	}

	if arr, ok := obj["choices"].([]any); ok {
		r.Choices = make([]Choice, 0, len(arr))
		for _, it := range arr {
			r.Choices = append(r.Choices, decodeChoice(it))
		}
	}

	if u, ok := obj["usage"].(map[string]any); ok {
		r.Usage = &Usage{
			PromptTokens:     intField(u, "prompt_tokens"),
			CompletionTokens: intField(u, "completion_tokens"),
			TotalTokens:      intField(u, "total_tokens"),
		}
	}

	if e, ok := obj["error"].(map[string]any); ok {
		r.Error = &APIError{
			Message: stringField(e, "message"),
			Type:    stringField(e, "type"),
			Code:    stringField(e, "code"),
		}
	}

	return r, nil
}

func decodeChoice(v any) Choice {
	m, ok := v.(map[string]any)
	if !ok {
		// keep the slot so indexes still line up with upstream order
		return Choice{}
	}
	c := Choice{
		Text:         optString(m, "text"),
		Index:        int(intField(m, "index")),
		FinishReason: stringField(m, "finish_reason"),
	}
	if msg, ok := m["message"].(map[string]any); ok {
		c.Message = &Message{
			Role:    stringField(msg, "role"),
			Content: optString(msg, "content"),
		}
	}
	return c
}

func optString(m map[string]any, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		// some providers send numeric error codes
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func intField(m map[string]any, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
