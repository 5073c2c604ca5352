package analysis

// Request is what the transport sent upstream for one analysis
type Request struct {
	Model         string `json:"model"`
	MaxPromptSize int    `json:"max_prompt_size"`
	Prompt        string `json:"prompt"`
}

// Record pairs the outbound request with the parsed upstream response
type Record struct {
	Request  Request   `json:"request"`
	Response *Response `json:"response"`
}

// Exchange is one captured HTTP request/response pair handed over by the host
type Exchange struct {
	Method          string              `json:"method"`
	URL             string              `json:"url"`
	RequestHeaders  map[string][]string `json:"request_headers,omitempty"`
	RequestBody     string              `json:"request_body,omitempty"`
	StatusCode      int                 `json:"status_code,omitempty"`
	ResponseHeaders map[string][]string `json:"response_headers,omitempty"`
	ResponseBody    string              `json:"response_body,omitempty"`
}
