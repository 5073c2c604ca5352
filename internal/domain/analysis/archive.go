package analysis

import "context"

// Archive port for keeping raw upstream payloads next to the findings built from them
type Archive interface {
	PutJSON(ctx context.Context, key string, payload any) (string, error)
}
