package analysis

import "context"

// Analyzer is the transport port. The raw payload is the upstream body decoded into any.
// A non-nil error is a transport failure; upstream error bodies come back as payload.
type Analyzer interface {
	IdentifyVulnerabilities(ctx context.Context, ex *Exchange) (Request, any, error)
}
