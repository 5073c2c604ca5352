package findings

import "context"

// Repository port for persisting and querying findings
type Repository interface {
	Save(ctx context.Context, f *Finding) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Finding, error)
	ByLocation(ctx context.Context, tenant, location string, limit int) ([]*Finding, error)
}
