package http

import (
	"context"

	"cclens/internal/complaints"
	"cclens/internal/services"
)

// DatasetServiceInterface defines the interface for dataset lifecycle operations
type DatasetServiceInterface interface {
	// Status describes the resident dataset; it never fails
	Status(ctx context.Context) services.DatasetStatus

	// Reload re-reads the source and swaps the dataset in place
	Reload(ctx context.Context, trigger string) (*complaints.Dataset, error)
}
