package ports

import (
	"context"

	"pdlens/domain/dataset"
)

// DatasetReader loads a feature matrix with labels from an external source.
type DatasetReader interface {
	ReadDataset(ctx context.Context) (*dataset.Dataset, error)
}
