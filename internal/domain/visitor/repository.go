package visitor

import (
	"context"
	"time"
)

type CaptureRepository interface {
	Create(ctx context.Context, capture Capture) (Capture, error)

	List(ctx context.Context, filter CaptureFilter, companyID string) ([]Capture, int64, error)

	// ListBefore returns up to limit captures older than cutoff across all companies
	ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]Capture, error)

	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}
