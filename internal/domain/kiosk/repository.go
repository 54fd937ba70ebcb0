package kiosk

import (
	"context"
	"time"
)

type DeviceRepository interface {
	Create(ctx context.Context, device Device) (Device, error)

	// GetByID is used by device login, so it is not scoped to a company
	GetByID(ctx context.Context, id string) (Device, error)

	ListByCompany(ctx context.Context, companyID string) ([]Device, error)

	TouchLogin(ctx context.Context, id string, at time.Time) error

	Revoke(ctx context.Context, id string, companyID string, at time.Time) error

	// ListRevokedIDs spans all companies; it seeds the token revocation set.
	ListRevokedIDs(ctx context.Context) ([]string, error)
}
