package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/kiosk"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type kioskDeviceRepository struct {
	db *database.DB
}

func NewKioskDeviceRepository(db *database.DB) kiosk.DeviceRepository {
	return &kioskDeviceRepository{db: db}
}

// Create implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) Create(ctx context.Context, device kiosk.Device) (kiosk.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO kiosk_devices (id, company_id, name, secret_hash, created_at)
		VALUES (uuidv7(), $1, $2, $3, NOW())
		RETURNING id, created_at
	`

	created := device
	if err := q.QueryRow(ctx, query, device.CompanyID, device.Name, device.SecretHash).Scan(&created.ID, &created.CreatedAt); err != nil {
		return kiosk.Device{}, fmt.Errorf("failed to create kiosk device: %w", err)
	}

	return created, nil
}

// GetByID implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) GetByID(ctx context.Context, id string) (kiosk.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name, secret_hash, created_at, last_login_at, revoked_at
		FROM kiosk_devices
		WHERE id = $1
	`

	var d kiosk.Device
	err := q.QueryRow(ctx, query, id).Scan(&d.ID, &d.CompanyID, &d.Name, &d.SecretHash, &d.CreatedAt, &d.LastLoginAt, &d.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kiosk.Device{}, kiosk.ErrDeviceNotFound
		}
		return kiosk.Device{}, fmt.Errorf("failed to get kiosk device: %w", err)
	}

	return d, nil
}

// ListByCompany implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) ListByCompany(ctx context.Context, companyID string) ([]kiosk.Device, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name, secret_hash, created_at, last_login_at, revoked_at
		FROM kiosk_devices
		WHERE company_id = $1
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query kiosk devices: %w", err)
	}
	defer rows.Close()

	var devices []kiosk.Device
	for rows.Next() {
		var d kiosk.Device
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Name, &d.SecretHash, &d.CreatedAt, &d.LastLoginAt, &d.RevokedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kiosk device: %w", err)
		}
		devices = append(devices, d)
	}

	return devices, nil
}

// TouchLogin implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `UPDATE kiosk_devices SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to update kiosk login time: %w", err)
	}
	return nil
}

// Revoke implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) Revoke(ctx context.Context, id string, companyID string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE kiosk_devices
		SET revoked_at = COALESCE(revoked_at, $3)
		WHERE id = $1 AND company_id = $2
	`

	commandTag, err := q.Exec(ctx, query, id, companyID, at)
	if err != nil {
		return fmt.Errorf("failed to revoke kiosk device: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return kiosk.ErrDeviceNotFound
	}

	return nil
}

// ListRevokedIDs implements kiosk.DeviceRepository.
func (r *kioskDeviceRepository) ListRevokedIDs(ctx context.Context) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT id FROM kiosk_devices WHERE revoked_at IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("failed to query revoked kiosk devices: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan revoked kiosk device: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read revoked kiosk devices: %w", err)
	}

	return ids, nil
}
