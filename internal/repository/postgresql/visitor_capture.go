package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/visitor"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/pgvector/pgvector-go"
)

type visitorCaptureRepository struct {
	db *database.DB
}

func NewVisitorCaptureRepository(db *database.DB) visitor.CaptureRepository {
	return &visitorCaptureRepository{db: db}
}

// Create implements visitor.CaptureRepository.
func (r *visitorCaptureRepository) Create(ctx context.Context, capture visitor.Capture) (visitor.Capture, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO visitor_captures (id, company_id, kiosk_id, descriptor, snapshot_key, captured_at)
		VALUES (uuidv7(), $1, $2, $3, $4, $5)
		RETURNING id
	`

	created := capture
	err := q.QueryRow(ctx, query,
		capture.CompanyID,
		capture.KioskID,
		pgvector.NewVector(capture.Descriptor),
		capture.SnapshotKey,
		capture.CapturedAt,
	).Scan(&created.ID)
	if err != nil {
		return visitor.Capture{}, fmt.Errorf("failed to create visitor capture: %w", err)
	}

	return created, nil
}

// List implements visitor.CaptureRepository. Descriptors are not loaded.
func (r *visitorCaptureRepository) List(ctx context.Context, filter visitor.CaptureFilter, companyID string) ([]visitor.Capture, int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "company_id = $1"
	args := []interface{}{companyID}
	argIdx := 2

	if filter.KioskID != nil && *filter.KioskID != "" {
		baseWhere += fmt.Sprintf(" AND kiosk_id = $%d", argIdx)
		args = append(args, *filter.KioskID)
		argIdx++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND captured_at >= $%d::date", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND captured_at < $%d::date + 1", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM visitor_captures WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count visitor captures: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT id, company_id, kiosk_id, snapshot_key, captured_at
		FROM visitor_captures
		WHERE %s
		ORDER BY captured_at DESC
		LIMIT $%d OFFSET $%d
	`, baseWhere, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	args = append(args, limit, (filter.Page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query visitor captures: %w", err)
	}
	defer rows.Close()

	var captures []visitor.Capture
	for rows.Next() {
		var c visitor.Capture
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.KioskID, &c.SnapshotKey, &c.CapturedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan visitor capture: %w", err)
		}
		captures = append(captures, c)
	}

	return captures, total, nil
}

// ListBefore implements visitor.CaptureRepository.
func (r *visitorCaptureRepository) ListBefore(ctx context.Context, cutoff time.Time, limit int) ([]visitor.Capture, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, kiosk_id, snapshot_key, captured_at
		FROM visitor_captures
		WHERE captured_at < $1
		ORDER BY captured_at
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query expired visitor captures: %w", err)
	}
	defer rows.Close()

	var captures []visitor.Capture
	for rows.Next() {
		var c visitor.Capture
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.KioskID, &c.SnapshotKey, &c.CapturedAt); err != nil {
			return nil, fmt.Errorf("failed to scan visitor capture: %w", err)
		}
		captures = append(captures, c)
	}

	return captures, nil
}

// DeleteByIDs implements visitor.CaptureRepository.
func (r *visitorCaptureRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := GetQuerier(ctx, r.db)

	commandTag, err := q.Exec(ctx, `DELETE FROM visitor_captures WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete visitor captures: %w", err)
	}

	return commandTag.RowsAffected(), nil
}
