package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

type faceDescriptorRepository struct {
	db *database.DB
}

func NewFaceDescriptorRepository(db *database.DB) face.DescriptorRepository {
	return &faceDescriptorRepository{db: db}
}

// ListByCompany implements face.DescriptorRepository.
func (r *faceDescriptorRepository) ListByCompany(ctx context.Context, companyID string) ([]face.Descriptor, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, employee_id, embedding, updated_at
		FROM face_descriptors
		WHERE company_id = $1
		ORDER BY employee_id
	`

	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query face descriptors: %w", err)
	}
	defer rows.Close()

	var descriptors []face.Descriptor
	for rows.Next() {
		var d face.Descriptor
		var vec pgvector.Vector
		if err := rows.Scan(&d.CompanyID, &d.EmployeeID, &vec, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan face descriptor: %w", err)
		}
		d.Embedding = vec.Slice()
		descriptors = append(descriptors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate face descriptors: %w", err)
	}

	return descriptors, nil
}

// GetByEmployee implements face.DescriptorRepository.
func (r *faceDescriptorRepository) GetByEmployee(ctx context.Context, companyID string, employeeID string) (face.Descriptor, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT company_id, employee_id, embedding, updated_at
		FROM face_descriptors
		WHERE company_id = $1 AND employee_id = $2
	`

	var d face.Descriptor
	var vec pgvector.Vector
	err := q.QueryRow(ctx, query, companyID, employeeID).Scan(&d.CompanyID, &d.EmployeeID, &vec, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return face.Descriptor{}, face.ErrDescriptorNotFound
		}
		return face.Descriptor{}, fmt.Errorf("failed to get face descriptor: %w", err)
	}
	d.Embedding = vec.Slice()

	return d, nil
}

// Upsert implements face.DescriptorRepository.
// Re-enrollment replaces the vector in a single statement.
func (r *faceDescriptorRepository) Upsert(ctx context.Context, d face.Descriptor) (face.Descriptor, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO face_descriptors (company_id, employee_id, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (company_id, employee_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = NOW()
		RETURNING updated_at
	`

	saved := d
	err := q.QueryRow(ctx, query, d.CompanyID, d.EmployeeID, pgvector.NewVector(d.Embedding)).Scan(&saved.UpdatedAt)
	if err != nil {
		return face.Descriptor{}, fmt.Errorf("failed to upsert face descriptor: %w", err)
	}

	return saved, nil
}

// Delete implements face.DescriptorRepository.
func (r *faceDescriptorRepository) Delete(ctx context.Context, companyID string, employeeID string) error {
	q := GetQuerier(ctx, r.db)

	query := `DELETE FROM face_descriptors WHERE company_id = $1 AND employee_id = $2`

	commandTag, err := q.Exec(ctx, query, companyID, employeeID)
	if err != nil {
		return fmt.Errorf("failed to delete face descriptor: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return face.ErrDescriptorNotFound
	}

	return nil
}
