package face

import (
	"context"
)

// DescriptorRepository persists at most one descriptor per (company, employee).
type DescriptorRepository interface {
	// ListByCompany returns every stored descriptor of the company. Rows are
	// returned as stored; callers decide what to do with malformed vectors.
	ListByCompany(ctx context.Context, companyID string) ([]Descriptor, error)

	GetByEmployee(ctx context.Context, companyID string, employeeID string) (Descriptor, error)

	// Upsert inserts or replaces the employee's descriptor in one statement
	Upsert(ctx context.Context, descriptor Descriptor) (Descriptor, error)

	Delete(ctx context.Context, companyID string, employeeID string) error
}
