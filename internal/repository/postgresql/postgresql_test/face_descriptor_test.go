package postgresql_test

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/repository/postgresql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newID(t *testing.T) string {
	t.Helper()
	id, err := uuid.NewV7()
	require.NoError(t, err)
	return id.String()
}

func embedding(seed float32) []float32 {
	v := make([]float32, 128)
	for i := range v {
		v[i] = seed + float32(i)/1000
	}
	return v
}

func TestFaceDescriptorRepository_UpsertReplaces(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewFaceDescriptorRepository(setup.DB)

	companyID, employeeID := newID(t), newID(t)

	_, err := repo.Upsert(ctx, face.Descriptor{CompanyID: companyID, EmployeeID: employeeID, Embedding: embedding(0.1)})
	require.NoError(t, err)
	second, err := repo.Upsert(ctx, face.Descriptor{CompanyID: companyID, EmployeeID: employeeID, Embedding: embedding(0.5)})
	require.NoError(t, err)

	got, err := repo.GetByEmployee(ctx, companyID, employeeID)
	require.NoError(t, err)
	assert.InDeltaSlice(t, embedding(0.5), got.Embedding, 1e-6)
	assert.WithinDuration(t, second.UpdatedAt, got.UpdatedAt, 0)

	all, err := repo.ListByCompany(ctx, companyID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFaceDescriptorRepository_ScopedByCompany(t *testing.T) {
	setup := NewTestDatabase(t)
	ctx := context.Background()
	repo := postgresql.NewFaceDescriptorRepository(setup.DB)

	companyA, companyB, employeeID := newID(t), newID(t), newID(t)
	_, err := repo.Upsert(ctx, face.Descriptor{CompanyID: companyA, EmployeeID: employeeID, Embedding: embedding(0.2)})
	require.NoError(t, err)

	_, err = repo.GetByEmployee(ctx, companyB, employeeID)
	assert.ErrorIs(t, err, face.ErrDescriptorNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, companyB, employeeID), face.ErrDescriptorNotFound)
	require.NoError(t, repo.Delete(ctx, companyA, employeeID))

	_, err = repo.GetByEmployee(ctx, companyA, employeeID)
	assert.ErrorIs(t, err, face.ErrDescriptorNotFound)
}
