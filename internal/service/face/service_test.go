package face

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func operatorContext(t *testing.T, companyID string) context.Context {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	token, _, err := tokenAuth.Encode(map[string]interface{}{
		"user_id":    "user-1",
		"company_id": companyID,
		"role":       "manager",
		"type":       "access",
	})
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func newTestFaceService(rows ...face.Descriptor) (face.Service, *StoreRegistry, *memoryRepo) {
	cfg := testConfig()
	repo := newMemoryRepo(rows...)
	registry := NewStoreRegistry(repo, cfg.EmbeddingDim)
	enroller := NewEnroller(&scriptedDetector{}, registry, cfg)
	return NewFaceService(repo, enroller, registry, cfg), registry, repo
}

func TestFaceService_GetStatus(t *testing.T) {
	enrolled := face.Descriptor{CompanyID: testCompany, EmployeeID: "emp-a", Embedding: vec(4, 0, 1)}
	svc, registry, _ := newTestFaceService(enrolled)
	ctx := operatorContext(t, testCompany)

	status, err := svc.GetStatus(ctx, "emp-b")
	require.NoError(t, err)
	assert.False(t, status.Enrolled)
	assert.Nil(t, status.UpdatedAt)

	status, err = svc.GetStatus(ctx, "emp-a")
	require.NoError(t, err)
	assert.True(t, status.Enrolled)
	assert.False(t, status.Live, "no kiosk session holds the company store yet")

	_, err = registry.Acquire(context.Background(), testCompany)
	require.NoError(t, err)
	defer registry.Release(testCompany)

	status, err = svc.GetStatus(ctx, "emp-a")
	require.NoError(t, err)
	assert.True(t, status.Live)
}

func TestFaceService_DeleteEvictsLiveStore(t *testing.T) {
	enrolled := face.Descriptor{CompanyID: testCompany, EmployeeID: "emp-a", Embedding: vec(4, 0, 1)}
	svc, registry, repo := newTestFaceService(enrolled)
	ctx := operatorContext(t, testCompany)

	store, err := registry.Acquire(context.Background(), testCompany)
	require.NoError(t, err)
	defer registry.Release(testCompany)
	require.True(t, store.HasEnrollment("emp-a"))

	require.NoError(t, svc.Delete(ctx, "emp-a"))
	assert.False(t, store.HasEnrollment("emp-a"))

	_, err = repo.GetByEmployee(context.Background(), testCompany, "emp-a")
	assert.ErrorIs(t, err, face.ErrDescriptorNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "emp-a"), face.ErrDescriptorNotFound)
}

func TestFaceService_RequiresCompanyClaim(t *testing.T) {
	svc, _, _ := newTestFaceService()

	_, err := svc.GetStatus(context.Background(), "emp-a")
	assert.Error(t, err)
	assert.Error(t, svc.Delete(context.Background(), "emp-a"))
}
