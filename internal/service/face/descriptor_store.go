package face

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/cmlabs-hris/hris-face-attendance/internal/pkg/metrics"
)

// DescriptorStore is the in-memory descriptor set of one company.
// Writes go to the repository first and are visible to readers before they return.
type DescriptorStore struct {
	repo face.DescriptorRepository
	dim  int

	mu          sync.RWMutex
	companyID   string
	initialized bool
	byEmployee  map[string]face.Descriptor
	// Bumped by every cache write; a reload that raced a write is discarded.
	generation uint64
}

const maxReloadAttempts = 3

func NewDescriptorStore(repo face.DescriptorRepository, dim int) *DescriptorStore {
	return &DescriptorStore{
		repo:       repo,
		dim:        dim,
		byEmployee: make(map[string]face.Descriptor),
	}
}

// Init loads every descriptor of the company, replacing whatever was cached.
// When the cache is written while rows are loading, the load is retried so
// the write is not lost.
func (s *DescriptorStore) Init(ctx context.Context, companyID string) error {
	for attempt := 1; attempt <= maxReloadAttempts; attempt++ {
		s.mu.RLock()
		generation := s.generation
		s.mu.RUnlock()

		loaded, err := s.load(ctx, companyID)
		if err != nil {
			return err
		}

		s.mu.Lock()
		if s.generation != generation {
			s.mu.Unlock()
			slog.Debug("Descriptor store written during reload, retrying", "company_id", companyID, "attempt", attempt)
			continue
		}
		s.companyID = companyID
		s.byEmployee = loaded
		s.initialized = true
		s.generation++
		s.mu.Unlock()

		metrics.CachedDescriptors.WithLabelValues(companyID).Set(float64(len(loaded)))
		slog.Info("Descriptor store loaded", "company_id", companyID, "count", len(loaded))
		return nil
	}
	return face.ErrStoreBusy
}

// Refresh reloads the company the store was initialized for.
func (s *DescriptorStore) Refresh(ctx context.Context) error {
	s.mu.RLock()
	companyID, ok := s.companyID, s.initialized
	s.mu.RUnlock()
	if !ok {
		return face.ErrStoreNotInitialized
	}
	return s.Init(ctx, companyID)
}

// Clear drops the cache. The store must be initialized again before use.
func (s *DescriptorStore) Clear() {
	s.mu.Lock()
	companyID := s.companyID
	s.byEmployee = make(map[string]face.Descriptor)
	s.initialized = false
	s.companyID = ""
	s.generation++
	s.mu.Unlock()

	if companyID != "" {
		metrics.CachedDescriptors.DeleteLabelValues(companyID)
	}
}

func (s *DescriptorStore) load(ctx context.Context, companyID string) (map[string]face.Descriptor, error) {
	rows, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}

	loaded := make(map[string]face.Descriptor, len(rows))
	for _, d := range rows {
		if !wellFormed(d.Embedding, s.dim) {
			slog.Warn("Skipping malformed face descriptor",
				"company_id", companyID,
				"employee_id", d.EmployeeID,
				"length", len(d.Embedding),
				"expected", s.dim,
			)
			continue
		}
		loaded[d.EmployeeID] = d
	}
	return loaded, nil
}

// Upsert persists the descriptor and updates the cache.
func (s *DescriptorStore) Upsert(ctx context.Context, d face.Descriptor) (face.Descriptor, error) {
	if !wellFormed(d.Embedding, s.dim) {
		return face.Descriptor{}, face.ErrInvalidDescriptor
	}
	saved, err := s.repo.Upsert(ctx, d)
	if err != nil {
		return face.Descriptor{}, fmt.Errorf("failed to save descriptor: %w", err)
	}
	s.Put(saved)
	return saved, nil
}

// Delete removes the descriptor from the repository and the cache.
func (s *DescriptorStore) Delete(ctx context.Context, employeeID string) error {
	s.mu.RLock()
	companyID := s.companyID
	s.mu.RUnlock()

	if err := s.repo.Delete(ctx, companyID, employeeID); err != nil {
		return err
	}
	s.Remove(employeeID)
	return nil
}

// Put updates the cache only. Descriptors of another company are ignored.
func (s *DescriptorStore) Put(d face.Descriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || d.CompanyID != s.companyID {
		return
	}
	s.byEmployee[d.EmployeeID] = d
	s.generation++
	metrics.CachedDescriptors.WithLabelValues(s.companyID).Set(float64(len(s.byEmployee)))
}

// Remove drops one employee from the cache only.
func (s *DescriptorStore) Remove(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byEmployee, employeeID)
	s.generation++
	if s.initialized {
		metrics.CachedDescriptors.WithLabelValues(s.companyID).Set(float64(len(s.byEmployee)))
	}
}

func (s *DescriptorStore) HasEnrollment(employeeID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmployee[employeeID]
	return ok
}

func (s *DescriptorStore) Get(employeeID string) (face.Descriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byEmployee[employeeID]
	return d, ok
}

// Snapshot returns a copy of the cached descriptors ordered by employee ID.
func (s *DescriptorStore) Snapshot() []face.Descriptor {
	s.mu.RLock()
	out := make([]face.Descriptor, 0, len(s.byEmployee))
	for _, d := range s.byEmployee {
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func (s *DescriptorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmployee)
}

func (s *DescriptorStore) CompanyID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.companyID
}

// StoreRegistry shares one DescriptorStore per company between kiosk sessions
// and the enrollment paths. Stores are reference counted and cleared when the
// last session releases them.
type StoreRegistry struct {
	repo face.DescriptorRepository
	dim  int

	mu     sync.Mutex
	stores map[string]*registeredStore
}

type registeredStore struct {
	store *DescriptorStore
	refs  int
}

func NewStoreRegistry(repo face.DescriptorRepository, dim int) *StoreRegistry {
	return &StoreRegistry{
		repo:   repo,
		dim:    dim,
		stores: make(map[string]*registeredStore),
	}
}

// Acquire returns the company's store, loading it on first use.
func (r *StoreRegistry) Acquire(ctx context.Context, companyID string) (*DescriptorStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rs, ok := r.stores[companyID]; ok {
		rs.refs++
		return rs.store, nil
	}

	store := NewDescriptorStore(r.repo, r.dim)
	if err := store.Init(ctx, companyID); err != nil {
		return nil, err
	}
	r.stores[companyID] = &registeredStore{store: store, refs: 1}
	return store, nil
}

// Release gives back a store obtained from Acquire.
func (r *StoreRegistry) Release(companyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.stores[companyID]
	if !ok {
		return
	}
	rs.refs--
	if rs.refs <= 0 {
		rs.store.Clear()
		delete(r.stores, companyID)
	}
}

// Lookup returns the live store of a company without taking a reference.
func (r *StoreRegistry) Lookup(companyID string) (*DescriptorStore, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rs, ok := r.stores[companyID]
	if !ok {
		return nil, false
	}
	return rs.store, true
}

// Save persists a descriptor and updates the live store of its company, if any.
func (r *StoreRegistry) Save(ctx context.Context, d face.Descriptor) (face.Descriptor, error) {
	if !wellFormed(d.Embedding, r.dim) {
		return face.Descriptor{}, face.ErrInvalidDescriptor
	}
	saved, err := r.repo.Upsert(ctx, d)
	if err != nil {
		return face.Descriptor{}, fmt.Errorf("failed to save descriptor: %w", err)
	}
	if store, ok := r.Lookup(d.CompanyID); ok {
		store.Put(saved)
	}
	return saved, nil
}

// Remove deletes a descriptor and evicts it from the live store of its company, if any.
func (r *StoreRegistry) Remove(ctx context.Context, companyID string, employeeID string) error {
	if err := r.repo.Delete(ctx, companyID, employeeID); err != nil {
		return err
	}
	if store, ok := r.Lookup(companyID); ok {
		store.Remove(employeeID)
	}
	return nil
}

// RefreshAll reloads every live store from the repository. It picks up
// descriptors written by other processes such as the CLI.
func (r *StoreRegistry) RefreshAll(ctx context.Context) error {
	r.mu.Lock()
	stores := make([]*DescriptorStore, 0, len(r.stores))
	for _, rs := range r.stores {
		stores = append(stores, rs.store)
	}
	r.mu.Unlock()

	var failed int
	for _, store := range stores {
		err := store.Refresh(ctx)
		if errors.Is(err, face.ErrStoreNotInitialized) {
			continue
		}
		if err != nil {
			failed++
			slog.Error("Failed to refresh descriptor store", "company_id", store.CompanyID(), "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to refresh %d of %d descriptor stores", failed, len(stores))
	}
	return nil
}
