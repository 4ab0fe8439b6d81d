package customers

import (
	"context"
	"time"

	"github.com/feldgrau/accountd/internal/domain"
)

// SoftDeleteRepository wraps a Store and rewrites deletion as an update that
// stamps deleted_at. All reads through the wrapper exclude deleted rows, so
// callers above it never observe a deleted customer and cannot remove a row
// for good.
type SoftDeleteRepository struct {
	store Store
	now   func() time.Time
}

// NewSoftDeleteRepository wraps the given store.
func NewSoftDeleteRepository(store Store) *SoftDeleteRepository {
	return &SoftDeleteRepository{store: store, now: time.Now}
}

func (r *SoftDeleteRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.store.Create(ctx, customer)
}

func (r *SoftDeleteRepository) GetByID(ctx context.Context, id string, _ Filter) (*domain.Customer, error) {
	return r.store.GetByID(ctx, id, Filter{})
}

func (r *SoftDeleteRepository) GetByEmail(ctx context.Context, email string, _ Filter) (*domain.Customer, error) {
	return r.store.GetByEmail(ctx, email, Filter{})
}

func (r *SoftDeleteRepository) List(ctx context.Context, q ListQuery) ([]domain.Customer, error) {
	q.IncludeDeleted = false
	return r.store.List(ctx, q)
}

func (r *SoftDeleteRepository) Count(ctx context.Context, q ListQuery) (int, error) {
	q.IncludeDeleted = false
	return r.store.Count(ctx, q)
}

func (r *SoftDeleteRepository) Update(ctx context.Context, id string, patch Patch, _ Filter) (*domain.Customer, error) {
	return r.store.Update(ctx, id, patch, Filter{})
}

// Delete marks the customer as deleted instead of removing the row.
func (r *SoftDeleteRepository) Delete(ctx context.Context, id string) error {
	deletedAt := r.now()
	_, err := r.store.Update(ctx, id, Patch{DeletedAt: &deletedAt}, Filter{})
	return err
}
