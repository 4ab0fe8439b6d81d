package customers

import (
	"context"
	"time"

	"github.com/feldgrau/accountd/internal/domain"
)

// Store defines raw customer persistence operations. Implementations do not
// interpret soft deletion beyond honoring the filters they are given; wrap a
// Store in SoftDeleteRepository to get the deletion semantics services rely on.
type Store interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string, f Filter) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string, f Filter) (*domain.Customer, error)
	List(ctx context.Context, q ListQuery) ([]domain.Customer, error)
	Count(ctx context.Context, q ListQuery) (int, error)
	Update(ctx context.Context, id string, patch Patch, f Filter) (*domain.Customer, error)
	Delete(ctx context.Context, id string) error
}

// Filter narrows single-row lookups.
type Filter struct {
	IncludeDeleted bool
}

// ListQuery describes a customer listing.
type ListQuery struct {
	// SearchTerm matches id and email case-insensitively as substrings.
	// The exact values "ADMIN" and "USER" additionally match the role.
	SearchTerm     string
	Limit          int
	Offset         int
	IncludeDeleted bool
}

// Patch contains the fields to change on a customer. Nil fields are left
// untouched; ClearCode nulls out the activation code.
type Patch struct {
	Email        *string
	Password     *string
	Role         *domain.Role
	RefreshToken *string
	Code         *int
	ClearCode    bool
	EmailConfirm *bool
	DeletedAt    *time.Time
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Email == nil && p.Password == nil && p.Role == nil &&
		p.RefreshToken == nil && p.Code == nil && !p.ClearCode &&
		p.EmailConfirm == nil && p.DeletedAt == nil
}
