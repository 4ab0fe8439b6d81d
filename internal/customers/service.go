package customers

import (
	"context"
	"fmt"
	"math"

	"github.com/feldgrau/accountd/internal/domain"
	"github.com/feldgrau/accountd/internal/pkg/ctxlog"
)

// Default page size when the caller does not set a limit.
const DefaultLimit = 50

// TailOffset requests the last page: the offset is recomputed from the
// total count so the newest window of size limit is returned.
const TailOffset = -1

// Service implements customer query and administration logic.
type Service struct {
	repo Store
}

// NewService creates a new customer service.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// FetchInput holds pagination and search arguments for listing customers.
type FetchInput struct {
	Limit      int
	Offset     int
	SearchTerm string
}

// Page is one window of the customer listing plus pagination metadata.
type Page struct {
	TotalCount  int
	TotalPages  int
	CurrentPage int
	NextPage    bool
	Customers   []domain.Customer
}

// UpdateInput holds the admin-editable customer fields. Nil fields are
// left unchanged.
type UpdateInput struct {
	Email *string
	Role  *domain.Role
}

// FetchCustomers returns a page of customers ordered newest first,
// optionally narrowed by a search term.
func (s *Service) FetchCustomers(ctx context.Context, input FetchInput) (*Page, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := input.Offset
	if offset < TailOffset {
		return nil, fmt.Errorf("%w: offset must be -1 or greater", ErrInvalidInput)
	}

	query := ListQuery{SearchTerm: input.SearchTerm, Limit: limit}

	count, err := s.repo.Count(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	// An offset of -1 selects the last window of the listing.
	if offset == TailOffset {
		offset = max(count-limit, 0)
	}
	query.Offset = offset

	items, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	page := &Page{
		TotalCount:  count,
		TotalPages:  int(math.Ceil(float64(count) / float64(limit))),
		CurrentPage: offset/limit + 1,
		NextPage:    offset+limit < count,
		Customers:   items,
	}

	return page, nil
}

// CustomerByID returns a single live customer.
func (s *Service) CustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.repo.GetByID(ctx, id, Filter{})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// UpdateCustomer applies admin edits and returns the updated customer.
func (s *Service) UpdateCustomer(ctx context.Context, id string, input UpdateInput) (*domain.Customer, error) {
	if input.Role != nil && !domain.ValidRole(*input.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *input.Role)
	}

	patch := Patch{Email: input.Email, Role: input.Role}
	if patch.Empty() {
		return s.CustomerByID(ctx, id)
	}

	customer, err := s.repo.Update(ctx, id, patch, Filter{})
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("customer updated", "customer_id", id)
	return customer, nil
}

// SoftDeleteCustomerByID marks the customer as deleted and returns its
// last live state.
func (s *Service) SoftDeleteCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.CustomerByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete customer: %w", err)
	}

	ctxlog.FromContext(ctx).Info("customer deleted", "customer_id", id)
	return customer, nil
}
