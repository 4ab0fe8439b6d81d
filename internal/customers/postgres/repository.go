// Package postgres provides the PostgreSQL implementation of the customer store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feldgrau/accountd/internal/customers"
	"github.com/feldgrau/accountd/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository implements the customers.Store interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const customerColumns = `id, email, password, role, refresh_token, code, email_confirm, created_at, updated_at, deleted_at`

// Create inserts a new customer and fills in the generated id and timestamps.
func (r *Repository) Create(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (email, password, role, refresh_token, code, email_confirm)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		customer.Email,
		customer.Password,
		customer.Role,
		customer.RefreshToken,
		customer.Code,
		customer.EmailConfirm,
	).Scan(&customer.ID, &customer.CreatedAt, &customer.UpdatedAt)

	if err != nil {
		if mapped := mapUniqueViolation(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

// GetByID retrieves a customer by id.
func (r *Repository) GetByID(ctx context.Context, id string, f customers.Filter) (*domain.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE id = $1`, customerColumns)
	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return r.queryOne(ctx, query, id)
}

// GetByEmail retrieves a customer by email.
func (r *Repository) GetByEmail(ctx context.Context, email string, f customers.Filter) (*domain.Customer, error) {
	query := fmt.Sprintf(`SELECT %s FROM customers WHERE email = $1`, customerColumns)
	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	return r.queryOne(ctx, query, email)
}

func (r *Repository) queryOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	var c domain.Customer
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.Email,
		&c.Password,
		&c.Role,
		&c.RefreshToken,
		&c.Code,
		&c.EmailConfirm,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customers.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &c, nil
}

// List retrieves a page of customers ordered by creation time, newest first.
func (r *Repository) List(ctx context.Context, q customers.ListQuery) ([]domain.Customer, error) {
	where, args := buildWhere(q)
	query := fmt.Sprintf(`
		SELECT %s FROM customers
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, customerColumns, where, len(args)+1, len(args)+2)
	args = append(args, q.Limit, q.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID,
			&c.Email,
			&c.Password,
			&c.Role,
			&c.RefreshToken,
			&c.Code,
			&c.EmailConfirm,
			&c.CreatedAt,
			&c.UpdatedAt,
			&c.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return result, nil
}

// Count returns the number of customers matching the query.
func (r *Repository) Count(ctx context.Context, q customers.ListQuery) (int, error) {
	where, args := buildWhere(q)
	query := `SELECT COUNT(*) FROM customers ` + where

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}

// buildWhere assembles the filter clause shared by List and Count. A search
// term matches id and email as case-insensitive substrings; the literal
// values ADMIN and USER additionally match the role.
func buildWhere(q customers.ListQuery) (string, []any) {
	var conds []string
	var args []any

	if !q.IncludeDeleted {
		conds = append(conds, "deleted_at IS NULL")
	}

	if q.SearchTerm != "" {
		pattern := "%" + q.SearchTerm + "%"
		args = append(args, pattern)
		search := fmt.Sprintf("(id::text ILIKE $%d OR email ILIKE $%d", len(args), len(args))
		if role := domain.Role(q.SearchTerm); domain.ValidRole(role) {
			args = append(args, role)
			search += fmt.Sprintf(" OR role = $%d", len(args))
		}
		search += ")"
		conds = append(conds, search)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Update applies the patch and returns the updated customer.
func (r *Repository) Update(ctx context.Context, id string, patch customers.Patch, f customers.Filter) (*domain.Customer, error) {
	var sets []string
	var args []any

	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Password != nil {
		set("password", *patch.Password)
	}
	if patch.Role != nil {
		set("role", *patch.Role)
	}
	if patch.RefreshToken != nil {
		set("refresh_token", *patch.RefreshToken)
	}
	if patch.Code != nil {
		set("code", *patch.Code)
	}
	if patch.ClearCode {
		sets = append(sets, "code = NULL")
	}
	if patch.EmailConfirm != nil {
		set("email_confirm", *patch.EmailConfirm)
	}
	if patch.DeletedAt != nil {
		set("deleted_at", *patch.DeletedAt)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id, f)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE customers
		SET %s
		WHERE id = $%d
	`, strings.Join(sets, ", "), len(args))
	if !f.IncludeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += fmt.Sprintf(" RETURNING %s", customerColumns)

	var c domain.Customer
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&c.ID,
		&c.Email,
		&c.Password,
		&c.Role,
		&c.RefreshToken,
		&c.Code,
		&c.EmailConfirm,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customers.ErrCustomerNotFound
		}
		if mapped := mapUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return &c, nil
}

// Delete removes the row outright. Callers wanting soft deletion must go
// through customers.SoftDeleteRepository.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return customers.ErrCustomerNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case "customers_email_live_idx":
		return customers.ErrEmailExists
	case "customers_code_live_idx":
		return customers.ErrCodeExists
	}
	return nil
}
