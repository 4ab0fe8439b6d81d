// Package graph exposes the account API over GraphQL.
package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"

	"github.com/feldgrau/accountd/internal/customers"
	"github.com/feldgrau/accountd/internal/domain"
	"github.com/feldgrau/accountd/internal/identity"
	"github.com/feldgrau/accountd/internal/identity/jwt"
	"github.com/feldgrau/accountd/internal/pkg/ctxlog"
	"github.com/feldgrau/accountd/internal/pkg/httputil"
	"github.com/feldgrau/accountd/internal/pkg/metrics"
)

// IdentityService is the slice of the identity service the resolvers use.
type IdentityService interface {
	SignUp(ctx context.Context, input identity.SignUpInput) (*identity.AuthResult, error)
	SignIn(ctx context.Context, input identity.SignInInput) (*identity.AuthResult, error)
	ConfirmActivationCode(ctx context.Context, email string, code int) (*domain.Customer, error)
	GetNewTokens(ctx context.Context, refreshToken string) (*identity.AuthResult, error)
	Logout(ctx context.Context, customerID string) error
	ValidateAccessToken(ctx context.Context, token string) (*jwt.Claims, error)
	ValidateRefreshToken(ctx context.Context, token string) (*jwt.Claims, error)
}

// CustomerService is the slice of the customer service the resolvers use.
type CustomerService interface {
	FetchCustomers(ctx context.Context, input customers.FetchInput) (*customers.Page, error)
	CustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, input customers.UpdateInput) (*domain.Customer, error)
	SoftDeleteCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
}

// Resolver wires the services into the schema.
type Resolver struct {
	identity  IdentityService
	customers CustomerService
}

// NewResolver creates a resolver.
func NewResolver(identitySvc IdentityService, customerSvc CustomerService) *Resolver {
	return &Resolver{identity: identitySvc, customers: customerSvc}
}

type resolveFunc func(p graphql.ResolveParams) (interface{}, error)

// operation wraps a resolver with access control, error translation, and
// latency metrics.
func (r *Resolver) operation(name string, fn resolveFunc) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		start := time.Now()

		ctx, err := r.authorize(p.Context, name)
		var out interface{}
		if err == nil {
			p.Context = ctx
			out, err = fn(p)
		}

		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.GraphQLOperationDuration.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())

		if err != nil {
			ctxlog.FromContext(p.Context).Warn("operation failed",
				"operation", name,
				"error", err,
			)
			return nil, translate(err)
		}
		return out, nil
	}
}

func (r *Resolver) resolveSignUp(p graphql.ResolveParams) (interface{}, error) {
	input := inputMap(p, "input")

	signUp := identity.SignUpInput{
		Email:    stringArg(input, "email"),
		Password: stringArg(input, "password"),
	}
	if role, ok := input["role"].(string); ok {
		signUp.Role = domain.Role(role)
	}

	result, err := r.identity.SignUp(p.Context, signUp)
	if err != nil {
		return nil, err
	}
	return authPayload(result), nil
}

func (r *Resolver) resolveSignIn(p graphql.ResolveParams) (interface{}, error) {
	input := inputMap(p, "input")

	result, err := r.identity.SignIn(p.Context, identity.SignInInput{
		Email:    stringArg(input, "email"),
		Password: stringArg(input, "password"),
	})
	if err != nil {
		return nil, err
	}
	return authPayload(result), nil
}

func (r *Resolver) resolveConfirmActivationCode(p graphql.ResolveParams) (interface{}, error) {
	input := inputMap(p, "input")
	code, _ := input["code"].(int)

	customer, err := r.identity.ConfirmActivationCode(p.Context, stringArg(input, "email"), code)
	if err != nil {
		return nil, err
	}
	return customerPayload(customer), nil
}

func (r *Resolver) resolveGetNewTokens(p graphql.ResolveParams) (interface{}, error) {
	result, err := r.identity.GetNewTokens(p.Context, httputil.BearerToken(p.Context))
	if err != nil {
		return nil, err
	}
	return authPayload(result), nil
}

func (r *Resolver) resolveLogOut(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p)
	if err != nil {
		return nil, err
	}
	if err := r.identity.Logout(p.Context, id); err != nil {
		return nil, err
	}
	return map[string]interface{}{"loggedOut": true}, nil
}

func (r *Resolver) resolveCustomers(p graphql.ResolveParams) (interface{}, error) {
	pagination, _ := p.Args["paginationArgs"].(map[string]interface{})
	fetch := customers.FetchInput{}
	if limit, ok := pagination["limit"].(int); ok {
		fetch.Limit = limit
	}
	if offset, ok := pagination["offset"].(int); ok {
		fetch.Offset = offset
	}
	if searchBy, ok := p.Args["searchBy"].(map[string]interface{}); ok {
		fetch.SearchTerm = stringArg(searchBy, "searchTerm")
	}

	page, err := r.customers.FetchCustomers(p.Context, fetch)
	if err != nil {
		return nil, err
	}

	items := make([]interface{}, 0, len(page.Customers))
	for i := range page.Customers {
		items = append(items, customerPayload(&page.Customers[i]))
	}

	return map[string]interface{}{
		"totalCount":  page.TotalCount,
		"totalPages":  page.TotalPages,
		"currentPage": page.CurrentPage,
		"nextPage":    page.NextPage,
		"customers":   items,
	}, nil
}

// resolveCustomer returns the authenticated caller's own record.
func (r *Resolver) resolveCustomer(p graphql.ResolveParams) (interface{}, error) {
	customer, err := r.customers.CustomerByID(p.Context, httputil.GetCustomerID(p.Context))
	if err != nil {
		return nil, err
	}
	return customerPayload(customer), nil
}

func (r *Resolver) resolveUpdateCustomer(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p)
	if err != nil {
		return nil, err
	}
	input := inputMap(p, "input")

	update := customers.UpdateInput{}
	if email, ok := input["email"].(string); ok {
		update.Email = &email
	}
	if role, ok := input["role"].(string); ok {
		newRole := domain.Role(role)
		update.Role = &newRole
	}

	customer, err := r.customers.UpdateCustomer(p.Context, id, update)
	if err != nil {
		return nil, err
	}
	return customerPayload(customer), nil
}

func (r *Resolver) resolveDeleteCustomer(p graphql.ResolveParams) (interface{}, error) {
	id, err := idArg(p)
	if err != nil {
		return nil, err
	}

	customer, err := r.customers.SoftDeleteCustomerByID(p.Context, id)
	if err != nil {
		return nil, err
	}
	return customerPayload(customer), nil
}

// idArg extracts and validates the id argument. Rejecting malformed ids here
// keeps storage cast errors out of client responses.
func idArg(p graphql.ResolveParams) (string, error) {
	raw, _ := p.Args["id"].(string)
	if _, err := uuid.Parse(raw); err != nil {
		return "", newAPIError(CodeBadRequest, "invalid customer id")
	}
	return raw, nil
}

func inputMap(p graphql.ResolveParams, name string) map[string]interface{} {
	if m, ok := p.Args[name].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func stringArg(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func customerPayload(c *domain.Customer) map[string]interface{} {
	return map[string]interface{}{
		"id":           c.ID,
		"email":        c.Email,
		"role":         string(c.Role),
		"code":         c.Code,
		"emailConfirm": c.EmailConfirm,
		"createdAt":    c.CreatedAt,
	}
}

func authPayload(result *identity.AuthResult) map[string]interface{} {
	return map[string]interface{}{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"customer":     customerPayload(result.Customer),
	}
}
