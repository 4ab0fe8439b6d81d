package graph

import (
	"context"

	"github.com/feldgrau/accountd/internal/domain"
	"github.com/feldgrau/accountd/internal/pkg/ctxlog"
	"github.com/feldgrau/accountd/internal/pkg/httputil"
)

// scope says which kind of bearer token an operation demands.
type scope int

const (
	// scopePublic operations run without any token.
	scopePublic scope = iota
	// scopeProtected operations require a valid access token.
	scopeProtected
	// scopeRefresh operations require a valid refresh token.
	scopeRefresh
)

// rule is the access requirement of one operation. An empty Roles slice
// admits every authenticated caller.
type rule struct {
	Scope scope
	Roles []domain.Role
}

// aclRules maps every schema operation to its access rule. An operation
// missing from this table is a programming error and is rejected.
var aclRules = map[string]rule{
	"signUp":                {Scope: scopePublic},
	"signIn":                {Scope: scopePublic},
	"confirmActivationCode": {Scope: scopePublic},
	"getNewTokens":          {Scope: scopeRefresh},
	"logOut":                {Scope: scopeProtected},
	"customer":              {Scope: scopeProtected},
	"customers":             {Scope: scopeProtected},
	"updateCustomer":        {Scope: scopeProtected, Roles: []domain.Role{domain.RoleAdmin}},
	"deleteCustomer":        {Scope: scopeProtected, Roles: []domain.Role{domain.RoleAdmin}},
}

// authorize enforces the rule for one operation. On success the returned
// context carries the authenticated caller.
func (r *Resolver) authorize(ctx context.Context, operation string) (context.Context, error) {
	rl, ok := aclRules[operation]
	if !ok {
		return nil, newAPIError(CodeForbidden, "operation not permitted")
	}

	if rl.Scope == scopePublic {
		return ctx, nil
	}

	token := httputil.BearerToken(ctx)
	if token == "" {
		return nil, errUnauthenticated
	}

	var (
		userID string
		role   domain.Role
	)
	switch rl.Scope {
	case scopeProtected:
		claims, err := r.identity.ValidateAccessToken(ctx, token)
		if err != nil {
			return nil, newAPIError(CodeUnauthorized, "invalid or expired token")
		}
		userID, role = claims.UserID, claims.Role
	case scopeRefresh:
		claims, err := r.identity.ValidateRefreshToken(ctx, token)
		if err != nil {
			return nil, newAPIError(CodeUnauthorized, "invalid or expired token")
		}
		userID, role = claims.UserID, claims.Role
	}

	if len(rl.Roles) > 0 && !roleAllowed(role, rl.Roles) {
		return nil, newAPIError(CodeForbidden, "insufficient permissions")
	}

	// Later failure logs for this operation identify the caller.
	ctx = ctxlog.With(ctx, "customer_id", userID, "role", string(role))
	return httputil.WithCaller(ctx, userID), nil
}

func roleAllowed(role domain.Role, allowed []domain.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
