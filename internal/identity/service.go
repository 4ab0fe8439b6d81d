// Package identity implements sign-up, sign-in, activation, and token
// lifecycle for customer accounts.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"

	"github.com/feldgrau/accountd/internal/customers"
	"github.com/feldgrau/accountd/internal/domain"
	"github.com/feldgrau/accountd/internal/identity/jwt"
	"github.com/feldgrau/accountd/internal/pkg/ctxlog"
	"github.com/feldgrau/accountd/internal/pkg/metrics"
	"github.com/feldgrau/accountd/internal/pkg/passwd"
)

// Activation codes are six digits.
const (
	codeMin  = 100000
	codeSpan = 900000
)

// How many times sign-up retries a colliding activation code before
// giving up.
const maxCodeAttempts = 5

// ErrInvalidInput is returned when request arguments fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Repository is the slice of the customer store the identity flows need.
// The soft-delete wrapper satisfies it, so deleted accounts are invisible
// to every flow here.
type Repository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string, f customers.Filter) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string, f customers.Filter) (*domain.Customer, error)
	Update(ctx context.Context, id string, patch customers.Patch, f customers.Filter) (*domain.Customer, error)
}

// TokenManager issues and validates token pairs.
type TokenManager interface {
	Issue(customer *domain.Customer) (*jwt.Pair, error)
	ValidateAccess(token string) (*jwt.Claims, error)
	ValidateRefresh(token string) (*jwt.Claims, error)
}

// CodeSender delivers activation codes to customers.
type CodeSender interface {
	SendActivationCode(ctx context.Context, toEmail string, code int) error
}

// Service implements the authentication flows.
type Service struct {
	repo     Repository
	tokens   TokenManager
	mailer   CodeSender
	validate *validator.Validate
}

// NewService creates a new identity service.
func NewService(repo Repository, tokens TokenManager, mailer CodeSender) *Service {
	return &Service{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		validate: validator.New(),
	}
}

// SignUpInput holds registration data. The role defaults to USER.
type SignUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,alphanum"`
	Role     domain.Role
}

// SignInInput holds login credentials.
type SignInInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// AuthResult is a token pair together with the authenticated customer.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Customer     *domain.Customer
}

// SignUp registers a new customer, stores the hashed refresh token, and
// mails the activation code. Email delivery is best effort; a failed send
// does not fail the registration.
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*AuthResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	if _, err := s.repo.GetByEmail(ctx, input.Email, customers.Filter{}); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, customers.ErrCustomerNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := passwd.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	customer, err := s.createWithFreshCode(ctx, input.Email, hashed, role)
	if err != nil {
		return nil, err
	}

	result, err := s.issueAndStore(ctx, customer, "signup")
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendActivationCode(ctx, customer.Email, *customer.Code); err != nil {
		ctxlog.FromContext(ctx).Error("send activation code",
			"customer_id", customer.ID,
			"error", err,
		)
	}

	ctxlog.FromContext(ctx).Info("customer signed up", "customer_id", customer.ID)
	return result, nil
}

// createWithFreshCode inserts the customer, regenerating the activation
// code when the unique constraint reports a collision with a live account.
func (s *Service) createWithFreshCode(ctx context.Context, email, hashedPassword string, role domain.Role) (*domain.Customer, error) {
	for attempt := 1; ; attempt++ {
		code, err := generateActivationCode()
		if err != nil {
			return nil, fmt.Errorf("generate activation code: %w", err)
		}

		customer := &domain.Customer{
			Email:    email,
			Password: hashedPassword,
			Role:     role,
			Code:     &code,
		}

		err = s.repo.Create(ctx, customer)
		if err == nil {
			return customer, nil
		}
		if errors.Is(err, customers.ErrEmailExists) {
			return nil, ErrEmailExists
		}
		if errors.Is(err, customers.ErrCodeExists) && attempt < maxCodeAttempts {
			continue
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
}

// SignIn authenticates a customer and rotates the stored refresh token.
func (s *Service) SignIn(ctx context.Context, input SignInInput) (*AuthResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	customer, err := s.repo.GetByEmail(ctx, input.Email, customers.Filter{})
	if err != nil {
		if errors.Is(err, customers.ErrCustomerNotFound) {
			metrics.AuthFailures.WithLabelValues("unknown_email").Inc()
			return nil, ErrEmailNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	match, err := passwd.Verify(input.Password, customer.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !match {
		metrics.AuthFailures.WithLabelValues("bad_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	if !customer.EmailConfirm {
		metrics.AuthFailures.WithLabelValues("not_activated").Inc()
		return nil, ErrEmailNotConfirmed
	}

	result, err := s.issueAndStore(ctx, customer, "signin")
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("customer signed in", "customer_id", customer.ID)
	return result, nil
}

// ConfirmActivationCode marks the account as confirmed and retires the
// code when the email and code pair matches a live customer.
func (s *Service) ConfirmActivationCode(ctx context.Context, email string, code int) (*domain.Customer, error) {
	customer, err := s.repo.GetByEmail(ctx, email, customers.Filter{})
	if err != nil {
		if errors.Is(err, customers.ErrCustomerNotFound) {
			return nil, ErrActivationNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer.Code == nil || *customer.Code != code {
		return nil, ErrActivationNotFound
	}

	confirmed := true
	updated, err := s.repo.Update(ctx, customer.ID, customers.Patch{EmailConfirm: &confirmed, ClearCode: true}, customers.Filter{})
	if err != nil {
		return nil, fmt.Errorf("confirm activation: %w", err)
	}

	ctxlog.FromContext(ctx).Info("customer activated", "customer_id", customer.ID)
	return updated, nil
}

// GetNewTokens exchanges a valid refresh token for a fresh pair and
// rotates the stored hash. Any mismatch yields ErrAccessDenied without
// further detail.
func (s *Service) GetNewTokens(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return nil, ErrAccessDenied
	}

	customer, err := s.repo.GetByID(ctx, claims.UserID, customers.Filter{})
	if err != nil {
		if errors.Is(err, customers.ErrCustomerNotFound) {
			metrics.AuthFailures.WithLabelValues("refresh_denied").Inc()
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if customer.RefreshToken == "" {
		metrics.AuthFailures.WithLabelValues("refresh_denied").Inc()
		return nil, ErrAccessDenied
	}

	match, err := passwd.Verify(refreshToken, customer.RefreshToken)
	if err != nil || !match {
		metrics.AuthFailures.WithLabelValues("refresh_denied").Inc()
		return nil, ErrAccessDenied
	}

	result, err := s.issueAndStore(ctx, customer, "refresh")
	if err != nil {
		return nil, err
	}

	ctxlog.FromContext(ctx).Info("tokens refreshed", "customer_id", customer.ID)
	return result, nil
}

// Logout clears the stored refresh token. Logging out an already
// logged-out or unknown customer is not an error.
func (s *Service) Logout(ctx context.Context, customerID string) error {
	cleared := ""
	_, err := s.repo.Update(ctx, customerID, customers.Patch{RefreshToken: &cleared}, customers.Filter{})
	if err != nil && !errors.Is(err, customers.ErrCustomerNotFound) {
		return fmt.Errorf("logout: %w", err)
	}

	ctxlog.FromContext(ctx).Info("customer logged out", "customer_id", customerID)
	return nil
}

// ValidateAccessToken verifies a bearer access token for protected
// operations.
func (s *Service) ValidateAccessToken(_ context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.ValidateAccess(token)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_access").Inc()
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateRefreshToken verifies a bearer refresh token for the token
// renewal operation.
func (s *Service) ValidateRefreshToken(_ context.Context, token string) (*jwt.Claims, error) {
	claims, err := s.tokens.ValidateRefresh(token)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("invalid_refresh").Inc()
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// issueAndStore creates a token pair and persists the hashed refresh token.
func (s *Service) issueAndStore(ctx context.Context, customer *domain.Customer, trigger string) (*AuthResult, error) {
	pair, err := s.tokens.Issue(customer)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	hashedRefresh, err := passwd.Hash(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	updated, err := s.repo.Update(ctx, customer.ID, customers.Patch{RefreshToken: &hashedRefresh}, customers.Filter{})
	if err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	metrics.TokensIssued.WithLabelValues(trigger).Inc()
	return &AuthResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Customer:     updated,
	}, nil
}

// generateActivationCode draws a random six digit code.
func generateActivationCode() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return 0, err
	}
	return codeMin + int(n.Int64()), nil
}
