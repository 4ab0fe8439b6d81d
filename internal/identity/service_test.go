package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feldgrau/accountd/internal/customers"
	"github.com/feldgrau/accountd/internal/domain"
	"github.com/feldgrau/accountd/internal/identity/jwt"
	"github.com/feldgrau/accountd/internal/pkg/passwd"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	byID      map[string]*domain.Customer
	createErr []error
	creates   int
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: make(map[string]*domain.Customer)}
}

func (m *mockRepository) Create(_ context.Context, customer *domain.Customer) error {
	m.creates++
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if err != nil {
			return err
		}
	}
	customer.ID = fmt.Sprintf("customer-%d", len(m.byID)+1)
	m.byID[customer.ID] = customer
	return nil
}

func (m *mockRepository) GetByID(_ context.Context, id string, _ customers.Filter) (*domain.Customer, error) {
	if c, ok := m.byID[id]; ok {
		return c, nil
	}
	return nil, customers.ErrCustomerNotFound
}

func (m *mockRepository) GetByEmail(_ context.Context, email string, _ customers.Filter) (*domain.Customer, error) {
	for _, c := range m.byID {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, customers.ErrCustomerNotFound
}

func (m *mockRepository) Update(_ context.Context, id string, patch customers.Patch, _ customers.Filter) (*domain.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customers.ErrCustomerNotFound
	}
	if patch.RefreshToken != nil {
		c.RefreshToken = *patch.RefreshToken
	}
	if patch.EmailConfirm != nil {
		c.EmailConfirm = *patch.EmailConfirm
	}
	if patch.ClearCode {
		c.Code = nil
	}
	return c, nil
}

// mockTokens implements TokenManager for testing.
type mockTokens struct {
	issued int
}

func (m *mockTokens) Issue(customer *domain.Customer) (*jwt.Pair, error) {
	m.issued++
	return &jwt.Pair{
		AccessToken:  fmt.Sprintf("access-%d", m.issued),
		RefreshToken: fmt.Sprintf("refresh-%d", m.issued),
	}, nil
}

func (m *mockTokens) ValidateAccess(token string) (*jwt.Claims, error) {
	return nil, jwt.ErrInvalidToken
}

func (m *mockTokens) ValidateRefresh(token string) (*jwt.Claims, error) {
	return nil, jwt.ErrInvalidToken
}

// refreshTokens is a TokenManager whose refresh validation succeeds for a
// fixed customer.
type refreshTokens struct {
	mockTokens
	userID string
	err    error
}

func (m *refreshTokens) ValidateRefresh(token string) (*jwt.Claims, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &jwt.Claims{UserID: m.userID}, nil
}

// mockMailer implements CodeSender for testing.
type mockMailer struct {
	sendErr  error
	sent     []int
	lastMail string
}

func (m *mockMailer) SendActivationCode(_ context.Context, toEmail string, code int) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, code)
	m.lastMail = toEmail
	return nil
}

func TestSignUp(t *testing.T) {
	repo := newMockRepository()
	mailer := &mockMailer{}
	svc := NewService(repo, &mockTokens{}, mailer)

	result, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "new@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, "access-1", result.AccessToken)
	assert.Equal(t, "refresh-1", result.RefreshToken)
	assert.Equal(t, domain.RoleUser, result.Customer.Role)
	assert.False(t, result.Customer.EmailConfirm)
	require.NotNil(t, result.Customer.Code)
	assert.GreaterOrEqual(t, *result.Customer.Code, 100000)
	assert.LessOrEqual(t, *result.Customer.Code, 999999)

	// The stored refresh token is a hash, never the raw token.
	assert.NotEqual(t, result.RefreshToken, result.Customer.RefreshToken)
	match, err := passwd.Verify(result.RefreshToken, result.Customer.RefreshToken)
	require.NoError(t, err)
	assert.True(t, match)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, *result.Customer.Code, mailer.sent[0])
	assert.Equal(t, "new@example.com", mailer.lastMail)
}

func TestSignUp_SucceedsDespiteMailFailure(t *testing.T) {
	repo := newMockRepository()
	mailer := &mockMailer{sendErr: errors.New("smtp down")}
	svc := NewService(repo, &mockTokens{}, mailer)

	result, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "new@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	repo.byID["customer-1"] = &domain.Customer{ID: "customer-1", Email: "taken@example.com"}
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "taken@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestSignUp_Validation(t *testing.T) {
	svc := NewService(newMockRepository(), &mockTokens{}, &mockMailer{})

	tests := []struct {
		name  string
		input SignUpInput
	}{
		{name: "missing email", input: SignUpInput{Password: "secret123"}},
		{name: "malformed email", input: SignUpInput{Email: "not-an-email", Password: "secret123"}},
		{name: "missing password", input: SignUpInput{Email: "a@example.com"}},
		{name: "non alphanumeric password", input: SignUpInput{Email: "a@example.com", Password: "has spaces"}},
		{name: "unknown role", input: SignUpInput{Email: "a@example.com", Password: "secret123", Role: "ROOT"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SignUp(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSignUp_RetriesCodeCollision(t *testing.T) {
	repo := newMockRepository()
	repo.createErr = []error{customers.ErrCodeExists, customers.ErrCodeExists}
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "new@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.creates)
}

func TestSignUp_CodeCollisionCap(t *testing.T) {
	repo := newMockRepository()
	for i := 0; i < maxCodeAttempts; i++ {
		repo.createErr = append(repo.createErr, customers.ErrCodeExists)
	}
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.SignUp(context.Background(), SignUpInput{
		Email:    "new@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	assert.Equal(t, maxCodeAttempts, repo.creates)
}

func seedConfirmedCustomer(t *testing.T, repo *mockRepository, password string) *domain.Customer {
	t.Helper()
	hashed, err := passwd.Hash(password)
	require.NoError(t, err)
	code := 123456
	customer := &domain.Customer{
		ID:           "customer-1",
		Email:        "user@example.com",
		Password:     hashed,
		Role:         domain.RoleUser,
		Code:         &code,
		EmailConfirm: true,
	}
	repo.byID[customer.ID] = customer
	return customer
}

func TestSignIn(t *testing.T) {
	repo := newMockRepository()
	seedConfirmedCustomer(t, repo, "secret123")
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	result, err := svc.SignIn(context.Background(), SignInInput{
		Email:    "user@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
}

func TestSignIn_UnknownEmail(t *testing.T) {
	svc := NewService(newMockRepository(), &mockTokens{}, &mockMailer{})

	_, err := svc.SignIn(context.Background(), SignInInput{
		Email:    "ghost@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailNotFound)
}

func TestSignIn_WrongPassword(t *testing.T) {
	repo := newMockRepository()
	seedConfirmedCustomer(t, repo, "secret123")
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.SignIn(context.Background(), SignInInput{
		Email:    "user@example.com",
		Password: "wrongpass",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignIn_NotActivated(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")
	customer.EmailConfirm = false
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.SignIn(context.Background(), SignInInput{
		Email:    "user@example.com",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailNotConfirmed)
}

func TestConfirmActivationCode(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")
	customer.EmailConfirm = false
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	updated, err := svc.ConfirmActivationCode(context.Background(), "user@example.com", 123456)
	require.NoError(t, err)
	assert.True(t, updated.EmailConfirm)
	assert.Nil(t, updated.Code)
}

func TestConfirmActivationCode_Mismatch(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")
	customer.EmailConfirm = false
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	_, err := svc.ConfirmActivationCode(context.Background(), "user@example.com", 654321)
	assert.ErrorIs(t, err, ErrActivationNotFound)

	_, err = svc.ConfirmActivationCode(context.Background(), "ghost@example.com", 123456)
	assert.ErrorIs(t, err, ErrActivationNotFound)

	// A retired code never matches again.
	customer.Code = nil
	_, err = svc.ConfirmActivationCode(context.Background(), "user@example.com", 123456)
	assert.ErrorIs(t, err, ErrActivationNotFound)
}

func TestGetNewTokens_RotatesStoredHash(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")
	tokens := &refreshTokens{userID: customer.ID}
	svc := NewService(repo, tokens, &mockMailer{})

	raw := "refresh-0"
	hashed, err := passwd.Hash(raw)
	require.NoError(t, err)
	customer.RefreshToken = hashed

	result, err := svc.GetNewTokens(context.Background(), raw)
	require.NoError(t, err)
	assert.NotEqual(t, raw, result.RefreshToken)

	// The old token no longer matches the stored hash.
	match, err := passwd.Verify(raw, customer.RefreshToken)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestGetNewTokens_Denied(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")

	t.Run("invalid token", func(t *testing.T) {
		svc := NewService(repo, &refreshTokens{err: jwt.ErrInvalidToken}, &mockMailer{})
		_, err := svc.GetNewTokens(context.Background(), "garbage")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("unknown customer", func(t *testing.T) {
		svc := NewService(repo, &refreshTokens{userID: "ghost"}, &mockMailer{})
		_, err := svc.GetNewTokens(context.Background(), "refresh-0")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("no stored token", func(t *testing.T) {
		customer.RefreshToken = ""
		svc := NewService(repo, &refreshTokens{userID: customer.ID}, &mockMailer{})
		_, err := svc.GetNewTokens(context.Background(), "refresh-0")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("mismatched token", func(t *testing.T) {
		hashed, err := passwd.Hash("the-real-token")
		require.NoError(t, err)
		customer.RefreshToken = hashed
		svc := NewService(repo, &refreshTokens{userID: customer.ID}, &mockMailer{})
		_, err = svc.GetNewTokens(context.Background(), "a-different-token")
		assert.ErrorIs(t, err, ErrAccessDenied)
	})
}

func TestLogout(t *testing.T) {
	repo := newMockRepository()
	customer := seedConfirmedCustomer(t, repo, "secret123")
	customer.RefreshToken = "some-hash"
	svc := NewService(repo, &mockTokens{}, &mockMailer{})

	require.NoError(t, svc.Logout(context.Background(), customer.ID))
	assert.Empty(t, customer.RefreshToken)

	// Logging out twice or with an unknown id stays silent.
	require.NoError(t, svc.Logout(context.Background(), customer.ID))
	require.NoError(t, svc.Logout(context.Background(), "ghost"))
}

func TestGenerateActivationCode_Range(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := generateActivationCode()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, code, 100000)
		assert.LessOrEqual(t, code, 999999)
	}
}
