package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nikonekti/nikonekti_backend/internal/apperrors"
	"github.com/nikonekti/nikonekti_backend/internal/identity"
	"github.com/nikonekti/nikonekti_backend/internal/logging"
)

func newTestService(t *testing.T) (*Service, *identity.Service) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, nil, logging.Discard(), bcrypt.MinCost)
	return NewService(ids, repo, NewMemoryTokenRepository()), ids
}

func registration(phone string) identity.Registration {
	return identity.Registration{
		PhoneNumber:     phone,
		FullName:        "Baraka Mollel",
		Password:        "Serengeti#77",
		PasswordConfirm: "Serengeti#77",
	}
}

func TestRegisterIssuesTokenAndLoginReusesIt(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, registration("+255754000001"))
	require.NoError(t, err)
	assert.Len(t, reg.Token, 40)
	assert.Equal(t, identity.RoleTenant, reg.User.Role)

	login, err := svc.Login(ctx, identity.Credentials{PhoneNumber: "+255754000001", Password: "Serengeti#77"})
	require.NoError(t, err)
	assert.Equal(t, reg.Token, login.Token)

	user, err := svc.Resolve(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, user.ID)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, registration("+255754000002"))
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))

	_, err = svc.Resolve(ctx, session.Token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))

	err = svc.Logout(ctx, session.Token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))

	again, err := svc.Login(ctx, identity.Credentials{PhoneNumber: "+255754000002", Password: "Serengeti#77"})
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, again.Token)
}

func TestResolveRejectsInactiveUser(t *testing.T) {
	svc, ids := newTestService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, registration("+255754000003"))
	require.NoError(t, err)
	_, err = ids.SetActive(ctx, session.User.ID, false)
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, session.Token)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))
}

func TestResolveRejectsUnknownAndEmptyKeys(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))

	_, err = svc.Resolve(context.Background(), "deadbeef")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))
}

func TestLoginFailureDoesNotIssueToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), identity.Credentials{PhoneNumber: "+255754000004", Password: "whatever-123"})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCredentials))
}

func TestExtractKey(t *testing.T) {
	key, ok := ExtractKey("Bearer abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", key)

	key, ok = ExtractKey("Token abc123")
	assert.True(t, ok)
	assert.Equal(t, "abc123", key)

	_, ok = ExtractKey("Basic abc123")
	assert.False(t, ok)
	_, ok = ExtractKey("Bearer")
	assert.False(t, ok)
	_, ok = ExtractKey("Bearer a b")
	assert.False(t, ok)
}

func TestGenerateKeyIsUnique(t *testing.T) {
	a, err := GenerateKey()
	require.NoError(t, err)
	b, err := GenerateKey()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 40)
}

// flakyTokens fails the first GetOrCreate and delegates afterwards.
type flakyTokens struct {
	TokenRepository
	failed bool
}

func (f *flakyTokens) GetOrCreate(ctx context.Context, candidate Token) (Token, error) {
	if !f.failed {
		f.failed = true
		return Token{}, errors.New("connection reset")
	}
	return f.TokenRepository.GetOrCreate(ctx, candidate)
}

func TestRegisterTokenFailureLeavesAccountUsable(t *testing.T) {
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo, nil, logging.Discard(), bcrypt.MinCost)
	svc := NewService(ids, repo, &flakyTokens{TokenRepository: NewMemoryTokenRepository()})
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("+255754000005"))
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindInternal, appErr.Kind)

	_, err = repo.FindByPhone(ctx, "+255754000005")
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("+255754000005"))
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	session, err := svc.Login(ctx, identity.Credentials{PhoneNumber: "+255754000005", Password: "Serengeti#77"})
	require.NoError(t, err)
	assert.Len(t, session.Token, 40)

	user, err := svc.Resolve(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)
}
