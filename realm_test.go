package users_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockDirectory implements users.Directory for testing
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindByIdentifier(ctx context.Context, identifier string) (*users.User, error) {
	args := m.Called(ctx, identifier)
	if user, ok := args.Get(0).(*users.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) FindByID(ctx context.Context, id int64) (*users.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*users.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDirectory) RoleOf(ctx context.Context, user *users.User) (*users.Role, error) {
	args := m.Called(ctx, user)
	if role, ok := args.Get(0).(*users.Role); ok {
		return role, args.Error(1)
	}
	return nil, args.Error(1)
}

func hashedUser(t *testing.T, id int64, email, password string) *users.User {
	t.Helper()
	hash, err := users.NewHasher().Hash(password, email)
	require.NoError(t, err)
	return &users.User{ID: id, Email: email, PasswordHash: hash}
}

func TestPasswordRealmAuthenticateSuccess(t *testing.T) {
	directory := new(MockDirectory)
	user := hashedUser(t, 42, "ada@example.com", "pw1")
	directory.On("FindByIdentifier", mock.Anything, "ada@example.com").Return(user, nil)

	realm := users.NewPasswordRealm(directory, users.NewHasher())

	principal, ok, err := realm.Authenticate(context.Background(), users.PasswordCredentials{
		Identifier: "ada@example.com",
		Password:   "pw1",
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), principal)
}

func TestPasswordRealmFailureIsUniform(t *testing.T) {
	directory := new(MockDirectory)
	user := hashedUser(t, 42, "ada@example.com", "pw1")
	directory.On("FindByIdentifier", mock.Anything, "ada@example.com").Return(user, nil)
	directory.On("FindByIdentifier", mock.Anything, "ghost@example.com").Return(nil, nil)

	realm := users.NewPasswordRealm(directory, users.NewHasher())

	// wrong secret and unknown identifier produce the exact same outcome
	for _, creds := range []users.PasswordCredentials{
		{Identifier: "ada@example.com", Password: "wrong"},
		{Identifier: "ghost@example.com", Password: "pw1"},
	} {
		principal, ok, err := realm.Authenticate(context.Background(), creds)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Zero(t, principal)
	}
}

func TestPasswordRealmPropagatesStoreFault(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("FindByIdentifier", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	realm := users.NewPasswordRealm(directory, users.NewHasher())

	_, ok, err := realm.Authenticate(context.Background(), users.PasswordCredentials{
		Identifier: "ada@example.com",
		Password:   "pw1",
	})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPasswordRealmSupports(t *testing.T) {
	realm := users.NewPasswordRealm(new(MockDirectory), users.NewHasher())

	assert.True(t, realm.Supports(users.PasswordCredentials{}))
	assert.False(t, realm.Supports(users.TokenCredentials{}))
}

func newTokenRealm(t *testing.T, directory users.Directory) (*users.TokenRealm, *users.TokenService) {
	t.Helper()
	ts := users.NewTokenService(testTokenConfig(), nil)
	return users.NewTokenRealm(directory, ts), ts
}

func TestTokenRealmAuthenticateSuccess(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("FindByID", mock.Anything, int64(42)).
		Return(&users.User{ID: 42, Email: "ada@example.com"}, nil)

	realm, ts := newTokenRealm(t, directory)

	token, err := ts.Issue("42", map[string]any{"email": "ada@example.com"})
	require.NoError(t, err)

	principal, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: token.Raw()})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(42), principal)
}

func TestTokenRealmFailsClosedWithoutToken(t *testing.T) {
	realm, _ := newTokenRealm(t, new(MockDirectory))

	principal, ok, err := realm.Authenticate(context.Background(), users.NoToken())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, principal)
}

func TestTokenRealmRejectsForgedToken(t *testing.T) {
	directory := new(MockDirectory)
	realm, _ := newTokenRealm(t, directory)

	cfg := testTokenConfig()
	cfg.SigningKey = "some-other-secret"
	forged, err := users.NewTokenService(cfg, nil).Issue("42", nil)
	require.NoError(t, err)

	_, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: forged.Raw()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRealmRejectsExpiredToken(t *testing.T) {
	directory := new(MockDirectory)

	base := time.Now().Add(-time.Hour)
	ts := users.NewTokenService(testTokenConfig(), nil).
		WithClock(func() time.Time { return base })

	token, err := ts.Issue("42", nil)
	require.NoError(t, err)

	ts.WithClock(time.Now)
	realm := users.NewTokenRealm(directory, ts)

	_, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: token.Raw()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRealmRejectsRotatedIdentifier(t *testing.T) {
	directory := new(MockDirectory)
	// the id was reassigned since issuance: stored email no longer matches
	directory.On("FindByID", mock.Anything, int64(42)).
		Return(&users.User{ID: 42, Email: "mallory@example.com"}, nil)

	realm, ts := newTokenRealm(t, directory)

	token, err := ts.Issue("42", map[string]any{"email": "ada@example.com"})
	require.NoError(t, err)

	_, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: token.Raw()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRealmRejectsUnknownPrincipal(t *testing.T) {
	directory := new(MockDirectory)
	directory.On("FindByID", mock.Anything, int64(42)).Return(nil, nil)

	realm, ts := newTokenRealm(t, directory)

	token, err := ts.Issue("42", nil)
	require.NoError(t, err)

	_, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: token.Raw()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTokenRealmRejectsNonNumericSubject(t *testing.T) {
	realm, ts := newTokenRealm(t, new(MockDirectory))

	token, err := ts.Issue("not-a-principal", nil)
	require.NoError(t, err)

	_, ok, err := realm.Authenticate(context.Background(), users.TokenCredentials{Raw: token.Raw()})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizeResolvesRolePermissions(t *testing.T) {
	directory := new(MockDirectory)
	user := &users.User{ID: 42, Email: "ada@example.com", RoleID: 1}
	role := &users.Role{ID: 1, Name: "appuser", Permissions: []string{"users:read"}}

	directory.On("FindByID", mock.Anything, int64(42)).Return(user, nil)
	directory.On("RoleOf", mock.Anything, user).Return(role, nil)

	realm := users.NewPasswordRealm(directory, users.NewHasher())

	perms, err := realm.Authorize(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, perms.Has("users:read"))
	assert.True(t, perms.Has("appuser"))
	assert.Equal(t, 2, perms.Len())
}

func TestAuthorizeRolelessPrincipalHasNoPermissions(t *testing.T) {
	directory := new(MockDirectory)
	user := &users.User{ID: 42, Email: "ada@example.com"}

	directory.On("FindByID", mock.Anything, int64(42)).Return(user, nil)
	directory.On("RoleOf", mock.Anything, user).Return(nil, nil)

	realm := users.NewPasswordRealm(directory, users.NewHasher())

	perms, err := realm.Authorize(context.Background(), 42)
	require.NoError(t, err)
	assert.Zero(t, perms.Len())
}

func TestPermissionSetDeduplicates(t *testing.T) {
	set := users.NewPermissionSet("users:read", "users:read", "users:write", "")

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"users:read", "users:write"}, set.Values())
	assert.False(t, set.Has(""))
}
