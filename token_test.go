package users_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("test-signing-key-please-rotate")

func TestBuilderDefaults(t *testing.T) {
	issuedAt := time.Now()

	token, err := users.NewTokenBuilder().
		Subject("42").
		IssuedAt(issuedAt).
		Sign(testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, "HS512", token.Algorithm())
	assert.Equal(t, "JWT", token.Type())
	assert.NotEmpty(t, token.Claims().TokenID())
	assert.Equal(t, "42", token.Claims().Subject())
	assert.WithinDuration(t, issuedAt.Add(users.DefaultTokenTTL), token.Claims().Expires(), time.Second)
	assert.Len(t, strings.Split(token.Raw(), "."), 3)
}

func TestBuilderClaimKeyedByName(t *testing.T) {
	token, err := users.NewTokenBuilder().
		Subject("42").
		Claim("email", "ada@example.com").
		Claim("tenant", "acme").
		Sign(testSigningKey)
	require.NoError(t, err)

	email, ok := token.Claims().Claim("email")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", email)

	tenant, ok := token.Claims().Claim("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", tenant)

	// extension claims never land under the token id
	_, ok = token.Claims().Claim(token.Claims().TokenID())
	assert.False(t, ok)
}

func TestBuilderClaimCannotShadowRegisteredNames(t *testing.T) {
	token, err := users.NewTokenBuilder().
		Subject("42").
		Claim("sub", "1337").
		Sign(testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, "42", token.Claims().Subject())
}

func TestBuilderRoundTrip(t *testing.T) {
	issuedAt := time.Now().Truncate(time.Second)

	token, err := users.NewTokenBuilder().
		Issuer("go-users").
		Subject("42").
		Audience("api", "web").
		TokenID("tid-1").
		IssuedAt(issuedAt).
		TTL(5 * time.Minute).
		Claim("email", "ada@example.com").
		Sign(testSigningKey)
	require.NoError(t, err)

	parsed, err := users.ParseToken(token.Raw())
	require.NoError(t, err)

	claims := parsed.Claims()
	assert.Equal(t, "go-users", claims.Issuer())
	assert.Equal(t, "42", claims.Subject())
	assert.Equal(t, []string{"api", "web"}, []string(claims.Audience()))
	assert.Equal(t, "tid-1", claims.TokenID())
	assert.Equal(t, issuedAt.Unix(), claims.IssuedAt().Unix())
	assert.Equal(t, issuedAt.Add(5*time.Minute).Unix(), claims.Expires().Unix())

	email, ok := claims.Claim("email")
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", email)
}

func TestBuilderExplicitExpiryWins(t *testing.T) {
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(time.Hour)

	token, err := users.NewTokenBuilder().
		Subject("42").
		IssuedAt(issuedAt).
		Expires(expiresAt).
		Sign(testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, expiresAt.Unix(), token.Claims().Expires().Unix())
}

func TestBuilderAlgorithmOverride(t *testing.T) {
	token, err := users.NewTokenBuilder().
		Subject("42").
		Algorithm(jwt.SigningMethodHS256).
		Sign(testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, "HS256", token.Algorithm())
}

func TestSignRejectsMissingSecret(t *testing.T) {
	_, err := users.NewTokenBuilder().Subject("42").Sign(nil)
	assert.ErrorIs(t, err, users.ErrMissingSigningKey)
}

func TestSignRejectsExpiryBeforeIssuance(t *testing.T) {
	issuedAt := time.Now()

	_, err := users.NewTokenBuilder().
		Subject("42").
		IssuedAt(issuedAt).
		Expires(issuedAt.Add(-time.Minute)).
		Sign(testSigningKey)
	assert.Error(t, err)
}

func TestParseTokenMalformed(t *testing.T) {
	for _, raw := range []string{"", "garbage", "a.b", "not.a.token"} {
		_, err := users.ParseToken(raw)
		require.Error(t, err, "raw=%q", raw)
		assert.True(t, users.IsMalformedError(err), "raw=%q", raw)
	}
}
