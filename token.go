package users

import (
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL applies when neither the configuration nor the builder
// sets an explicit expiry.
const DefaultTokenTTL = 10 * time.Minute

// Token is an immutable, parsed compact signed token: three base64url
// segments (header, claims, signature) joined by dots. The header's declared
// algorithm is kept for inspection only; verification always uses the
// verifier's configured algorithm.
type Token struct {
	raw       string
	algorithm string
	tokenType string
	claims    *TokenClaims
	signature string
}

func (t *Token) Raw() string {
	return t.raw
}

// Algorithm is the header-declared signing algorithm. Advisory only.
func (t *Token) Algorithm() string {
	return t.algorithm
}

func (t *Token) Type() string {
	return t.tokenType
}

func (t *Token) Claims() *TokenClaims {
	return t.claims
}

func (t *Token) String() string {
	return t.raw
}

// ParseToken decodes the structure of a raw token without verifying its
// signature. Use TokenService.Verify before trusting any claim.
func ParseToken(raw string) (*Token, error) {
	claims := &TokenClaims{}
	parsed, parts, err := jwt.NewParser().ParseUnverified(raw, claims)
	if err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	alg, _ := parsed.Header["alg"].(string)
	typ, _ := parsed.Header["typ"].(string)

	return &Token{
		raw:       raw,
		algorithm: alg,
		tokenType: typ,
		claims:    claims,
		signature: parts[2],
	}, nil
}

// TokenClaims carries the registered claim set plus free-form extensions
// merged at the top level of the claims JSON object.
type TokenClaims struct {
	jwt.RegisteredClaims
	Extra map[string]any `json:"-"`
}

var registeredClaimNames = map[string]struct{}{
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

func (c TokenClaims) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(c.RegisteredClaims)
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return base, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}

	for name, value := range c.Extra {
		if _, reserved := registeredClaimNames[name]; reserved {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[name] = raw
	}

	return json.Marshal(merged)
}

func (c *TokenClaims) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &c.RegisteredClaims); err != nil {
		return err
	}

	all := map[string]any{}
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for name := range registeredClaimNames {
		delete(all, name)
	}
	if len(all) > 0 {
		c.Extra = all
	}

	return nil
}

// Subject returns the subject claim, the principal id as a string
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

func (c *TokenClaims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

func (c *TokenClaims) Audience() []string {
	return c.RegisteredClaims.Audience
}

// TokenID returns the jti claim
func (c *TokenClaims) TokenID() string {
	return c.RegisteredClaims.ID
}

func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Claim looks up a free-form extension claim by name
func (c *TokenClaims) Claim(name string) (any, bool) {
	value, ok := c.Extra[name]
	return value, ok
}

// TokenBuilder assembles and signs tokens. Defaults: type "JWT", HS512,
// a fresh uuid token id, issued now, expiring after DefaultTokenTTL.
type TokenBuilder struct {
	method    jwt.SigningMethod
	tokenType string
	issuer    string
	subject   string
	audience  jwt.ClaimStrings
	tokenID   string
	issuedAt  time.Time
	ttl       time.Duration
	expiresAt time.Time
	extra     map[string]any
}

func NewTokenBuilder() *TokenBuilder {
	return &TokenBuilder{
		method:    jwt.SigningMethodHS512,
		tokenType: "JWT",
		tokenID:   uuid.NewString(),
		issuedAt:  time.Now(),
		ttl:       DefaultTokenTTL,
		extra:     map[string]any{},
	}
}

func (b *TokenBuilder) Algorithm(method jwt.SigningMethod) *TokenBuilder {
	if method != nil {
		b.method = method
	}
	return b
}

func (b *TokenBuilder) Type(tokenType string) *TokenBuilder {
	if tokenType != "" {
		b.tokenType = tokenType
	}
	return b
}

func (b *TokenBuilder) Issuer(issuer string) *TokenBuilder {
	b.issuer = issuer
	return b
}

func (b *TokenBuilder) Subject(subject string) *TokenBuilder {
	b.subject = subject
	return b
}

func (b *TokenBuilder) Audience(audience ...string) *TokenBuilder {
	if len(audience) > 0 {
		b.audience = make(jwt.ClaimStrings, len(audience))
		copy(b.audience, audience)
	}
	return b
}

func (b *TokenBuilder) TokenID(id string) *TokenBuilder {
	if id != "" {
		b.tokenID = id
	}
	return b
}

func (b *TokenBuilder) IssuedAt(at time.Time) *TokenBuilder {
	if !at.IsZero() {
		b.issuedAt = at
	}
	return b
}

func (b *TokenBuilder) TTL(ttl time.Duration) *TokenBuilder {
	if ttl > 0 {
		b.ttl = ttl
	}
	return b
}

// Expires pins an explicit expiry, overriding the issued-at plus TTL default
func (b *TokenBuilder) Expires(at time.Time) *TokenBuilder {
	b.expiresAt = at
	return b
}

// Claim adds a free-form claim keyed by the caller-supplied name.
func (b *TokenBuilder) Claim(name string, value any) *TokenBuilder {
	if name != "" {
		b.extra[name] = value
	}
	return b
}

// Sign produces the immutable signed token. Misconfiguration (missing
// secret, no method, expiry before issuance) is a fatal error.
func (b *TokenBuilder) Sign(secret []byte) (*Token, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if b.method == nil {
		return nil, errors.New("unsupported signing method", errors.CategoryInternal).
			WithTextCode("BAD_SIGNING_METHOD")
	}

	expiresAt := b.expiresAt
	if expiresAt.IsZero() {
		expiresAt = b.issuedAt.Add(b.ttl)
	}
	if expiresAt.Before(b.issuedAt) {
		return nil, errors.New("token expiry precedes issuance", errors.CategoryBadInput).
			WithTextCode("INVALID_EXPIRY")
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    b.issuer,
			Subject:   b.subject,
			Audience:  b.audience,
			ID:        b.tokenID,
			IssuedAt:  jwt.NewNumericDate(b.issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if len(b.extra) > 0 {
		claims.Extra = make(map[string]any, len(b.extra))
		for name, value := range b.extra {
			claims.Extra[name] = value
		}
	}

	unsigned := jwt.NewWithClaims(b.method, claims)
	unsigned.Header["typ"] = b.tokenType

	raw, err := unsigned.SignedString(secret)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return ParseToken(raw)
}
