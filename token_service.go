package users

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultClockSkewLeeway is the expiry allowance applied when the
// configuration does not supply one.
const DefaultClockSkewLeeway = 120 * time.Second

// TokenService issues and verifies signed tokens with the configured
// secret, algorithm, issuer, and audience. The verifier side never trusts a
// token's self-declared algorithm.
type TokenService struct {
	signingKey []byte
	method     jwt.SigningMethod
	issuer     string
	audience   jwt.ClaimStrings
	ttl        time.Duration
	leeway     time.Duration
	logger     Logger
	now        func() time.Time
}

// NewTokenService creates a new TokenService instance from external
// configuration. An unsupported signing method is reported lazily as a
// fatal error on the first signing attempt.
func NewTokenService(cfg Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}

	ttl := DefaultTokenTTL
	if cfg.GetTokenExpiration() > 0 {
		ttl = time.Duration(cfg.GetTokenExpiration()) * time.Minute
	}

	leeway := DefaultClockSkewLeeway
	if cfg.GetClockSkewLeeway() > 0 {
		leeway = time.Duration(cfg.GetClockSkewLeeway()) * time.Second
	}

	var audience jwt.ClaimStrings
	if len(cfg.GetAudience()) > 0 {
		audience = make(jwt.ClaimStrings, len(cfg.GetAudience()))
		copy(audience, cfg.GetAudience())
	}

	return &TokenService{
		signingKey: []byte(cfg.GetSigningKey()),
		method:     resolveSigningMethod(cfg.GetSigningMethod()),
		issuer:     cfg.GetIssuer(),
		audience:   audience,
		ttl:        ttl,
		leeway:     leeway,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the time source. Tests use it to advance past expiry.
func (ts *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// Builder returns a TokenBuilder primed with the service defaults. An
// unsupported configured method is carried through so Sign reports it.
func (ts *TokenService) Builder() *TokenBuilder {
	b := NewTokenBuilder().
		Issuer(ts.issuer).
		Audience(ts.audience...).
		IssuedAt(ts.now()).
		TTL(ts.ttl)
	b.method = ts.method
	return b
}

// Issue signs a token for the given subject with optional extra claims,
// each keyed by its own name.
func (ts *TokenService) Issue(subject string, extra map[string]any) (*Token, error) {
	b := ts.Builder().Subject(subject)
	for name, value := range extra {
		b.Claim(name, value)
	}
	return b.Sign(ts.signingKey)
}

// Sign signs a customized builder with the service's key material. Use it
// when Issue's defaults are not enough, e.g. a pinned expiry or token id.
func (ts *TokenService) Sign(b *TokenBuilder) (*Token, error) {
	if b == nil {
		b = ts.Builder()
	}
	return b.Sign(ts.signingKey)
}

// Parse decodes a raw token without checking its signature.
func (ts *TokenService) Parse(raw string) (*Token, error) {
	return ParseToken(raw)
}

// Verify recomputes the MAC with the service's own key.
func (ts *TokenService) Verify(t *Token) bool {
	return ts.VerifyWith(t, ts.signingKey)
}

// VerifyWith recomputes the MAC over header and claims using the supplied
// secret and the service's configured algorithm. The algorithm declared in
// the token header is ignored so a forged header cannot downgrade the check.
func (ts *TokenService) VerifyWith(t *Token, secret []byte) bool {
	if t == nil || ts.method == nil || len(secret) == 0 {
		return false
	}

	parts := strings.Split(t.raw, ".")
	if len(parts) != 3 {
		return false
	}

	sig, err := jwt.NewParser().DecodeSegment(parts[2])
	if err != nil {
		return false
	}

	return ts.method.Verify(parts[0]+"."+parts[1], sig, secret) == nil
}

// IsExpired applies the configured clock-skew leeway: the token is expired
// once leeway-adjusted "now" passes its expiry claim. A token without an
// expiry fails closed.
func (ts *TokenService) IsExpired(t *Token) bool {
	if t == nil {
		return true
	}
	expiresAt := t.Claims().Expires()
	if expiresAt.IsZero() {
		return true
	}
	return ts.now().Add(ts.leeway).After(expiresAt)
}

// Validate is the single-step auth path: parse, verify, expiry check.
// Failures map onto the uniform token errors.
func (ts *TokenService) Validate(raw string) (*Token, error) {
	t, err := ts.Parse(raw)
	if err != nil {
		return nil, err
	}

	if !ts.Verify(t) {
		ts.logger.Debug("token signature verification failed")
		return nil, ErrUnauthorized
	}

	if ts.IsExpired(t) {
		return nil, ErrTokenExpired
	}

	return t, nil
}

func resolveSigningMethod(name string) jwt.SigningMethod {
	switch name {
	case "", "HS512":
		return jwt.SigningMethodHS512
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS256":
		return jwt.SigningMethodHS256
	default:
		return nil
	}
}
