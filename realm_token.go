package users

import (
	"context"
	"strconv"
)

// emailClaim records the principal's canonical identifier at issuance so
// verification can detect an id that was reassigned or rotated since.
const emailClaim = "email"

// TokenRealm authenticates previously issued signed tokens. A missing token
// fails closed; there is no anonymous-but-authenticated state.
type TokenRealm struct {
	directory Directory
	tokens    *TokenService
	logger    Logger
}

func NewTokenRealm(directory Directory, tokens *TokenService) *TokenRealm {
	return &TokenRealm{
		directory: directory,
		tokens:    tokens,
		logger:    defLogger{},
	}
}

func (r *TokenRealm) WithLogger(logger Logger) *TokenRealm {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *TokenRealm) Name() string {
	return "token"
}

func (r *TokenRealm) Supports(creds Credentials) bool {
	_, ok := creds.(TokenCredentials)
	return ok
}

func (r *TokenRealm) Authenticate(ctx context.Context, creds Credentials) (int64, bool, error) {
	tc, ok := creds.(TokenCredentials)
	if !ok || tc.IsEmpty() {
		return 0, false, nil
	}

	token, err := r.tokens.Parse(tc.Raw)
	if err != nil {
		r.logger.Debug("token auth: malformed token")
		return 0, false, nil
	}

	if r.tokens.IsExpired(token) {
		r.logger.Debug("token auth: expired token issued at %v", token.Claims().IssuedAt())
		return 0, false, nil
	}

	if !r.tokens.Verify(token) {
		r.logger.Debug("token auth: signature verification failed")
		return 0, false, nil
	}

	principal, err := strconv.ParseInt(token.Claims().Subject(), 10, 64)
	if err != nil {
		return 0, false, nil
	}

	user, err := r.directory.FindByID(ctx, principal)
	if err != nil {
		return 0, false, err
	}
	if user == nil {
		return 0, false, nil
	}

	if claimed, ok := token.Claims().Claim(emailClaim); ok {
		if email, _ := claimed.(string); email != user.Identifier() {
			r.logger.Debug("token auth: principal identifier changed since issuance")
			return 0, false, nil
		}
	}

	return user.ID, true, nil
}

func (r *TokenRealm) Authorize(ctx context.Context, principal int64) (PermissionSet, error) {
	return authorizePrincipal(ctx, r.directory, principal)
}

var _ Realm = (*TokenRealm)(nil)
