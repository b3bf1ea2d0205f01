package users

import (
	"context"
	"strconv"
	"time"
)

// Auther composes the configured realms into the authentication boundary:
// credentials in, an opaque principal id or a uniform unauthorized signal
// out. It never reports why authentication failed.
type Auther struct {
	realms    []Realm
	directory Directory
	tokens    *TokenService
	logger    Logger
	sink      ActivitySink
}

// NewAuthenticator wires the password and token realms over the given
// directory. Additional realms can be registered with WithRealm.
func NewAuthenticator(directory Directory, hasher Hasher, cfg Config) *Auther {
	tokens := NewTokenService(cfg, defLogger{})

	return &Auther{
		realms: []Realm{
			NewPasswordRealm(directory, hasher),
			NewTokenRealm(directory, tokens),
		},
		directory: directory,
		tokens:    tokens,
		logger:    defLogger{},
		sink:      noopActivitySink{},
	}
}

func (a *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (a *Auther) WithActivitySink(sink ActivitySink) *Auther {
	a.sink = normalizeActivitySink(sink)
	return a
}

// WithRealm registers an additional authentication strategy. Realms are
// consulted in registration order; the first one supporting the credential
// shape handles it.
func (a *Auther) WithRealm(realm Realm) *Auther {
	if realm != nil {
		a.realms = append(a.realms, realm)
	}
	return a
}

// TokenService returns the TokenService instance used by this Authenticator
func (a *Auther) TokenService() *TokenService {
	return a.tokens
}

// Authenticate routes the credentials to the realm supporting their shape.
// ok=false is the uniform unauthorized outcome; err is an infrastructure
// fault only.
func (a *Auther) Authenticate(ctx context.Context, creds Credentials) (int64, bool, error) {
	for _, realm := range a.realms {
		if !realm.Supports(creds) {
			continue
		}

		principal, ok, err := realm.Authenticate(ctx, creds)
		if err != nil {
			a.logger.Error("realm authentication fault", "realm", realm.Name(), "error", err)
			return 0, false, err
		}
		if !ok {
			a.emit(ctx, ActivityEventLoginFailure, 0, credentialIdentifier(creds), map[string]any{
				"realm": realm.Name(),
			})
			return 0, false, nil
		}

		a.emit(ctx, ActivityEventLoginSuccess, principal, credentialIdentifier(creds), map[string]any{
			"realm": realm.Name(),
		})
		return principal, true, nil
	}

	a.logger.Debug("no realm supports the presented credentials")
	return 0, false, nil
}

// Authorize resolves the permission set for an authenticated principal:
// the role's permissions plus the role name itself.
func (a *Auther) Authorize(ctx context.Context, principal int64) (PermissionSet, error) {
	return authorizePrincipal(ctx, a.directory, principal)
}

// Login authenticates an (identifier, password) pair and issues a signed
// token for the principal. The token subject is the principal id; the
// canonical identifier travels in a claim for later rotation checks.
func (a *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	principal, ok, err := a.Authenticate(ctx, PasswordCredentials{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrUnauthorized
	}

	user, err := a.directory.FindByID(ctx, principal)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrUnauthorized
	}

	token, err := a.tokens.Issue(strconv.FormatInt(principal, 10), map[string]any{
		emailClaim: user.Identifier(),
	})
	if err != nil {
		a.logger.Error("token issuance failed", "error", err)
		return "", err
	}

	a.emit(ctx, ActivityEventTokenIssued, principal, user.Identifier(), map[string]any{
		"jti": token.Claims().TokenID(),
	})

	return token.Raw(), nil
}

// PrincipalFromToken authenticates a raw bearer token and returns the
// principal id, with the same uniform failure as any other credential.
func (a *Auther) PrincipalFromToken(ctx context.Context, raw string) (int64, error) {
	principal, ok, err := a.Authenticate(ctx, TokenCredentials{Raw: raw})
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUnauthorized
	}
	return principal, nil
}

func (a *Auther) emit(ctx context.Context, eventType ActivityEventType, principal int64, identifier string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:   eventType,
		PrincipalID: principal,
		Identifier:  identifier,
		Metadata:    metadata,
		OccurredAt:  time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := normalizeActivitySink(a.sink).Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}

func credentialIdentifier(creds Credentials) string {
	switch c := creds.(type) {
	case PasswordCredentials:
		return c.Identifier
	default:
		return ""
	}
}
