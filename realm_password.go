package users

import (
	"context"
)

// PasswordRealm authenticates (identifier, plaintext secret) pairs against
// the directory. By convention the identifier doubles as the hashing salt,
// matching how the directory stores credentials.
type PasswordRealm struct {
	directory Directory
	hasher    Hasher
	logger    Logger
}

func NewPasswordRealm(directory Directory, hasher Hasher) *PasswordRealm {
	return &PasswordRealm{
		directory: directory,
		hasher:    hasher,
		logger:    defLogger{},
	}
}

func (r *PasswordRealm) WithLogger(logger Logger) *PasswordRealm {
	if logger != nil {
		r.logger = logger
	}
	return r
}

func (r *PasswordRealm) Name() string {
	return "password"
}

func (r *PasswordRealm) Supports(creds Credentials) bool {
	_, ok := creds.(PasswordCredentials)
	return ok
}

// Authenticate never reveals whether the identifier exists or the secret
// was wrong: both produce the same ok=false.
func (r *PasswordRealm) Authenticate(ctx context.Context, creds Credentials) (int64, bool, error) {
	pc, ok := creds.(PasswordCredentials)
	if !ok {
		return 0, false, nil
	}

	user, err := r.directory.FindByIdentifier(ctx, pc.Identifier)
	if err != nil {
		return 0, false, err
	}
	if user == nil {
		r.logger.Debug("password auth: unknown identifier")
		return 0, false, nil
	}

	if !r.hasher.Matches(pc.Password, user.PasswordHash, user.Identifier()) {
		r.logger.Debug("password auth: credential mismatch")
		return 0, false, nil
	}

	return user.ID, true, nil
}

func (r *PasswordRealm) Authorize(ctx context.Context, principal int64) (PermissionSet, error) {
	return authorizePrincipal(ctx, r.directory, principal)
}

var _ Realm = (*PasswordRealm)(nil)
