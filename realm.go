package users

import (
	"context"
	"sort"
)

// Credentials is the closed set of credential shapes a realm can consume.
type Credentials interface {
	credential()
}

// PasswordCredentials carry an identifier and a plaintext secret. The
// plaintext never leaves the authentication path.
type PasswordCredentials struct {
	Identifier string
	Password   string
}

func (PasswordCredentials) credential() {}

// TokenCredentials carry a previously issued raw token. The zero value is
// the explicit "no token presented" variant; realms fail closed on it.
type TokenCredentials struct {
	Raw string
}

func (TokenCredentials) credential() {}

func (c TokenCredentials) IsEmpty() bool {
	return c.Raw == ""
}

// NoToken is the explicit empty token credential.
func NoToken() TokenCredentials {
	return TokenCredentials{}
}

// PermissionSet is an unordered, deduplicated set of permission strings.
type PermissionSet map[string]struct{}

func NewPermissionSet(permissions ...string) PermissionSet {
	set := make(PermissionSet, len(permissions))
	for _, p := range permissions {
		set.Add(p)
	}
	return set
}

func (s PermissionSet) Add(permission string) {
	if permission != "" {
		s[permission] = struct{}{}
	}
}

func (s PermissionSet) Has(permission string) bool {
	_, ok := s[permission]
	return ok
}

func (s PermissionSet) Len() int {
	return len(s)
}

// Values returns the permissions in a stable order.
func (s PermissionSet) Values() []string {
	values := make([]string, 0, len(s))
	for p := range s {
		values = append(values, p)
	}
	sort.Strings(values)
	return values
}

// Realm is a pluggable authentication strategy. Authenticate reports
// failure through ok=false so callers surface one uniform unauthorized
// outcome; the error return is reserved for infrastructure faults (store
// unreachable, hashing misconfigured) which abort the request instead.
type Realm interface {
	Name() string
	Supports(creds Credentials) bool
	Authenticate(ctx context.Context, creds Credentials) (principal int64, ok bool, err error)
	Authorize(ctx context.Context, principal int64) (PermissionSet, error)
}

// authorizePrincipal resolves the principal's role into its permission set
// plus the role name as a coarse-grained grant. A principal without a role
// legitimately holds zero permissions.
func authorizePrincipal(ctx context.Context, directory Directory, principal int64) (PermissionSet, error) {
	user, err := directory.FindByID(ctx, principal)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return NewPermissionSet(), nil
	}

	role, err := directory.RoleOf(ctx, user)
	if err != nil {
		return nil, err
	}
	if role == nil {
		return NewPermissionSet(), nil
	}

	set := NewPermissionSet(role.Permissions...)
	set.Add(role.Name)
	return set, nil
}
