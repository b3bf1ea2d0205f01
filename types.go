package users

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the externally supplied settings consumed by the token
// service and authenticator. Secrets and issuer strings are never
// hard-coded in this package.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetIssuer() string
	GetAudience() []string
	// GetTokenExpiration is the default token lifetime in minutes.
	GetTokenExpiration() int
	// GetClockSkewLeeway is the expiry check allowance in seconds.
	GetClockSkewLeeway() int
}

// SimpleConfig is a plain value implementation of Config for composition
// roots and tests.
type SimpleConfig struct {
	SigningKey      string
	SigningMethod   string
	Issuer          string
	Audience        []string
	TokenExpiration int
	ClockSkewLeeway int
}

func (c SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c SimpleConfig) GetIssuer() string        { return c.Issuer }
func (c SimpleConfig) GetAudience() []string    { return c.Audience }
func (c SimpleConfig) GetTokenExpiration() int  { return c.TokenExpiration }
func (c SimpleConfig) GetClockSkewLeeway() int  { return c.ClockSkewLeeway }

var _ Config = SimpleConfig{}

// Directory is the lookup surface realms need to turn credentials into
// principals and principals into roles. UserService implements it.
type Directory interface {
	FindByIdentifier(ctx context.Context, identifier string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	RoleOf(ctx context.Context, user *User) (*Role, error)
}

// Hasher is a one-way keyed digest used to store and compare credentials.
// Hashed secrets are only ever compared through Matches, never decoded.
type Hasher interface {
	Hash(plain, salt string) (string, error)
	Matches(plain, encoded, salt string) bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] USERS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] USERS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] USERS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] USERS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
