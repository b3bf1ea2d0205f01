package users

import (
	"slices"
	"time"

	"github.com/uptrace/bun"
)

// User is the user model. The store assigns the numeric id on first save;
// once assigned it is immutable. Email is the canonical identifier.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	RoleID        int64      `bun:"role_id" json:"role_id,omitempty"`
	Role          *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func (u *User) EntityID() int64 {
	if u == nil {
		return 0
	}
	return u.ID
}

// Identifier returns the canonical identifier used for lookups and as the
// salt convention for credential hashing.
func (u *User) Identifier() string {
	return u.Email
}

// Role groups permission strings under a unique name. Permissions are
// unordered and deduplicated; this package never renames either silently.
type Role struct {
	bun.BaseModel `bun:"table:user_roles,alias:rol"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	Permissions   []string   `bun:"permissions" json:"permissions,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func (r *Role) EntityID() int64 {
	if r == nil {
		return 0
	}
	return r.ID
}

// AddPermission appends a permission if not already present
func (r *Role) AddPermission(permission string) *Role {
	if !slices.Contains(r.Permissions, permission) {
		r.Permissions = append(r.Permissions, permission)
	}
	return r
}

func (r *Role) HasPermission(permission string) bool {
	return slices.Contains(r.Permissions, permission)
}

// Named queries consumed through FindByQuery/FindAllByQuery. Registered at
// package load so services can reference them by name, the way the store's
// entity annotations used to.
const (
	QueryUserByEmail = "User.findByEmail"
	QueryRoleByName  = "UserRole.findByName"
)

var userByEmailSQL = `SELECT * FROM users WHERE email = ? LIMIT 1`

var roleByNameSQL = `SELECT * FROM user_roles WHERE name = ? LIMIT 1`

func init() {
	RegisterQuery(QueryUserByEmail, userByEmailSQL)
	RegisterQuery(QueryRoleByName, roleByNameSQL)
}
