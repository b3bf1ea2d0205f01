package users

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// UserService is the user/role directory. Every multi-step write runs
// inside one unit of work so a failure midway leaves no partial state.
type UserService struct {
	uow    *UnitOfWork
	hasher Hasher
	logger Logger
	sink   ActivitySink
}

func NewUserService(uow *UnitOfWork, hasher Hasher) *UserService {
	return &UserService{
		uow:    uow,
		hasher: hasher,
		logger: defLogger{},
		sink:   noopActivitySink{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *UserService) WithActivitySink(sink ActivitySink) *UserService {
	s.sink = normalizeActivitySink(sink)
	return s
}

func (s *UserService) GetAllUsers(ctx context.Context, offset, limit int) ([]User, error) {
	return FindAll[User](ctx, s.uow, offset, limit)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*User, error) {
	return FindByID[User](ctx, s.uow, id)
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return FindByQuery[User](ctx, s.uow, QueryUserByEmail, email)
}

// AddUser creates a user with the given plaintext secret and role name.
// The secret is hashed with the canonical identifier as salt before it
// touches the store. Duplicate emails are rejected as a conflict; an
// unknown role rejects the whole operation with nothing committed.
func (s *UserService) AddUser(ctx context.Context, user *User, password, roleName string) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrNoEmptyString
	}

	err := s.uow.Run(ctx, func(ctx context.Context) error {
		existing, err := s.GetUserByEmail(ctx, user.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.New(
				fmt.Sprintf("user with email %q already exists", user.Email),
				errors.CategoryConflict,
			).WithTextCode("DUPLICATE_EMAIL")
		}

		role, err := s.GetRoleByName(ctx, roleName)
		if err != nil {
			return err
		}
		if role == nil {
			return errors.New(
				fmt.Sprintf("role %q does not exist", roleName),
				errors.CategoryValidation,
			).WithTextCode("UNKNOWN_ROLE")
		}

		hash, err := s.hasher.Hash(password, user.Identifier())
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		user.RoleID = role.ID
		user.Role = role

		_, err = Save(ctx, s.uow, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventUserCreated, user.ID, user.Email, nil)
	return user, nil
}

// UpdateUser persists changes to an existing user. A password change is
// applied through SetPassword before calling this; the stored hash is
// otherwise carried over untouched.
func (s *UserService) UpdateUser(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, errors.New("user must not be nil", errors.CategoryBadInput)
	}

	if err := validateUser(user); err != nil {
		return nil, err
	}

	err := s.uow.Run(ctx, func(ctx context.Context) error {
		existing, err := s.GetUser(ctx, user.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.New("could not find specified user", errors.CategoryNotFound)
		}

		if user.PasswordHash == "" {
			user.PasswordHash = existing.PasswordHash
		}

		if user.RoleID != 0 && user.RoleID != existing.RoleID {
			role, err := FindByID[Role](ctx, s.uow, user.RoleID)
			if err != nil {
				return err
			}
			if role == nil {
				return errors.New("role does not exist", errors.CategoryValidation).
					WithTextCode("UNKNOWN_ROLE")
			}
		}

		_, err = Save(ctx, s.uow, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// SetPassword re-hashes and stores a new secret for the user.
func (s *UserService) SetPassword(ctx context.Context, id int64, password string) error {
	if password == "" {
		return ErrNoEmptyString
	}

	return s.uow.Run(ctx, func(ctx context.Context) error {
		user, err := s.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return errors.New("could not find specified user", errors.CategoryNotFound)
		}

		hash, err := s.hasher.Hash(password, user.Identifier())
		if err != nil {
			return err
		}
		user.PasswordHash = hash

		_, err = Save(ctx, s.uow, user)
		return err
	})
}

// RemoveUser deletes a user. Removing an absent user is a no-op.
func (s *UserService) RemoveUser(ctx context.Context, id int64) error {
	var removed *User

	err := s.uow.Run(ctx, func(ctx context.Context) error {
		user, err := s.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		removed = user
		return Remove(ctx, s.uow, user)
	})
	if err != nil {
		return err
	}

	if removed != nil {
		s.record(ctx, ActivityEventUserRemoved, removed.ID, removed.Email, nil)
	}
	return nil
}

// AddRole creates a role. Duplicate names are a conflict; the permission
// set is deduplicated before it is stored.
func (s *UserService) AddRole(ctx context.Context, role *Role) (*Role, error) {
	if role == nil {
		return nil, errors.New("role must not be nil", errors.CategoryBadInput)
	}

	if err := validation.ValidateStruct(role,
		validation.Field(&role.Name, validation.Required),
	); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid role")
	}

	role.Permissions = NewPermissionSet(role.Permissions...).Values()

	err := s.uow.Run(ctx, func(ctx context.Context) error {
		existing, err := s.GetRoleByName(ctx, role.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return errors.New(
				fmt.Sprintf("role %q already exists", role.Name),
				errors.CategoryConflict,
			).WithTextCode("DUPLICATE_ROLE")
		}

		_, err = Save(ctx, s.uow, role)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventRoleCreated, 0, role.Name, map[string]any{
		"permissions": role.Permissions,
	})
	return role, nil
}

func (s *UserService) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return FindByQuery[Role](ctx, s.uow, QueryRoleByName, name)
}

// FindByIdentifier implements Directory; the canonical identifier is the
// email address.
func (s *UserService) FindByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return s.GetUserByEmail(ctx, identifier)
}

// FindByID implements Directory.
func (s *UserService) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.GetUser(ctx, id)
}

// RoleOf implements Directory. A user without a role resolves to nil,
// which is a normal result.
func (s *UserService) RoleOf(ctx context.Context, user *User) (*Role, error) {
	if user == nil || user.RoleID == 0 {
		return nil, nil
	}
	return FindByID[Role](ctx, s.uow, user.RoleID)
}

func (s *UserService) record(ctx context.Context, eventType ActivityEventType, principal int64, identifier string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:   eventType,
		PrincipalID: principal,
		Identifier:  identifier,
		Metadata:    metadata,
	}
	if err := normalizeActivitySink(s.sink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func validateUser(user *User) error {
	err := validation.ValidateStruct(user,
		validation.Field(&user.Email, validation.Required, is.Email),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid user")
	}
	return nil
}

var _ Directory = (*UserService)(nil)
