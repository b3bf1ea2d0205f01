// Package users provides the persistence and authentication core for a
// user-management backend: a context-scoped unit of work over Bun, a
// signed-token codec and service, pluggable authentication realms, and a
// user/role directory.
//
// Unit of work:
//   - UnitOfWork carries an ambient transaction through context.Context.
//     Run opens a transaction, stores it in the derived context, and every
//     store operation (FindByID, Save, Remove, the named query helpers)
//     picks it up automatically. Nested Run calls join the outer
//     transaction, so services compose without plumbing tx handles.
//
// Tokens:
//   - TokenBuilder assembles signed compact tokens with sane defaults
//     (HS512, ten minute lifetime, generated token id). TokenService wraps
//     issuance and verification with configured key material and applies a
//     clock-skew leeway that treats tokens as expired slightly early.
//
// Realms:
//   - Realm is the credential-shape-specific authentication strategy.
//     PasswordRealm checks salted hashes against the directory; TokenRealm
//     verifies signed tokens and re-resolves the principal. Auther routes
//     credentials to the first supporting realm and reports a uniform
//     unauthorized outcome that never reveals why authentication failed.
//
// Activity sinks:
//   - ActivitySink is a best-effort audit emitter used by Auther and
//     UserService to describe login, issuance, and directory mutations.
//     StoreActivitySink persists events to an activity log table.
package users
