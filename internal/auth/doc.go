// Package auth implements the credential and session lifecycle for the
// single-administrator account protecting the registry admin interface.
//
// It is composed of three internal collaborators orchestrated by Manager:
//
//   - CredentialStore persists the administrator's password hash and the
//     session-signing secret in a single owner-only JSON file.
//   - PasswordHasher wraps bcrypt for hashing and verification.
//   - SessionIssuer mints and verifies stateless HMAC-signed session tokens.
//
// Sessions are stateless: validity is a function of the token's signature
// and expiry only, so there is no server-side revocation beyond the client
// discarding its cookie. Rotating the session secret (a fresh setup after
// the credential file is removed) invalidates all outstanding tokens.
package auth
