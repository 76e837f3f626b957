package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// ErrInvalidCredentials is returned when a username/password pair is
// rejected by the credential backend.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticator verifies a username/password pair against a credential
// backend. It only answers "are these credentials valid"; roles and user
// records are handled elsewhere.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// LDAPAuthenticator validates credentials with a direct bind: the user DN
// is built from the configured attribute and base DN.
type LDAPAuthenticator struct {
	URL      string // e.g. "ldaps://ldap.example.org:636"
	BaseDN   string // e.g. "ou=people,dc=example,dc=org"
	UserAttr string // e.g. "uid"
}

// Authenticate dials the server and binds as the user.
func (a *LDAPAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	conn, err := ldap.DialURL(a.URL)
	if err != nil {
		return fmt.Errorf("ldap dial: %w", err)
	}
	defer conn.Close()

	userDN := fmt.Sprintf("%s=%s,%s", a.UserAttr, ldap.EscapeDN(username), a.BaseDN)
	if err := conn.Bind(userDN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("ldap bind: %w", err)
	}
	return nil
}

// StaticAuthenticator validates against a fixed username->password map.
// Development fallback only.
type StaticAuthenticator map[string]string

// Authenticate compares against the static map.
func (a StaticAuthenticator) Authenticate(ctx context.Context, username, password string) error {
	if password == "" {
		return ErrInvalidCredentials
	}
	expected, ok := a[username]
	if !ok || expected != password {
		return ErrInvalidCredentials
	}
	return nil
}
