// Package users is the directory of registered subjects: credentials,
// grant assignments and the rules for mutating them.
package users

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/text/secure/precis"

	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Domain errors surfaced to callers.
var (
	ErrNotFound           = errors.New("users: not found")
	ErrUsernameTaken      = errors.New("users: username already registered")
	ErrReservedUsername   = errors.New("users: username is reserved")
	ErrInvalidUsername    = errors.New("users: username is not well-formed")
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	ErrUserDisabled       = errors.New("users: account is disabled")
	ErrPermissionDenied   = errors.New("users: caller lacks the required capability")
	ErrTargetIsSuperuser  = errors.New("users: superuser grants cannot be changed")
	ErrResetTokenInvalid  = errors.New("users: reset token invalid or expired")
)

// User represents a registered account. PasswordHash and ResetToken are
// credential material and never serialize.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Token        string    `json:"token"`
	Grants       []string  `json:"grants"`
	ResetToken   string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Standing is derived from the grant list, never stored.
type Standing string

const (
	StandingEnabled  Standing = "enabled"
	StandingDisabled Standing = "disabled"
)

// Standing reports whether the account can authenticate. Revoking the
// baseline grant is the suspension mechanism: the account still exists
// and can be looked up, but authentication is blocked.
func (u User) Standing() Standing {
	if u.Enabled() {
		return StandingEnabled
	}
	return StandingDisabled
}

// Enabled reports whether the grant list includes the baseline grant.
func (u User) Enabled() bool {
	for _, g := range u.Grants {
		if g == rbac.GrantGuest {
			return true
		}
	}
	return false
}

// Subject converts the user into the snapshot sessions carry.
func (u User) Subject() *shared.Subject {
	return &shared.Subject{
		ID:       u.ID,
		Username: u.Username,
		Token:    u.Token,
		Grants:   append([]string(nil), u.Grants...),
	}
}

// Sanitized returns a copy with all credential material scrubbed.
// Directory listings must never let a password hash or reset token
// cross the boundary, regardless of the caller.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.ResetToken = ""
	u.Grants = append([]string(nil), u.Grants...)
	return u
}

var usernameProfile = precis.UsernameCaseMapped

// NormalizeUsername maps a username to its canonical lookup form:
// case-insensitive uniqueness with case-preserving storage. Usernames
// that fail the PRECIS profile are rejected outright.
func NormalizeUsername(username string) (string, error) {
	norm, err := usernameProfile.String(strings.TrimSpace(username))
	if err != nil || norm == "" {
		return "", ErrInvalidUsername
	}
	return norm, nil
}
