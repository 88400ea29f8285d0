// Package auth owns the session lifecycle: login, registration,
// sign-out and password recovery.
package auth

import (
	"context"

	"github.com/shapeup-labs/shapeup/internal/shared"
	"github.com/shapeup-labs/shapeup/internal/users"
)

// Service wraps authentication business rules around the user
// directory and publishes session change notifications.
type Service struct {
	users    *users.Service
	notifier *shared.Notifier
}

// NewService constructs a new Service.
func NewService(userService *users.Service, notifier *shared.Notifier) *Service {
	return &Service{users: userService, notifier: notifier}
}

// Login validates credentials and returns the authenticated user.
func (s *Service) Login(ctx context.Context, username, password string) (users.User, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return users.User{}, err
	}
	s.notifier.Publish(shared.Event{Kind: shared.EventLogin, Subject: user.Subject()})
	return user, nil
}

// Register creates an account and treats it as signed in, mirroring the
// register-then-enter flow.
func (s *Service) Register(ctx context.Context, username, password string) (users.User, error) {
	user, err := s.users.Register(ctx, username, password)
	if err != nil {
		return users.User{}, err
	}
	s.notifier.Publish(shared.Event{Kind: shared.EventLogin, Subject: user.Subject()})
	return user, nil
}

// Logout publishes the sign-out notification; the handler clears the
// persisted snapshot.
func (s *Service) Logout(ctx context.Context, sub *shared.Subject) {
	s.notifier.Publish(shared.Event{Kind: shared.EventLogout, Subject: sub})
}

// ForgotPassword issues a reset token for the account, if it exists.
func (s *Service) ForgotPassword(ctx context.Context, username string) (string, error) {
	return s.users.ForgotPassword(ctx, username)
}

// ResetPassword consumes a reset token and stores the new credential.
func (s *Service) ResetPassword(ctx context.Context, username, token, newPassword string) error {
	return s.users.ResetPassword(ctx, username, token, newPassword)
}

// CurrentUser resolves the session subject back to the directory
// record.
func (s *Service) CurrentUser(ctx context.Context, sub *shared.Subject) (users.User, error) {
	if sub == nil {
		return users.User{}, users.ErrNotFound
	}
	return s.users.FindByID(ctx, sub.ID)
}
