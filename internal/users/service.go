package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shapeup-labs/shapeup/internal/rbac"
	"github.com/shapeup-labs/shapeup/internal/shared"
)

// Service owns the user directory business rules.
type Service struct {
	repo          RepositoryPort
	registry      *rbac.Registry
	audit         *shared.AuditLogger
	notifier      *shared.Notifier
	logger        *slog.Logger
	superuserID   string
	superuserNorm string
}

// NewService constructs a Service. Audit and notifier may be nil in
// tests.
func NewService(repo RepositoryPort, registry *rbac.Registry, audit *shared.AuditLogger, notifier *shared.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, registry: registry, audit: audit, notifier: notifier, logger: logger}
}

// SeedSuperuser creates the one account exempt from grant mutation. It
// always holds both reserved grants. Safe to call again with the same
// username.
func (s *Service) SeedSuperuser(ctx context.Context, username, password string) (User, error) {
	norm, err := NormalizeUsername(username)
	if err != nil {
		return User{}, err
	}

	if existing, err := s.repo.FindByUsername(ctx, username); err == nil {
		s.superuserID = existing.ID
		s.superuserNorm = norm
		return existing, nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.Insert(ctx, User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Token:        newToken(),
		Grants:       []string{rbac.GrantAdministrator, rbac.GrantGuest},
	})
	if err != nil {
		return User{}, err
	}
	s.superuserID = user.ID
	s.superuserNorm = norm
	s.logger.Info("superuser seeded", slog.String("user_id", user.ID))
	return user, nil
}

// SuperuserID returns the seeded superuser's ID.
func (s *Service) SuperuserID() string {
	return s.superuserID
}

// Register creates an account holding exactly the baseline grant.
func (s *Service) Register(ctx context.Context, username, password string) (User, error) {
	user, err := s.create(ctx, username, password)
	if err != nil {
		return User{}, err
	}
	s.notifier.Publish(shared.Event{Kind: shared.EventUserChanged, Subject: user.Subject()})
	return user, nil
}

// CreateByAdmin is the administrator variant of Register: same
// validation, requires the caller to resolve to full administration,
// and never touches the caller's own session.
func (s *Service) CreateByAdmin(ctx context.Context, caller *shared.Subject, username, password string) (User, error) {
	if err := s.requireAdministration(ctx, caller); err != nil {
		return User{}, err
	}
	user, err := s.create(ctx, username, password)
	if err != nil {
		return User{}, err
	}
	s.recordAudit(ctx, caller, "user.create", user.ID, map[string]any{"username": user.Username})
	return user, nil
}

// Authenticate validates username/password credentials. An account
// whose grants no longer include the baseline grant is
// authenticated-but-blocked.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !user.Enabled() {
		return User{}, ErrUserDisabled
	}
	return user, nil
}

// UpdateGrants replaces a user's grant assignments. The capability
// check runs against the caller's resolved permissions, not the
// target's. Assigning the administrator grant forces the baseline grant
// into the stored set.
func (s *Service) UpdateGrants(ctx context.Context, caller *shared.Subject, userID string, grantIDs []string) (User, error) {
	if err := s.requireAdministration(ctx, caller); err != nil {
		return User{}, err
	}
	if userID == s.superuserID {
		return User{}, ErrTargetIsSuperuser
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return User{}, err
	}

	user.Grants = normalizeGrantSet(grantIDs)
	if err := s.repo.Save(ctx, user); err != nil {
		return User{}, err
	}

	s.recordAudit(ctx, caller, "user.grants", user.ID, map[string]any{"grants": user.Grants})
	s.notifier.Publish(shared.Event{Kind: shared.EventUserChanged, Subject: user.Subject()})
	return user, nil
}

// List returns every account with credential material scrubbed.
func (s *Service) List(ctx context.Context, caller *shared.Subject) ([]User, error) {
	if err := s.requireAdministration(ctx, caller); err != nil {
		return nil, err
	}
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, len(all))
	for i, u := range all {
		out[i] = u.Sanitized()
	}
	return out, nil
}

// FindByID fetches one user.
func (s *Service) FindByID(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByUsername fetches one user through the canonical username form.
func (s *Service) FindByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// ForgotPassword issues a one-time reset token for the account.
func (s *Service) ForgotPassword(ctx context.Context, username string) (string, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	user.ResetToken = newToken()
	if err := s.repo.Save(ctx, user); err != nil {
		return "", err
	}
	return user.ResetToken, nil
}

// ResetPassword consumes a reset token and stores the new credential.
func (s *Service) ResetPassword(ctx context.Context, username, token, newPassword string) error {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return ErrResetTokenInvalid
	}
	if user.ResetToken == "" || user.ResetToken != token {
		return ErrResetTokenInvalid
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	return s.repo.Save(ctx, user)
}

func (s *Service) create(ctx context.Context, username, password string) (User, error) {
	norm, err := NormalizeUsername(username)
	if err != nil {
		return User{}, err
	}
	if norm == s.superuserNorm {
		return User{}, ErrReservedUsername
	}
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Insert(ctx, User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
		Token:        newToken(),
		Grants:       []string{rbac.GrantGuest},
	})
}

// requireAdministration resolves the caller's grants through the
// registry. Anything short of a positive answer denies.
func (s *Service) requireAdministration(ctx context.Context, caller *shared.Subject) error {
	if caller == nil {
		return ErrPermissionDenied
	}
	if !s.registry.HasPermission(ctx, caller.Grants, rbac.PermFullAdministration) {
		return ErrPermissionDenied
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, caller *shared.Subject, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor := ""
	if caller != nil {
		actor = caller.ID
	}
	if err := s.audit.Record(ctx, shared.AuditLog{Actor: actor, Action: action, Entity: "user", EntityID: entityID, Meta: meta}); err != nil {
		s.logger.Warn("audit record", slog.Any("error", err))
	}
}

// normalizeGrantSet de-duplicates in first-occurrence order and applies
// the administrator-implies-member closure. Idempotent: re-applying an
// already-closed set yields the same set. Dangling grant IDs are kept;
// they resolve to nothing at evaluation time.
func normalizeGrantSet(grantIDs []string) []string {
	seen := make(map[string]struct{}, len(grantIDs))
	out := make([]string, 0, len(grantIDs))
	hasAdmin := false
	hasGuest := false
	for _, id := range grantIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		switch id {
		case rbac.GrantAdministrator:
			hasAdmin = true
		case rbac.GrantGuest:
			hasGuest = true
		}
	}
	if hasAdmin && !hasGuest {
		out = append(out, rbac.GrantGuest)
	}
	return out
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("users: password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func newToken() string {
	return uuid.NewString()
}
