package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// RevocationStore abstracts the shared deny-list.
type RevocationStore interface {
	Revoke(ctx context.Context, id string, until time.Time) error
	IsRevoked(ctx context.Context, ids ...string) (bool, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service wraps authentication business rules.
type Service struct {
	repo       Repository
	tokens     *TokenIssuer
	revoked    RevocationStore
	audit      AuditPort
	logger     *slog.Logger
	iterations int
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	Iterations int
	Logger     *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenIssuer, revoked RevocationStore, audit AuditPort, cfg ServiceConfig) *Service {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, revoked: revoked, audit: audit, logger: logger, iterations: cfg.Iterations}
}

// Authenticate validates username/password credentials and opens a session.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Session, error) {
	emp, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, shared.ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !VerifyPassword(password, emp.Salt, emp.PasswordHash, s.iterations) {
		return Session{}, shared.ErrInvalidCredentials
	}
	return s.tokens.Issue(emp, uuid.NewString())
}

// Refresh exchanges a refresh token for a new pair within the same session.
// The presented refresh token is single use.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenRefresh)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.SessionID, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, fmt.Errorf("%w: session revoked", shared.ErrUnauthorized)
	}
	id, err := claims.EmployeeID()
	if err != nil {
		return Session{}, fmt.Errorf("%w: bad subject", shared.ErrUnauthorized)
	}
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Session{}, fmt.Errorf("%w: employee gone", shared.ErrUnauthorized)
		}
		return Session{}, err
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return Session{}, err
	}
	return s.tokens.Issue(emp, claims.SessionID)
}

// Authorize turns a bearer access token into a principal.
func (s *Service) Authorize(ctx context.Context, bearer string) (rbac.Principal, error) {
	claims, err := s.tokens.Parse(bearer, TokenAccess)
	if err != nil {
		return rbac.Principal{}, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.SessionID, claims.ID)
	if err != nil {
		return rbac.Principal{}, err
	}
	if revoked {
		return rbac.Principal{}, fmt.Errorf("%w: session revoked", shared.ErrUnauthorized)
	}
	id, err := claims.EmployeeID()
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("%w: bad subject", shared.ErrUnauthorized)
	}
	return rbac.Principal{
		EmployeeID: id,
		Username:   claims.Username,
		Role:       claims.Role,
		SessionID:  claims.SessionID,
		ExpiresAt:  claims.ExpiresAt.Time,
	}, nil
}

// RevokeSession denies every token of the session until until.
func (s *Service) RevokeSession(ctx context.Context, sessionID string, until time.Time) error {
	if sessionID == "" {
		return shared.Invalid("session", "is required")
	}
	return s.revoked.Revoke(ctx, sessionID, until)
}

// Logout revokes the principal's session; a presented refresh token extends the revocation window.
func (s *Service) Logout(ctx context.Context, p rbac.Principal, refreshToken string) error {
	until := p.ExpiresAt
	if refreshToken != "" {
		if claims, err := s.tokens.Parse(refreshToken, TokenRefresh); err == nil && claims.SessionID == p.SessionID {
			until = claims.ExpiresAt.Time
		}
	}
	if err := s.RevokeSession(ctx, p.SessionID, until); err != nil {
		return err
	}
	s.record(ctx, p.EmployeeID, "auth.logout", map[string]any{"session_id": p.SessionID})
	return nil
}

// CreateEmployee registers a new employee. Duplicates are rejected before any insert.
func (s *Service) CreateEmployee(ctx context.Context, input CreateEmployeeInput) (Employee, error) {
	username := strings.TrimSpace(input.Username)
	if err := ValidateUsername(username); err != nil {
		return Employee{}, err
	}
	email, err := shared.NormalizeEmail(input.Email)
	if err != nil {
		return Employee{}, err
	}
	role, err := rbac.ParseRole(input.Role)
	if err != nil {
		return Employee{}, err
	}
	if err := ValidatePassword(input.Password); err != nil {
		return Employee{}, err
	}
	taken, err := s.repo.IdentityTaken(ctx, username, email)
	if err != nil {
		return Employee{}, err
	}
	if taken {
		return Employee{}, fmt.Errorf("auth: username or email already registered: %w", shared.ErrConflict)
	}
	salt, err := NewSalt()
	if err != nil {
		return Employee{}, err
	}
	created, err := s.repo.Create(ctx, Employee{
		Username:     username,
		Email:        email,
		Role:         role,
		Salt:         salt,
		PasswordHash: HashPassword(input.Password, salt, s.iterations),
	})
	if err != nil {
		return Employee{}, err
	}
	s.record(ctx, input.ActorID, "employee.create", map[string]any{"employee_id": created.ID, "role": created.Role})
	return created, nil
}

// UpdateEmployee applies changes on behalf of actor. Admins may edit anyone;
// others only themselves, and only admins may change roles.
func (s *Service) UpdateEmployee(ctx context.Context, actor rbac.Principal, id int64, input UpdateEmployeeInput) (Employee, error) {
	if !actor.CanActOn(id) {
		return Employee{}, shared.ErrForbidden
	}
	emp, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	changed := make([]string, 0, 3)
	if input.Role != nil {
		if actor.Role != rbac.RoleAdmin {
			return Employee{}, fmt.Errorf("auth: only admins may change roles: %w", shared.ErrForbidden)
		}
		role, err := rbac.ParseRole(*input.Role)
		if err != nil {
			return Employee{}, err
		}
		emp.Role = role
		changed = append(changed, "role")
	}
	if input.Email != nil {
		email, err := shared.NormalizeEmail(*input.Email)
		if err != nil {
			return Employee{}, err
		}
		emp.Email = email
		changed = append(changed, "email")
	}
	if input.Password != nil {
		if err := ValidatePassword(*input.Password); err != nil {
			return Employee{}, err
		}
		salt, err := NewSalt()
		if err != nil {
			return Employee{}, err
		}
		emp.Salt = salt
		emp.PasswordHash = HashPassword(*input.Password, salt, s.iterations)
		changed = append(changed, "password")
	}
	if len(changed) == 0 {
		return emp, nil
	}
	updated, err := s.repo.Update(ctx, emp)
	if err != nil {
		return Employee{}, err
	}
	s.record(ctx, actor.EmployeeID, "employee.update", map[string]any{"employee_id": id, "fields": changed})
	return updated, nil
}

// ListEmployees returns every employee.
func (s *Service) ListEmployees(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, details map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{UserID: actorID, Action: action, Details: details}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
