package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hrportal/internal/auth"
	"hrportal/internal/model"
	"hrportal/internal/repository"
	"hrportal/pkg/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required"`
}

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	CreateUser(ctx context.Context, actor model.Identity, req CreateUserRequest) (*UserResponse, error)
	EnsureHR(ctx context.Context, email, password string) error
	Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, actor model.Identity, role string, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	repo       repository.UserRepository
	audits     repository.AuditRepository
	tokens     *auth.Tokens
	refreshTTL time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, audits repository.AuditRepository, tokens *auth.Tokens, refreshTTL time.Duration, log *zap.Logger) UserService {
	return &userService{
		repo:       repo,
		audits:     audits,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		log:        log,
		now:        time.Now,
	}
}

func mapToResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) CreateUser(ctx context.Context, actor model.Identity, req CreateUserRequest) (*UserResponse, error) {
	if actor.IsZero() {
		return nil, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, ErrForbidden
	}

	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.audits.Log(ctx, &model.AuditLog{
		UserID:     &actor.UserID,
		Action:     model.ActionCreateUser,
		EntityID:   user.ID.String(),
		EntityName: user.Username,
		Details:    auditDetails(map[string]interface{}{"role": user.Role, "email": user.Email}),
	})
	if err != nil {
		s.log.Warn("Failed to write audit log", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	return mapToResponse(user), nil
}

func (s *userService) create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if !model.ValidRole(req.Role) {
		return nil, fmt.Errorf("%w: role must be %s or %s", ErrInvalidInput, model.RoleEmployee, model.RoleHR)
	}
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", ErrInvalidInput)
	}
	if len(req.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username or email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// EnsureHR creates the first HR account unless the email is already registered
func (s *userService) EnsureHR(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap account: %w", err)
	}

	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	user, err := s.create(ctx, CreateUserRequest{Username: username, Email: email, Password: password, Role: model.RoleHR})
	if err != nil {
		return err
	}
	s.log.Info("Bootstrap HR account created", zap.String("user_id", user.ID.String()), zap.String("email", email))
	return nil
}

func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	rt, err := s.repo.ConsumeRefreshToken(ctx, req.RefreshToken, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: refresh token is invalid or expired", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to consume refresh token: %w", err)
	}

	user, err := s.repo.GetByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return s.issue(ctx, user)
}

func (s *userService) issue(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := s.now()
	access, err := s.tokens.Issue(model.Identity{UserID: user.ID, Username: user.Username, Role: user.Role}, now)
	if err != nil {
		return nil, err
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        access,
		RefreshToken: refresh.Token,
		ExpiresIn:    int(s.tokens.TTL().Seconds()),
		User:         *mapToResponse(user),
	}, nil
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return mapToResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, actor model.Identity, role string, page, limit int) ([]UserResponse, int64, error) {
	if actor.IsZero() {
		return nil, 0, ErrUnauthenticated
	}
	if !actor.CanReview() {
		return nil, 0, ErrForbidden
	}
	if role != "" && !model.ValidRole(role) {
		return nil, 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	p := pagination.Normalize(page, limit)

	users, total, err := s.repo.List(ctx, role, p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToResponse(&users[i]))
	}
	return responses, total, nil
}
