package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"
	"nfa-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for request validation

type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Password string  `json:"password" binding:"required,min=6"`
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Role     []int64 `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type SessionInfo struct {
	SessionID string `json:"session_id"`
	LoginTime string `json:"login_time"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// AdminEditUserRequest applies only the fields that are present.
type AdminEditUserRequest struct {
	Username *string  `json:"username"`
	Password *string  `json:"password"`
	Name     *string  `json:"name"`
	Email    *string  `json:"email"`
	Role     *[]int64 `json:"role"`
}

// UserResponse returns User data without exposing sensitive fields.
type UserResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Role     []int64 `json:"role"`
}

// UserService defines the business logic for users, authentication and
// server-side session management.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest, ip, userAgent string) (*TokenResponse, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, callerID string) error
	ListSessions(ctx context.Context, callerID string) ([]SessionInfo, error)
	GetUserByID(ctx context.Context, id string) (*UserResponse, error)
	ListUsers(ctx context.Context) ([]UserResponse, error)
	AdminCreateUser(ctx context.Context, callerID string, req RegisterRequest) (*UserResponse, error)
	AdminUpdateUser(ctx context.Context, callerID, id string, req AdminEditUserRequest) (*UserResponse, error)
	AdminDeleteUser(ctx context.Context, callerID, id string) error
	AdminClearAllSessions(ctx context.Context, callerID string) error
}

type userService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	requests repository.RequestRepository
	jwtKey   []byte
	tokenTTL time.Duration
}

// NewUserService returns a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	requests repository.RequestRepository,
	jwtKey []byte,
	tokenTTL time.Duration,
) UserService {
	return &userService{
		users:    users,
		tokens:   tokens,
		requests: requests,
		jwtKey:   jwtKey,
		tokenTTL: tokenTTL,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	return s.createUser(ctx, req)
}

func (s *userService) createUser(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if !emailRegex.MatchString(req.Email) {
		return nil, apperr.InvalidState("invalid email format")
	}
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, apperr.Conflict("user with this username already exists")
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperr.Conflict("user with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if len(role) == 0 {
		role = []int64{model.RolePlainUser}
	}
	user := &model.User{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Role:     pq.Int64Array(role),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest, ip, userAgent string) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: incorrect username or password", apperr.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: incorrect username or password", apperr.ErrUnauthorized)
	}

	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID.String(),
		"roles": user.Role,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Persist the session so it can be listed and revoked server-side.
	session := &model.SessionToken{
		UserID:    user.ID,
		Token:     signed,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.tokens.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	return &TokenResponse{AccessToken: signed, TokenType: "bearer"}, nil
}

func (s *userService) Logout(ctx context.Context, token string) error {
	return s.tokens.Delete(ctx, token)
}

func (s *userService) LogoutAll(ctx context.Context, callerID string) error {
	id, err := uuid.Parse(callerID)
	if err != nil {
		return fmt.Errorf("%w: invalid caller id", apperr.ErrUnauthorized)
	}
	return s.tokens.DeleteByUser(ctx, id)
}

func (s *userService) ListSessions(ctx context.Context, callerID string) ([]SessionInfo, error) {
	id, err := uuid.Parse(callerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid caller id", apperr.ErrUnauthorized)
	}
	tokens, err := s.tokens.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	sessions := make([]SessionInfo, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, SessionInfo{
			SessionID: t.Token,
			LoginTime: t.CreatedAt.Format(time.RFC3339),
			IPAddress: t.IPAddress,
			UserAgent: t.UserAgent,
		})
	}
	return sessions, nil
}

func (s *userService) GetUserByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	return mapToUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context) ([]UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapToUserResponse(&users[i]))
	}
	return responses, nil
}

func (s *userService) AdminCreateUser(ctx context.Context, callerID string, req RegisterRequest) (*UserResponse, error) {
	if err := s.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	return s.createUser(ctx, req)
}

func (s *userService) AdminUpdateUser(ctx context.Context, callerID, id string, req AdminEditUserRequest) (*UserResponse, error) {
	if err := s.requireElevated(ctx, callerID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}

	if req.Username != nil && *req.Username != "" && *req.Username != user.Username {
		if _, err := s.users.GetByUsername(ctx, *req.Username); err == nil {
			return nil, apperr.Conflict("username already exists")
		}
		user.Username = *req.Username
	}
	if req.Password != nil && *req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashed)
	}
	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != "" {
		if !emailRegex.MatchString(*req.Email) {
			return nil, apperr.InvalidState("invalid email format")
		}
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = pq.Int64Array(*req.Role)
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return mapToUserResponse(user), nil
}

// AdminDeleteUser refuses to delete a user who still initiates or supervises
// requests, so the approval chains stay resolvable.
func (s *userService) AdminDeleteUser(ctx context.Context, callerID, id string) error {
	if err := s.requireElevated(ctx, callerID); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("user not found")
	}
	involved, err := s.requests.CountInvolving(ctx, user.ID)
	if err != nil {
		return err
	}
	if involved > 0 {
		return apperr.Conflict("user is referenced by %d request(s); reassign or withdraw them first", involved)
	}
	if err := s.tokens.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}
	return s.users.Delete(ctx, id)
}

func (s *userService) AdminClearAllSessions(ctx context.Context, callerID string) error {
	if err := s.requireElevated(ctx, callerID); err != nil {
		return err
	}
	return s.tokens.DeleteAll(ctx)
}

func (s *userService) requireElevated(ctx context.Context, callerID string) error {
	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return fmt.Errorf("%w: caller identity not found", apperr.ErrUnauthorized)
	}
	if !caller.IsElevated() {
		return apperr.Forbidden("admin privileges required")
	}
	return nil
}
