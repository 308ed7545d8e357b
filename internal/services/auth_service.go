package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/models"
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"github.com/taakra/engine/pkg/utils"
	"go.uber.org/zap"
)

// AuthService owns account creation, sign-in and token resolution.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Authenticate resolves the user behind an access token.
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	OAuthLogin(ctx context.Context, profile *auth.OAuthProfile) (*AuthResult, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AuthResult is a signed-in user and their fresh token pair.
type AuthResult struct {
	User   *models.User
	Tokens auth.Pair
}

var (
	errInvalidCredentials = appErr.New(appErr.CodeUnauthorized, "Invalid email or password")
	errEmailTaken         = appErr.New(appErr.CodeConflict, "An account with this email already exists")
)

type authService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, bcryptCost int) AuthService {
	return &authService{users: users, tokens: tokens, bcryptCost: bcryptCost}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := utils.NormalizeEmail(in.Email)

	var existing models.User
	err := s.users.GetByEmail(ctx, email, &existing)
	if err == nil {
		return nil, errEmailTaken
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: &hash,
		Role:         models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, errEmailTaken
		}
		return nil, err
	}

	logger.L().Info("user registered", zap.String("user_id", u.ID.String()))
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var u models.User
	if err := s.users.GetByEmail(ctx, utils.NormalizeEmail(email), &u); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !u.HasPassword() {
		provider := u.OAuthProvider
		if provider == "" {
			provider = "social"
		}
		return nil, appErr.New(appErr.CodeUnauthorized,
			fmt.Sprintf("This account uses %s login. Please sign in with %s.", provider, provider))
	}
	if !auth.CheckPassword(*u.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	return s.issue(&u)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.users.GetWithCompetitions(ctx, userID, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "No refresh token provided")
	}
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "Invalid or expired refresh token, please login again")
	}

	var u models.User
	if err := s.users.GetByID(ctx, userID, &u); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "Invalid refresh token, user not found")
		}
		return nil, err
	}
	return s.issue(&u)
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	if accessToken == "" {
		return nil, appErr.New(appErr.CodeUnauthorized, "Not authorized, no token provided")
	}
	userID, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, appErr.Wrap(err, appErr.CodeTokenExpired, "Token expired, please refresh")
		}
		return nil, appErr.Wrap(err, appErr.CodeUnauthorized, "Not authorized, invalid token")
	}

	var u models.User
	if err := s.users.GetByID(ctx, userID, &u); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "Not authorized, user not found")
		}
		return nil, err
	}
	return &u, nil
}

// OAuthLogin finds the account linked to the provider identity, links an
// existing account with the same email, or creates a new one.
func (s *authService) OAuthLogin(ctx context.Context, p *auth.OAuthProfile) (*AuthResult, error) {
	var u models.User
	err := s.users.GetByOAuth(ctx, p.Provider, p.ID, &u)
	if err == nil {
		return s.issue(&u)
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	email := utils.NormalizeEmail(p.Email)
	err = s.users.GetByEmail(ctx, email, &u)
	switch {
	case err == nil:
		fields := map[string]any{"oauth_provider": p.Provider, "oauth_id": p.ID}
		u.OAuthProvider, u.OAuthID = p.Provider, p.ID
		if u.Avatar == "" && p.Avatar != "" {
			fields["avatar"] = p.Avatar
			u.Avatar = p.Avatar
		}
		if err := s.users.UpdateFields(ctx, u.ID, fields); err != nil {
			return nil, err
		}
		logger.L().Info("oauth identity linked", zap.String("user_id", u.ID.String()), zap.String("provider", p.Provider))
		return s.issue(&u)
	case !appErr.IsCode(err, appErr.CodeNotFound):
		return nil, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	created := &models.User{
		Name:          name,
		Email:         email,
		OAuthProvider: p.Provider,
		OAuthID:       p.ID,
		Avatar:        p.Avatar,
		Role:          models.RoleUser,
	}
	if err := s.users.Create(ctx, created); err != nil {
		return nil, err
	}
	logger.L().Info("user registered via oauth", zap.String("user_id", created.ID.String()), zap.String("provider", p.Provider))
	return s.issue(created)
}

func (s *authService) issue(u *models.User) (*AuthResult, error) {
	pair, err := s.tokens.GeneratePair(u.ID)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "issue tokens failed")
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}
