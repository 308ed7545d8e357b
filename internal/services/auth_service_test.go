package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taakra/engine/internal/auth"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
)

const (
	testAccessSecret  = "access-secret-0123456789"
	testRefreshSecret = "refresh-secret-0123456789"
)

func newTokens() *auth.TokenManager {
	return auth.NewTokenManager(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)
}

func userWithPassword(t *testing.T, plain string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(plain, bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: uuid.New(), Name: "Ada", Email: "ada@example.com", PasswordHash: &hash, Role: models.RoleUser}
}

func notFound(msg string) error { return appErr.New(appErr.CodeNotFound, msg) }

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate email conflicts", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(&models.User{ID: uuid.New()}, nil)

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: " Ada@Example.com ", Password: "Passw0rd!"})

		require.Error(t, err)
		assert.True(t, appErr.IsCode(err, appErr.CodeConflict))
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("creates user with hashed password and tokens", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(nil, notFound("User not found"))
		users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return u.Email == "ada@example.com" && u.Role == models.RoleUser &&
				u.HasPassword() && *u.PasswordHash != "Passw0rd!" && auth.CheckPassword(*u.PasswordHash, "Passw0rd!")
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*models.User).ID = uuid.New()
		}).Return(nil)

		tm := newTokens()
		svc := NewAuthService(users, tm, bcrypt.MinCost)
		res, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Passw0rd!"})

		require.NoError(t, err)
		id, err := tm.ParseAccess(res.Tokens.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, res.User.ID, id)
		users.AssertExpectations(t)
	})

	t.Run("unique violation on insert maps to conflict", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(nil, notFound("User not found"))
		users.On("Create", ctx, mock.Anything).Return(appErr.New(appErr.CodeConflict, "duplicate"))

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err := svc.Register(ctx, RegisterInput{Name: "Ada", Email: "ada@example.com", Password: "Passw0rd!"})

		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, "An account with this email already exists", ae.Message)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("oauth-only account names provider", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").
			Return(&models.User{ID: uuid.New(), Email: "ada@example.com", OAuthProvider: "google"}, nil)

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err := svc.Login(ctx, "ada@example.com", "whatever")

		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, appErr.CodeUnauthorized, ae.Code)
		assert.Equal(t, "This account uses google login. Please sign in with google.", ae.Message)
	})

	t.Run("wrong password", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(userWithPassword(t, "Passw0rd!"), nil)

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err := svc.Login(ctx, "ada@example.com", "nope")

		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, "Invalid email or password", ae.Message)
	})

	t.Run("unknown email looks like wrong password", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ghost@example.com").Return(nil, notFound("User not found"))

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err := svc.Login(ctx, "ghost@example.com", "nope")

		assert.Equal(t, errInvalidCredentials, err)
	})

	t.Run("success", func(t *testing.T) {
		u := userWithPassword(t, "Passw0rd!")
		users := new(mockUserRepo)
		users.On("GetByEmail", ctx, "ada@example.com").Return(u, nil)

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		res, err := svc.Login(ctx, "ADA@example.com", "Passw0rd!")

		require.NoError(t, err)
		assert.Equal(t, u.ID, res.User.ID)
		assert.NotEmpty(t, res.Tokens.RefreshToken)
	})
}

func TestAuthService_Authenticate(t *testing.T) {
	ctx := context.Background()
	u := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	t.Run("expired token has distinct code", func(t *testing.T) {
		issued := time.Now().Add(-16 * time.Minute)
		old := newTokens().WithClock(func() time.Time { return issued })
		pair, err := old.GeneratePair(u.ID)
		require.NoError(t, err)

		svc := NewAuthService(new(mockUserRepo), newTokens(), bcrypt.MinCost)
		_, err = svc.Authenticate(ctx, pair.AccessToken)

		assert.True(t, appErr.IsCode(err, appErr.CodeTokenExpired))
	})

	t.Run("garbage token is invalid", func(t *testing.T) {
		svc := NewAuthService(new(mockUserRepo), newTokens(), bcrypt.MinCost)
		_, err := svc.Authenticate(ctx, "not-a-jwt")

		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, appErr.CodeUnauthorized, ae.Code)
		assert.Equal(t, "Not authorized, invalid token", ae.Message)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		pair, err := newTokens().GeneratePair(u.ID)
		require.NoError(t, err)

		svc := NewAuthService(new(mockUserRepo), newTokens(), bcrypt.MinCost)
		_, err = svc.Authenticate(ctx, pair.RefreshToken)
		assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
	})

	t.Run("deleted user", func(t *testing.T) {
		pair, err := newTokens().GeneratePair(u.ID)
		require.NoError(t, err)
		users := new(mockUserRepo)
		users.On("GetByID", ctx, u.ID).Return(nil, notFound("User not found"))

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		_, err = svc.Authenticate(ctx, pair.AccessToken)

		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, "Not authorized, user not found", ae.Message)
	})

	t.Run("valid", func(t *testing.T) {
		pair, err := newTokens().GeneratePair(u.ID)
		require.NoError(t, err)
		users := new(mockUserRepo)
		users.On("GetByID", ctx, u.ID).Return(u, nil)

		svc := NewAuthService(users, newTokens(), bcrypt.MinCost)
		got, err := svc.Authenticate(ctx, pair.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, got.Role)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	u := &models.User{ID: uuid.New()}
	tm := newTokens()

	svc := NewAuthService(new(mockUserRepo), tm, bcrypt.MinCost)
	_, err := svc.Refresh(ctx, "")
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))

	pair, err := tm.GeneratePair(u.ID)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.True(t, appErr.IsCode(err, appErr.CodeUnauthorized), "access token must not refresh")

	users := new(mockUserRepo)
	users.On("GetByID", ctx, u.ID).Return(u, nil)
	svc = NewAuthService(users, tm, bcrypt.MinCost)

	res, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	id, err := tm.ParseAccess(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestAuthService_OAuthLogin(t *testing.T) {
	ctx := context.Background()
	profile := &auth.OAuthProfile{Provider: "google", ID: "g-1", Email: "Ada@Example.com", Name: "Ada", Avatar: "https://img/ada.png"}

	t.Run("existing link", func(t *testing.T) {
		linked := &models.User{ID: uuid.New(), OAuthProvider: "google", OAuthID: "g-1"}
		users := new(mockUserRepo)
		users.On("GetByOAuth", ctx, "google", "g-1").Return(linked, nil)

		res, err := NewAuthService(users, newTokens(), bcrypt.MinCost).OAuthLogin(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, linked.ID, res.User.ID)
		users.AssertNotCalled(t, "GetByEmail", mock.Anything, mock.Anything)
	})

	t.Run("links by email and keeps avatar", func(t *testing.T) {
		existing := userWithPassword(t, "Passw0rd!")
		existing.Avatar = "https://img/mine.png"
		users := new(mockUserRepo)
		users.On("GetByOAuth", ctx, "google", "g-1").Return(nil, notFound("User not found"))
		users.On("GetByEmail", ctx, "ada@example.com").Return(existing, nil)
		users.On("UpdateFields", ctx, existing.ID, map[string]any{"oauth_provider": "google", "oauth_id": "g-1"}).Return(nil)

		res, err := NewAuthService(users, newTokens(), bcrypt.MinCost).OAuthLogin(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, "https://img/mine.png", res.User.Avatar)
		assert.Equal(t, "google", res.User.OAuthProvider)
		users.AssertExpectations(t)
	})

	t.Run("creates new account", func(t *testing.T) {
		users := new(mockUserRepo)
		users.On("GetByOAuth", ctx, "google", "g-1").Return(nil, notFound("User not found"))
		users.On("GetByEmail", ctx, "ada@example.com").Return(nil, notFound("User not found"))
		users.On("Create", ctx, mock.MatchedBy(func(u *models.User) bool {
			return !u.HasPassword() && u.OAuthID == "g-1" && u.Avatar == profile.Avatar
		})).Return(nil)

		res, err := NewAuthService(users, newTokens(), bcrypt.MinCost).OAuthLogin(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", res.User.Email)
		users.AssertExpectations(t)
	})
}
