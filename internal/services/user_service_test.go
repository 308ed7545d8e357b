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
	"github.com/taakra/engine/internal/repository"
	appErr "github.com/taakra/engine/pkg/errors"
)

func TestUserService_MyCompetitions(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	comps := new(mockCompetitionRepo)
	comps.On("ListByParticipant", ctx, userID).Return([]models.Participant{
		{UserID: userID, Status: models.StatusConfirmed, RegisteredAt: at, Competition: &models.Competition{Title: "Go Cup"}},
		// competition deleted between the participant query and its preload
		{UserID: userID, Status: models.StatusPending},
	}, nil)

	out, err := NewUserService(new(mockUserRepo), comps, bcrypt.MinCost).MyCompetitions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Go Cup", out[0].Title)
	assert.Equal(t, models.StatusConfirmed, out[0].RegistrationStatus)
	assert.Equal(t, at, out[0].RegisteredAt)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("oauth user", func(t *testing.T) {
		u := &models.User{ID: uuid.New(), OAuthProvider: "google"}
		users := new(mockUserRepo)
		users.On("GetByID", ctx, u.ID).Return(u, nil)

		err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).ChangePassword(ctx, u.ID, "a", "Newpassw0rd")
		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, appErr.CodeInvalid, ae.Code)
		assert.Equal(t, "OAuth users cannot change password", ae.Message)
	})

	t.Run("linked account with password may change it", func(t *testing.T) {
		u := userWithPassword(t, "Passw0rd!")
		u.OAuthProvider = "google"
		users := new(mockUserRepo)
		users.On("GetByID", ctx, u.ID).Return(u, nil)
		users.On("UpdateFields", ctx, u.ID, mock.MatchedBy(func(f map[string]any) bool {
			h, ok := f["password_hash"].(string)
			return ok && auth.CheckPassword(h, "Newpassw0rd")
		})).Return(nil)

		err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).ChangePassword(ctx, u.ID, "Passw0rd!", "Newpassw0rd")
		require.NoError(t, err)
		users.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		u := userWithPassword(t, "Passw0rd!")
		users := new(mockUserRepo)
		users.On("GetByID", ctx, u.ID).Return(u, nil)

		err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).ChangePassword(ctx, u.ID, "nope", "Newpassw0rd")
		ae, ok := appErr.As(err)
		require.True(t, ok)
		assert.Equal(t, appErr.CodeUnauthorized, ae.Code)
		assert.Equal(t, "Current password is incorrect", ae.Message)
	})
}

func TestUserService_UpdateRole(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	_, err := NewUserService(new(mockUserRepo), new(mockCompetitionRepo), bcrypt.MinCost).UpdateRole(ctx, id, "root")
	ae, ok := appErr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid role", ae.Message)

	users := new(mockUserRepo)
	users.On("UpdateFields", ctx, id, map[string]any{"role": "support"}).Return(nil)
	users.On("GetWithCompetitions", ctx, id).Return(&models.User{ID: id, Role: models.RoleSupport}, nil)

	u, err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).UpdateRole(ctx, id, "support")
	require.NoError(t, err)
	assert.Equal(t, models.RoleSupport, u.Role)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepo)
	users.On("List", ctx, repository.UserFilter{Role: models.RoleAdmin, Search: "ada"}).Return([]models.User{{Name: "Ada"}}, nil)

	out, err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).List(ctx, "admin", " ada ")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	_, err = NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).List(ctx, "wizard", "")
	assert.True(t, appErr.IsCode(err, appErr.CodeInvalid))
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	name := " Grace "
	users := new(mockUserRepo)
	users.On("UpdateFields", ctx, id, map[string]any{"name": "Grace"}).Return(nil)
	users.On("GetWithCompetitions", ctx, id).Return(&models.User{ID: id, Name: "Grace"}, nil)

	u, err := NewUserService(users, new(mockCompetitionRepo), bcrypt.MinCost).UpdateProfile(ctx, id, ProfileInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Grace", u.Name)
	users.AssertExpectations(t)
}
