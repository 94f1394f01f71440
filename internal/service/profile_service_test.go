package service

import (
	"context"
	"learner_dashboard/internal/model"
	"learner_dashboard/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func validationField(t *testing.T, err error) string {
	t.Helper()
	ve, ok := util.AsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	return ve.Field
}

func TestProfileServiceChangePasswordValidation(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	tests := []struct {
		name                   string
		current, next, confirm string
		field                  string
	}{
		{"missing current", "", "nouveaumotdepasse", "nouveaumotdepasse", "current_password"},
		{"too short", "ancienmotdepasse", "court", "court", "new_password"},
		{"mismatch", "ancienmotdepasse", "nouveaumotdepasse", "autrechose", "confirm_password"},
		{"same as current", "ancienmotdepasse", "ancienmotdepasse", "ancienmotdepasse", "new_password"},
		{"wrong current", "mauvaismotdepasse", "nouveaumotdepasse", "nouveaumotdepasse", "current_password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.profile.ChangePassword(ctx, testUserID, tt.current, tt.next, tt.confirm)
			assert.Equal(t, tt.field, validationField(t, err))
		})
	}
	assert.Empty(t, e.mailer.subjects())
}

func TestProfileServiceChangePassword(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	require.NoError(t, e.profile.ChangePassword(ctx, testUserID, "ancienmotdepasse", "nouveaumotdepasse", "nouveaumotdepasse"))

	user, err := e.users.FindByID(ctx, testUserID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("nouveaumotdepasse")))

	assert.Len(t, e.events.ofType(model.EventPasswordChanged), 1)
	assert.Equal(t, []string{"Mot de passe modifié"}, e.mailer.subjects())

	notifications, err := e.notifications.List(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotifySecurity, notifications[0].Type)
}

func TestProfileServiceUpdateEmail(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.users.add(model.User{BaseModel: model.BaseModel{ID: 2}, Name: "Karim", Email: "karim@example.com"})

	for _, bad := range []string{"", "   ", "pas-un-email", "Amina <amina@example.org>"} {
		err := e.profile.UpdateEmail(ctx, testUserID, bad)
		assert.Equal(t, "email", validationField(t, err), bad)
	}

	err := e.profile.UpdateEmail(ctx, testUserID, "Karim@Example.com")
	assert.Equal(t, "email", validationField(t, err))

	// 与当前相同：无操作
	require.NoError(t, e.profile.UpdateEmail(ctx, testUserID, "AMINA@example.com"))
	assert.Empty(t, e.events.ofType(model.EventProfileUpdated))

	require.NoError(t, e.profile.UpdateEmail(ctx, testUserID, "  amina.n@example.org "))
	user, err := e.users.FindByID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "amina.n@example.org", user.Email)

	updates := e.events.ofType(model.EventProfileUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, "amina@example.com", updates[0].Payload["from"])
}
