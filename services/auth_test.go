package services

import (
	"context"
	"fmt"
	"testing"

	"canteen-api/apperr"
	"canteen-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIssuer struct{}

func (stubIssuer) GenerateToken(userID uint, _ string, role models.UserRole) (string, error) {
	return fmt.Sprintf("token-%d-%s", userID, role), nil
}

func TestAuth_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := NewAuthService(f.db, stubIssuer{}, quietLogger())
	student := f.user("Priya", models.RoleStudent)

	sess, err := auth.Login(ctx, "  PRIYA@campus.test ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("token-%d-student", student.ID), sess.Token)
	assert.Equal(t, student.ID, sess.User.ID)

	_, err = auth.Login(ctx, "priya@campus.test", "wrong")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = auth.Login(ctx, "nobody@campus.test", "secret123")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuth_StaffLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := NewAuthService(f.db, stubIssuer{}, quietLogger())
	f.user("Chef", models.RoleStaff)
	student := f.user("Kid", models.RoleStudent)
	username := "kid"
	require.NoError(t, f.db.Model(&student).Update("username", username).Error)

	sess, err := auth.StaffLogin(ctx, "Chef", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, sess.User.Role)

	_, err = auth.StaffLogin(ctx, "kid", "secret123")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = auth.StaffLogin(ctx, "chef", "nope")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuth_ProfileAndUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := NewAuthService(f.db, stubIssuer{}, quietLogger())
	f.user("Admin", models.RoleAdmin)
	student := f.user("Mia", models.RoleStudent)

	u, err := auth.Profile(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "mia@campus.test", u.Email)

	_, err = auth.Profile(ctx, 999)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	users, err := auth.ListUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, users, 2)

	students, err := auth.ListUsers(ctx, "student")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].ID)

	_, err = auth.ListUsers(ctx, "chef")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
