package service

import (
	"context"
	"testing"
	"time"

	"nfa-backend/internal/apperr"
	"nfa-backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWTKey = []byte("test-signing-key")

func newUserTestEnv() (*testEnv, *memTokenRepo, UserService) {
	env := newTestEnv()
	tokens := newMemTokenRepo()
	svc := NewUserService(env.users, tokens, env.requests, testJWTKey, time.Hour)
	return env, tokens, svc
}

func TestRegister(t *testing.T) {
	t.Run("Should create a plain user by default", func(t *testing.T) {
		_, _, svc := newUserTestEnv()
		user, err := svc.Register(context.Background(), RegisterRequest{
			Username: "newbie", Password: "secret1", Name: "New User", Email: "new@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{model.RolePlainUser}, user.Role)
	})

	t.Run("Should refuse duplicate usernames and emails", func(t *testing.T) {
		_, _, svc := newUserTestEnv()
		_, err := svc.Register(context.Background(), RegisterRequest{
			Username: "ines", Password: "secret1", Name: "X", Email: "other@example.com",
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)

		_, err = svc.Register(context.Background(), RegisterRequest{
			Username: "fresh", Password: "secret1", Name: "X", Email: "ines@example.com",
		})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Should validate the email format", func(t *testing.T) {
		_, _, svc := newUserTestEnv()
		_, err := svc.Register(context.Background(), RegisterRequest{
			Username: "fresh", Password: "secret1", Name: "X", Email: "not-an-email",
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidState)
	})
}

func TestLogin(t *testing.T) {
	register := func(svc UserService) {
		_, err := svc.Register(context.Background(), RegisterRequest{
			Username: "carol", Password: "hunter22", Name: "Carol", Email: "carol@example.com",
		})
		if err != nil {
			panic(err)
		}
	}

	t.Run("Should issue a signed token and persist the session", func(t *testing.T) {
		_, tokens, svc := newUserTestEnv()
		register(svc)

		res, err := svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "hunter22"}, "10.0.0.1", "go-test")
		require.NoError(t, err)
		assert.Equal(t, "bearer", res.TokenType)

		parsed, err := jwt.Parse(res.AccessToken, func(*jwt.Token) (interface{}, error) { return testJWTKey, nil })
		require.NoError(t, err)
		assert.True(t, parsed.Valid)

		session, err := tokens.Get(context.Background(), res.AccessToken)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, "10.0.0.1", session.IPAddress)
		assert.Equal(t, "go-test", session.UserAgent)
	})

	t.Run("Should reject wrong credentials without leaking which part failed", func(t *testing.T) {
		_, _, svc := newUserTestEnv()
		register(svc)

		_, err := svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "wrong"}, "", "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
		_, err = svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "hunter22"}, "", "")
		assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	})

	t.Run("Should revoke sessions on logout and logout_all", func(t *testing.T) {
		env, tokens, svc := newUserTestEnv()
		register(svc)

		first, err := svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "hunter22"}, "", "a")
		require.NoError(t, err)
		second, err := svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "hunter22"}, "", "b")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(context.Background(), first.AccessToken))
		session, _ := tokens.Get(context.Background(), first.AccessToken)
		assert.Nil(t, session)
		session, _ = tokens.Get(context.Background(), second.AccessToken)
		assert.NotNil(t, session)

		carol, err := env.users.GetByUsername(context.Background(), "carol")
		require.NoError(t, err)
		require.NoError(t, svc.LogoutAll(context.Background(), carol.ID.String()))
		session, _ = tokens.Get(context.Background(), second.AccessToken)
		assert.Nil(t, session)
	})
}

func TestAdminUserManagement(t *testing.T) {
	t.Run("Should let admins create users with elevated roles", func(t *testing.T) {
		env, _, svc := newUserTestEnv()
		user, err := svc.AdminCreateUser(context.Background(), env.admin.ID.String(), RegisterRequest{
			Username: "boss", Password: "secret1", Name: "Boss", Email: "boss@example.com",
			Role: []int64{model.RoleApprover, model.RoleAdmin},
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{model.RoleApprover, model.RoleAdmin}, user.Role)
	})

	t.Run("Should forbid user management for plain users", func(t *testing.T) {
		env, _, svc := newUserTestEnv()
		_, err := svc.AdminCreateUser(context.Background(), env.outsider.ID.String(), RegisterRequest{
			Username: "boss", Password: "secret1", Name: "Boss", Email: "boss@example.com",
		})
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("Should apply only the fields present on update", func(t *testing.T) {
		env, _, svc := newUserTestEnv()
		name := "Renamed"
		user, err := svc.AdminUpdateUser(context.Background(), env.admin.ID.String(), env.outsider.ID.String(), AdminEditUserRequest{
			Name: &name,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", user.Name)
		assert.Equal(t, env.outsider.Username, user.Username)
	})

	t.Run("Should refuse deleting a user still referenced by requests", func(t *testing.T) {
		env, _, svc := newUserTestEnv()
		env.submit()

		err := svc.AdminDeleteUser(context.Background(), env.admin.ID.String(), env.initiator.ID.String())
		assert.ErrorIs(t, err, apperr.ErrConflict)

		// Supervisors are references too.
		err = svc.AdminDeleteUser(context.Background(), env.admin.ID.String(), env.supervisor.ID.String())
		assert.ErrorIs(t, err, apperr.ErrConflict)

		// An uninvolved user deletes cleanly.
		err = svc.AdminDeleteUser(context.Background(), env.admin.ID.String(), env.outsider.ID.String())
		assert.NoError(t, err)
	})

	t.Run("Should clear every session for admins only", func(t *testing.T) {
		env, tokens, svc := newUserTestEnv()
		_, err := svc.Register(context.Background(), RegisterRequest{
			Username: "carol", Password: "hunter22", Name: "Carol", Email: "carol@example.com",
		})
		require.NoError(t, err)
		res, err := svc.Login(context.Background(), LoginRequest{Username: "carol", Password: "hunter22"}, "", "")
		require.NoError(t, err)

		assert.ErrorIs(t, svc.AdminClearAllSessions(context.Background(), env.outsider.ID.String()), apperr.ErrForbidden)

		require.NoError(t, svc.AdminClearAllSessions(context.Background(), env.admin.ID.String()))
		session, _ := tokens.Get(context.Background(), res.AccessToken)
		assert.Nil(t, session)
	})
}
