package service

import (
	"context"
	"testing"
	"time"

	"hrportal/internal/auth"
	"hrportal/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestUserService(users ...model.User) (*userService, *mockUserRepo, *mockAuditRepo, *auth.Tokens) {
	repo := newMockUserRepo(users...)
	audits := &mockAuditRepo{}
	tokens := auth.NewTokens([]byte("test-secret"), time.Hour)
	svc := NewUserService(repo, audits, tokens, 24*time.Hour, zap.NewNop()).(*userService)
	return svc, repo, audits, tokens
}

func TestUserService_CreateUser(t *testing.T) {
	_, hr := reviewer("jane")
	_, ana := employee("ana")
	svc, repo, audits, _ := newTestUserService()

	res, err := svc.CreateUser(context.Background(), hr, CreateUserRequest{
		Username: "bob", Email: "Bob@Example.com", Password: "secret1", Role: model.RoleEmployee,
	})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", res.Email)
	assert.Equal(t, model.RoleEmployee, res.Role)

	stored, err := repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret1")))
	assert.Equal(t, []string{model.ActionCreateUser}, audits.actions())

	_, err = svc.CreateUser(context.Background(), hr, CreateUserRequest{
		Username: "bob2", Email: "bob@example.com", Password: "secret1", Role: model.RoleEmployee,
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateUser(context.Background(), hr, CreateUserRequest{
		Username: "carl", Email: "carl@example.com", Password: "secret1", Role: "admin",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateUser(context.Background(), ana, CreateUserRequest{
		Username: "dan", Email: "dan@example.com", Password: "secret1", Role: model.RoleHR,
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUserService_LoginRefreshLogout(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	user, _ := employee("ana")
	user.Password = string(hash)
	svc, _, _, tokens := newTestUserService(user)

	_, err = svc.Login(context.Background(), LoginUserRequest{Email: user.Email, Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), LoginUserRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := svc.Login(context.Background(), LoginUserRequest{Email: user.Email, Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, 3600, login.ExpiresIn)
	id, err := tokens.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id.UserID)
	assert.Equal(t, model.RoleEmployee, id.Role)

	refreshed, err := svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	require.NoError(t, svc.Logout(context.Background(), refreshed.RefreshToken))
	_, err = svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: refreshed.RefreshToken})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserService_RefreshExpired(t *testing.T) {
	user, _ := employee("ana")
	svc, repo, _, _ := newTestUserService(user)
	require.NoError(t, repo.SaveRefreshToken(context.Background(), &model.RefreshToken{
		UserID: user.ID, Token: "old", ExpiresAt: time.Now().Add(-time.Minute),
	}))

	_, err := svc.Refresh(context.Background(), RefreshTokenRequest{RefreshToken: "old"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserService_EnsureHR(t *testing.T) {
	svc, repo, _, _ := newTestUserService()

	require.NoError(t, svc.EnsureHR(context.Background(), "HR@corp.example", "changeme"))
	require.NoError(t, svc.EnsureHR(context.Background(), "hr@corp.example", "changeme"))
	require.NoError(t, svc.EnsureHR(context.Background(), "", ""))

	users, total, err := repo.List(context.Background(), model.RoleHR, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "hr", users[0].Username)
}

func TestUserService_ListUsers(t *testing.T) {
	hrUser, hr := reviewer("jane")
	emp, ana := employee("ana")
	svc, _, _, _ := newTestUserService(hrUser, emp)

	users, total, err := svc.ListUsers(context.Background(), hr, model.RoleEmployee, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ana", users[0].Username)

	_, _, err = svc.ListUsers(context.Background(), ana, "", 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.ListUsers(context.Background(), hr, "root", 1, 10)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
