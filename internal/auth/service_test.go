package auth_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/auth"
	"github.com/hugh/toga/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthService(t *testing.T) *auth.Service {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	return auth.NewService(db, testutil.CreateTestJWTService(), "lsu.edu")
}

func TestService_Register(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@lsu.edu",
		Password: "pw123",
		Username: "alice",
		FullName: "Alice Smith",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice@lsu.edu", resp.User.Email)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotEmpty(t, resp.User.ID)
	// The bcrypt hash never equals the raw password
	assert.NotEqual(t, "pw123", resp.User.PasswordHash)
}

func TestService_Register_WrongDomain(t *testing.T) {
	svc := setupAuthService(t)

	_, err := svc.Register(context.Background(), auth.RegisterInput{
		Email:    "bob@gmail.com",
		Password: "pw123",
		Username: "bob",
	})
	assert.ErrorIs(t, err, auth.ErrInvalidEmailDomain)
}

func TestService_Register_Duplicates(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@lsu.edu",
		Password: "pw123",
		Username: "alice",
	})
	require.NoError(t, err)

	// Same email, different username
	_, err = svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@lsu.edu",
		Password: "other",
		Username: "alice2",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)

	// Same username, different email
	_, err = svc.Register(ctx, auth.RegisterInput{
		Email:    "alice.b@lsu.edu",
		Password: "other",
		Username: "alice",
	})
	assert.ErrorIs(t, err, auth.ErrUserExists)
}

func TestService_Login(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@lsu.edu",
		Password: "pw123",
		Username: "alice",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, auth.LoginInput{Email: "alice@lsu.edu", Password: "pw123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
}

func TestService_Login_BadCredentials(t *testing.T) {
	svc := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, auth.RegisterInput{
		Email:    "alice@lsu.edu",
		Password: "pw123",
		Username: "alice",
	})
	require.NoError(t, err)

	// Wrong password and unknown email both collapse to the same error
	_, err = svc.Login(ctx, auth.LoginInput{Email: "alice@lsu.edu", Password: "wrong"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(ctx, auth.LoginInput{Email: "nobody@lsu.edu", Password: "pw123"})
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestService_GetUserByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })
	svc := auth.NewService(db, testutil.CreateTestJWTService(), "")

	user := testutil.CreateTestUser(t, db)

	got, err := svc.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	_, err = svc.GetUserByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}
