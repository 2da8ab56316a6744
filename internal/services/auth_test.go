package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studypath/studypath-backend/internal/apierr"
	"github.com/studypath/studypath-backend/internal/logger"
	"github.com/studypath/studypath-backend/internal/requestdata"
)

func newTestAuthService(userRepo *memUserRepo) AuthService {
	return NewAuthService(logger.NewNop(), userRepo, "test-secret", time.Hour)
}

func apiCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr.Code
}

func TestRegisterUserAndLogin(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo())

	user, token, err := svc.RegisterUser(context.Background(), "Asha Rao", "Asha@Example.com ", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.Equal(t, "asha@example.com", user.Email, "email is normalized")
	require.NotEqual(t, "secret123", user.Password, "password is stored hashed")

	logged, token2, err := svc.LoginUser(context.Background(), "asha@example.com", "secret123")
	require.NoError(t, err)
	require.NotEmpty(t, token2)
	require.Equal(t, user.ID, logged.ID)
}

func TestRegisterUserValidation(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo())

	_, _, err := svc.RegisterUser(context.Background(), "", "a@b.com", "secret123")
	require.Equal(t, "missing_fields", apiCode(t, err))

	_, _, err = svc.RegisterUser(context.Background(), "A", "a@b.com", "short")
	require.Equal(t, "weak_password", apiCode(t, err))

	_, _, err = svc.RegisterUser(context.Background(), "A", "a@b.com", "secret123")
	require.NoError(t, err)
	_, _, err = svc.RegisterUser(context.Background(), "B", "A@B.COM", "secret123")
	require.Equal(t, "email_taken", apiCode(t, err))
}

func TestLoginUserRejectsBadCredentials(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo())
	_, _, err := svc.RegisterUser(context.Background(), "Asha Rao", "asha@example.com", "secret123")
	require.NoError(t, err)

	_, _, err = svc.LoginUser(context.Background(), "asha@example.com", "wrongpass")
	require.Equal(t, "invalid_credentials", apiCode(t, err))

	_, _, err = svc.LoginUser(context.Background(), "nobody@example.com", "secret123")
	require.Equal(t, "invalid_credentials", apiCode(t, err))
}

func TestSetContextFromToken(t *testing.T) {
	svc := newTestAuthService(newMemUserRepo())
	user, token, err := svc.RegisterUser(context.Background(), "Asha Rao", "asha@example.com", "secret123")
	require.NoError(t, err)

	ctx, err := svc.SetContextFromToken(context.Background(), token)
	require.NoError(t, err)
	rd := requestdata.GetRequestData(ctx)
	require.NotNil(t, rd)
	require.Equal(t, user.ID, rd.UserID)

	_, err = svc.SetContextFromToken(context.Background(), "not-a-token")
	require.Equal(t, "invalid_token", apiCode(t, err))
}

func TestSetContextFromTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(logger.NewNop(), newMemUserRepo(), "other-secret", time.Hour)
	_, token, err := issuer.RegisterUser(context.Background(), "Asha Rao", "asha@example.com", "secret123")
	require.NoError(t, err)

	svc := newTestAuthService(newMemUserRepo())
	_, err = svc.SetContextFromToken(context.Background(), token)
	var apiErr *apierr.Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "invalid_token", apiErr.Code)
}
