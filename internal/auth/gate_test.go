package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestGate(t *testing.T, password string) *Gate {
	t.Helper()
	store, err := NewMemoryStore(password)
	require.NoError(t, err)
	return NewGate(store, testSecret, time.Hour)
}

func TestLoginIssuesAdminToken(t *testing.T) {
	gate := newTestGate(t, "hunter2rotated")

	signed, err := gate.Login(context.Background(), "hunter2rotated")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "admin", claims["role"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, time.Minute)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	gate := newTestGate(t, "hunter2rotated")

	_, err := gate.Login(context.Background(), "wrong")
	require.ErrorIs(t, err, ErrBadPassword)
}

func TestChangePasswordRotatesCredential(t *testing.T) {
	gate := newTestGate(t, "firstpassword")

	err := gate.ChangePassword(context.Background(), "firstpassword", "secondpassword")
	require.NoError(t, err)

	_, err = gate.Login(context.Background(), "firstpassword")
	require.ErrorIs(t, err, ErrBadPassword)

	_, err = gate.Login(context.Background(), "secondpassword")
	require.NoError(t, err)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	gate := newTestGate(t, "firstpassword")

	err := gate.ChangePassword(context.Background(), "notthecurrent", "secondpassword")
	require.ErrorIs(t, err, ErrBadPassword)

	// Credential unchanged.
	_, err = gate.Login(context.Background(), "firstpassword")
	require.NoError(t, err)
}
