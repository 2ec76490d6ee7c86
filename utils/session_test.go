package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestSessionRoundTrip(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "session-secret")
	now := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)

	token, err := CreateGuestSession("abc", time.Hour, now)
	require.NoError(t, err)

	claims, err := ValidateGuestSession(token, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.GuestID)
	assert.Equal(t, now.Unix(), claims.IssuedAt)
}

func TestGuestSessionRejects(t *testing.T) {
	t.Setenv("ENCRYPTION_KEY", "session-secret")
	now := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	token, err := CreateGuestSession("abc", time.Hour, now)
	require.NoError(t, err)

	_, err = ValidateGuestSession(token, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrSessionExpired)

	encoded, sig, _ := strings.Cut(token, ".")
	_, err = ValidateGuestSession(encoded+"x."+sig, now)
	assert.ErrorIs(t, err, ErrSessionSignature)

	_, err = ValidateGuestSession("no-dot", now)
	assert.ErrorIs(t, err, ErrSessionFormat)

	t.Setenv("ENCRYPTION_KEY", "rotated")
	_, err = ValidateGuestSession(token, now)
	assert.ErrorIs(t, err, ErrSessionSignature)
}

func TestCreateGuestSessionRequiresID(t *testing.T) {
	_, err := CreateGuestSession("", time.Hour, time.Now())
	assert.Error(t, err)
}
