package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farellandr/ticketgate/internal/models"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	user := &models.User{ID: uuid.New(), Role: models.RoleTicketChecker}

	token, expiresAt, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleTicketChecker, claims.Role)
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, _, err := issuer.Issue(&models.User{ID: uuid.New(), Role: models.RoleUser})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	token, _, err := NewTokenIssuer("one", time.Hour).Issue(&models.User{ID: uuid.New(), Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: uuid.New(), Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswords(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))

	tmp, err := TemporaryPassword()
	require.NoError(t, err)
	assert.Len(t, tmp, 16)
}

func TestIdentityCan(t *testing.T) {
	checker := Identity{UserID: uuid.New(), Role: models.RoleTicketChecker}
	assert.True(t, checker.Can(models.ScanRoles))
	assert.False(t, checker.Can(models.StaffRoles))
}

func TestUserIDOf(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleTicketChecker}
	token, _, err := NewTokenIssuer("device-does-not-know-this", time.Hour).Issue(user)
	require.NoError(t, err)

	id, err := UserIDOf(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = UserIDOf("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("s"))
	require.NoError(t, err)
	_, err = UserIDOf(anonymous)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
