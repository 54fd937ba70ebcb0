package jwt

import (
	"testing"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "1h", "12h")

	token, expiresIn, err := svc.GenerateStreamToken("session-1", "company-1")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	sessionID, companyID, err := svc.ValidateStreamToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", sessionID)
	assert.Equal(t, "company-1", companyID)
}

func TestStreamToken_RejectsAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", "1h", "12h")

	token, _, err := svc.GenerateKioskToken("kiosk-1", "company-1")
	require.NoError(t, err)

	_, _, err = svc.ValidateStreamToken(token)
	assert.Error(t, err)
}

func TestStreamToken_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService("secret-a", "1h", "12h")
	verifier := NewJWTService("secret-b", "1h", "12h")

	token, _, err := issuer.GenerateStreamToken("session-1", "company-1")
	require.NoError(t, err)

	_, _, err = verifier.ValidateStreamToken(token)
	assert.Error(t, err)
}

func TestKioskToken_Claims(t *testing.T) {
	svc := NewJWTService("test-secret", "1h", "12h")

	token, _, err := svc.GenerateKioskToken("kiosk-1", "company-1")
	require.NoError(t, err)

	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)

	role, _ := decoded.Get("role")
	kioskID, _ := decoded.Get("kiosk_id")
	assert.Equal(t, string(user.RoleKiosk), role)
	assert.Equal(t, "kiosk-1", kioskID)
}

func TestInvalidExpiration(t *testing.T) {
	svc := NewJWTService("test-secret", "soon", "later")
	_, _, err := svc.GenerateAccessToken("user-1", "company-1", user.RoleManager)
	assert.Error(t, err)
	_, _, err = svc.GenerateKioskToken("kiosk-1", "company-1")
	assert.Error(t, err)
}

func TestRevokeKiosk(t *testing.T) {
	svc := NewJWTService("test-secret", "1h", "12h")
	assert.False(t, svc.IsKioskRevoked("kiosk-1"))
	svc.RevokeKiosk("kiosk-1")
	assert.True(t, svc.IsKioskRevoked("kiosk-1"))
}
