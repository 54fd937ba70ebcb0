package jwt

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Service interface {
	// GenerateAccessToken issues an operator token. Operators normally log in
	// through the HRIS core, which signs with the same secret.
	GenerateAccessToken(userID string, companyID string, role user.Role) (token string, expiresAt int64, err error)
	GenerateKioskToken(kioskID string, companyID string) (token string, expiresAt int64, err error)
	GenerateStreamToken(sessionID string, companyID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string) (sessionID string, companyID string, err error)
	JWTAuth() *jwtauth.JWTAuth
	RevokeKiosk(kioskID string)
	IsKioskRevoked(kioskID string) bool
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	kioskTokenExpirationTime  string
	tokenAuth                 *jwtauth.JWTAuth
	revokedKiosks             map[string]int64
	mu                        sync.RWMutex
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string, kioskTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		kioskTokenExpirationTime:  kioskTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		revokedKiosks:             make(map[string]int64),
	}
}

func (j *JWTService) GenerateAccessToken(userID string, companyID string, role user.Role) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":    userID,
		"company_id": companyID,
		"role":       string(role),
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateKioskToken issues the bearer token a kiosk device uses for its sessions.
func (j *JWTService) GenerateKioskToken(kioskID string, companyID string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.kioskTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"kiosk_id":   kioskID,
		"company_id": companyID,
		"role":       string(user.RoleKiosk),
		"type":       "access",
		"exp":        expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token for the SSE feedback stream
func (j *JWTService) GenerateStreamToken(sessionID string, companyID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := time.Now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"session_id": sessionID,
		"company_id": companyID,
		"type":       "sse",
		"exp":        expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateStreamToken validates an SSE token and returns the session it was issued for
func (j *JWTService) ValidateStreamToken(tokenString string) (sessionID string, companyID string, err error) {
	token, err := j.tokenAuth.Decode(tokenString)
	if err != nil {
		return "", "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", "", jwt.ErrInvalidJWT()
	}

	sessionID, ok = stringClaim(token, "session_id")
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}
	companyID, ok = stringClaim(token, "company_id")
	if !ok {
		return "", "", jwt.ErrInvalidJWT()
	}

	return sessionID, companyID, nil
}

func (j *JWTService) RevokeKiosk(kioskID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.revokedKiosks[kioskID] = time.Now().Unix()
}

func (j *JWTService) IsKioskRevoked(kioskID string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedKiosks[kioskID]
	return revoked
}

func stringClaim(token jwt.Token, name string) (string, bool) {
	v, ok := token.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
