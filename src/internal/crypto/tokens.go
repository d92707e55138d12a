package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"pos-handoff-svc/src/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type claims. The distinct callback type prevents a handoff token
// from being replayed against the completion callback.
const (
	TokenTypeHandoff  = "pos_handoff"
	TokenTypeCallback = "pos_oauth"
)

// TokenClaims carries the signed handoff/callback token payload.
type TokenClaims struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId,omitempty"`
	LoanID    string `json:"loanId,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// TokenSigner mints and verifies the HMAC-signed tokens exchanged with POS
// systems. The secret is process-wide and identical across instances.
type TokenSigner struct {
	secret      []byte
	callbackTTL time.Duration
}

func NewTokenSigner(secret string, callbackTTL time.Duration) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("signing secret must not be empty")
	}
	if callbackTTL <= 0 {
		callbackTTL = 5 * time.Minute
	}
	return &TokenSigner{
		secret:      []byte(secret),
		callbackTTL: callbackTTL,
	}, nil
}

// SignHandoffToken mints the token embedded in the POS redirect URL. Its
// expiry is bound to the session's expiresAt, never longer.
func (s *TokenSigner) SignHandoffToken(sessionID, userID, loanID, purpose string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		SessionID: sessionID,
		UserID:    userID,
		LoanID:    loanID,
		Purpose:   purpose,
		TokenType: TokenTypeHandoff,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// SignCallbackToken mints the short-lived token a POS system presents on
// its completion callback.
func (s *TokenSigner) SignCallbackToken(sessionID string) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		SessionID: sessionID,
		TokenType: TokenTypeCallback,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.callbackTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, expiry and the type claim.
func (s *TokenSigner) Verify(tokenString, expectedType string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrInvalidToken
	}

	if !token.Valid {
		return nil, models.ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, models.ErrInvalidToken
	}

	if claims.TokenType != expectedType {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}

// NewSessionToken returns a 256-bit random, base64url-encoded secret. It is
// the proof-of-possession half of the (sessionId, sessionToken) pair.
func NewSessionToken() (string, error) {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
