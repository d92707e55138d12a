package crypto

import (
	"pos-handoff-svc/src/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *TokenSigner {
	t.Helper()
	signer, err := NewTokenSigner("test-signing-secret", 5*time.Minute)
	require.NoError(t, err)
	return signer
}

func TestNewTokenSignerRequiresSecret(t *testing.T) {
	_, err := NewTokenSigner("", time.Minute)
	assert.Error(t, err)
}

func TestHandoffTokenRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	expiresAt := time.Now().Add(time.Hour)

	token, err := signer.SignHandoffToken("sess-1", "user-1", "loan-1", "new_application", expiresAt)
	require.NoError(t, err)

	claims, err := signer.Verify(token, TokenTypeHandoff)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "loan-1", claims.LoanID)
	assert.Equal(t, "new_application", claims.Purpose)
	assert.Equal(t, TokenTypeHandoff, claims.TokenType)
	assert.WithinDuration(t, expiresAt, claims.ExpiresAt.Time, time.Second)
}

func TestCallbackTokenRoundTrip(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignCallbackToken("sess-1")
	require.NoError(t, err)

	claims, err := signer.Verify(token, TokenTypeCallback)
	require.NoError(t, err)

	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, TokenTypeCallback, claims.TokenType)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestHandoffTokenCannotReplayAsCallback(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignHandoffToken("sess-1", "user-1", "", "rate_lock", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = signer.Verify(token, TokenTypeCallback)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	signer := newTestSigner(t)

	token, err := signer.SignHandoffToken("sess-1", "user-1", "", "rate_lock", time.Now().Add(-time.Minute))
	require.NoError(t, err)

	_, err = signer.Verify(token, TokenTypeHandoff)
	assert.ErrorIs(t, err, models.ErrTokenExpired)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	signer := newTestSigner(t)
	other, err := NewTokenSigner("a-different-secret", 5*time.Minute)
	require.NoError(t, err)

	token, err := other.SignCallbackToken("sess-1")
	require.NoError(t, err)

	_, err = signer.Verify(token, TokenTypeCallback)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	signer := newTestSigner(t)

	_, err := signer.Verify("not.a.token", TokenTypeHandoff)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestNewSessionTokenIsRandomAndOpaque(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := NewSessionToken()
		require.NoError(t, err)
		// 32 random bytes, base64url without padding
		assert.Len(t, token, 43)
		assert.False(t, seen[token], "session token repeated")
		seen[token] = true
	}
}
