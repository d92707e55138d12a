package config

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSecurity() *SecuritySettings {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return &SecuritySettings{
		EncryptionKey: hex.EncodeToString(key),
		SigningSecret: "a-signing-secret",
	}
}

func TestValidateSecurity(t *testing.T) {
	sec := validSecurity()
	require.NotPanics(t, func() { ValidateSecurity(sec) })

	assert.Len(t, sec.EncryptionKeyBytes(), 32)
	assert.Equal(t, 60, sec.DefaultSessionTTLMin)
	assert.Equal(t, 5, sec.CallbackTokenTTLMin)
}

func TestValidateSecurityKeepsExplicitTTLs(t *testing.T) {
	sec := validSecurity()
	sec.DefaultSessionTTLMin = 30
	sec.CallbackTokenTTLMin = 10

	ValidateSecurity(sec)

	assert.Equal(t, 30, sec.DefaultSessionTTLMin)
	assert.Equal(t, 10, sec.CallbackTokenTTLMin)
}

func TestValidateSecurityRejectsMissingKey(t *testing.T) {
	sec := validSecurity()
	sec.EncryptionKey = ""
	assert.Panics(t, func() { ValidateSecurity(sec) })
}

func TestValidateSecurityRejectsNonHexKey(t *testing.T) {
	sec := validSecurity()
	sec.EncryptionKey = "not-hex-at-all"
	assert.Panics(t, func() { ValidateSecurity(sec) })
}

func TestValidateSecurityRejectsShortKey(t *testing.T) {
	sec := validSecurity()
	sec.EncryptionKey = hex.EncodeToString(make([]byte, 16))
	assert.Panics(t, func() { ValidateSecurity(sec) })
}

func TestValidateSecurityRejectsMissingSecret(t *testing.T) {
	sec := validSecurity()
	sec.SigningSecret = ""
	assert.Panics(t, func() { ValidateSecurity(sec) })
}
