package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platform-event-publisher/internal/config"
	"platform-event-publisher/internal/security"
)

func TestIdentityFromConfig(t *testing.T) {
	cfg := &config.Config{
		ClientID:      "client-id",
		ClientSecret:  "client-secret",
		Username:      "integration@example.com",
		Password:      "pw",
		SecurityToken: "TOKEN",
		LoginURL:      "http://localhost:7080/",
		TenantID:      "00D000000000001",
	}
	id, err := identityFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "pwTOKEN", id.Secret)
	assert.Equal(t, "http://localhost:7080", id.Audience)
	assert.Equal(t, "00D000000000001", id.TenantID)
	assert.Nil(t, id.JWTPublicKey)
}

func TestIdentityFromConfig_JWTKey(t *testing.T) {
	privPEM, _, err := security.GenerateTestKeyPEM()
	require.NoError(t, err)

	id, err := identityFromConfig(&config.Config{ClientID: "c", Username: "u", JWTPrivateKey: privPEM})
	require.NoError(t, err)
	require.NotNil(t, id.JWTPublicKey)

	key, err := security.ParsePrivateKey(privPEM)
	require.NoError(t, err)
	signer := security.NewAssertionSigner(key, 0)
	token, err := signer.Sign("c", "u", id.Audience)
	require.NoError(t, err)
	claims, err := security.VerifyAssertion(token, id.JWTPublicKey, "https://login.salesforce.com")
	require.NoError(t, err)
	assert.Equal(t, "u", claims.Subject)

	_, err = identityFromConfig(&config.Config{JWTPrivateKey: "not a key"})
	assert.Error(t, err)
}
