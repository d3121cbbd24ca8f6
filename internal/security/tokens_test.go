package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAudience = "https://login.salesforce.com"

func newTestSigner(t *testing.T) (*AssertionSigner, string) {
	t.Helper()
	priv, pub := testKeys(t)
	signer, err := ParsePrivateKey(priv)
	require.NoError(t, err)
	return NewAssertionSigner(signer, 0), pub
}

func TestAssertionSigner_SignAndVerify(t *testing.T) {
	s, pubPEM := newTestSigner(t)
	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)

	token, err := s.Sign("client-1", "integration@example.com", testAudience)
	require.NoError(t, err)
	claims, err := VerifyAssertion(token, pub, testAudience)
	require.NoError(t, err)
	assert.Equal(t, "client-1", claims.Issuer)
	assert.Equal(t, "integration@example.com", claims.Subject)
	assert.Equal(t, DefaultAssertionTTL, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestAssertionSigner_UnsupportedCurve(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)

	_, err = NewAssertionSigner(p384, 0).Sign("client-1", "user", testAudience)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestVerifyAssertion_WrongAudience(t *testing.T) {
	s, pubPEM := newTestSigner(t)
	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	token, err := s.Sign("client-1", "user", "https://test.salesforce.com")
	require.NoError(t, err)

	_, err = VerifyAssertion(token, pub, testAudience)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAssertion_Expired(t *testing.T) {
	s, pubPEM := newTestSigner(t)
	pub, err := ParsePublicKey(pubPEM)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.Sign("client-1", "user", testAudience)
	require.NoError(t, err)

	_, err = VerifyAssertion(token, pub, testAudience)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyAssertion_WrongKey(t *testing.T) {
	s, _ := newTestSigner(t)
	_, otherPub := testKeys(t)
	pub, err := ParsePublicKey(otherPub)
	require.NoError(t, err)
	token, err := s.Sign("client-1", "user", testAudience)
	require.NoError(t, err)

	_, err = VerifyAssertion(token, pub, testAudience)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = VerifyAssertion("invalid-token", pub, testAudience)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
