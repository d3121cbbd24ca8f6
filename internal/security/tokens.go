package security

import (
	"crypto"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAssertionTTL is how long a JWT bearer assertion stays valid. The platform rejects
// assertions whose exp is more than a few minutes out.
const DefaultAssertionTTL = 3 * time.Minute

var (
	// ErrInvalidToken is returned when an assertion is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// AssertionClaims are the claims of an OAuth2 JWT bearer assertion: iss is the connected app
// client id, sub the username, aud the login host.
type AssertionClaims struct {
	jwt.RegisteredClaims
}

// AssertionSigner signs JWT bearer assertions with RS256 or ES256.
type AssertionSigner struct {
	privateKey crypto.Signer
	ttl        time.Duration
	now        func() time.Time
}

// NewAssertionSigner returns a signer for the given private key. ttl <= 0 uses DefaultAssertionTTL.
func NewAssertionSigner(privateKey crypto.Signer, ttl time.Duration) *AssertionSigner {
	if ttl <= 0 {
		ttl = DefaultAssertionTTL
	}
	return &AssertionSigner{privateKey: privateKey, ttl: ttl, now: time.Now}
}

// Sign returns a signed assertion for clientID acting as username against audience. Keys
// other than RSA or ECDSA P-256 yield ErrInvalidKey.
func (s *AssertionSigner) Sign(clientID, username, audience string) (string, error) {
	now := s.now().UTC()
	claims := AssertionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    clientID,
			Subject:   username,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	method := jwt.GetSigningMethod(KeyAlg(s.privateKey.Public()))
	if method == nil {
		return "", ErrInvalidKey
	}
	return jwt.NewWithClaims(method, claims).SignedString(s.privateKey)
}

// VerifyAssertion parses and validates an assertion (signature, exp, aud) against publicKey.
// The returned claims carry the client id (Issuer) and username (Subject).
func VerifyAssertion(tokenString string, publicKey crypto.PublicKey, audience string) (*AssertionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AssertionClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AssertionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !slices.Contains(claims.Audience, audience) {
		return nil, ErrInvalidToken
	}
	if claims.Issuer == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
