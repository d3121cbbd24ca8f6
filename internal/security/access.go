package security

import (
	"crypto"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims of an access token issued by AccessTokenIssuer. ID is the jti.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// AccessTokenIssuer issues and validates signed access tokens for one issuer and audience.
type AccessTokenIssuer struct {
	privateKey crypto.Signer
	method     jwt.SigningMethod
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewAccessTokenIssuer returns an issuer signing with privateKey. The key must be RSA or
// ECDSA P-256; anything else yields ErrInvalidKey.
func NewAccessTokenIssuer(privateKey crypto.Signer, issuer, audience string, ttl time.Duration) (*AccessTokenIssuer, error) {
	method := jwt.GetSigningMethod(KeyAlg(privateKey.Public()))
	if method == nil {
		return nil, ErrInvalidKey
	}
	return &AccessTokenIssuer{
		privateKey: privateKey,
		method:     method,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}, nil
}

// Issue signs a token for subject, valid from at until at+ttl.
func (i *AccessTokenIssuer) Issue(subject string, at time.Time) (string, *AccessClaims, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", nil, err
	}
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(i.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(i.method, claims).SignedString(i.privateKey)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Validate checks signature, issuer, audience and expiry as of at.
func (i *AccessTokenIssuer) Validate(tokenString string, at time.Time) (*AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(*jwt.Token) (interface{}, error) {
		return i.privateKey.Public(), nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return at }),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
