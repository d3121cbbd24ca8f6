package emulator

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"sync"
	"time"

	"platform-event-publisher/internal/security"
)

// DefaultTokenTTL is how long an issued access token is accepted.
const DefaultTokenTTL = 2 * time.Hour

const (
	tokenIssuer   = "pubsub-emulator"
	tokenAudience = "pubsub"
)

// TokenStore issues signed access tokens and validates them for the gRPC and REST surfaces.
// Tokens are JWTs signed with a key generated per store, so they never outlive the process.
type TokenStore struct {
	issuer  *security.AccessTokenIssuer
	subject string
	now     func() time.Time

	mu      sync.Mutex
	revoked map[string]struct{}
	issued  int
}

// NewTokenStore returns a store whose tokens name subject and expire after ttl
// (DefaultTokenTTL if <= 0).
func NewTokenStore(ttl time.Duration, subject string) (*TokenStore, error) {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	issuer, err := security.NewAccessTokenIssuer(key, tokenIssuer, tokenAudience, ttl)
	if err != nil {
		return nil, err
	}
	return &TokenStore{
		issuer:  issuer,
		subject: subject,
		now:     time.Now,
		revoked: map[string]struct{}{},
	}, nil
}

// Issue returns a new token and its issue time.
func (s *TokenStore) Issue() (string, time.Time, error) {
	token, claims, err := s.issuer.Issue(s.subject, s.now())
	if err != nil {
		return "", time.Time{}, err
	}
	s.mu.Lock()
	s.issued++
	s.mu.Unlock()
	return token, claims.IssuedAt.Time, nil
}

// ValidToken reports whether token was issued here, is unexpired and was not revoked.
func (s *TokenStore) ValidToken(token string) bool {
	claims, err := s.issuer.Validate(token, s.now())
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, revoked := s.revoked[claims.ID]
	return !revoked
}

// Revoke invalidates token. Tokens that do not validate are ignored.
func (s *TokenStore) Revoke(token string) {
	claims, err := s.issuer.Validate(token, s.now())
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[claims.ID] = struct{}{}
}

// Issued returns how many tokens have been issued.
func (s *TokenStore) Issued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}
