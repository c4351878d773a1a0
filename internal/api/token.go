package api

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair holds the bearer credentials issued by the server.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// tokenStore guards the current token pair. The access token's expiry is
// read from the JWT claims (unverified; the server is the verifier) so the
// client can refresh proactively instead of eating a guaranteed 401.
type tokenStore struct {
	mu     sync.Mutex
	tokens TokenPair
}

func (s *tokenStore) get() TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

func (s *tokenStore) set(t TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
}

func (s *tokenStore) clear() {
	s.set(TokenPair{})
}

// accessExpiringWithin reports whether the stored access token expires
// within d (or is absent/unparseable, in which case a refresh attempt is
// the right move anyway when a refresh token exists).
func (s *tokenStore) accessExpiringWithin(d time.Duration) bool {
	t := s.get()
	if t.AccessToken == "" {
		return true
	}
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(t.AccessToken, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return time.Until(exp.Time) < d
}
