package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dom/account-api/internal/config"
	"github.com/dom/account-api/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenType = "Bearer"

// Token is the issue/refresh response.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"-"`
}

// Claims carries sub, iat, exp and a unique jti used for invalidation.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService mints and verifies HS256 session tokens. Tokens are not stored;
// invalidated token IDs are kept in the blacklist until the token's refresh
// window closes.
type TokenService struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
	blacklist  repository.TokenBlacklist
	now        func() time.Time
}

func NewTokenService(cfg *config.Config, blacklist repository.TokenBlacklist) *TokenService {
	return &TokenService{
		secret:     []byte(cfg.JWTSecret),
		ttl:        cfg.JWTTTL,
		refreshTTL: cfg.JWTRefreshTTL,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// WithClock replaces the time source. It is meant for tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue mints a token for userID with a full TTL.
func (s *TokenService) Issue(userID uuid.UUID) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Token{
		AccessToken: signed,
		TokenType:   tokenType,
		ExpiresIn:   int(s.ttl/time.Minute) * 60,
		ExpiresAt:   expiresAt,
	}, nil
}

// Authenticate resolves a token to its user ID.
func (s *TokenService) Authenticate(ctx context.Context, raw string) (uuid.UUID, error) {
	claims, userID, err := s.parse(raw)
	if err != nil {
		return uuid.Nil, err
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return uuid.Nil, ErrTokenExpired
	}
	if err := s.checkBlacklist(ctx, claims.ID); err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// Refresh exchanges a token that is still inside its refresh window, even if
// its TTL has elapsed, for a new one. The old token is invalidated.
func (s *TokenService) Refresh(ctx context.Context, raw string) (*Token, uuid.UUID, error) {
	claims, userID, err := s.parse(raw)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if !s.now().Before(s.refreshDeadline(claims)) {
		return nil, uuid.Nil, ErrTokenExpired
	}

	// Claiming the token ID is the single check, so concurrent refreshes of
	// one token yield one new token.
	claimed, err := s.blacklist.Add(ctx, claims.ID, s.refreshDeadline(claims))
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("invalidate refreshed token: %w", err)
	}
	if !claimed {
		return nil, uuid.Nil, ErrTokenBlacklisted
	}

	token, err := s.Issue(userID)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return token, userID, nil
}

// Invalidate blacklists raw. Invalidating an already invalidated or expired
// token succeeds.
func (s *TokenService) Invalidate(ctx context.Context, raw string) error {
	claims, _, err := s.parse(raw)
	if err != nil {
		return err
	}
	deadline := s.refreshDeadline(claims)
	if !s.now().Before(deadline) {
		return nil
	}
	if _, err := s.blacklist.Add(ctx, claims.ID, deadline); err != nil {
		return fmt.Errorf("invalidate token: %w", err)
	}
	return nil
}

// parse verifies the signature and the presence of the required claims.
// Expiry is checked by the callers since refresh accepts expired tokens.
func (s *TokenService) parse(raw string) (*Claims, uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, uuid.Nil, ErrTokenMissing
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, uuid.Nil, ErrTokenInvalid
	}

	if claims.ExpiresAt == nil || claims.IssuedAt == nil || claims.ID == "" {
		return nil, uuid.Nil, ErrTokenInvalid
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, uuid.Nil, ErrTokenInvalid
	}
	return claims, userID, nil
}

func (s *TokenService) refreshDeadline(claims *Claims) time.Time {
	deadline := claims.IssuedAt.Add(s.refreshTTL)
	if claims.ExpiresAt.After(deadline) {
		return claims.ExpiresAt.Time
	}
	return deadline
}

func (s *TokenService) checkBlacklist(ctx context.Context, tokenID string) error {
	revoked, err := s.blacklist.Contains(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return ErrTokenBlacklisted
	}
	return nil
}
