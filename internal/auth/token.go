package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer   = "agora-api"
	tokenAudience = "agora-client"

	// DefaultTokenTTL is the lifetime of an access token.
	DefaultTokenTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers malformed, expired and wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenRevoked is returned for tokens whose ID was revoked on logout.
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Token is a signed access token and its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenIssuer signs and verifies HS256 access tokens. Revoked token IDs are
// kept in Redis until the token would have expired; without Redis,
// revocation is a no-op.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. A nil redis client disables revocation.
func NewTokenIssuer(secret string, ttl time.Duration, rdb *redis.Client) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, redis: rdb, now: time.Now}
}

// Issue signs a token for userID.
func (t *TokenIssuer) Issue(userID uint, username string) (Token, error) {
	if len(t.secret) == 0 {
		return Token{}, fmt.Errorf("JWT secret not configured")
	}

	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      expires.Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: signed, ExpiresAt: expires}, nil
}

func (t *TokenIssuer) parse(raw string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccessToken validates raw and returns the user it was issued to.
func (t *TokenIssuer) VerifyAccessToken(ctx context.Context, raw string) (uint, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return 0, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, ErrInvalidToken
	}

	if jti, _ := claims["jti"].(string); jti != "" && t.redis != nil {
		// An unreachable Redis counts as not revoked.
		revoked, err := t.redis.Exists(ctx, revocationKey(jti)).Result()
		if err == nil && revoked > 0 {
			return 0, ErrTokenRevoked
		}
	}

	return uint(userID), nil
}

// Revoke blacklists the token's ID until it expires.
func (t *TokenIssuer) Revoke(ctx context.Context, raw string) error {
	claims, err := t.parse(raw)
	if err != nil {
		return err
	}
	if t.redis == nil {
		return nil
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ErrInvalidToken
	}
	ttl := exp.Sub(t.now())
	if ttl <= 0 {
		return nil
	}

	if err := t.redis.Set(ctx, revocationKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func revocationKey(jti string) string {
	return "blacklist:" + jti
}
