package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/config"
	"github.com/jafarshop/storeapi/internal/domain"
	"github.com/jafarshop/storeapi/pkg/errors"
)

const (
	accessTokenTTL  = 6 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// Claims carries the authenticated identity inside a token
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies JWT token pairs. Refresh tokens are held
// in Redis so they can be invalidated on logout.
type TokenManager struct {
	cfg    config.AuthConfig
	redis  *redis.Client
	logger *zap.Logger
}

// NewTokenManager creates a new token manager
func NewTokenManager(cfg config.AuthConfig, redisClient *redis.Client, logger *zap.Logger) *TokenManager {
	return &TokenManager{
		cfg:    cfg,
		redis:  redisClient,
		logger: logger,
	}
}

// TokenPair is an access token plus its refresh token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IssuePair signs a new access/refresh pair and stores the refresh token
// under the user's key with its TTL.
func (m *TokenManager) IssuePair(ctx context.Context, userID uuid.UUID, role domain.Role) (*TokenPair, error) {
	access, err := m.sign(userID, role, m.cfg.AccessTokenSecret, accessTokenTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := m.sign(userID, role, m.cfg.RefreshTokenSecret, refreshTokenTTL)
	if err != nil {
		return nil, err
	}

	key := refreshKey(userID.String())
	if err := m.redis.Set(ctx, key, refresh, refreshTokenTTL).Err(); err != nil {
		m.logger.Error("Failed to store refresh token", zap.Error(err))
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (m *TokenManager) sign(userID uuid.UUID, role domain.Role, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// VerifyAccess parses and validates an access token
func (m *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, m.cfg.AccessTokenSecret)
}

// VerifyRefresh validates a refresh token and checks it matches the copy
// stored in Redis, so revoked tokens stop working before they expire.
func (m *TokenManager) VerifyRefresh(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := m.verify(tokenString, m.cfg.RefreshTokenSecret)
	if err != nil {
		return nil, err
	}

	stored, err := m.redis.Get(ctx, refreshKey(claims.UserID)).Result()
	if err == redis.Nil || stored != tokenString {
		return nil, &errors.ErrUnauthorized{Message: "invalid or expired refresh token"}
	}
	if err != nil {
		m.logger.Error("Failed to read refresh token", zap.Error(err))
		return nil, err
	}

	return claims, nil
}

func (m *TokenManager) verify(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, &errors.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, &errors.ErrUnauthorized{Message: "invalid token claims"}
	}

	return claims, nil
}

// Revoke deletes the user's stored refresh token
func (m *TokenManager) Revoke(ctx context.Context, userID uuid.UUID) error {
	return m.redis.Del(ctx, refreshKey(userID.String())).Err()
}

func refreshKey(userID string) string {
	return "refresh_token:" + userID
}
