// Package identity verifies peer agents before orders are placed with them.
// Peers present signed badges; a peer with no registered badge is allowed
// through with a log line rather than a hard failure, so a partially rolled
// out registry never blocks trading.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Verifier checks whether a named peer holds a valid identity badge.
type Verifier interface {
	// Verify reports whether the peer's badge is valid. A peer without a
	// registered badge verifies as true; only a present-but-invalid badge
	// fails.
	Verify(ctx context.Context, peerName string) (bool, error)
}

// JWTVerifier validates HMAC-signed peer badges from an in-process registry.
// The registry is populated once at startup and read-only afterwards.
type JWTVerifier struct {
	secret []byte
	badges map[string]string
	logger *zap.Logger
	now    func() time.Time
}

// NewJWTVerifier creates a verifier over the given badge registry. Keys are
// lower-cased peer names, values are signed JWT badges.
func NewJWTVerifier(secret []byte, badges map[string]string, logger *zap.Logger) *JWTVerifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make(map[string]string, len(badges))
	for name, badge := range badges {
		normalized[strings.ToLower(name)] = badge
	}
	return &JWTVerifier{
		secret: secret,
		badges: normalized,
		logger: logger.With(zap.String("component", "identity")),
		now:    time.Now,
	}
}

// Verify checks the peer's registered badge signature, expiry, and subject.
func (v *JWTVerifier) Verify(_ context.Context, peerName string) (bool, error) {
	name := strings.ToLower(strings.TrimSpace(peerName))
	badge, ok := v.badges[name]
	if !ok {
		v.logger.Info("peer has no registered identity, skipping verification",
			zap.String("peer", peerName))
		return true, nil
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(badge, claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithTimeFunc(v.now),
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		v.logger.Warn("peer badge failed verification",
			zap.String("peer", peerName), zap.Error(err))
		return false, nil
	}
	if !token.Valid {
		return false, nil
	}
	if !strings.EqualFold(claims.Subject, name) {
		v.logger.Warn("peer badge subject mismatch",
			zap.String("peer", peerName), zap.String("subject", claims.Subject))
		return false, nil
	}
	return true, nil
}

// IssueBadge signs a badge for a peer. Used by tests and local setups.
func IssueBadge(secret []byte, peerName string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strings.ToLower(peerName),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

var _ Verifier = (*JWTVerifier)(nil)
