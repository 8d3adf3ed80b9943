// Package auth validates the JWTs issued by the hosted auth provider
// (Supabase) and exposes the authenticated identity to HTTP handlers and
// gRPC methods.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultAudience is the audience Supabase sets on user access tokens.
	DefaultAudience = "authenticated"
	issuer          = "fieldsnaps-auth"
)

type contextKey string

const (
	userContextKey contextKey = "user"
)

// UserMetadata mirrors the user_metadata object Supabase embeds in tokens.
type UserMetadata struct {
	FullName string `json:"full_name,omitempty"`
}

// Claims are the access token claims FieldSnaps relies on.
type Claims struct {
	Email        string       `json:"email"`
	Role         string       `json:"role"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

// UserID parses the subject as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// ContextWithClaims stores validated claims on ctx.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, userContextKey, claims)
}

// ClaimsFromContext returns the claims stored by the middleware or interceptor.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(userContextKey).(*Claims)
	return claims, ok && claims != nil
}

// GenerateToken issues a token shaped like a Supabase access token.
func GenerateToken(userID uuid.UUID, email, fullName, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:        email,
		Role:         DefaultAudience,
		UserMetadata: UserMetadata{FullName: fullName},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{DefaultAudience},
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// validateToken checks the token signature, expiry, and audience and returns
// the parsed claims if valid.
func validateToken(tokenString, secret, audience string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, fmt.Errorf("invalid subject: %w", err)
	}
	return claims, nil
}

// ValidateToken is the exported form of validateToken for callers outside
// the transports, such as the dev token issuer.
func ValidateToken(tokenString, secret, audience string) (*Claims, error) {
	return validateToken(tokenString, secret, audience)
}
