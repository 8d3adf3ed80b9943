package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const protectedMethod = "/fieldsnaps.v1.ActivityService/ListActivity"

// signClaims signs arbitrary claims for test cases.
func signClaims(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tokenString
}

func supabaseClaims(sub string, expiresAt time.Time) *Claims {
	return &Claims{
		Email: "crew@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
}

func TestAuthInterceptor(t *testing.T) {
	const (
		validSecret   = "test-secret"
		invalidSecret = "wrong-secret"
	)
	userID := uuid.NewString()

	tests := []struct {
		name        string
		fullMethod  string
		token       string
		wantError   bool
		expectedErr codes.Code
	}{
		{
			name:        "protected method valid token",
			fullMethod:  protectedMethod,
			token:       signClaims(t, validSecret, supabaseClaims(userID, time.Now().Add(time.Hour))),
			expectedErr: codes.OK,
		},
		{
			name:        "protected method invalid token",
			fullMethod:  protectedMethod,
			token:       signClaims(t, invalidSecret, supabaseClaims(userID, time.Now().Add(time.Hour))),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method expired token",
			fullMethod:  protectedMethod,
			token:       signClaims(t, validSecret, supabaseClaims(userID, time.Now().Add(-time.Hour))),
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "protected method missing metadata",
			fullMethod:  protectedMethod,
			wantError:   true,
			expectedErr: codes.Unauthenticated,
		},
		{
			name:        "unprotected method no token",
			fullMethod:  "/grpc.health.v1.Health/Check",
			expectedErr: codes.OK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			interceptor := NewAuthInterceptor(validSecret, DefaultAudience, protectedMethod)
			unaryInterceptor := interceptor.Unary()

			ctx := context.Background()
			if tt.token != "" {
				md := metadata.Pairs("authorization", "Bearer "+tt.token)
				ctx = metadata.NewIncomingContext(ctx, md)
			}

			handler := func(ctx context.Context, _ interface{}) (interface{}, error) {
				if tt.fullMethod == protectedMethod {
					claims, ok := ClaimsFromContext(ctx)
					if !ok || claims.Subject != userID {
						return nil, status.Error(codes.Unauthenticated, "claims not in context")
					}
				}
				return "response", nil
			}

			info := &grpc.UnaryServerInfo{FullMethod: tt.fullMethod}
			resp, err := unaryInterceptor(ctx, nil, info, handler)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.expectedErr {
					t.Errorf("expected error code %v, got %v", tt.expectedErr, status.Code(err))
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				if resp != "response" {
					t.Error("handler response mismatch")
				}
			}
		})
	}
}

func TestExtractTokenFromMetadata(t *testing.T) {
	tests := []struct {
		name        string
		metadata    metadata.MD
		wantToken   string
		wantErrCode codes.Code
	}{
		{
			name:        "valid authorization header",
			metadata:    metadata.Pairs("authorization", "Bearer valid-token"),
			wantToken:   "valid-token",
			wantErrCode: codes.OK,
		},
		{
			name:        "missing authorization header",
			metadata:    metadata.MD{},
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "malformed authorization header",
			metadata:    metadata.Pairs("authorization", "InvalidPrefix valid-token"),
			wantErrCode: codes.Unauthenticated,
		},
		{
			name:        "empty bearer token",
			metadata:    metadata.Pairs("authorization", "Bearer "),
			wantErrCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := extractTokenFromMetadata(tt.metadata)

			if tt.wantErrCode != codes.OK {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if status.Code(err) != tt.wantErrCode {
					t.Errorf("expected error code %v, got %v", tt.wantErrCode, status.Code(err))
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if token != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, token)
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	const validSecret = "test-secret"
	userID := uuid.NewString()
	validTokenString := signClaims(t, validSecret, supabaseClaims(userID, time.Now().Add(time.Hour)))

	wrongAudience := supabaseClaims(userID, time.Now().Add(time.Hour))
	wrongAudience.Audience = jwt.ClaimStrings{"service_role"}

	tests := []struct {
		name        string
		tokenString string
		secret      string
		wantValid   bool
	}{
		{
			name:        "valid token",
			tokenString: validTokenString,
			secret:      validSecret,
			wantValid:   true,
		},
		{
			name:        "invalid signature",
			tokenString: validTokenString,
			secret:      "wrong-secret",
		},
		{
			name:        "expired token",
			tokenString: signClaims(t, validSecret, supabaseClaims(userID, time.Now().Add(-time.Hour))),
			secret:      validSecret,
		},
		{
			name:        "missing expiry",
			tokenString: signClaims(t, validSecret, jwt.MapClaims{"sub": userID, "aud": DefaultAudience}),
			secret:      validSecret,
		},
		{
			name:        "wrong audience",
			tokenString: signClaims(t, validSecret, wrongAudience),
			secret:      validSecret,
		},
		{
			name:        "subject is not a uuid",
			tokenString: signClaims(t, validSecret, supabaseClaims("12345", time.Now().Add(time.Hour))),
			secret:      validSecret,
		},
		{
			name:        "malformed token",
			tokenString: "invalid.token.string",
			secret:      validSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validateToken(tt.tokenString, tt.secret, DefaultAudience)

			if tt.wantValid {
				if err != nil {
					t.Errorf("expected valid token, got error: %v", err)
				}
				if claims.Subject != userID || claims.Email != "crew@example.com" {
					t.Error("claims not properly parsed")
				}
			} else if err == nil {
				t.Error("expected invalid token, got no error")
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken(id, "lead@example.com", "Lead Hand", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token, "secret", DefaultAudience)
	if err != nil {
		t.Fatalf("generated token should validate: %v", err)
	}
	got, err := claims.UserID()
	if err != nil || got != id {
		t.Errorf("expected subject %s, got %s (%v)", id, got, err)
	}
	if claims.UserMetadata.FullName != "Lead Hand" {
		t.Errorf("expected full name in metadata, got %q", claims.UserMetadata.FullName)
	}
}

func TestNewAuthInterceptor(t *testing.T) {
	secret := "test-secret"
	interceptor := NewAuthInterceptor(secret, DefaultAudience, protectedMethod)

	if interceptor.jwtSecret != secret {
		t.Errorf("expected secret %q, got %q", secret, interceptor.jwtSecret)
	}
	if !interceptor.protectedMethods[protectedMethod] {
		t.Errorf("missing protected method: %s", protectedMethod)
	}
}
