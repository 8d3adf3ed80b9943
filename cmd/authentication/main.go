// This is a **development token issuer**. It signs access tokens shaped like
// the hosted auth provider's so the API can be exercised locally.
package main

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/auth"
	"github.com/fieldsnaps/fieldsnaps/internal/fieldsnaps/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultAddr = ":8081"
	tokenTTL    = 24 * time.Hour
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type issuer struct {
	secret string
	logger *zap.Logger
}

// tokenHandler signs a token for ?sub=<uuid>&email=&name=. A missing subject
// gets a fresh one.
func (i *issuer) tokenHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := uuid.New()
	if sub := q.Get("sub"); sub != "" {
		parsed, err := uuid.Parse(sub)
		if err != nil {
			http.Error(w, "sub must be a UUID", http.StatusBadRequest)
			return
		}
		userID = parsed
	}
	email := q.Get("email")
	if email == "" {
		email = "dev+" + userID.String()[:8] + "@fieldsnaps.local"
	}
	name := q.Get("name")
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	token, err := auth.GenerateToken(userID, email, name, i.secret, tokenTTL)
	if err != nil {
		i.logger.Error("Failed to generate token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	i.logger.Info("Issued token", zap.String("user_id", userID.String()), zap.String("email", email))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(TokenResponse{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(tokenTTL).UTC(),
	}); err != nil {
		i.logger.Warn("Failed to encode token", zap.Error(err))
	}
}

func main() {
	logger, _ := zap.NewDevelopment()
	logger = logger.Named("auth_issuer")

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	i := &issuer{secret: cfg.JWTSecret, logger: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /token", i.tokenHandler)

	server := &http.Server{Addr: defaultAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info("Development token issuer running", zap.String("addr", defaultAddr))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("token issuer stopped", zap.Error(err))
	}
}
