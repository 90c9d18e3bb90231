package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// LoadToken resolves the API credential. Precedence: BLAZE_API_TOKEN env var,
// then the token file (BLAZE_TOKEN_FILE, defaulting to <dataDir>/.token). If
// neither exists a fresh token is generated and persisted to the token file
// for reuse across restarts.
func LoadToken(dataDir string, logger *slog.Logger) (string, error) {
	if tok := os.Getenv("BLAZE_API_TOKEN"); tok != "" {
		return tok, nil
	}

	tokenFile := os.Getenv("BLAZE_TOKEN_FILE")
	if tokenFile == "" {
		tokenFile = filepath.Join(dataDir, ".token")
	}

	if data, err := os.ReadFile(tokenFile); err == nil {
		if tok := strings.TrimSpace(string(data)); tok != "" {
			return tok, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read token file: %w", err)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	tok := base64.RawURLEncoding.EncodeToString(buf)

	if err := os.MkdirAll(filepath.Dir(tokenFile), 0o755); err != nil {
		return "", fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(tokenFile, []byte(tok), 0o600); err != nil {
		return "", fmt.Errorf("write token file: %w", err)
	}
	logger.Info("generated new API token", "file", tokenFile)
	return tok, nil
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.jsonError(w, "missing authentication token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			s.jsonError(w, "invalid authentication token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// LoginRequest is the body for POST /api/auth.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token back to the client.
type LoginResponse struct {
	Token string `json:"token"`
}

// apiLogin exchanges the shared secret for the API token.
func (s *Server) apiLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.jsonError(w, "password is required", http.StatusBadRequest)
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.token)) != 1 {
		s.logger.Warn("failed login attempt")
		s.jsonError(w, "invalid password", http.StatusUnauthorized)
		return
	}
	s.logger.Info("successful login")
	s.jsonResponse(w, LoginResponse{Token: s.token})
}
