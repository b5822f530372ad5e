package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// signatureHeader carries the hex HMAC-SHA256 of the PMS webhook body.
const signatureHeader = "X-Apaleo-Signature"

// bearerAuth is the echo middleware guarding the media-plane endpoints. The
// presented token is compared constant-time against the shared secret.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.EventToken == "" {
			s.logger.Error("event endpoint called without a configured token")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		token, ok := bearerToken(c.Request())
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.EventToken)) != 1 {
			s.logger.Warn("rejected event request", "path", c.Path(), "remote", c.RealIP())
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
		return next(c)
	}
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", false
	}
	return auth[len(prefix):], true
}

// verifySignature checks the hex HMAC-SHA256 of body against the header
// value, constant-time.
func verifySignature(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(header)), []byte(want)) == 1
}

// ipAllowed reports whether remote passes the allowlist. An empty list
// disables the check.
func ipAllowed(allowed []string, remote string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, ip := range allowed {
		if ip == remote {
			return true
		}
	}
	return false
}

// callStartClaims are the JWT claims accepted on /v1/call/start.
type callStartClaims struct {
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// authorizeCallStart validates the JWT and the call:start permission,
// returning the authenticated subject.
func (s *Server) authorizeCallStart(r *http.Request) (string, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return "", fmt.Errorf("missing bearer token")
	}

	var claims callStartClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.JWTSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	for _, p := range claims.Permissions {
		if p == "call:start" {
			return claims.Subject, nil
		}
	}
	return "", fmt.Errorf("token lacks call:start permission")
}

// sessionToken derives the opaque per-call token handed to the media client.
func sessionToken(callID, authID string) string {
	sum := sha256.Sum256([]byte(callID + ":" + authID))
	return hex.EncodeToString(sum[:])
}
