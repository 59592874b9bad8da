package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	APIKeyHeader    = "X-API-Key"
	SignatureHeader = "X-Signature"
	TimestampHeader = "X-Timestamp"
	maxTimeSkew     = 60 // seconds
	maxBodyBytes    = 1 << 20
)

// Sign computes the request signature: hex(HMAC-SHA256(secret, timestamp + body)).
func Sign(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// AuthMiddleware provides HMAC-based authentication.
type AuthMiddleware struct {
	apiKey    string
	apiSecret string
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(apiKey, apiSecret string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	m.logger.Warn("request rejected",
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.String("reason", reason))
	http.Error(w, reason, http.StatusUnauthorized)
}

// Wrap wraps an http.Handler with authentication.
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hmac.Equal([]byte(r.Header.Get(APIKeyHeader)), []byte(m.apiKey)) {
			m.reject(w, r, "Invalid API Key")
			return
		}

		timestampStr := r.Header.Get(TimestampHeader)
		if timestampStr == "" {
			m.reject(w, r, "Missing timestamp header")
			return
		}
		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			m.reject(w, r, "Invalid timestamp format")
			return
		}
		skew := m.now().Unix() - timestamp
		if skew > maxTimeSkew || skew < -maxTimeSkew {
			m.reject(w, r, "Timestamp expired")
			return
		}

		requestSignature := r.Header.Get(SignatureHeader)
		if requestSignature == "" {
			m.reject(w, r, "Missing signature header")
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		// Restore the body so the next handler can read it
		r.Body = io.NopCloser(bytes.NewReader(body))

		expected := Sign(m.apiSecret, timestampStr, body)
		if !hmac.Equal([]byte(requestSignature), []byte(expected)) {
			m.reject(w, r, "Invalid signature")
			return
		}

		next.ServeHTTP(w, r)
	})
}
