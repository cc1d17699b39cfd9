package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/ndewijer/Portfolio-Tracker-Backend/internal/api/response"
)

// timeTokenTTL is how long a time token stays valid after it is issued.
const timeTokenTTL = 5 * time.Minute

// APIKeyMiddleware protects mutating endpoints.
//
// The request must carry the configured INTERNAL_API_KEY in X-API-Key and a
// fresh fernet token in X-Time-Token. The token key is the SHA-256 digest of
// the API key, so only holders of the key can mint tokens, and a token is
// accepted for five minutes after it was issued.
//
// INTERNAL_API_KEY is read on every request; when it is unset every request
// is rejected with 500.
func APIKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := os.Getenv("INTERNAL_API_KEY")
		if apiKey == "" {
			response.RespondError(w, http.StatusInternalServerError, "server misconfigured", "Authentication not loaded")
			return
		}

		provided := r.Header.Get("X-API-Key")
		if provided == "" {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing API key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Invalid API key")
			return
		}

		token := r.Header.Get("X-Time-Token")
		if token == "" {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Missing Time token")
			return
		}
		if fernet.VerifyAndDecrypt([]byte(token), timeTokenTTL, []*fernet.Key{deriveKey(apiKey)}) == nil {
			response.RespondError(w, http.StatusUnauthorized, "unauthorized", "Time token is invalid or expired")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GenerateTimeToken issues a time token for apiKey. Clients that share the key
// can build the same token with any fernet implementation.
func GenerateTimeToken(apiKey string) string {
	msg := []byte(strconv.FormatInt(time.Now().Unix(), 10))
	token, err := fernet.EncryptAndSign(msg, deriveKey(apiKey))
	if err != nil {
		return ""
	}
	return string(token)
}

func deriveKey(apiKey string) *fernet.Key {
	sum := sha256.Sum256([]byte(apiKey))
	var key fernet.Key
	copy(key[:], sum[:])
	return &key
}
