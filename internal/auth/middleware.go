package auth

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/keystonelabs/chainkit/internal/eip191"
)

// AllowFunc decides whether a recovered wallet address may call the API. A
// nil AllowFunc admits every address that proves key ownership.
type AllowFunc func(address string) bool

// SignedMessage builds the string a client signs for a request: the SHA-256
// body hash, the timestamp and the nonce, dot-separated. The EIP-191 prefix
// is applied during digesting, not here.
func SignedMessage(body []byte, timestamp, nonce string) string {
	bodyHash := sha256.Sum256(body)
	return fmt.Sprintf("%x.%s.%s", bodyHash, timestamp, nonce)
}

// Middleware authenticates requests carrying X-Address, X-Signature,
// X-Timestamp and X-Nonce headers, recovering the signer via EIP-191 and
// rejecting replayed nonces.
func Middleware(next http.Handler, log *zap.Logger, nonceCache *NonceCache, allow AllowFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := r.Header.Get("X-Address")
		if address == "" {
			log.Warn("missing X-Address header")
			http.Error(w, "missing X-Address header", http.StatusUnauthorized)
			return
		}

		if allow != nil && !allow(address) {
			log.Warn("wallet not allowed", zap.String("address", address))
			http.Error(w, "wallet not allowed", http.StatusUnauthorized)
			return
		}

		signature := r.Header.Get("X-Signature")
		if signature == "" {
			log.Warn("missing X-Signature header")
			http.Error(w, "missing X-Signature header", http.StatusUnauthorized)
			return
		}

		timestamp := r.Header.Get("X-Timestamp")
		if timestamp == "" {
			log.Warn("missing X-Timestamp header")
			http.Error(w, "missing X-Timestamp header", http.StatusUnauthorized)
			return
		}

		nonce := r.Header.Get("X-Nonce")
		if nonce == "" {
			log.Warn("missing X-Nonce header")
			http.Error(w, "missing X-Nonce header", http.StatusUnauthorized)
			return
		}

		if nonceCache.IsUsed(nonce) {
			log.Warn("nonce already used", zap.String("nonce", nonce))
			http.Error(w, "nonce already used", http.StatusUnauthorized)
			return
		}
		nonceCache.Use(nonce)

		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("failed to read request body", zap.Error(err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		message := SignedMessage(bodyBytes, timestamp, nonce)
		valid, err := eip191.Verify(message, signature, address)
		if err != nil {
			log.Warn("malformed signature", zap.String("address", address), zap.Error(err))
			http.Error(w, "malformed signature", http.StatusBadRequest)
			return
		}
		if !valid {
			log.Warn("invalid signature", zap.String("address", address))
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
