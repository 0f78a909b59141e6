package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/docchat-go/internal/logging"
)

// authRealm is advertised in WWW-Authenticate challenges.
const authRealm = "docchat"

// requireKey wraps next so it only runs for requests carrying
// "Authorization: Bearer <key>". An empty key disables the check; New warns
// about that once at startup.
func requireKey(key string, next http.Handler) http.Handler {
	if key == "" {
		return next
	}
	want := sha256.Sum256([]byte(key))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		switch {
		case !ok:
			challenge(w, r, "", "authorization required")
		case !keyMatches(want, token):
			challenge(w, r, "invalid_token", "invalid token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// keyMatches compares digests so the comparison time does not depend on
// where the presented token first differs.
func keyMatches(want [sha256.Size]byte, token string) bool {
	got := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// challenge writes a 401 with a Bearer challenge. The presented token is
// never logged.
func challenge(w http.ResponseWriter, r *http.Request, code, msg string) {
	logging.FromContext(r.Context()).Warn("unauthorized request",
		slog.String("reason", msg),
		slog.String("path", r.URL.Path),
	)
	hdr := `Bearer realm="` + authRealm + `"`
	if code != "" {
		hdr += `, error="` + code + `"`
	}
	w.Header().Set("WWW-Authenticate", hdr)
	writeJSON(w, r, http.StatusUnauthorized, errorResponse{Error: msg})
}

// bearerToken parses an Authorization header value. The scheme is matched
// case-insensitively and an empty token counts as absent.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
