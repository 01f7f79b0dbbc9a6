package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicRoutes stay reachable without a key so probes and scrapers keep working.
var publicRoutes = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// apiKeySet holds the configured search API keys.
type apiKeySet [][]byte

func newAPIKeySet(keys []string) apiKeySet {
	set := make(apiKeySet, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			set = append(set, []byte(k))
		}
	}
	return set
}

// contains compares against every key so timing does not reveal which one matched.
func (s apiKeySet) contains(token string) bool {
	found := 0
	for _, k := range s {
		found |= subtle.ConstantTimeCompare(k, []byte(token))
	}
	return found == 1
}

// bearerToken extracts the credential from an Authorization header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// BearerAuthMiddleware guards the search API with static bearer keys.
// With no non-empty keys configured the API is open.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	keys := newAPIKeySet(apiKeys)

	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := publicRoutes[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "missing authorization header")
				return
			}
			token, ok := bearerToken(header)
			if !ok {
				unauthorized(w, "authorization header must use Bearer scheme")
				return
			}
			if !keys.contains(token) {
				unauthorized(w, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="vecmatch"`)
	writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, message)
}
