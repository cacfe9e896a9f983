package apiserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// requestToken returns the bearer token, or the basic auth password as sent
// by lego's httpreq provider.
func requestToken(r *http.Request) string {
	if authorization := r.Header.Get("Authorization"); strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimPrefix(authorization, "Bearer ")
	}
	if _, password, ok := r.BasicAuth(); ok {
		return password
	}
	return ""
}

func tokenAuthMiddleware(tokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			if token == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="dns01-hook"`)
				writeError(w, http.StatusUnauthorized, errors.New("missing credentials"))
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
				logrus.Debugf("token rejected for %s: %v", r.URL.Path, err)
				writeError(w, http.StatusForbidden, errors.New("forbidden to use"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
