package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const ServiceKeyHeader = "X-Service-Key"

// ValidateServiceKey admits requests whose service key matches the bcrypt
// hash. With an empty hash every request is rejected.
func ValidateServiceKey(hash string) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := serviceKeyFromRequest(r)
			if hash == "" || key == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next(w, r)
		}
	}
}

func serviceKeyFromRequest(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(ServiceKeyHeader)); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > len("Bearer ") && strings.EqualFold(auth[:len("Bearer ")], "Bearer ") {
		return strings.TrimSpace(auth[len("Bearer "):])
	}
	return ""
}
