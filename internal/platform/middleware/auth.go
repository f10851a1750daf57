package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "stampd/pkg/domain-errors"
	"stampd/pkg/platform/httputil"
	"stampd/pkg/requestcontext"

	"github.com/golang-jwt/jwt/v5"
)

// OpsClaims are the claims required on tokens for operator endpoints.
type OpsClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireOpsToken guards operator endpoints with a bearer JWT signed by the
// shared ops key. Verification endpoints stay public; only administrative
// surfaces (provider listing, price refresh) sit behind this.
func RequireOpsToken(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(signingKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			var claims OpsClaims
			parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenUnverifiable
				}
				return key, nil
			})
			if err != nil || !parsed.Valid {
				logger.WarnContext(r.Context(), "rejected ops token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}
			if claims.Role != "ops" && claims.Role != "admin" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient role"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
