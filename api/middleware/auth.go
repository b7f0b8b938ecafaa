package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/coursehub-backend/api/responses"
	pkgAuth "github.com/angelmondragon/coursehub-backend/pkg/auth"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/coursehub-backend/pkg/errors"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

// Auth admits staff requests carrying a valid access token and records the
// staff member and role on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := staffClaims(cfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithStaff(r.Context(), Staff{ID: claims.Subject, Role: claims.Role})
			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.Subject)
				ctx = logg.WithActorRole(ctx, string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func staffClaims(cfg config.JWTConfig, r *http.Request) (*pkgAuth.AccessTokenClaims, error) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.Subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject")
	}
	return claims, nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
