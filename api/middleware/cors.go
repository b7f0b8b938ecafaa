package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS admits the finance console origins. Exports are downloaded by the
// browser, so Content-Disposition must be readable cross-origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}
