package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORSHandler allows the app and admin panel origins. A "*" entry opens
// the API to any origin but drops credentials, which browsers refuse to
// combine with a wildcard.
func CORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	credentials := true
	for _, o := range allowedOrigins {
		if o == "*" {
			credentials = false
			break
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: credentials,
		MaxAge:           300,
	})
}
