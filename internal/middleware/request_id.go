package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/voxroom/voxroom-api/internal/pkg/logger"
)

// RequestID tags each request with an id, echoed in the response and
// attached to the request-scoped logger
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)

		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
