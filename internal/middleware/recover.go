package middleware

import (
	"errors"
	"expvar"
	"net/http"
	"runtime/debug"

	"github.com/voxroom/voxroom-api/internal/pkg/errorhandler"
)

var panicCount = expvar.NewInt("http_panics")

// Recover turns a handler panic into INTERNAL_ERROR. A panic inside a
// ledger transaction never reaches commit, so no partial economy write
// survives it. http.ErrAbortHandler is re-raised for net/http.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}
			panicCount.Add(1)
			errorhandler.HandlePanic(r.Context(), w, rec, string(debug.Stack()))
		}()

		next.ServeHTTP(w, r)
	})
}
