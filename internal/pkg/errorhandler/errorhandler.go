package errorhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voxroom/voxroom-api/internal/pkg/econerr"
	"github.com/voxroom/voxroom-api/internal/pkg/ledger"
	"github.com/voxroom/voxroom-api/internal/pkg/logger"
	"github.com/voxroom/voxroom-api/internal/pkg/response"
)

// Handle writes err as the uniform error envelope. Tagged errors go out
// as-is; anything else is logged and reported as INTERNAL_ERROR so no
// internal detail reaches the client.
func Handle(ctx context.Context, w http.ResponseWriter, err error) {
	l := logger.FromContext(ctx)

	if e, ok := econerr.As(err); ok {
		l.Debug().Str("error_code", e.Code).Str("error_kind", string(e.Kind)).Msg("Request rejected")
		response.Fail(w, e)
		return
	}

	if errors.Is(err, ledger.ErrConflict) {
		l.Warn().Err(err).Msg("Ledger contention exhausted retries")
		response.Fail(w, econerr.ErrBusy)
		return
	}

	if errors.Is(err, context.Canceled) {
		l.Debug().Err(err).Msg("Request cancelled by client")
		return
	}

	l.Error().Err(err).Msg("Request error")
	response.InternalError(w)
}

// HandleValidation logs and writes per-field validation failures
func HandleValidation(ctx context.Context, w http.ResponseWriter, fieldErrors map[string]string) {
	errJSON, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Debug().RawJSON("validation_errors", errJSON).Msg("Validation error")
	response.ValidationError(w, fieldErrors)
}

// HandlePanic logs a recovered panic with its stack; the client only sees
// a generic failure
func HandlePanic(ctx context.Context, w http.ResponseWriter, panicErr interface{}, stackTrace string) {
	logger.FromContext(ctx).Error().
		Interface("panic_error", panicErr).
		Str("panic_stack", stackTrace).
		Msg("Request panic")
	response.InternalError(w)
}

// LogExternalServiceError logs a failed call to a third party
func LogExternalServiceError(ctx context.Context, service, endpoint string, statusCode int, err error, body string) {
	logger.FromContext(ctx).Error().
		Str("external_service", service).
		Str("endpoint", endpoint).
		Int("status_code", statusCode).
		Err(err).
		Str("response_body", truncateString(body, 1000)).
		Msg("External service error")
}

func truncateString(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "...<truncated>"
	}
	return s
}
