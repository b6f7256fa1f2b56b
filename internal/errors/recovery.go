// Package errors maps optimization errors onto HTTP responses and recovers
// from handler panics.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"runtime/debug"

	"github.com/copyleftdev/layoutevo/internal/layout"
	"github.com/copyleftdev/layoutevo/internal/logging"
	"github.com/copyleftdev/layoutevo/internal/optimization"
)

// RecoveryMiddleware returns a middleware that recovers from panics.
func RecoveryMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					fields := map[string]interface{}{
						"error": rec,
						"stack": string(debug.Stack()),
					}
					if r != nil {
						fields["method"] = r.Method
						fields["path"] = r.URL.Path
						fields["query"] = r.URL.RawQuery
					}
					logger.Error("Recovered from panic", fields)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Kind returns a short machine-readable name for the category of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case stderrors.Is(err, optimization.ErrConfig):
		return "config"
	case stderrors.Is(err, optimization.ErrInvalidParameter):
		return "invalid_parameter"
	case stderrors.Is(err, optimization.ErrInvalidPermutation):
		return "invalid_permutation"
	case stderrors.Is(err, optimization.ErrParse),
		stderrors.Is(err, layout.ErrLength),
		stderrors.Is(err, layout.ErrDuplicate):
		return "parse"
	case stderrors.Is(err, optimization.ErrAlreadyTerminated):
		return "already_terminated"
	case stderrors.Is(err, optimization.ErrEvaluation):
		return "evaluation"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case stderrors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// ErrNotFound reports a missing job or resource.
var ErrNotFound = stderrors.New("not found")

// StatusFor returns the HTTP status code for err.
func StatusFor(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case "config", "invalid_parameter", "invalid_permutation", "parse":
		return http.StatusBadRequest
	case "already_terminated":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "cancelled":
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON body with the status from StatusFor.
func WriteError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": err.Error(),
		"kind":  Kind(err),
	})
}
