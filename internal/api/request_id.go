package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader is echoed on every response so clients can correlate
// requests with server logs.
const RequestIDHeader = "x-request-id"

type contextKey string

const requestIDKey contextKey = "harmonyRequestID"

// RequestIDMiddleware assigns a request ID to requests that arrive
// without one and echoes it back on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID for the current request, or ""
// when the request never passed through RequestIDMiddleware.
func GetRequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
