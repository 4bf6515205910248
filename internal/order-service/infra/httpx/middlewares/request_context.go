package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

// AttachRequestContext copies the chi request id into the context key read
// by the logger and the catalog client, and echoes it back to the caller.
// It must run after middleware.RequestID.
func AttachRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set(middleware.RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), constants.ContextKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
