package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dropDatabas3/flowgate/internal/observability/logger"
)

// requestID asigna un X-Request-ID si el caller no mandó uno y lo
// refleja en la respuesta.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// withLogger inyecta un logger scoped al request en el contexto, para
// que las capas de abajo usen logger.From(ctx).
func withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.L().With(
			logger.String("request_id", w.Header().Get("X-Request-ID")),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(logger.ToContext(r.Context(), l)))
	})
}

// recoverer reusa el recoverer de chi.
var recoverer = middleware.Recoverer
