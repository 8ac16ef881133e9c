package middleware

import (
	"log/slog"
	"mime"
	"net/http"
)

// ValidateContentType rejects POST, PUT and PATCH bodies whose media type is not
// one of allowed (application/json when none are given)
func ValidateContentType(log *slog.Logger, allowed ...string) func(http.Handler) http.Handler {
	if len(allowed) == 0 {
		allowed = []string{"application/json"}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			// Allow requests without body
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err == nil {
				for _, a := range allowed {
					if mediaType == a {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			log.Warn("invalid content type",
				slog.String("path", r.URL.Path),
				slog.String("content_type", contentType),
				slog.String("method", r.Method),
			)
			writeError(w, http.StatusUnsupportedMediaType, "unsupported content type: "+contentType)
		})
	}
}
