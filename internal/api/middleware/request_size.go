package middleware

import "net/http"

// DefaultMaxBodySize caps JSON payloads. Tournament bodies with full stage
// and sponsor lists are the largest legitimate requests.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize wraps the body in http.MaxBytesReader. Decoders then fail with
// *http.MaxBytesError, which problem.Error maps to 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
