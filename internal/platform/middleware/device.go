package middleware

import (
	"net/http"

	"hrgate/internal/device"
	"hrgate/pkg/requestcontext"
)

// Device parses the User-Agent into a display name and fingerprint and
// publishes both through the request context.
func Device(svc *device.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.UserAgent()
			ctx := requestcontext.WithDevice(r.Context(),
				device.ParseUserAgent(ua),
				svc.ComputeFingerprint(ua),
			)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
