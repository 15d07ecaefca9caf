// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values; services consume them without importing
// net/http. Core operations always read the authenticated user from the
// explicit context rather than any ambient session state.
//
// Usage in services (read values):
//
//	userID := requestcontext.UserID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithUserID(ctx, userID)
package requestcontext

import (
	"context"
	"time"

	id "hrgate/pkg/domain"
)

type (
	userIDKey            struct{}
	requestIDKey         struct{}
	requestTimeKey       struct{}
	deviceNameKey        struct{}
	deviceFingerprintKey struct{}
	clientIPKey          struct{}
)

// UserID retrieves the authenticated user ID from the context.
// Returns the zero value (nil UUID) if not set.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

// WithUserID injects a user ID into the context.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, CLI, tests).
// Attendance timestamps are server-assigned through this accessor so a
// whole request observes one consistent clock reading.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// DeviceName retrieves the parsed device display name from the context.
func DeviceName(ctx context.Context) string {
	if name, ok := ctx.Value(deviceNameKey{}).(string); ok {
		return name
	}
	return ""
}

// DeviceFingerprint retrieves the pre-computed device fingerprint.
func DeviceFingerprint(ctx context.Context) string {
	if fp, ok := ctx.Value(deviceFingerprintKey{}).(string); ok {
		return fp
	}
	return ""
}

// WithDevice injects device name and fingerprint into a context.
func WithDevice(ctx context.Context, name, fingerprint string) context.Context {
	ctx = context.WithValue(ctx, deviceNameKey{}, name)
	return context.WithValue(ctx, deviceFingerprintKey{}, fingerprint)
}

// ClientIP retrieves the client IP address from the context. Audit events
// are stamped with it.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects the client IP address into a context.
func WithClientIP(ctx context.Context, clientIP string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, clientIP)
}
