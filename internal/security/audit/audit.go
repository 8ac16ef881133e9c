package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id audit records are tagged with
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type Logger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger, now: time.Now}
}

// LogAction writes one audit record for an action taken by actorID on a resource
func (al *Logger) LogAction(ctx context.Context, actorID, action, resource, resourceID, status, details string) {
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor_id", actorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", al.now().UTC()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, userID, username, status string) {
	al.LogAction(ctx, userID, "login", "session", "", status, username)
}

func (al *Logger) LogDenied(ctx context.Context, actorID, reason string) {
	al.LogAction(ctx, actorID, "access_denied", "api", "", "denied", reason)
}
