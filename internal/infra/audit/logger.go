package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/nezasa/credstore/internal/domain"
	"github.com/nezasa/credstore/internal/metrics"
)

// Logger mirrors audit activity to structured logs. The durable entries
// live in the store, written transactionally with their mutations; this
// mirror exists so operators can tail the audit stream without a database
// query, and it also records denials, which are never persisted.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Logged(ctx context.Context, p domain.Principal, action domain.Action, credID, decisionID, details string) {
	metrics.AuditEntriesTotal.WithLabelValues(string(action)).Inc()
	l.logger.LogAttrs(ctx, slog.LevelInfo, "audit_event",
		slog.String("actor", p.Actor),
		slog.String("role", string(p.Role)),
		slog.String("action", string(action)),
		slog.String("credential_id", credID),
		slog.String("auth_decision_id", decisionID),
		slog.String("details", details),
		slog.Bool("success", true),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

func (l *Logger) Denied(ctx context.Context, p domain.Principal, action domain.Action, credID, decisionID string) {
	l.logger.LogAttrs(ctx, slog.LevelWarn, "audit_event",
		slog.String("actor", p.Actor),
		slog.String("role", string(p.Role)),
		slog.String("action", string(action)),
		slog.String("credential_id", credID),
		slog.String("auth_decision_id", decisionID),
		slog.Bool("success", false),
		slog.String("reason", "policy_denied"),
		slog.Time("timestamp", time.Now().UTC()),
	)
}
