// Package observability provides logging, metrics and tracing for the board core.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

// GlobalLogger is used by services and repositories. The server points it at the
// request-aware logger at startup.
var GlobalLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger swaps the logger used by this package. nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = l
	}
}

var auditWrites atomic.Bool

// EnableWriteAudit turns per-write repository logging on or off (REPO_LOGGING).
func EnableWriteAudit(on bool) {
	auditWrites.Store(on)
}

// WriteAudit logs board writes made by one repository when REPO_LOGGING is on.
type WriteAudit struct {
	table string
}

// NewWriteAudit returns the audit logger for table.
func NewWriteAudit(table string) WriteAudit {
	return WriteAudit{table: table}
}

// Wrote records a successful write.
func (a WriteAudit) Wrote(ctx context.Context, op string, attrs ...slog.Attr) {
	if !auditWrites.Load() {
		return
	}
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, a.table+" "+op, append(attrs, slog.String("table", a.table))...)
}

// Failed records a write that returned err. Nil errors are ignored.
func (a WriteAudit) Failed(ctx context.Context, op string, err error) {
	if err == nil || !auditWrites.Load() {
		return
	}
	GlobalLogger.LogAttrs(ctx, slog.LevelError, a.table+" "+op+" failed",
		slog.String("table", a.table), slog.String("error", err.Error()))
}
