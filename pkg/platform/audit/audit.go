// Package audit writes audit-relevant state transitions to the structured log
// with a fixed attribute set, so log pipelines can route them apart from
// operational noise.
package audit

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"ascent/pkg/requestcontext"
)

// Event names for audit log lines.
const (
	EventStateCreated      = "state_created"
	EventPromoted          = "level_promoted"
	EventRolledBack        = "level_rolled_back"
	EventSuspended         = "domain_suspended"
	EventResumed           = "domain_resumed"
	EventScoreAdded        = "score_added"
	EventGateOpened        = "gate_opened"
	EventGateFulfilled     = "gate_fulfilled"
	EventFeatureDenied     = "feature_denied"
	EventMaintenanceFailed = "maintenance_user_failed"
)

// Log writes one audit line. The request id and the active trace id, when
// present, are attached for correlation. A nil logger drops the line.
func Log(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		attrs = append(attrs, "trace_id", sc.TraceID().String())
	}
	attrs = append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, attrs...)
}
