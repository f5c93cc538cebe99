package httpapi

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const handlerSpanPrefix = "httpapi.Handler."

var apiTracer = otel.Tracer("auction-ledger/internal/interfaces/httpapi")
var noopSpan = trace.SpanFromContext(context.Background())

// startSpan opens a child span for handlers only. Helpers and untraced
// routes such as /healthz get a no-op span. Admin handlers are tagged with
// the operator behind the request.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if !strings.HasPrefix(name, handlerSpanPrefix) || !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, noopSpan
	}
	ctx, span := apiTracer.Start(ctx, name)
	if id := adminID(ctx); id != "" {
		span.SetAttributes(attribute.String("auction.admin_id", id))
	}
	return ctx, span
}
