package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ledgerTracer = otel.Tracer("auction-ledger/internal/usecase")

// Returned when there is nothing to attach to; Ending it is a no-op.
var untracedSpan = trace.SpanFromContext(context.Background())

// startUsecaseSpan only joins a trace a request already started. The batch
// flush and the relay call in from background loops and stay untraced.
func startUsecaseSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if name == "" || !trace.SpanFromContext(ctx).SpanContext().IsValid() {
		return ctx, untracedSpan
	}
	return ledgerTracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func playerAttr(id string) attribute.KeyValue {
	return attribute.String("auction.player_id", id)
}

func teamAttr(id string) attribute.KeyValue {
	return attribute.String("auction.team_id", id)
}

func amountAttr(amount int64) attribute.KeyValue {
	return attribute.Int64("auction.bid_amount", amount)
}
