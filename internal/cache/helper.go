package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// startSpan opens a sentry span for a cache call. It returns nil when the
// request carries no sentry hub.
func startSpan(ctx context.Context, driver, operation, key string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "cache."+operation)
	span.Op = "cache." + operation
	span.Description = key
	span.SetData("cache.driver", driver)
	span.SetData("cache.key", key)
	return span
}

// finishSpan records the outcome and closes span; nil spans are ignored
func finishSpan(span *sentry.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}

// recordHit tags a read span with its result
func recordHit(span *sentry.Span, hit bool) {
	if span != nil {
		span.SetData("cache.hit", hit)
	}
}
