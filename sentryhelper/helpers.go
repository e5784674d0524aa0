// Package sentryhelper provides utilities for Sentry span and scope management.
// Shell requests reuse the hub and transaction sentrygin attaches to the request;
// each action only adds a child span and tags.
package sentryhelper

import (
	"context"

	sentry "github.com/getsentry/sentry-go"
)

const actionOp = "shell.action"

// StartActionSpan starts a child span for one shell action under the request
// transaction and tags both with the action and session. The caller finishes
// the returned span; the request transaction belongs to the middleware.
// Without a hub on ctx (no middleware) a cloned hub is attached first.
func StartActionSpan(ctx context.Context, action string, sessionID string) (context.Context, *sentry.Span) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}
	hub.Scope().SetTag("session_id", sessionID)

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("action", action)
		transaction.SetTag("session_id", sessionID)
	}

	span := sentry.StartSpan(ctx, actionOp, sentry.WithDescription(action))
	span.SetTag("action", action)
	span.SetTag("session_id", sessionID)

	return span.Context(), span
}

// HubFromContext retrieves the request hub from context, falling back to CurrentHub.
func HubFromContext(ctx context.Context) *sentry.Hub {
	if ctx == nil {
		return sentry.CurrentHub()
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

func AddBreadcrumb(ctx context.Context, breadcrumb *sentry.Breadcrumb) {
	hub := HubFromContext(ctx)
	hub.AddBreadcrumb(breadcrumb, nil)
}

func CaptureException(ctx context.Context, err error) *sentry.EventID {
	hub := HubFromContext(ctx)
	return hub.CaptureException(err)
}

// CaptureMessage is for warnings that are not errors, such as a classifier
// answering with something that is not JSON.
func CaptureMessage(ctx context.Context, message string) *sentry.EventID {
	hub := HubFromContext(ctx)
	return hub.CaptureMessage(message)
}
