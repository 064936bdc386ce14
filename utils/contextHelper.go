package utils

import (
	"context"

	"github.com/mmdatafocus/upl_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyInitiatorId   = appctx.ContextKeyInitiatorId
	ContextKeyInitiatorName = appctx.ContextKeyInitiatorName
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetInitiatorIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyInitiatorId)
}

func GetInitiatorNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyInitiatorName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetInitiatorIdInContext(ctx context.Context, initiatorId string) context.Context {
	return appctx.Set(ctx, ContextKeyInitiatorId, initiatorId)
}

func SetInitiatorNameInContext(ctx context.Context, initiatorName string) context.Context {
	return appctx.Set(ctx, ContextKeyInitiatorName, initiatorName)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
