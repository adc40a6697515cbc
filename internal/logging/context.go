// internal/logging/context.go
package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/juancollazo-ch/affiliate-reconciliation-service/internal/contextkeys"
)

// GetLoggingFieldsFromContext extrae los campos de logging (trace_id, run_id,
// trigger) del contexto y los devuelve como un slice de zap.Field.
func GetLoggingFieldsFromContext(ctx context.Context) []zap.Field {
	fields := []zap.Field{}
	if tid, ok := ctx.Value(contextkeys.TraceIDKey).(string); ok && tid != "" {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if rid, ok := ctx.Value(contextkeys.RunIDKey).(string); ok && rid != "" {
		fields = append(fields, zap.String("run_id", rid))
	}
	if tr, ok := ctx.Value(contextkeys.TriggerKey).(string); ok && tr != "" {
		fields = append(fields, zap.String("trigger", tr))
	}
	return fields
}

// WithTraceID añade el trace id de Cloud Run al contexto si está presente.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if traceID == "" {
		return ctx
	}
	return context.WithValue(ctx, contextkeys.TraceIDKey, traceID)
}

// WithRun añade run_id y trigger (http, schedule) al contexto.
func WithRun(ctx context.Context, runID, trigger string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, contextkeys.RunIDKey, runID)
	}
	if trigger != "" {
		ctx = context.WithValue(ctx, contextkeys.TriggerKey, trigger)
	}
	return ctx
}

// TraceID devuelve el trace id guardado, si hay.
func TraceID(ctx context.Context) string {
	tid, _ := ctx.Value(contextkeys.TraceIDKey).(string)
	return tid
}
