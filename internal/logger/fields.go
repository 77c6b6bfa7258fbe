package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
	// FieldRequestID is the structured log field key for the per-request identifier.
	FieldRequestID = "request_id"
)

// WithMatcher returns a child logger carrying the AI provider and model on
// every entry. Blank values are dropped to keep entries compact when the
// model is not known yet.
func WithMatcher(log *zap.Logger, provider, model string) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if provider = strings.TrimSpace(provider); provider != "" {
		fields = append(fields, zap.String(FieldProvider, provider))
	}
	if model = strings.TrimSpace(model); model != "" {
		fields = append(fields, zap.String(FieldModel, model))
	}

	return with(log, fields)
}

// WithRequestID returns a child logger carrying the request identifier, for
// log lines that belong to a single HTTP request.
func WithRequestID(log *zap.Logger, id string) *zap.Logger {
	if id = strings.TrimSpace(id); id == "" {
		return with(log, nil)
	}

	return with(log, []zap.Field{zap.String(FieldRequestID, id)})
}

// Helpers may run before wiring completes, so a nil logger degrades to a
// no-op one.
func with(log *zap.Logger, fields []zap.Field) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fields) == 0 {
		return log
	}

	return log.With(fields...)
}
