package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Business context (query, intent type, search attempt) flows
// through context enrichment so individual log sites never repeat it.
type LogFields struct {
	Query      *string // Normalized query driving the current pipeline run
	IntentType *string // Classified intent ("specific_product", "category", ...)
	Attempt    *int    // Search attempt number within the fallback sequence
	SourceURL  *string // Source being fetched/extracted
	Component  string  // Component name, e.g. "discovery.brain.orchestrator"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.Query != nil {
		result.Query = next.Query
	}
	if next.IntentType != nil {
		result.IntentType = next.IntentType
	}
	if next.Attempt != nil {
		result.Attempt = next.Attempt
	}
	if next.SourceURL != nil {
		result.SourceURL = next.SourceURL
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if
// truncated. Useful for logging potentially long strings like page content.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
