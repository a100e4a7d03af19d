package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
)

// Provider name constants.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// ErrNoProviders is returned by a Chain with zero configured clients.
// Callers treat it like any provider failure and take their degraded path.
var ErrNoProviders = errors.New("no llm providers configured")

// Client is a single text-completion provider. Complete returns the raw
// response text; callers parse it through ExtractJSON so a malformed reply
// from one provider falls through to the next instead of failing the request.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Name() string
	Model() string
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any // JSON schema hint for providers that support structured output
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// ParseResult is the tagged outcome of extracting JSON from a provider reply.
type ParseResult struct {
	OK     bool
	Value  json.RawMessage
	Reason string
}

// Chain tries an ordered list of providers and takes the first that returns
// parseable JSON. Business logic never names a provider; order is fixed at
// construction.
type Chain struct {
	clients []Client
}

func NewChain(clients ...Client) *Chain {
	return &Chain{clients: clients}
}

// Empty reports whether no providers are configured, which forces every
// LLM-dependent component into its deterministic fallback path.
func (c *Chain) Empty() bool {
	return len(c.clients) == 0
}

// Head returns the name of the first provider in the try order, or "regex"
// when the chain is empty. Used for the processing_method response field.
func (c *Chain) Head() string {
	if len(c.clients) == 0 {
		return "regex"
	}
	return c.clients[0].Name()
}

// CompleteJSON runs the request through the provider order and unmarshals the
// first parseable JSON payload into out. A provider error and a reply without
// a JSON payload are treated identically: advance to the next provider.
// Returns the name of the provider that succeeded.
func (c *Chain) CompleteJSON(ctx context.Context, req Request, out any) (string, error) {
	if len(c.clients) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, client := range c.clients {
		raw, err := client.Complete(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			slog.WarnContext(ctx, "llm provider failed, trying next",
				"provider", client.Name(),
				"model", client.Model(),
				"error", err)
			lastErr = err
			continue
		}

		parsed := ExtractJSON(raw)
		if !parsed.OK {
			slog.WarnContext(ctx, "llm reply had no parseable json, trying next",
				"provider", client.Name(),
				"reason", parsed.Reason)
			lastErr = fmt.Errorf("%s: %s", client.Name(), parsed.Reason)
			continue
		}

		if err := json.Unmarshal(parsed.Value, out); err != nil {
			slog.WarnContext(ctx, "llm json did not match expected shape, trying next",
				"provider", client.Name(),
				"error", err)
			lastErr = fmt.Errorf("%s: unmarshal: %w", client.Name(), err)
			continue
		}

		return client.Name(), nil
	}

	return "", fmt.Errorf("all llm providers failed: %w", lastErr)
}

// ExtractJSON locates the first balanced JSON object or array inside raw.
// Providers wrap payloads in prose or markdown fences often enough that this
// lives here rather than at each call site.
func ExtractJSON(raw string) ParseResult {
	start := -1
	var open, close byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' || raw[i] == '[' {
			start = i
			open = raw[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return ParseResult{Reason: "no json delimiter found"}
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
			// characters inside strings never affect depth
		case ch == open:
			depth++
		case ch == close:
			depth--
			if depth == 0 {
				candidate := raw[start : i+1]
				if !json.Valid([]byte(candidate)) {
					return ParseResult{Reason: "delimited substring is not valid json"}
				}
				return ParseResult{OK: true, Value: json.RawMessage(candidate)}
			}
		}
	}

	return ParseResult{Reason: "unbalanced json delimiters"}
}

// GenerateSchema generates a JSON schema from a response struct type, for
// providers that accept structured-output schemas.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}

// TrimFences strips markdown code fences, which some models emit around JSON
// even when asked not to.
func TrimFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
