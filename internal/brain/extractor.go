package brain

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"glowfeed.app/discovery/common/llm"
)

const extractContentLimit = 4000

const extractSystemPrompt = `You extract concrete product names from web page content for a
product research assistant. List only real brand + product name pairs that are
actually mentioned, e.g. "CeraVe Hydrating Cleanser" or "Sony WH-1000XM5".
Reject generic category words ("a good cleanser"), promotional phrases
("our best-selling serum"), and anything you are unsure is a real product.
Respond with a JSON array of strings only. Return [] when nothing qualifies.`

// brandMentionPattern matches a known brand followed by a product-type noun
// within a bounded window. This is the degraded path when every LLM provider
// is down or unconfigured.
var brandMentionPattern = regexp.MustCompile(`(?i)\b(CeraVe|Cetaphil|Neutrogena|Nivea|The Ordinary|Minimalist|Mamaearth|L'Oreal|Loreal|Maybelline|Lakme|Plum|Himalaya|Garnier|Olay|Dove|Pond's|Ponds|Biotique|La Roche-Posay|Re'equil|Apple|Samsung|Sony|OnePlus)((?:\s+[A-Za-z0-9%+'&.\-]+){0,4}?\s+(?:Cleanser|Face Wash|Moisturizer|Moisturiser|Sunscreen|Serum|Cream|Lotion|Gel|Foam|Toner|Shampoo|Conditioner|Mask|Oil|Wash|Scrub|Balm|Foundation|Concealer|Lipstick|Mascara|Earbuds|Headphones|Watch|Phone))\b`)

// Extractor pulls concrete product mentions out of fetched page content.
type Extractor struct {
	chain *llm.Chain
}

func NewExtractor(chain *llm.Chain) *Extractor {
	return &Extractor{chain: chain}
}

// Extract returns product names mentioned in content, and whether the LLM
// path produced them (false means the regex fallback ran).
func (e *Extractor) Extract(ctx context.Context, content, sourceTitle string) ([]string, bool) {
	if strings.TrimSpace(content) == "" {
		return nil, false
	}

	trimmed := content
	if len(trimmed) > extractContentLimit {
		trimmed = trimmed[:extractContentLimit]
	}

	var names []string
	provider, err := e.chain.CompleteJSON(ctx, llm.Request{
		SystemPrompt: extractSystemPrompt,
		UserPrompt:   fmt.Sprintf("Page title: %s\n\nContent:\n%s", sourceTitle, trimmed),
		SchemaName:   "product_mentions",
		Temperature:  llm.Temp(0.1),
	}, &names)
	if err == nil {
		slog.DebugContext(ctx, "mentions extracted",
			"provider", provider,
			"count", len(names),
			"source", sourceTitle)
		return dedupeNames(names), true
	}

	if ctx.Err() != nil {
		return nil, false
	}

	slog.InfoContext(ctx, "llm extraction unavailable, using regex fallback",
		"source", sourceTitle, "error", err)
	return extractWithRegex(content), false
}

func extractWithRegex(content string) []string {
	matches := brandMentionPattern.FindAllString(content, -1)
	return dedupeNames(matches)
}

// dedupeNames removes case-insensitive duplicates and obviously unusable
// entries, preserving first-seen casing and order.
func dedupeNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.Join(strings.Fields(name), " ")
		key := strings.ToLower(name)
		if key == "" || len(key) < 3 || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
