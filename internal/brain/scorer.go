package brain

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"glowfeed.app/discovery/internal/domain"
)

// Score clamp range. The scorer never zeroes a source outright; 0.1 keeps a
// weak source rankable when nothing better exists.
const (
	scoreFloor = 0.1
	scoreCeil  = 1.0
)

// Source caps per intent. Specific-product queries keep fewer, better sources
// since each one costs a fetch and an extraction call downstream.
const (
	maxSourcesSpecific = 8
	maxSourcesGeneral  = 12
)

const (
	scoreThresholdGeneral  = 0.3
	scoreThresholdSpecific = 0.4
)

// highQualityDomains and moderateDomains form the category-domain allowlist.
var highQualityDomains = []string{
	"byrdie.com", "allure.com", "healthline.com", "webmd.com", "aad.org",
	"paulaschoice.com", "dermstore.com", "goodhousekeeping.com",
	"goodreads.com", "rtings.com", "wired.com", "theverge.com", "cnet.com",
	"wirecutter.com", "nytimes.com",
}

var moderateDomains = []string{
	"reddit.com", "quora.com", "makeupalley.com", "temptalia.com",
	"beautypedia.com", "vogue.com", "elle.com", "femina.in", "medium.com",
	"substack.com",
}

// blockedDomainFragments is the blocklist; substring match against the host.
var blockedDomainFragments = []string{
	"pinterest.", "aliexpress.", "alibaba.", "wish.com", "temu.",
	"coupon", "promo", "dealnews", "slickdeals",
}

var listingURLSegments = []string{
	"/collections/", "/collection/", "/category/", "/categories/",
	"/shop/", "/store/", "/all-products",
}

var listingTitleWords = []string{"products", "collection", "catalogue", "shop all"}

var ecommerceDomains = []string{
	"amazon.", "flipkart.", "nykaa.", "myntra.", "purplle.", "ebay.",
	"walmart.", "target.",
}

// SourceScorer assigns a trust/relevance score to raw search hits and filters
// them down to the set worth fetching.
type SourceScorer struct {
	now func() time.Time
}

func NewSourceScorer() *SourceScorer {
	return &SourceScorer{now: time.Now}
}

// Score rates one hit in [0.1, 1.0] for the given intent.
func (s *SourceScorer) Score(hit domain.RawHit, intentType domain.IntentType, categoryHints []string) float64 {
	host := hostOf(hit.URL)
	title := strings.ToLower(hit.Title)
	path := strings.ToLower(hit.URL)

	score := 0.5

	switch {
	case matchesAny(host, highQualityDomains):
		score += 0.4
	case matchesAny(host, moderateDomains):
		score += 0.2
	}

	if matchesAny(host, blockedDomainFragments) {
		score -= 0.4
	}

	if strings.Contains(title, "review") {
		score += 0.2
	} else if containsAnyWord(title, "expert", "dermatologist", "tested", "best", "top") {
		score += 0.1
	}

	year := s.now().Year()
	if strings.Contains(title, strconv.Itoa(year)) || strings.Contains(title, strconv.Itoa(year-1)) {
		score += 0.1
	}

	if len(categoryHints) > 0 && containsAnyWord(title, categoryHints...) {
		score += 0.05
	}

	// Listing pages are the dominant negative signal for specific-product
	// queries: an aggregator page about twenty cleansers buries the one the
	// user asked about. For brand exploration the same pages are the answer.
	urlListing := matchesAny(path, listingURLSegments)
	titleListing := containsAnyWord(title, listingTitleWords...)
	switch intentType {
	case domain.IntentSpecificProduct:
		if urlListing {
			score -= 0.5
			if titleListing {
				score -= 0.1
			}
		} else if titleListing {
			score -= 0.5
		}
	case domain.IntentBrandExploration:
		if urlListing || titleListing {
			score += 0.2
		}
	}

	if score < scoreFloor {
		return scoreFloor
	}
	if score > scoreCeil {
		return scoreCeil
	}
	return score
}

// ClassifySource buckets a hit by site kind.
func (s *SourceScorer) ClassifySource(hit domain.RawHit) domain.SourceType {
	host := hostOf(hit.URL)
	title := strings.ToLower(hit.Title)
	path := strings.ToLower(hit.URL)

	switch {
	case matchesAny(host, ecommerceDomains) || strings.Contains(path, "/shop"):
		return domain.SourceEcommerce
	case strings.Contains(host, "reddit.") || strings.Contains(host, "quora.") ||
		strings.Contains(path, "forum") || strings.Contains(path, "community"):
		return domain.SourceForum
	case strings.Contains(title, "review") || strings.Contains(path, "review") ||
		matchesAny(host, highQualityDomains):
		return domain.SourceReview
	case strings.Contains(path, "/official") || strings.HasSuffix(host, ".org") ||
		strings.HasSuffix(host, ".gov"):
		return domain.SourceOfficial
	default:
		return domain.SourceBlog
	}
}

// FilterAndRank scores every hit, drops the unusable ones, and returns the
// best sources for the intent, capped per intent type.
func (s *SourceScorer) FilterAndRank(hits []domain.RawHit, intent domain.QueryIntent) []domain.ScoredSource {
	threshold := scoreThresholdGeneral
	limit := maxSourcesGeneral
	if intent.Type == domain.IntentSpecificProduct {
		threshold = scoreThresholdSpecific
		limit = maxSourcesSpecific
	}

	scored := make([]domain.ScoredSource, 0, len(hits))
	for _, hit := range hits {
		if hit.Title == "" || hit.URL == "" {
			continue
		}
		score := s.Score(hit, intent.Type, intent.CategoryHints)
		if score < threshold {
			continue
		}
		scored = append(scored, domain.ScoredSource{
			Title:        hit.Title,
			URL:          hit.URL,
			Snippet:      hit.Snippet,
			SourceType:   s.ClassifySource(hit),
			Domain:       hostOf(hit.URL),
			QualityScore: score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].QualityScore > scored[j].QualityScore
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	return strings.ToLower(strings.TrimPrefix(u.Host, "www."))
}

func matchesAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
