package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TrendSnapshot/internal/domain"
)

// Timestamps before this point are treated as epoch-zero artifacts from the
// ingestion pipeline, not real publication dates.
var sanityFloor = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Item coerces one raw source row into its canonical form. It never fails:
// every malformed field degrades to a safe default, because one bad row must
// not abort a build.
func Item(src domain.SourceItem, now time.Time) domain.NormalizedItem {
	return domain.NormalizedItem{
		ID:          src.ID,
		Title:       PlainText(src.Title),
		Summary:     PlainText(src.Summary),
		Platform:    strings.TrimSpace(src.Platform),
		ImageURL:    strings.TrimSpace(src.ImageURL),
		PublishedAt: resolveTimestamp(src, now),
		Score:       parseScore(src.RawPreciseScore),
		Views:       parseCount(src.RawViews),
		Likes:       parseCount(src.RawLikes),
		Comments:    parseCount(src.RawComments),
		Keywords:    parseKeywords(src.RawKeywords),
	}
}

// resolveTimestamp walks the published → created → now fallback chain.
// Anything before the sanity floor counts as invalid.
func resolveTimestamp(src domain.SourceItem, now time.Time) time.Time {
	if ts, ok := parseTimestamp(src.RawPublishedAt); ok {
		return ts
	}
	if ts, ok := parseTimestamp(src.RawCreatedAt); ok {
		return ts
	}
	return now.UTC()
}

func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		ts, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		ts = ts.UTC()
		if ts.Before(sanityFloor) {
			return time.Time{}, false
		}
		return ts, true
	}
	return time.Time{}, false
}

// parseScore coerces the precise score string; any failure yields zero. The
// coarse popularity score is deliberately not a fallback: it orders the
// source window read, never the ranking.
func parseScore(raw string) float64 {
	cleaned := cleanNumber(raw)
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}

// parseCount yields a non-negative integer from arbitrarily formatted input;
// any failure yields zero.
func parseCount(raw string) int64 {
	cleaned := cleanNumber(raw)
	if cleaned == "" {
		return 0
	}
	value, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil {
		// Counters sometimes arrive as "1234.0" from the scraper.
		f, fErr := strconv.ParseFloat(cleaned, 64)
		if fErr != nil {
			return 0
		}
		value = int64(f)
	}
	if value < 0 {
		return 0
	}
	return value
}

// cleanNumber strips thousands separators and spacing the upstream scrapers
// are known to emit.
func cleanNumber(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, "_", "")
	raw = strings.ReplaceAll(raw, " ", "")
	return raw
}

// parseKeywords accepts a JSON string array, a comma/whitespace separated
// list, or nothing, and always returns trimmed non-empty strings.
func parseKeywords(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	if strings.HasPrefix(raw, "[") {
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return trimKeywords(parsed)
		}
		// Fall through: malformed JSON is treated as a plain list.
	}

	// Comma lists may carry multi-word keywords; only a list without any
	// commas is split on whitespace.
	if strings.ContainsAny(raw, ",\n") {
		split := strings.FieldsFunc(raw, func(r rune) bool {
			return r == ',' || r == '\n'
		})
		return trimKeywords(split)
	}
	return trimKeywords(strings.Fields(raw))
}

func trimKeywords(raw []string) []string {
	keywords := make([]string, 0, len(raw))
	for _, kw := range raw {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
	}
	return keywords
}

// PlainText reduces a text field to plain trimmed text. Upstream scrapers
// leak markup and HTML entities into titles and summaries.
func PlainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.TrimSpace(doc.Text())
}
