// Package searchlink rewrites model-generated markdown links into canonical
// site-search links and extracts those links for display.
package searchlink

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jwgpt/jwgpt/internal/model"
)

const (
	// JWOrgSearchPrefix is the jw.org site search endpoint.
	JWOrgSearchPrefix = "https://www.jw.org/en/search/?q="
	// WOLSearchPrefix is the Watchtower Online Library search endpoint.
	WOLSearchPrefix = "https://wol.jw.org/en/wol/s/r1/lp-e?q="
)

var (
	// The URL may hold one level of balanced parentheses, as in
	// https://en.wikipedia.org/wiki/Love_(disambiguation).
	markdownLinkRe = regexp.MustCompile(`\[([^\]]+)\]\((https?://(?:\([^()\s]*\)|[^)\s])+)\)`)
	searchLinkRe   = regexp.MustCompile(`\[Search\s*([^\]]+)\]\(([^)]+)\)`)

	separators = strings.NewReplacer("-", " ", "_", " ")
	// Brackets would end the link text early, so terms never carry them.
	brackets = strings.NewReplacer("[", " ", "]", " ")
)

// RewriteLinks replaces every markdown link that targets an arbitrary HTTP(S)
// URL with a jw.org search link derived from the URL's last path segment.
// Links that already point at a search endpoint are left untouched, so the
// function is idempotent.
func RewriteLinks(text string) string {
	return markdownLinkRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := markdownLinkRe.FindStringSubmatch(match)
		linkText, target := parts[1], parts[2]
		if IsSearchURL(target) {
			return match
		}

		term := SearchTerm(target, linkText)
		return "[Search '" + term + "'](" + JWOrgSearchPrefix + EncodeSearchTerm(term) + ")"
	})
}

// SearchTerm derives the search term for target. When the URL has no usable
// path segment, the cleaned link text is used instead.
func SearchTerm(target, linkText string) string {
	if segment := lastSegment(target); segment != "" {
		if term, ok := cleanTerm(segment); ok && term != "" {
			return term
		}
	}

	if term, ok := cleanTerm(linkText); ok {
		return term
	}
	return titleCase(brackets.Replace(separators.Replace(linkText)))
}

// EncodeSearchTerm encodes term for use as the q parameter. Spaces become '+';
// apostrophes and quotation marks are percent-encoded.
func EncodeSearchTerm(term string) string {
	return url.QueryEscape(term)
}

// ExtractSearchLinks returns the search links in text, in order of appearance.
func ExtractSearchLinks(text string) []model.SearchLink {
	links := []model.SearchLink{}
	for _, m := range searchLinkRe.FindAllStringSubmatch(text, -1) {
		target := m[2]
		if !IsSearchURL(target) {
			continue
		}
		links = append(links, model.SearchLink{
			URL:      target,
			Keyword:  Keyword(target),
			Category: Category(target),
		})
	}
	return links
}

// IsSearchURL reports whether target starts with one of the known search endpoints.
func IsSearchURL(target string) bool {
	return strings.HasPrefix(target, JWOrgSearchPrefix) || strings.HasPrefix(target, WOLSearchPrefix)
}

// Category classifies a search URL by site.
func Category(target string) model.SearchLinkCategory {
	if strings.Contains(target, "wol.jw.org") {
		return model.SearchWOL
	}
	return model.SearchJWOrg
}

// Keyword decodes the q parameter of a search URL. Malformed URLs yield "".
func Keyword(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(u.Query().Get("q"), `"`, "")
}

// lastSegment returns the last non-empty path segment of target, ignoring the
// "en" locale segment. The segment is still percent-encoded.
func lastSegment(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}

	var last string
	for _, part := range strings.Split(u.EscapedPath(), "/") {
		if part == "" || part == "en" {
			continue
		}
		last = part
	}
	return last
}

func cleanTerm(s string) (string, bool) {
	decoded, err := url.PathUnescape(separators.Replace(s))
	if err != nil {
		return "", false
	}
	return titleCase(brackets.Replace(separators.Replace(decoded))), true
}

// titleCase upper-cases the first letter of each whitespace separated word
// and joins the words with single spaces.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
