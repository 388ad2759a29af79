package searchlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwgpt/jwgpt/internal/model"
)

func TestRewriteLinks(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "last path segment becomes term",
			in:   "[Read more](https://example.org/en/articles/gods-love)",
			want: "[Search 'Gods Love'](https://www.jw.org/en/search/?q=Gods+Love)",
		},
		{
			name: "underscores and trailing slash",
			in:   "See [this](https://example.org/library/family_worship/)",
			want: "See [Search 'Family Worship'](https://www.jw.org/en/search/?q=Family+Worship)",
		},
		{
			name: "percent encoded segment",
			in:   "[x](https://example.org/topics/peace%20of%20mind)",
			want: "[Search 'Peace Of Mind'](https://www.jw.org/en/search/?q=Peace+Of+Mind)",
		},
		{
			name: "query string is ignored",
			in:   "[x](http://example.org/bible/psalm-23?lang=en)",
			want: "[Search 'Psalm 23'](https://www.jw.org/en/search/?q=Psalm+23)",
		},
		{
			name: "no path falls back to link text",
			in:   "[prayer tips](https://example.org/)",
			want: "[Search 'Prayer Tips'](https://www.jw.org/en/search/?q=Prayer+Tips)",
		},
		{
			name: "only locale segment falls back to link text",
			in:   "[hope](https://example.org/en/)",
			want: "[Search 'Hope'](https://www.jw.org/en/search/?q=Hope)",
		},
		{
			name: "undecodable segment falls back to link text",
			in:   "[kingdom](https://example.org/topics/bad%zz)",
			want: "[Search 'Kingdom'](https://www.jw.org/en/search/?q=Kingdom)",
		},
		{
			name: "apostrophe is encoded",
			in:   "[x](https://example.org/topics/god's-name)",
			want: "[Search 'God's Name'](https://www.jw.org/en/search/?q=God%27s+Name)",
		},
		{
			name: "brackets in segment are dropped from the term",
			in:   "[Read](https://example.org/en/articles/faith%5D-works)",
			want: "[Search 'Faith Works'](https://www.jw.org/en/search/?q=Faith+Works)",
		},
		{
			name: "brackets in fallback link text are dropped",
			in:   "[hope [x](https://example.org/en/)",
			want: "[Search 'Hope X'](https://www.jw.org/en/search/?q=Hope+X)",
		},
		{
			name: "balanced parentheses stay in the url",
			in:   "See [Love](https://en.wikipedia.org/wiki/Love_(disambiguation)).",
			want: "See [Search 'Love (disambiguation)'](https://www.jw.org/en/search/?q=Love+%28disambiguation%29).",
		},
		{
			name: "non link text untouched",
			in:   "Read Psalm 23 [not a link] (https://example.org/a)",
			want: "Read Psalm 23 [not a link] (https://example.org/a)",
		},
		{
			name: "relative links untouched",
			in:   "[x](/en/articles/love)",
			want: "[x](/en/articles/love)",
		},
		{
			name: "canonical links untouched",
			in:   "[Search 'Prayer'](https://wol.jw.org/en/wol/s/r1/lp-e?q=prayer)",
			want: "[Search 'Prayer'](https://wol.jw.org/en/wol/s/r1/lp-e?q=prayer)",
		},
		{
			name: "multiple links",
			in:   "[a](https://x.org/faith) and [b](https://y.org/en/hope-for-the-future)",
			want: "[Search 'Faith'](https://www.jw.org/en/search/?q=Faith) and " +
				"[Search 'Hope For The Future'](https://www.jw.org/en/search/?q=Hope+For+The+Future)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RewriteLinks(tc.in))
		})
	}
}

func TestRewriteLinks_Idempotent(t *testing.T) {
	inputs := []string{
		"[Read more](https://example.org/en/articles/gods-love)",
		"Intro\n\n- [a](https://x.org/faith)\n- [b](https://x.org/en/)\n- [Search 'X'](https://www.jw.org/en/search/?q=X)",
		"[x](https://example.org/topics/god's-name)",
		"no links at all",
	}

	for _, in := range inputs {
		once := RewriteLinks(in)
		assert.Equal(t, once, RewriteLinks(once), "input %q", in)
	}
}

func TestExtractSearchLinks(t *testing.T) {
	links := ExtractSearchLinks("Try [Search 'Gods Love'](https://www.jw.org/en/search/?q=Gods+Love) today.")
	require.Len(t, links, 1)
	assert.Equal(t, model.SearchLink{
		URL:      "https://www.jw.org/en/search/?q=Gods+Love",
		Keyword:  "Gods Love",
		Category: model.SearchJWOrg,
	}, links[0])
}

func TestExtractSearchLinks_OrderAndCategories(t *testing.T) {
	text := `[Search "prayer"](https://wol.jw.org/en/wol/s/r1/lp-e?q=%22prayer%22)
[Other](https://example.org/x)
[Search 'Hope'](https://example.org/search/?q=Hope)
[Search 'Family Worship'](https://www.jw.org/en/search/?q=Family+Worship)`

	links := ExtractSearchLinks(text)
	require.Len(t, links, 2)

	assert.Equal(t, "prayer", links[0].Keyword)
	assert.Equal(t, model.SearchWOL, links[0].Category)

	assert.Equal(t, "Family Worship", links[1].Keyword)
	assert.Equal(t, model.SearchJWOrg, links[1].Category)
}

func TestExtractSearchLinks_RewriteRoundTrip(t *testing.T) {
	out := RewriteLinks("[Read more](https://example.org/en/articles/gods-love)")

	links := ExtractSearchLinks(out)
	require.Len(t, links, 1)
	assert.Equal(t, "Gods Love", links[0].Keyword)
}

func TestExtractSearchLinks_NoRewrittenLinkIsLost(t *testing.T) {
	inputs := []string{
		"[Read](https://example.org/en/articles/faith%5D-works)",
		"[Read](https://example.org/en/articles/%5Bhope%5B)",
		"[Love](https://en.wikipedia.org/wiki/Love_(disambiguation))",
		"[a](https://x.org/faith) then [b](https://y.org/a%5D%5Bb)",
	}

	for _, in := range inputs {
		out := RewriteLinks(in)
		want := len(markdownLinkRe.FindAllString(in, -1))
		assert.Len(t, ExtractSearchLinks(out), want, "rewritten %q", out)
	}
}

func TestExtractSearchLinks_Empty(t *testing.T) {
	links := ExtractSearchLinks("plain text")
	assert.NotNil(t, links)
	assert.Empty(t, links)
}

func TestKeyword_Malformed(t *testing.T) {
	assert.Equal(t, "", Keyword("https://www.jw.org/en/search/?q=%zz\x7f"))
	assert.Equal(t, "", Keyword("://bad"))
}

func TestEncodeSearchTerm(t *testing.T) {
	assert.Equal(t, "Gods+Love", EncodeSearchTerm("Gods Love"))
	assert.Equal(t, "God%27s+%22Name%22", EncodeSearchTerm(`God's "Name"`))
}
