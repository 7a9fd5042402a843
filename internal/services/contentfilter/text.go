package contentfilter

import (
	"net/url"
	"regexp"
	"strings"
)

// bracketReplacer strips bracket characters from titles, keeping the inner
// content.
var bracketReplacer = strings.NewReplacer(
	"【", "", "】", "",
	"[", "", "]", "",
	"（", "", "）", "",
	"(", "", ")", "",
	"《", "", "》", "",
)

var (
	newlineEdges  = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	horizontalRun = regexp.MustCompile(`[ \t]+`)
	blankLineRun  = regexp.MustCompile(`\n{3,}`)
	anyWhitespace = regexp.MustCompile(`\s+`)
)

// normalizeWhitespace collapses runs of spaces and tabs, limits consecutive
// blank lines to one, and trims. Line structure is preserved for
// descriptions; titles use collapseWhitespace instead.
func normalizeWhitespace(text string) string {
	text = newlineEdges.ReplaceAllString(text, "\n")
	text = horizontalRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// collapseWhitespace flattens all whitespace runs to single spaces.
func collapseWhitespace(text string) string {
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(text, " "))
}

// imageDomainBlocklist lists platform page domains whose image URLs are
// dropped. CDN hosts (e.g. alicdn.com) stay allowed: that is where the
// actual product images live.
var imageDomainBlocklist = []string{
	"taobao.com",
	"tmall.com",
	"1688.com",
	"pinduoduo.com",
	"yangkeduo.com",
	"jd.com",
}

// disallowedImageDomain returns the blocked domain contained in the URL
// host, or an empty string when the URL is acceptable.
func disallowedImageDomain(rawURL string) string {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	host = strings.ToLower(host)

	for _, domain := range imageDomainBlocklist {
		if strings.Contains(host, domain) {
			return domain
		}
	}
	return ""
}
