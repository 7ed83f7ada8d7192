package extract

import (
	"net/url"
	"regexp"
	"strings"
)

const (
	maxCandidateImages  = 30
	imageContextWindow  = 200
	contextSnippetLimit = 150
)

// Chrome imagery that is never a recipe photo.
var imageSrcDenylist = []string{"logo", "icon", "avatar", "badge", "emoji", "button", "arrow"}

var (
	reImgTag  = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	reImgAttr = regexp.MustCompile(`(?i)([a-zA-Z][a-zA-Z0-9_:-]*)\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
)

// candidateImages scans every <img> tag in the raw markup. The tag's source
// is taken with lazy-loading attributes first, resolved against the page URL,
// filtered through the denylist, and paired with the alt text plus a plain
// text snippet of the surrounding markup. Duplicates by resolved source keep
// their first occurrence.
func candidateImages(html, pageURL string) []CandidateImage {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool)
	var out []CandidateImage

	for _, loc := range reImgTag.FindAllStringIndex(html, -1) {
		if len(out) >= maxCandidateImages {
			break
		}
		tag := html[loc[0]:loc[1]]
		attrs := parseTagAttrs(tag)

		src := resolveImageSrc(attrs, base)
		if src == "" || deniedImageSrc(src) || seen[src] {
			continue
		}
		seen[src] = true

		out = append(out, CandidateImage{
			Src:     src,
			Alt:     attrs["alt"],
			Context: contextSnippet(html, loc[0], loc[1]),
		})
	}
	return out
}

func parseTagAttrs(tag string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range reImgAttr.FindAllStringSubmatch(tag, -1) {
		name := strings.ToLower(m[1])
		value := m[2]
		if value == "" {
			value = m[3]
		}
		if value == "" {
			value = m[4]
		}
		if _, exists := attrs[name]; !exists {
			attrs[name] = value
		}
	}
	return attrs
}

// resolveImageSrc picks the source with priority data-src/data-lazy-src >
// src > first srcset entry, and resolves relative paths against the page URL.
func resolveImageSrc(attrs map[string]string, base *url.URL) string {
	raw := attrs["data-src"]
	if raw == "" {
		raw = attrs["data-lazy-src"]
	}
	if raw == "" {
		raw = attrs["src"]
	}
	if raw == "" {
		if srcset := attrs["srcset"]; srcset != "" {
			first := strings.Split(srcset, ",")[0]
			if fields := strings.Fields(first); len(fields) > 0 {
				raw = fields[0]
			}
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if !ref.IsAbs() {
		return ""
	}
	return ref.String()
}

func deniedImageSrc(src string) bool {
	lower := strings.ToLower(src)
	for _, word := range imageSrcDenylist {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}

// contextSnippet strips the markup out of a fixed raw-character window on
// each side of the tag and joins the two halves.
func contextSnippet(html string, start, end int) string {
	before := start - imageContextWindow
	if before < 0 {
		before = 0
	}
	after := end + imageContextWindow
	if after > len(html) {
		after = len(html)
	}

	left := StripHTML(strings.ToValidUTF8(html[before:start], ""))
	right := StripHTML(strings.ToValidUTF8(html[end:after], ""))
	snippet := strings.TrimSpace(left + " " + right)
	return truncateRunes(snippet, contextSnippetLimit)
}
