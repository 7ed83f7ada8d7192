package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Character budgets for the text handed to the model.
const (
	PageTextLimit   = 10000
	PastedTextLimit = 15000
)

// PageSignals is everything harvested from a fetched page before prompting
// the model. Computed fresh per request and discarded afterwards.
type PageSignals struct {
	HeroImageURL    string
	SiteName        string
	PlainText       string
	StructuredSteps []StructuredStep
	CandidateImages []CandidateImage
}

// StructuredStep is one instruction recovered from JSON-LD recipe markup.
type StructuredStep struct {
	Text     string
	ImageURL string
}

// CandidateImage is an <img> tag that survived denylist filtering, offered to
// the model as a possible step illustration.
type CandidateImage struct {
	Src     string
	Alt     string
	Context string
}

// ParsePageSignals scans raw HTML for every signal the prompt builder needs.
// All matching is best-effort: malformed markup degrades to empty values and
// never fails.
func ParsePageSignals(html, pageURL string) *PageSignals {
	sig := &PageSignals{
		SiteName: hostName(pageURL),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		sig.HeroImageURL = heroImageURL(doc)
		if name := metaSiteName(doc); name != "" {
			sig.SiteName = name
		}
		sig.StructuredSteps = structuredSteps(doc)
	}

	sig.PlainText = truncateRunes(StripHTML(html), PageTextLimit)
	sig.CandidateImages = candidateImages(html, pageURL)
	return sig
}

// heroImageURL prefers og:image over twitter:image. Real-world markup is
// inconsistent about attribute order and about property vs. name, so both
// spellings are checked for each tag.
func heroImageURL(doc *goquery.Document) string {
	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="twitter:image"]`,
	}
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if v := strings.TrimSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}

func metaSiteName(doc *goquery.Document) string {
	for _, sel := range []string{`meta[property="og:site_name"]`, `meta[name="og:site_name"]`} {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if v := strings.TrimSpace(content); v != "" {
				return v
			}
		}
	}
	return ""
}

func hostName(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var (
	reScriptBlock = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyleBlock  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reTag         = regexp.MustCompile(`<[^>]*>`)
	reWhitespace  = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
)

// StripHTML reduces markup to plain text: script/style blocks removed with
// their content, remaining tags dropped, a small fixed entity set decoded,
// whitespace runs collapsed to single spaces.
func StripHTML(html string) string {
	text := reScriptBlock.ReplaceAllString(html, " ")
	text = reStyleBlock.ReplaceAllString(text, " ")
	text = reTag.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
