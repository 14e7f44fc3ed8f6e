package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML reduces a feed summary to plain text. Feeds embed markup,
// entities and tracking pixels in their description fields; only the visible
// text survives.
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		// Not parseable as HTML; collapse whitespace and keep as-is.
		return collapseWhitespace(s)
	}

	doc.Find("script, style").Remove()
	return collapseWhitespace(doc.Text())
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
