package extract

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled expressions for HTML stripping.
var (
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockClose    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	blockOpen     = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractHTML strips markup and returns readable text. Script, style, and head
// content is removed entirely; block elements become line breaks so paragraph
// structure survives for the chunker.
func extractHTML(content []byte) (string, error) {
	text := string(content)

	text = scriptTag.ReplaceAllString(text, "")
	text = styleTag.ReplaceAllString(text, "")
	text = noscriptTag.ReplaceAllString(text, "")
	text = headTag.ReplaceAllString(text, "")
	text = htmlComments.ReplaceAllString(text, "")

	text = blockOpen.ReplaceAllString(text, "\n")
	text = blockClose.ReplaceAllString(text, "\n")
	text = brTags.ReplaceAllString(text, "\n")
	text = allTags.ReplaceAllString(text, "")

	text = html.UnescapeString(text)
	text = multiSpaces.ReplaceAllString(text, " ")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return "", &ExtractionError{Format: "html", Reason: "document contains no text"}
	}
	return strings.Join(out, "\n"), nil
}
