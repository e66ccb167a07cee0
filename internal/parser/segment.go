package parser

import "strings"

// Extract returns the part of a page that is expected to hold transaction
// lines: the text between the first start anchor and the first end anchor
// for that page index. A missing anchor is not an error; the profile decides
// whether the page then contributes its full text or nothing. When the end
// anchor occurs before the start anchor the segment is empty.
func Extract(pageText string, pageIndex int, p *IssuerProfile) string {
	text := pageText
	if p.collapse() {
		text = collapseSpaces(text)
	}

	anchors := p.anchorsFor(pageIndex)
	start := indexAnchor(text, anchors.Start)
	end := indexAnchor(text, anchors.End)

	if start < 0 || end < 0 {
		if p.OnMissingAnchor == MissingAnchorInclude {
			return text
		}
		return ""
	}
	if end < start {
		return ""
	}
	return text[start:end]
}

// indexAnchor reports -1 for an empty anchor so that an unresolved
// placeholder behaves like an anchor that is not on the page.
func indexAnchor(text, anchor string) int {
	if anchor == "" {
		return -1
	}
	return strings.Index(text, anchor)
}
