package story

import (
	"fmt"
	stdhtml "html"
	"strings"

	"golang.org/x/net/html"
)

// Embed directive: a line of the form
//
//	::embed https://example.com/status/123
//
// is expanded into the placeholder markup the loader's DOM contract
// expects: a container carrying the permalink, exactly one inner
// placeholder element, and a manual-trigger control.
const embedDirective = "::embed "

// ExpandEmbedDirectives rewrites embed directive lines into placeholder
// HTML. seq numbers nodes document-wide so IDs stay unique across
// chapters.
func ExpandEmbedDirectives(md string, seq *int) string {
	lines := strings.Split(md, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, embedDirective) {
			continue
		}
		permalink := strings.TrimSpace(strings.TrimPrefix(trimmed, embedDirective))
		if permalink == "" {
			continue
		}
		*seq++
		lines[i] = placeholderHTML(fmt.Sprintf("embed-%d", *seq), permalink)
	}
	return strings.Join(lines, "\n")
}

// placeholderHTML builds the container markup for one embed.
func placeholderHTML(nodeID, permalink string) string {
	esc := stdhtml.EscapeString(permalink)
	return fmt.Sprintf(`<figure class="story-embed-container" id="%s" data-permalink="%s">
<div class="embed-placeholder"><span class="embed-placeholder-overlay">Loading post…</span>
<button type="button" class="embed-load-now" data-node="%s">Load post</button></div>
<noscript><a href="%s" rel="noopener noreferrer">%s</a></noscript>
</figure>`, nodeID, esc, nodeID, esc, esc)
}

// Placeholder is one embed container found in rendered chapter HTML.
type Placeholder struct {
	NodeID    string
	Permalink string
	// HasInner records whether the container held exactly one inner
	// placeholder element; malformed containers are left to the loader
	// to log and skip.
	HasInner bool
}

// ScanPlaceholders parses rendered HTML and collects every element
// carrying a data-permalink attribute. The permalink format is not
// validated here.
func ScanPlaceholders(rendered string) []Placeholder {
	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return nil
	}

	var out []Placeholder
	var crawl func(*html.Node)
	crawl = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if permalink, ok := attr(n, "data-permalink"); ok {
				out = append(out, Placeholder{
					NodeID:    attrOr(n, "id", ""),
					Permalink: permalink,
					HasInner:  countPlaceholderChildren(n) == 1,
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			crawl(c)
		}
	}
	crawl(doc)
	return out
}

// countPlaceholderChildren counts direct children with the
// embed-placeholder class.
func countPlaceholderChildren(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if class, ok := attr(c, "class"); ok && hasClass(class, "embed-placeholder") {
			count++
		}
	}
	return count
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrOr(n *html.Node, key, fallback string) string {
	if v, ok := attr(n, key); ok {
		return v
	}
	return fallback
}

func hasClass(classAttr, class string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == class {
			return true
		}
	}
	return false
}
