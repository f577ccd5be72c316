// Package snippet inspects the HTML snippet a checkout order carries for
// embedding the checkout frame into a merchant page.
package snippet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxSnippetBytes = 1 << 20 // 1 MiB

var (
	// ErrEmpty is returned for a blank snippet.
	ErrEmpty = errors.New("snippet is empty")
	// ErrTooLarge is returned for snippets over 1 MiB.
	ErrTooLarge = errors.New("snippet is too large")
)

// Snippet summarises an embed snippet.
type Snippet struct {
	ContainerID   string
	ScriptSources []string
	InlineScripts int
	NoScriptText  string
}

// HasScript reports whether the snippet loads or contains any script.
func (s Snippet) HasScript() bool {
	return len(s.ScriptSources) > 0 || s.InlineScripts > 0
}

// Parse extracts the container and script details from html.
func Parse(html string) (Snippet, error) {
	if strings.TrimSpace(html) == "" {
		return Snippet{}, ErrEmpty
	}
	if len(html) > maxSnippetBytes {
		return Snippet{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(html))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Snippet{}, fmt.Errorf("parse html: %w", err)
	}

	var s Snippet
	if node := doc.Find("div[id]").First(); node.Length() > 0 {
		s.ContainerID, _ = node.Attr("id")
		s.ContainerID = strings.TrimSpace(s.ContainerID)
	}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok && strings.TrimSpace(src) != "" {
			s.ScriptSources = append(s.ScriptSources, strings.TrimSpace(src))
			return
		}
		if strings.TrimSpace(sel.Text()) != "" {
			s.InlineScripts++
		}
	})

	s.NoScriptText = strings.Join(strings.Fields(doc.Find("noscript").First().Text()), " ")
	return s, nil
}
