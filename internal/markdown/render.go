package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
)

const (
	imageWrapper = `<div class="my-2"></div>`
	imageClass   = "rounded-md object-contain"
	linkClass    = "text-blue-600 hover:underline"
	defaultAlt   = "Product image"
)

var renderer = goldmark.New()

// Render converts a bot reply to HTML. Raw HTML in the reply is not passed through.
// Images are wrapped and sized for the chat bubble, links get the widget link style.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(FixMarkdown(text)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(&buf)
	if err != nil {
		return "", fmt.Errorf("parse rendered html: %w", err)
	}

	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if alt, _ := sel.Attr("alt"); strings.TrimSpace(alt) == "" {
			sel.SetAttr("alt", defaultAlt)
		}
		sel.SetAttr("width", "200")
		sel.SetAttr("height", "200")
		sel.SetAttr("class", imageClass)
		sel.WrapHtml(imageWrapper)
	})

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		if href, _ := sel.Attr("href"); strings.TrimSpace(href) == "" {
			sel.SetAttr("href", "#")
		}
		sel.SetAttr("class", linkClass)
	})

	html, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("serialize html: %w", err)
	}
	return strings.TrimSpace(html), nil
}
