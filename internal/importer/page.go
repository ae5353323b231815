// file: internal/importer/page.go
// version: 1.0.0
// guid: 223ba7a8-2139-4430-acdb-13f69d33eff4

// Package importer turns bookseller product pages and CSV exports into
// books, classifying free-text category labels on the way in.
package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/jdfalk/libshelf/internal/classifier"
	"github.com/jdfalk/libshelf/internal/models"
)

// ErrImportFailed means nothing usable could be extracted.
var ErrImportFailed = errors.New("import failed")

// FailureHint is shown to users when a page import fails.
const FailureHint = "The page could not be read. Copy the title, author and publisher from the product page and add the book manually."

var (
	titleSuffix   = regexp.MustCompile(`\s*-\s*알라딘.*$`)
	authorMarkers = regexp.MustCompile(`\(저\)|\(글\)|\(지은이\)`)
)

var (
	ogTitle       = cascadia.MustCompile(`meta[property="og:title"]`)
	ogImage       = cascadia.MustCompile(`meta[property="og:image"]`)
	ogDescription = cascadia.MustCompile(`meta[property="og:description"]`)

	titleSelectors     = compileAll("#Ere_prod_title", ".Ere_bo_title", "h1.bo_title")
	imageSelectors     = compileAll("#CoverMainImage", "#cover img", ".cover_box img", `img[src*="cover"]`)
	authorSelectors    = compileAll(`.Ere_sub2_title a[href*="author"]`, ".Ere_sub2_title a:first-child", `a.np_af[href*="author"]`, ".bo_author a")
	publisherSelectors = compileAll(`a.Ere_sub2_title[href*="PublisherSearch"]`, `a[href*="PublisherSearch"]`, `.Ere_sub2_title a[href*="publisher"]`)
	categorySelectors  = compileAll(".Ere_prod_side_list li a", `a[href*="CID="]`, ".path a:nth-child(2)")
)

func compileAll(sels ...string) []cascadia.Selector {
	out := make([]cascadia.Selector, len(sels))
	for i, s := range sels {
		out[i] = cascadia.MustCompile(s)
	}
	return out
}

// Page holds what was found on a product page.
type Page struct {
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	Image         string `json:"image,omitempty"`
	CategoryLabel string `json:"category_label,omitempty"`
	Category      int    `json:"category"`
}

// Fields names the fields that were extracted.
func (p *Page) Fields() []string {
	var found []string
	if p.Title != "" {
		found = append(found, "title")
	}
	if p.Author != "" {
		found = append(found, "author")
	}
	if p.Publisher != "" {
		found = append(found, "publisher")
	}
	if p.Image != "" {
		found = append(found, "image")
	}
	if p.Category != models.Unclassified {
		found = append(found, "category")
	}
	return found
}

// NewBook converts the page into an addable book. Title and author may
// still be empty and are checked by the caller's validation.
func (p *Page) NewBook() models.NewBook {
	return models.NewBook{
		Title:     p.Title,
		Author:    p.Author,
		Publisher: p.Publisher,
		Image:     p.Image,
		Category:  p.Category,
	}
}

// ExtractPage parses a product page. It returns ErrImportFailed when no
// field could be extracted.
func ExtractPage(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: parse page: %v", ErrImportFailed, err)
	}

	p := &Page{Category: models.Unclassified}

	if n := ogTitle.MatchFirst(doc); n != nil {
		p.Title = strings.TrimSpace(titleSuffix.ReplaceAllString(attr(n, "content"), ""))
	}
	if p.Title == "" {
		if n := first(doc, titleSelectors...); n != nil {
			p.Title = textContent(n)
		}
	}

	if n := ogImage.MatchFirst(doc); n != nil {
		p.Image = strings.TrimSpace(attr(n, "content"))
	}
	if p.Image == "" {
		if n := first(doc, imageSelectors...); n != nil {
			p.Image = strings.TrimSpace(attr(n, "src"))
		}
	}

	if n := first(doc, authorSelectors...); n != nil {
		p.Author = strings.TrimSpace(authorMarkers.ReplaceAllString(textContent(n), ""))
	}
	if n := first(doc, publisherSelectors...); n != nil {
		p.Publisher = textContent(n)
	}

	if n := first(doc, categorySelectors...); n != nil {
		p.CategoryLabel = textContent(n)
	} else if n := ogDescription.MatchFirst(doc); n != nil {
		p.CategoryLabel = strings.TrimSpace(attr(n, "content"))
	}
	p.Category = classifier.ClassifyAll(p.CategoryLabel)

	if len(p.Fields()) == 0 {
		return nil, fmt.Errorf("%w: no book details found on page", ErrImportFailed)
	}
	return p, nil
}

// first tries sels in order and returns the first node matched by the
// earliest selector that matches anything.
func first(doc *html.Node, sels ...cascadia.Selector) *html.Node {
	for _, sel := range sels {
		if n := sel.MatchFirst(doc); n != nil {
			return n
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}
