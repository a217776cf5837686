package airbnb

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"

	"airbnb-survey/models"
)

// Locator finds candidate string values for a field in a document, in
// document order.
type Locator interface {
	Find(doc *Document) []string
	String() string
}

// XPath selects nodes by XPath. Attribute selections yield the attribute
// value; element and text selections yield their text content.
type XPath string

func (x XPath) Find(doc *Document) []string {
	nodes, err := htmlquery.QueryAll(doc.root, string(x))
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, strings.TrimSpace(htmlquery.InnerText(n)))
	}
	return out
}

func (x XPath) String() string { return "xpath:" + string(x) }

// CSS selects elements by CSS selector, yielding Attr when set and the
// element text otherwise.
type CSS struct {
	Selector string
	Attr     string
}

func (c CSS) Find(doc *Document) []string {
	var out []string
	doc.query.Find(c.Selector).Each(func(_ int, s *goquery.Selection) {
		if c.Attr == "" {
			out = append(out, strings.TrimSpace(s.Text()))
			return
		}
		if v, ok := s.Attr(c.Attr); ok {
			out = append(out, strings.TrimSpace(v))
		}
	})
	return out
}

func (c CSS) String() string {
	if c.Attr == "" {
		return "css:" + c.Selector
	}
	return "css:" + c.Selector + "@" + c.Attr
}

// Rule is one locator with an optional cleaner applied to each candidate.
// A cleaner returning "" rejects the candidate.
type Rule struct {
	Locator Locator
	Clean   func(string) string
}

// Importance decides the log level used when a field is absent.
type Importance int

const (
	Optional Importance = iota
	Expected
)

// FieldSpec is the ordered rule list for one listing attribute. Rules are
// tried in order; the first non-empty candidate that Assign accepts wins.
type FieldSpec struct {
	Name       string
	Importance Importance
	Rules      []Rule
	Assign     func(l *models.Listing, value string) error
}

// lookup offers each non-empty cleaned candidate to accept, in rule order,
// and returns the first one accepted with the rule that produced it.
func (f FieldSpec) lookup(doc *Document, accept func(string) error) (string, Locator, bool) {
	for _, r := range f.Rules {
		for _, v := range r.Locator.Find(doc) {
			if r.Clean != nil {
				v = r.Clean(v)
			}
			if v == "" {
				continue
			}
			if accept(v) == nil {
				return v, r.Locator, true
			}
		}
	}
	return "", nil, false
}
