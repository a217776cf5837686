package airbnb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var errEmptyDocument = errors.New("empty document")

// Document is a parsed page that both XPath and CSS locators can query.
type Document struct {
	root  *html.Node
	query *goquery.Document
}

// ParseDocument parses markup once for every locator kind.
func ParseDocument(markup []byte) (*Document, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return nil, &ParseStructureError{Err: errEmptyDocument}
	}
	root, err := htmlquery.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, &ParseStructureError{Err: fmt.Errorf("parse html: %w", err)}
	}
	return &Document{root: root, query: goquery.NewDocumentFromNode(root)}, nil
}
