package selector

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// FromHTML parses an HTML page and returns the locators of the first
// element matching css.
func FromHTML(r io.Reader, css string) (Locators, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Locators{}, fmt.Errorf("parsing html: %w", err)
	}
	return FromDocument(doc, css)
}

// FromDocument returns the locators of the first element in doc matching css.
func FromDocument(doc *goquery.Document, css string) (Locators, error) {
	sel, err := cascadia.Compile(css)
	if err != nil {
		return Locators{}, fmt.Errorf("%w: %s: %v", ErrInvalidCSS, css, err)
	}

	match := doc.FindMatcher(sel).First()
	if match.Length() == 0 {
		return Locators{}, fmt.Errorf("%w: %s", ErrNoMatch, css)
	}
	return Generate(match.Get(0)), nil
}
