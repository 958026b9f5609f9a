// Package selector derives XPath locators for a page element.
//
// Three independent strategies are produced for every element so the
// author of a step can pick the one that best survives markup drift:
//
//   - Absolute: purely positional from the document root, never uses
//     attributes. Brittle but always derivable for an attached element.
//   - Short: positional, but anchored on the nearest element (the target
//     included) that carries an id.
//   - Smart: one attribute-qualified segment per ancestor, stopping at
//     the first id.
//
// Generate works on golang.org/x/net/html nodes; FromHTML parses a page
// with goquery and resolves a CSS selector to the element first.
package selector
