// Package extract turns an article page into a model.ExtractionResult.
//
// The content region is the first node matched by the configured selectors,
// falling back to <body> and then to the whole document. The region is
// walked in document order:
//
//   - every non-blank text node becomes a Text unit (whitespace collapsed)
//   - every <br>, and the start and end of every block element
//     (p, div, li, h1-h6, tr, ...), becomes a Break
//   - every <img> with a resolvable src (or data-src) becomes an Image
//   - script, style, noscript and template subtrees are skipped
//
// Consecutive breaks are left in place; the document assembler collapses them.
package extract
