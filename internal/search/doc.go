// Package search discovers and pages through keyword search results.
//
// A Backend turns (keyword, page) into a model.SearchPage. Two backends
// cover the sources kwarchive knows about, both driven entirely by
// configuration:
//
//   - JSONBackend queries a JSON or JSONP API and picks the total and the
//     items out with gjson paths.
//   - HTMLBackend requests a rendered result listing and picks links out with
//     CSS selectors through goquery.
//
// Paginator wraps a Backend with a retry policy, learns the total from page 1
// and yields pages 2..N lazily. It never sleeps between pages; pacing belongs
// to the crawl session.
package search
