// Package database provides the SQLite run ledger of kwarchive.
//
// A Ledger lives next to the documents of one source (ledger.db) and records:
//   - the run itself: keyword, state, totals, dedup statistics and summary
//   - every listing page with its attempt count and failure
//   - every item with its outcome, document path, size and SHA3-256 digest
//   - every image and attachment fetch, including EXIF capture data
//
// The summary command rebuilds CrawlSummary values from these files, so a
// run can be inspected after the process exited.
//
// SQLite (via modernc.org/sqlite) keeps the ledger a single CGO-free file
// inside the output directory.
package database
