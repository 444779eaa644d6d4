// Package model defines the core data structures shared by the crawl pipeline.
//
// This package contains the following main types:
//   - ResultEntry and SearchPage: listing data returned by a search source
//   - ContentUnit: the ordered text/break/image sequence of an article
//   - ExtractionResult: the structured content of one fetched item
//   - AssetFetchOutcome, ItemOutcome: per-asset and per-item results
//   - CrawlSummary: the aggregate of one keyword run against one source
//
// Models live in their own package because search, extract, document and
// crawler all exchange them.
package model
