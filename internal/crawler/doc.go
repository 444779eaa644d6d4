// Package crawler runs keyword crawls against configured sources.
//
// # Architecture
//
// A Session crawls one source for one keyword:
//
//	discover total (page 1) -> pages 2..N -> per-page dedupe -> global dedupe
//	-> for each entry: fetch -> extract -> images -> document -> attachments
//
// Pages and items are processed sequentially with a random pacing pause
// between them. A Runner runs one Session per source concurrently; sessions
// never share dedup state, output directories or pacing.
//
// # Lifecycle
//
// Sessions move Idle -> Running -> Completed | Stopped | Failed. Stop is
// cooperative: it wakes pacing and retry sleeps and prevents the next page
// or item from starting, while the item in progress is written to the end.
//
// # Usage
//
//	src, err := crawler.NewSource(sourceConfig, fetcher)
//	s := crawler.NewSession(src, crawler.WithOutputDir(dir), crawler.WithSink(sink))
//	summary, err := s.Start(ctx, "keyword")
package crawler
