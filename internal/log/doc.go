// Package log provides logging for kwarchive, built on log/slog.
//
// It offers two things:
//   - SecureHandler, an slog.Handler wrapper that masks credentials
//     (cookies, authorization headers, tokens) before they reach any output.
//     Source configurations carry opaque credentials, so every logger the
//     CLI builds is wrapped with it.
//   - Sink, the progress interface the crawl engine reports through.
//     The engine never writes to a console directly; it calls
//     Sink.Report(message, level) with one of INFO, WARNING, ERROR, SUCCESS.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	sink := log.NewSlogSink(logger)
//	sink.Report("page fetched", log.LevelInfo, "page", 2, "items", 10)
package log
