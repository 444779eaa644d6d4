// Package fetch performs the HTTP requests of a crawl.
//
// Client implements Fetcher on top of net/http. Each source gets its own
// Client carrying that source's opaque credentials (a raw cookie string and
// extra headers) injected by a RoundTripper, so every request, redirects
// included, carries them. A Client can share a rate.Limiter with other
// clients to enforce a global request ceiling, and can be routed through a
// SOCKS5 proxy by passing a transport from package tor.
//
// Non-2xx responses are returned as *StatusError, which matches
// model.ErrTransport under errors.Is and is therefore retryable.
package fetch
