// Package tor routes crawl traffic through a Tor SOCKS5 proxy.
//
// Proxy wraps an existing SOCKS5 endpoint (for example a local Tor daemon on
// 127.0.0.1:9050) and hands out an http.RoundTripper for package fetch.
// EmbeddedTor launches a private Tor daemon through tornago for users
// without a running Tor installation.
package tor
