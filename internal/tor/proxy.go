package tor

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkTimeout bounds the SOCKS5 handshake in Check.
const checkTimeout = 3 * time.Second

const (
	socks5Version  = 0x05
	socks5AuthNone = 0x00
)

// Proxy is a SOCKS5 endpoint that HTTP traffic can be routed through.
type Proxy struct {
	address string
	dialer  proxy.Dialer
}

// NewProxy validates address and builds a SOCKS5 dialer for it.
// It does not contact the proxy; call Check for that.
func NewProxy(address string) (*Proxy, error) {
	if !isValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}
	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("create SOCKS5 dialer: %w", err)
	}
	return &Proxy{address: address, dialer: dialer}, nil
}

// Address returns the proxy host:port.
func (p *Proxy) Address() string {
	return p.address
}

// Transport returns a RoundTripper dialing every connection through the proxy.
func (p *Proxy) Transport() *http.Transport {
	return &http.Transport{
		DialContext:         p.dialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
	}
}

func (p *Proxy) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := p.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := p.dialer.Dial(network, addr)
		ch <- result{conn, err}
	}()
	select {
	case r := <-ch:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Check performs a SOCKS5 greeting offering no authentication and verifies
// the proxy accepts it.
func (p *Proxy) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.address)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(checkTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return fmt.Errorf("%w: %w", ErrProxyUnavailable, err)
	}

	reply := make([]byte, 2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSOCKS5, err)
	}
	if reply[0] != socks5Version || reply[1] != socks5AuthNone {
		return fmt.Errorf("%w: reply %#x %#x", ErrNotSOCKS5, reply[0], reply[1])
	}
	return nil
}

func isValidAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
