package tor

import "errors"

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrProxyUnavailable is returned when the proxy cannot be reached.
	ErrProxyUnavailable = errors.New("tor proxy unavailable")

	// ErrNotSOCKS5 is returned when the endpoint does not speak SOCKS5 without authentication.
	ErrNotSOCKS5 = errors.New("proxy is not a SOCKS5 proxy")

	// ErrNotRunning is returned when the embedded daemon has not been started.
	ErrNotRunning = errors.New("embedded tor daemon is not running")
)
