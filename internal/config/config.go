package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "kwarchive"

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = 30 * time.Second

	// DefaultOutputDir is where Result_<keyword>_<unix> run directories are created.
	DefaultOutputDir = "."

	// DefaultFormat is the document format.
	DefaultFormat = "markdown"

	// DefaultSummaryFormat is the format of the summary printed after a run.
	DefaultSummaryFormat = "text"

	// DefaultMaxPages caps the listing pages walked per source.
	DefaultMaxPages = 1000

	// DefaultMinDelay and DefaultMaxDelay bound the random pause between
	// pages and between items.
	DefaultMinDelay = 1 * time.Second
	DefaultMaxDelay = 4 * time.Second

	// DefaultImageMinDelay and DefaultImageMaxDelay bound the pause before
	// each image download.
	DefaultImageMinDelay = 500 * time.Millisecond
	DefaultImageMaxDelay = 1500 * time.Millisecond

	// DefaultRetries is the number of retries for search pages and items.
	DefaultRetries = 3

	// DefaultRetryMinDelay and DefaultRetryMaxDelay bound the backoff of
	// page and item retries.
	DefaultRetryMinDelay = 2 * time.Second
	DefaultRetryMaxDelay = 5 * time.Second

	// DefaultAssetRetries is the number of retries for images and attachments.
	DefaultAssetRetries = 2

	// DefaultAssetDelay is the fixed backoff between asset retries.
	DefaultAssetDelay = 1 * time.Second

	// DefaultParallel is the number of sources crawled at once.
	DefaultParallel = 1

	// DefaultMaxBodySize caps a response body at 50 MiB.
	DefaultMaxBodySize int64 = 50 << 20

	// DefaultTorProxyAddress is the usual SOCKS port of a local Tor daemon.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds the options of one kwarchive run.
// It is populated from CLI flags and passed down explicitly; there is no
// global configuration state.
type Config struct {
	// Keyword is the search keyword.
	Keyword string

	// Sources names the sources to crawl. Empty means every enabled source.
	Sources []string

	// OutputDir is the root under which the run directory is created.
	OutputDir string

	// Format is the document format, "markdown" or "html".
	Format string

	// SummaryFormat is "text", "markdown" or "json".
	SummaryFormat string

	// MaxPages caps the listing pages per source. Zero means DefaultMaxPages.
	MaxPages int

	// MinDelay and MaxDelay bound the pacing pause between pages and items.
	MinDelay time.Duration
	MaxDelay time.Duration

	// ImageMinDelay and ImageMaxDelay bound the pause before each image download.
	ImageMinDelay time.Duration
	ImageMaxDelay time.Duration

	// Retries is the retry count for pages and items.
	Retries int

	// RetryMinDelay and RetryMaxDelay bound the retry backoff.
	RetryMinDelay time.Duration
	RetryMaxDelay time.Duration

	// AssetRetries is the retry count for images and attachments.
	AssetRetries int

	// AssetDelay is the backoff between asset retries.
	AssetDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Parallel is the number of sources crawled concurrently.
	Parallel int

	// MaxRPS is a global request-per-second ceiling. Zero disables it.
	MaxRPS float64

	// MaxBodySize caps response bodies.
	MaxBodySize int64

	// UserAgent overrides the default browser User-Agent when set.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON lines.
	JSONLog bool

	// Tor starts an embedded Tor daemon and routes all traffic through it.
	Tor bool

	// TorProxyAddress routes traffic through an existing SOCKS5 proxy.
	TorProxyAddress string

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// ProbeImageMeta records EXIF capture time and camera of JPEG images in the ledger.
	ProbeImageMeta bool

	// NoLedger disables the SQLite run ledger.
	NoLedger bool

	// ConfigFilePath is an explicit sources file. Empty means FindConfigFile.
	ConfigFilePath string

	// SourcesFile holds the loaded source definitions.
	SourcesFile *File
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:         DefaultOutputDir,
		Format:            DefaultFormat,
		SummaryFormat:     DefaultSummaryFormat,
		MaxPages:          DefaultMaxPages,
		MinDelay:          DefaultMinDelay,
		MaxDelay:          DefaultMaxDelay,
		ImageMinDelay:     DefaultImageMinDelay,
		ImageMaxDelay:     DefaultImageMaxDelay,
		Retries:           DefaultRetries,
		RetryMinDelay:     DefaultRetryMinDelay,
		RetryMaxDelay:     DefaultRetryMaxDelay,
		AssetRetries:      DefaultAssetRetries,
		AssetDelay:        DefaultAssetDelay,
		Timeout:           DefaultTimeout,
		Parallel:          DefaultParallel,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGConfigDir returns the kwarchive config directory (~/.config/kwarchive on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGDataDir returns the kwarchive data directory (~/.local/share/kwarchive on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Validate checks the run options and returns the first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Keyword) == "" {
		return ErrEmptyKeyword
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Parallel <= 0 {
		return ErrInvalidParallel
	}
	if c.MinDelay < 0 || c.MaxDelay < 0 || c.MinDelay > c.MaxDelay {
		return ErrInvalidDelay
	}
	if c.ImageMinDelay < 0 || c.ImageMaxDelay < 0 || c.ImageMinDelay > c.ImageMaxDelay {
		return ErrInvalidDelay
	}
	if c.RetryMinDelay < 0 || c.RetryMaxDelay < 0 || c.RetryMinDelay > c.RetryMaxDelay || c.AssetDelay < 0 {
		return ErrInvalidDelay
	}
	if c.Retries < 0 || c.AssetRetries < 0 {
		return ErrInvalidRetries
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxRPS < 0 {
		return ErrInvalidRate
	}
	switch strings.ToLower(c.Format) {
	case "markdown", "md", "html":
	default:
		return ErrInvalidFormat
	}
	switch strings.ToLower(c.SummaryFormat) {
	case "text", "markdown", "json":
	default:
		return ErrInvalidSummaryFormat
	}
	if c.Tor && c.TorProxyAddress != "" {
		return ErrConflictingTor
	}
	return nil
}
