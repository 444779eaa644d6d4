// Package asset downloads the images and attachments referenced by an article.
//
// A failed download never fails the item: Fetch always returns an outcome,
// and a failed outcome carries model.KindAsset so the document can show a
// placeholder instead.
package asset

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/kwarchive/internal/extract"
	"github.com/nao1215/kwarchive/internal/fetch"
	"github.com/nao1215/kwarchive/internal/model"
	"github.com/nao1215/kwarchive/internal/retry"
)

const (
	// DefaultTimeout bounds one asset request.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxSize caps one asset at 20 MiB.
	DefaultMaxSize = 20 << 20
)

var (
	// ErrTooLarge is returned for assets above the size cap.
	ErrTooLarge = errors.New("asset too large")

	// ErrUnresolvable is returned when an asset URL cannot be made absolute.
	ErrUnresolvable = errors.New("asset url cannot be resolved")

	// ErrBadDataURI is returned for malformed data: URIs.
	ErrBadDataURI = errors.New("malformed data uri")
)

// DefaultPolicy retries an asset twice with a one second pause.
func DefaultPolicy() retry.Policy {
	return retry.Policy{MaxRetries: 2, MinDelay: time.Second, MaxDelay: time.Second}
}

// Resolver fetches assets through a Fetcher.
type Resolver struct {
	// Fetcher performs the requests.
	Fetcher fetch.Fetcher

	// Policy retries failed requests.
	Policy retry.Policy

	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration

	// Origin is used for root-relative asset URLs, as in the extractor.
	Origin string

	// MaxSize caps the asset size. Zero means DefaultMaxSize.
	MaxSize int

	// ProbeMetadata enables the EXIF probe of JPEG and TIFF images.
	ProbeMetadata bool
}

// Observed returns a copy of r whose retries report to o.
func (r *Resolver) Observed(o retry.Observer) *Resolver {
	c := *r
	c.Policy = r.Policy.WithObserver(o)
	return &c
}

// Fetch downloads assetURL, resolving it against pageURL when relative.
// The page URL is sent as Referer.
func (r *Resolver) Fetch(ctx context.Context, assetURL, pageURL string) model.AssetFetchOutcome {
	abs := extract.Resolve(assetURL, pageURL, r.Origin)
	out := model.AssetFetchOutcome{SourceURL: abs}
	if abs == "" {
		out.SourceURL = assetURL
		return failed(out, ErrUnresolvable)
	}

	if strings.HasPrefix(abs, "data:") {
		data, contentType, err := decodeDataURI(abs)
		if err != nil {
			return failed(out, err)
		}
		out.Bytes, out.ContentType = data, contentType
		return r.probe(out)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxSize := r.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	var headers map[string]string
	if pageURL != "" {
		headers = map[string]string{"Referer": pageURL}
	}

	resp, attempts, err := retry.Execute(ctx, r.Policy, func(ctx context.Context) (*fetch.Response, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := r.Fetcher.Get(ctx, abs, headers)
		if err != nil {
			return nil, err
		}
		if len(resp.Body) > maxSize {
			return nil, retry.Permanent(fmt.Errorf("%w: %d bytes", ErrTooLarge, len(resp.Body)))
		}
		return resp, nil
	})
	out.Attempts = attempts
	if err != nil {
		return failed(out, err)
	}

	out.Bytes = resp.Body
	if out.Bytes == nil {
		out.Bytes = []byte{}
	}
	out.ContentType = resp.ContentType()
	return r.probe(out)
}

func (r *Resolver) probe(out model.AssetFetchOutcome) model.AssetFetchOutcome {
	if r.ProbeMetadata && isExifCarrier(out.ContentType, out.Bytes) {
		out.Meta = ProbeImageMeta(out.Bytes)
	}
	return out
}

func failed(out model.AssetFetchOutcome, err error) model.AssetFetchOutcome {
	out.Bytes = nil
	out.Err = fmt.Errorf("%w: %s: %w", model.ErrAsset, out.SourceURL, err)
	out.Kind = model.KindAsset
	if errors.Is(err, retry.ErrCancelled) {
		out.Kind = model.KindCancelled
	}
	return out
}

// decodeDataURI decodes "data:[<mediatype>][;base64],<data>".
func decodeDataURI(uri string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", ErrBadDataURI
	}
	mediaType := "text/plain"
	isBase64 := false
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0 && part != "":
			mediaType = part
		case part == "base64":
			isBase64 = true
		}
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrBadDataURI, err)
		}
		return data, mediaType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadDataURI, err)
	}
	return []byte(text), mediaType, nil
}
