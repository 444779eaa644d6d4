package model

import (
	"time"
)

// ImageMeta is the subset of embedded image metadata recorded for an asset.
type ImageMeta struct {
	DateTime string `json:"date_time,omitempty"`
	Make     string `json:"make,omitempty"`
	Model    string `json:"model,omitempty"`
}

// IsZero reports whether no metadata was found.
func (m ImageMeta) IsZero() bool {
	return m.DateTime == "" && m.Make == "" && m.Model == ""
}

// AssetFetchOutcome is the result of fetching one image or attachment.
type AssetFetchOutcome struct {
	// SourceURL is the absolute URL that was requested.
	SourceURL string `json:"source_url"`

	// Bytes is the asset body. Nil when the fetch failed.
	Bytes []byte `json:"-"`

	// ContentType is the response media type, if known.
	ContentType string `json:"content_type,omitempty"`

	// Attempts is the number of requests made.
	Attempts int `json:"attempts"`

	// Err is the final failure, nil on success.
	Err error `json:"-"`

	// Kind classifies Err.
	Kind ErrorKind `json:"kind"`

	// Meta is embedded image metadata, when the asset carried any.
	Meta ImageMeta `json:"meta,omitzero"`
}

// OK reports whether the asset was retrieved.
func (o AssetFetchOutcome) OK() bool {
	return o.Err == nil && o.Bytes != nil
}

// AssetStats counts asset fetches for one item.
type AssetStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// ItemOutcome is the record of processing one result entry.
// It is created when the item finishes and never modified afterwards.
type ItemOutcome struct {
	// Entry is the listing entry that was processed.
	Entry ResultEntry `json:"entry"`

	// Extraction is the extracted content. Nil if the item could not be fetched or parsed.
	Extraction *ExtractionResult `json:"extraction,omitempty"`

	// DocumentPath is the path of the written document, empty if none was written.
	DocumentPath string `json:"document_path,omitempty"`

	// AttachmentPaths are the saved attachment files.
	AttachmentPaths []string `json:"attachment_paths,omitempty"`

	// Assets counts image fetches.
	Assets AssetStats `json:"assets"`

	// Success is true when a document was produced.
	Success bool `json:"success"`

	// Kind classifies Err. A successful item may still carry KindExtractionMiss.
	Kind ErrorKind `json:"kind"`

	// Err is the failure, if any.
	Err error `json:"-"`

	// ErrorMessage is Err rendered as text, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// Elapsed is the wall time spent on the item.
	Elapsed time.Duration `json:"elapsed"`
}

// DedupStats reports the global deduplication pass.
type DedupStats struct {
	Original   int `json:"original"`
	Duplicates int `json:"duplicates"`
	Final      int `json:"final"`
}

// SessionState is the lifecycle state of a crawl session.
type SessionState int

const (
	// StateIdle means the session has not been started.
	StateIdle SessionState = iota
	// StateRunning means the session is crawling.
	StateRunning
	// StateCompleted means every item was processed.
	StateCompleted
	// StateStopped means a stop request ended the run early.
	StateStopped
	// StateFailed means an unrecoverable setup error aborted the run.
	StateFailed
)

// String returns the lower-case state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SessionState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = StateIdle
	case "running":
		*s = StateRunning
	case "completed":
		*s = StateCompleted
	case "stopped":
		*s = StateStopped
	case "failed":
		*s = StateFailed
	default:
		*s = StateIdle
	}
	return nil
}

// IsTerminal reports whether the state ends a session.
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

// CrawlSummary aggregates one session. It is owned by the session and
// read-only once the session reaches a terminal state.
type CrawlSummary struct {
	// RunID uniquely identifies the session.
	RunID string `json:"run_id"`

	// Source is the configured source name.
	Source string `json:"source"`

	// Keyword is the search keyword.
	Keyword string `json:"keyword"`

	// State is the terminal session state.
	State SessionState `json:"state"`

	// OutputDir is the directory documents were written to.
	OutputDir string `json:"output_dir"`

	// TotalFound is the hit count declared by the source.
	TotalFound int `json:"total_found"`

	// TotalPages is the number of listing pages planned.
	TotalPages int `json:"total_pages"`

	// PagesFailed counts listing pages that exhausted their retries.
	PagesFailed int `json:"pages_failed"`

	// Dedup reports the global deduplication pass.
	Dedup DedupStats `json:"dedup"`

	// Outcomes are the item results in processing order.
	Outcomes []ItemOutcome `json:"outcomes"`

	// StartedAt is when the session entered Running.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the wall time of the session.
	Elapsed time.Duration `json:"elapsed"`

	// Error is set when the session failed.
	Error string `json:"error,omitempty"`
}

// Succeeded returns the number of items that produced a document.
func (s *CrawlSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of items that did not produce a document.
func (s *CrawlSummary) Failed() int {
	return len(s.Outcomes) - s.Succeeded()
}

// Documents returns the paths of all written documents in order.
func (s *CrawlSummary) Documents() []string {
	paths := make([]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		if o.DocumentPath != "" {
			paths = append(paths, o.DocumentPath)
		}
	}
	return paths
}
