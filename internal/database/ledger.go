package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/kwarchive/internal/model"
)

// FileName is the ledger file name inside a source output directory.
const FileName = "ledger.db"

// Ledger is the SQLite record of the runs written to one directory.
type Ledger struct {
	db   *sql.DB
	path string
}

// Options configures Ledger behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the options used while crawling.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// ReadOnlyOptions returns the options used to inspect an existing ledger.
func ReadOnlyOptions() Options {
	return Options{}
}

// Open opens or creates the ledger in dir.
func Open(dir string, opts Options) (*Ledger, error) {
	path := filepath.Join(dir, FileName)

	var dsn string
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
		dsn = path + "?mode=rwc"
	} else {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLedgerNotFound, path)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check ledger path: %w", err)
		}
		dsn = path + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{db: db, path: path}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := l.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return l, nil
}

// Path returns the database file path.
func (l *Ledger) Path() string {
	return l.path
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		keyword TEXT NOT NULL,
		state TEXT NOT NULL,
		output_dir TEXT,
		total_found INTEGER DEFAULT 0,
		total_pages INTEGER DEFAULT 0,
		pages_failed INTEGER DEFAULT 0,
		dedup_original INTEGER DEFAULT 0,
		dedup_duplicates INTEGER DEFAULT 0,
		dedup_final INTEGER DEFAULT 0,
		started_at DATETIME,
		elapsed_ms INTEGER DEFAULT 0,
		error TEXT,
		summary_json TEXT
	);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		page_index INTEGER NOT NULL,
		items INTEGER DEFAULT 0,
		attempts INTEGER DEFAULT 0,
		kind TEXT,
		error TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);

	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		success INTEGER NOT NULL,
		kind TEXT,
		error TEXT,
		document_path TEXT,
		document_size INTEGER DEFAULT 0,
		document_digest TEXT,
		assets_attempted INTEGER DEFAULT 0,
		assets_succeeded INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_items_run ON items(run_id);

	CREATE TABLE IF NOT EXISTS assets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		item_url TEXT NOT NULL,
		source_url TEXT NOT NULL,
		ok INTEGER NOT NULL,
		attempts INTEGER DEFAULT 0,
		kind TEXT,
		content_type TEXT,
		size INTEGER DEFAULT 0,
		digest TEXT,
		exif_datetime TEXT,
		exif_make TEXT,
		exif_model TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_assets_run ON assets(run_id);
	`
	_, err := l.db.ExecContext(context.Background(), schema)
	return err
}

// Digest returns the hex SHA3-256 digest of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RunRecord is the row of a run.
type RunRecord struct {
	RunID     string
	Source    string
	Keyword   string
	State     model.SessionState
	OutputDir string
	StartedAt time.Time
}

// StartRun records a run entering Running.
func (l *Ledger) StartRun(ctx context.Context, run RunRecord) error {
	query := `
	INSERT INTO runs (run_id, source, keyword, state, output_dir, started_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		state = excluded.state,
		started_at = excluded.started_at
	`
	_, err := l.db.ExecContext(ctx, query,
		run.RunID,
		run.Source,
		run.Keyword,
		run.State.String(),
		run.OutputDir,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the terminal summary of a run.
func (l *Ledger) FinishRun(ctx context.Context, s *model.CrawlSummary) error {
	summaryJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	UPDATE runs SET
		state = ?,
		total_found = ?,
		total_pages = ?,
		pages_failed = ?,
		dedup_original = ?,
		dedup_duplicates = ?,
		dedup_final = ?,
		elapsed_ms = ?,
		error = ?,
		summary_json = ?
	WHERE run_id = ?
	`
	result, err := l.db.ExecContext(ctx, query,
		s.State.String(),
		s.TotalFound,
		s.TotalPages,
		s.PagesFailed,
		s.Dedup.Original,
		s.Dedup.Duplicates,
		s.Dedup.Final,
		s.Elapsed.Milliseconds(),
		s.Error,
		string(summaryJSON),
		s.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, s.RunID)
	}
	return nil
}

// PageRecord is the row of one listing page.
type PageRecord struct {
	Index    int
	Items    int
	Attempts int
	Kind     model.ErrorKind
	Error    string
}

// RecordPage records the fetch of a listing page.
func (l *Ledger) RecordPage(ctx context.Context, runID string, p PageRecord) error {
	query := `
	INSERT INTO pages (run_id, page_index, items, attempts, kind, error)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query, runID, p.Index, p.Items, p.Attempts, p.Kind.String(), p.Error)
	if err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	return nil
}

// ItemRecord is the row of one processed item.
type ItemRecord struct {
	Seq             int
	URL             string
	Title           string
	Success         bool
	Kind            string
	Error           string
	DocumentPath    string
	DocumentSize    int
	DocumentDigest  string
	AssetsAttempted int
	AssetsSucceeded int
	Elapsed         time.Duration
}

// NewItemRecord builds the row for outcome, the seq-th item of its run.
func NewItemRecord(seq int, o model.ItemOutcome, size int, digest string) ItemRecord {
	rec := ItemRecord{
		Seq:             seq,
		URL:             o.Entry.URL,
		Title:           o.Entry.Title,
		Success:         o.Success,
		Kind:            o.Kind.String(),
		Error:           o.ErrorMessage,
		DocumentPath:    o.DocumentPath,
		DocumentSize:    size,
		DocumentDigest:  digest,
		AssetsAttempted: o.Assets.Attempted,
		AssetsSucceeded: o.Assets.Succeeded,
		Elapsed:         o.Elapsed,
	}
	if rec.Error == "" && o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}

// RecordItem records a processed item. A second record for the same URL
// in the same run replaces the first.
func (l *Ledger) RecordItem(ctx context.Context, runID string, it ItemRecord) error {
	query := `
	INSERT INTO items (run_id, seq, url, title, success, kind, error, document_path,
		document_size, document_digest, assets_attempted, assets_succeeded, elapsed_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		seq = excluded.seq,
		title = excluded.title,
		success = excluded.success,
		kind = excluded.kind,
		error = excluded.error,
		document_path = excluded.document_path,
		document_size = excluded.document_size,
		document_digest = excluded.document_digest,
		assets_attempted = excluded.assets_attempted,
		assets_succeeded = excluded.assets_succeeded,
		elapsed_ms = excluded.elapsed_ms,
		timestamp = CURRENT_TIMESTAMP
	`
	_, err := l.db.ExecContext(ctx, query,
		runID,
		it.Seq,
		it.URL,
		it.Title,
		boolToInt(it.Success),
		it.Kind,
		it.Error,
		it.DocumentPath,
		it.DocumentSize,
		it.DocumentDigest,
		it.AssetsAttempted,
		it.AssetsSucceeded,
		it.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item: %w", err)
	}
	return nil
}

// AssetRecord is the row of one image or attachment fetch.
type AssetRecord struct {
	ItemURL     string
	SourceURL   string
	OK          bool
	Attempts    int
	Kind        string
	ContentType string
	Size        int
	Digest      string
	Meta        model.ImageMeta
}

// NewAssetRecord builds the row for an asset of the item at itemURL.
func NewAssetRecord(itemURL string, o model.AssetFetchOutcome) AssetRecord {
	rec := AssetRecord{
		ItemURL:     itemURL,
		SourceURL:   o.SourceURL,
		OK:          o.OK(),
		Attempts:    o.Attempts,
		Kind:        o.Kind.String(),
		ContentType: o.ContentType,
		Size:        len(o.Bytes),
		Meta:        o.Meta,
	}
	if rec.OK {
		rec.Digest = Digest(o.Bytes)
	}
	return rec
}

// RecordAsset records an asset fetch.
func (l *Ledger) RecordAsset(ctx context.Context, runID string, a AssetRecord) error {
	query := `
	INSERT INTO assets (run_id, item_url, source_url, ok, attempts, kind, content_type,
		size, digest, exif_datetime, exif_make, exif_model)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		runID,
		a.ItemURL,
		a.SourceURL,
		boolToInt(a.OK),
		a.Attempts,
		a.Kind,
		a.ContentType,
		a.Size,
		a.Digest,
		a.Meta.DateTime,
		a.Meta.Make,
		a.Meta.Model,
	)
	if err != nil {
		return fmt.Errorf("failed to insert asset: %w", err)
	}
	return nil
}

// Items returns the items of a run in processing order.
func (l *Ledger) Items(ctx context.Context, runID string) ([]ItemRecord, error) {
	query := `
	SELECT seq, url, title, success, kind, error, document_path, document_size,
		document_digest, assets_attempted, assets_succeeded, elapsed_ms
	FROM items
	WHERE run_id = ?
	ORDER BY seq
	`
	rows, err := l.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		var success int
		var title, kind, errMsg, docPath, digest sql.NullString
		var elapsedMS int64
		if err := rows.Scan(&it.Seq, &it.URL, &title, &success, &kind, &errMsg, &docPath,
			&it.DocumentSize, &digest, &it.AssetsAttempted, &it.AssetsSucceeded, &elapsedMS); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.Title, it.Kind, it.Error = title.String, kind.String, errMsg.String
		it.DocumentPath, it.DocumentDigest = docPath.String, digest.String
		it.Success = success != 0
		it.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		items = append(items, it)
	}
	return items, rows.Err()
}

// Assets returns the asset fetches of a run.
func (l *Ledger) Assets(ctx context.Context, runID string) ([]AssetRecord, error) {
	query := `
	SELECT item_url, source_url, ok, attempts, kind, content_type, size, digest,
		exif_datetime, exif_make, exif_model
	FROM assets
	WHERE run_id = ?
	ORDER BY id
	`
	rows, err := l.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	var assets []AssetRecord
	for rows.Next() {
		var a AssetRecord
		var ok int
		var kind, contentType, digest, dt, mk, md sql.NullString
		if err := rows.Scan(&a.ItemURL, &a.SourceURL, &ok, &a.Attempts, &kind, &contentType,
			&a.Size, &digest, &dt, &mk, &md); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		a.OK = ok != 0
		a.Kind, a.ContentType, a.Digest = kind.String, contentType.String, digest.String
		a.Meta = model.ImageMeta{DateTime: dt.String, Make: mk.String, Model: md.String}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// Pages returns the page rows of a run ordered by page index.
func (l *Ledger) Pages(ctx context.Context, runID string) ([]PageRecord, error) {
	query := `
	SELECT page_index, items, attempts, kind, error
	FROM pages
	WHERE run_id = ?
	ORDER BY page_index, id
	`
	rows, err := l.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var kind, errMsg sql.NullString
		if err := rows.Scan(&p.Index, &p.Items, &p.Attempts, &kind, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		var k model.ErrorKind
		_ = k.UnmarshalText([]byte(kind.String)) //nolint:errcheck // unknown kinds decode as none
		p.Kind, p.Error = k, errMsg.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// Summary returns the stored summary of a run. Runs that never finished
// (the process was killed) are rebuilt from their item rows.
func (l *Ledger) Summary(ctx context.Context, runID string) (*model.CrawlSummary, error) {
	query := `
	SELECT source, keyword, state, output_dir, total_found, total_pages, pages_failed,
		dedup_original, dedup_duplicates, dedup_final, started_at, elapsed_ms, error, summary_json
	FROM runs
	WHERE run_id = ?
	`
	var s model.CrawlSummary
	var state, outputDir, startedAt, errMsg, summaryJSON sql.NullString
	var elapsedMS int64
	err := l.db.QueryRowContext(ctx, query, runID).Scan(
		&s.Source, &s.Keyword, &state, &outputDir, &s.TotalFound, &s.TotalPages, &s.PagesFailed,
		&s.Dedup.Original, &s.Dedup.Duplicates, &s.Dedup.Final, &startedAt, &elapsedMS, &errMsg, &summaryJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if summaryJSON.Valid && summaryJSON.String != "" {
		var stored model.CrawlSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &stored); err == nil {
			return &stored, nil
		}
	}

	s.RunID = runID
	_ = s.State.UnmarshalText([]byte(state.String)) //nolint:errcheck // unknown states decode as idle
	s.OutputDir = outputDir.String
	s.StartedAt = parseTimestamp(startedAt.String)
	s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	s.Error = errMsg.String

	items, err := l.Items(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		s.Outcomes = append(s.Outcomes, it.Outcome())
	}
	return &s, nil
}

// Outcome converts the row back to an ItemOutcome without extraction data.
func (it ItemRecord) Outcome() model.ItemOutcome {
	var kind model.ErrorKind
	_ = kind.UnmarshalText([]byte(it.Kind)) //nolint:errcheck // unknown kinds decode as none
	return model.ItemOutcome{
		Entry:        model.ResultEntry{Title: it.Title, URL: it.URL},
		DocumentPath: it.DocumentPath,
		Assets:       model.AssetStats{Attempted: it.AssetsAttempted, Succeeded: it.AssetsSucceeded},
		Success:      it.Success,
		Kind:         kind,
		ErrorMessage: it.Error,
		Elapsed:      it.Elapsed,
	}
}

// Summaries returns the summaries of every run in the ledger, oldest first.
func (l *Ledger) Summaries(ctx context.Context) ([]*model.CrawlSummary, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]*model.CrawlSummary, 0, len(ids))
	for _, id := range ids {
		s, err := l.Summary(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// FindLedgers returns the directories under root that hold a ledger:
// root itself and its immediate sub-directories, in lexical order.
func FindLedgers(root string) ([]string, error) {
	var dirs []string
	if _, err := os.Stat(filepath.Join(root, FileName)); err == nil {
		dirs = append(dirs, root)
	}
	matches, err := filepath.Glob(filepath.Join(root, "*", FileName))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		dirs = append(dirs, filepath.Dir(m))
	}
	slices.Sort(dirs)
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w under %s", ErrLedgerNotFound, root)
	}
	return dirs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format, or returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
