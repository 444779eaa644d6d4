package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/kwarchive/internal/config"
)

// TestNewCrawlCmd tests the crawl command creation.
func TestNewCrawlCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCrawlCmd()

	t.Run("requires a keyword", func(t *testing.T) {
		t.Parallel()
		if err := cmd.Args(cmd, nil); err == nil {
			t.Error("expected error without keyword")
		}
		if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
			t.Error("expected error with two keywords")
		}
	})

	flags := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{name: "source", shorthand: "s", defValue: "[]"},
		{name: "config", shorthand: "c", defValue: ""},
		{name: "output", shorthand: "o", defValue: config.DefaultOutputDir},
		{name: "format", shorthand: "f", defValue: config.DefaultFormat},
		{name: "summary", defValue: config.DefaultSummaryFormat},
		{name: "max-pages", shorthand: "p", defValue: strconv.Itoa(config.DefaultMaxPages)},
		{name: "min-delay", defValue: config.DefaultMinDelay.String()},
		{name: "max-delay", defValue: config.DefaultMaxDelay.String()},
		{name: "retries", shorthand: "r", defValue: strconv.Itoa(config.DefaultRetries)},
		{name: "timeout", shorthand: "t", defValue: config.DefaultTimeout.String()},
		{name: "parallel", defValue: "1"},
		{name: "max-rps", defValue: "0"},
		{name: "tor", defValue: "false"},
		{name: "tor-proxy", defValue: ""},
		{name: "tor-timeout", defValue: config.DefaultTorStartupTimeout.String()},
		{name: "no-ledger", defValue: "false"},
		{name: "probe-exif", defValue: "false"},
	}
	for _, tt := range flags {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

// searchSite serves a JSON search API and article pages.
func searchSite(t *testing.T, total int) *httptest.Server {
	t.Helper()

	const pageSize = 2
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		type item struct {
			Title string `json:"title"`
			URL   string `json:"url"`
		}
		var items []item
		for i := (page-1)*pageSize + 1; i <= min(page*pageSize, total); i++ {
			items = append(items, item{
				Title: fmt.Sprintf("Report %d", i),
				URL:   fmt.Sprintf("http://%s/article/%d", r.Host, i),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"total": total, "items": items})
	})
	mux.HandleFunc("/article/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><head><title>Report %[1]s</title></head><body>
<h1>Report %[1]s</h1><div id="content"><p>Body of report %[1]s.</p></div></body></html>`, r.PathValue("id"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeSourcesFile(t *testing.T, srvURL string) string {
	t.Helper()

	content := fmt.Sprintf(`sources:
  - name: test
    search:
      kind: json
      url: %s/search
      pageSize: 2
      query:
        page: "{page}"
        kw: "{keyword}"
      itemsPath: items
      totalPath: total
    extract:
      contentSelectors: ["#content"]
  - name: disabled
    enabled: false
    search:
      kind: json
      url: %s/search
      itemsPath: items
`, srvURL, srvURL)
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	sources := writeSourcesFile(t, "http://127.0.0.1:1")
	cmd := NewCrawlCmd()
	if err := cmd.ParseFlags([]string{
		"-c", sources,
		"-s", "test",
		"-o", "/tmp/out",
		"--format", "html",
		"--max-pages", "7",
		"--min-delay", "0s",
		"--max-delay", "10ms",
		"--retries", "1",
		"--parallel", "2",
		"--max-rps", "2.5",
		"--tor-proxy", "127.0.0.1:9150",
	}); err != nil {
		t.Fatal(err)
	}

	cfg, err := buildConfig(cmd, []string{"利率"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Keyword != "利率" || cfg.OutputDir != "/tmp/out" || cfg.Format != "html" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MaxPages != 7 || cfg.Retries != 1 || cfg.Parallel != 2 || cfg.MaxRPS != 2.5 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MinDelay != 0 || cfg.MaxDelay != 10*time.Millisecond {
		t.Errorf("delays = %v-%v", cfg.MinDelay, cfg.MaxDelay)
	}
	if cfg.TorProxyAddress != "127.0.0.1:9150" {
		t.Errorf("TorProxyAddress = %q", cfg.TorProxyAddress)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0] != "test" {
		t.Errorf("Sources = %v", cfg.Sources)
	}
	if cfg.SourcesFile == nil || len(cfg.SourcesFile.Sources) != 2 {
		t.Error("expected sources file to be loaded")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestRunCrawlCmdErrors(t *testing.T) {
	t.Parallel()

	sources := writeSourcesFile(t, "http://127.0.0.1:1")

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "conflicting tor options",
			args: []string{"crawl", "-c", sources, "--tor", "--tor-proxy", "127.0.0.1:9050", "kw"},
			want: config.ErrConflictingTor,
		},
		{
			name: "invalid format",
			args: []string{"crawl", "-c", sources, "--format", "pdf", "kw"},
			want: config.ErrInvalidFormat,
		},
		{
			name: "unknown source",
			args: []string{"crawl", "-c", sources, "-s", "nope", "kw"},
			want: config.ErrUnknownSource,
		},
		{
			name: "missing sources file",
			args: []string{"crawl", "-c", filepath.Join(t.TempDir(), "none.yaml"), "kw"},
			want: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := executeRoot(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// TestCrawlAndSummary runs a crawl against a local site and reads the
// ledger back with the summary command.
func TestCrawlAndSummary(t *testing.T) {
	srv := searchSite(t, 3)
	sources := writeSourcesFile(t, srv.URL)
	outDir := t.TempDir()

	stdout, stderr, err := executeRoot(t,
		"crawl",
		"-c", sources,
		"-o", outDir,
		"--min-delay", "0s",
		"--max-delay", "0s",
		"--summary", "json",
		"央行",
	)
	if err != nil {
		t.Fatalf("crawl failed: %v\nstderr:\n%s", err, stderr)
	}

	var got struct {
		Totals struct {
			Succeeded int `json:"succeeded"`
			Failed    int `json:"failed"`
		} `json:"totals"`
		Runs []struct {
			Source    string `json:"source"`
			State     string `json:"state"`
			OutputDir string `json:"output_dir"`
		} `json:"runs"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, stdout)
	}
	if len(got.Runs) != 1 || got.Runs[0].Source != "test" || got.Runs[0].State != "completed" {
		t.Fatalf("runs = %+v", got.Runs)
	}
	if got.Totals.Succeeded != 3 || got.Totals.Failed != 0 {
		t.Errorf("totals = %+v", got.Totals)
	}

	runDirs, err := filepath.Glob(filepath.Join(outDir, "Result_*"))
	if err != nil || len(runDirs) != 1 {
		t.Fatalf("run dirs = %v (%v)", runDirs, err)
	}
	runDir := runDirs[0]
	if !strings.HasPrefix(filepath.Base(runDir), "Result_央行_") {
		t.Errorf("run dir = %s", runDir)
	}

	docs, _ := filepath.Glob(filepath.Join(runDir, "test", "*.md"))
	if len(docs) != 3 {
		t.Errorf("documents = %v", docs)
	}
	if _, err := os.Stat(filepath.Join(runDir, summaryFileName)); err != nil {
		t.Errorf("expected run summary file: %v", err)
	}
	if !strings.Contains(stderr, "starting crawl") {
		t.Errorf("expected progress logs on stderr, got:\n%s", stderr)
	}

	t.Run("summary reads the ledger back", func(t *testing.T) {
		out, _, err := executeRoot(t, "summary", runDir)
		if err != nil {
			t.Fatalf("summary failed: %v", err)
		}
		if !strings.Contains(out, "SOURCE TEST") || !strings.Contains(out, "3 succeeded, 0 failed") {
			t.Errorf("unexpected summary:\n%s", out)
		}
	})

	t.Run("summary of a directory without ledger fails", func(t *testing.T) {
		if _, _, err := executeRoot(t, "summary", t.TempDir()); err == nil {
			t.Error("expected error")
		}
	})
}

func TestSourcesCmd(t *testing.T) {
	t.Parallel()

	sources := writeSourcesFile(t, "http://127.0.0.1:1")
	out, _, err := executeRoot(t, "sources", "-c", sources)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Sources file: " + sources, "test", "disabled", "/search"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}
