package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mfenderov/clipmd/internal/auth"
	"github.com/mfenderov/clipmd/internal/config"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"output.dir":                "CLIPMD_OUTPUT_DIR",
		"elasticsearch.addresses":   "CLIPMD_ELASTICSEARCH_ADDRESSES",
		"media.requests_per_second": "CLIPMD_MEDIA_REQUESTS_PER_SECOND",
	}
	for key, want := range tests {
		if got := envName(key); got != want {
			t.Errorf("envName(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "output:\n  format: json\nmedia:\n  max_retries: 7\nstorage:\n  bucket: from-file\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CLIPMD_OUTPUT_DIR", "/tmp/archive")
	t.Setenv("CLIPMD_BROWSER_LOGIN_TIMEOUT", "2m")
	t.Setenv("CLIPMD_ELASTICSEARCH_ADDRESSES", "http://a:9200,http://b:9200")

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })

	initConfig()
	got := GetConfig()

	if got.Output.Dir != "/tmp/archive" {
		t.Errorf("Output.Dir = %q, want env value", got.Output.Dir)
	}
	if got.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json from file", got.Output.Format)
	}
	if got.Media.MaxRetries != 7 {
		t.Errorf("Media.MaxRetries = %d, want 7", got.Media.MaxRetries)
	}
	if got.Storage.Bucket != "from-file" {
		t.Errorf("Storage.Bucket = %q, want from-file", got.Storage.Bucket)
	}
	if got.Browser.LoginTimeout != 2*time.Minute {
		t.Errorf("Browser.LoginTimeout = %v, want 2m", got.Browser.LoginTimeout)
	}
	if len(got.Elasticsearch.Addresses) != 2 || got.Elasticsearch.Addresses[1] != "http://b:9200" {
		t.Errorf("Elasticsearch.Addresses = %v", got.Elasticsearch.Addresses)
	}

	// Untouched sections keep defaults
	if got.Elasticsearch.Index != "clipmd-articles" || got.Media.RequestsPerSecond != 4 {
		t.Errorf("defaults lost: index=%q rps=%v", got.Elasticsearch.Index, got.Media.RequestsPerSecond)
	}
}

func TestFetchRejectsInvalidURL(t *testing.T) {
	err := runFetch(fetchCmd, []string{"https://example.com/not-x"})
	if err == nil {
		t.Fatal("runFetch() should reject non-X URLs")
	}
}

func TestSearchRequiresQueryOrAuthor(t *testing.T) {
	if err := runSearch(searchCmd, nil); err == nil {
		t.Error("runSearch() should fail without a query or --author")
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %q, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %q, want empty", got)
	}
}

func TestSessionCookies_StaticSkipsLogin(t *testing.T) {
	t.Setenv(auth.EnvCookies, "")
	cfg := config.Defaults()
	cfg.Auth.Dir = t.TempDir()

	// No stored session and login not required: no browser is started.
	cookies, err := sessionCookies(t.Context(), cfg, false, false)
	if err != nil {
		t.Fatalf("sessionCookies() error = %v", err)
	}
	if cookies != nil {
		t.Errorf("cookies = %+v, want none", cookies)
	}

	saved := []auth.Cookie{{Name: "auth_token", Value: "abc", Domain: ".x.com", Path: "/"}}
	if err := auth.NewStore(cfg.Auth.Dir).Save(saved); err != nil {
		t.Fatal(err)
	}

	cookies, err = sessionCookies(t.Context(), cfg, false, false)
	if err != nil {
		t.Fatalf("sessionCookies() error = %v", err)
	}
	if len(cookies) != 1 || cookies[0].Value != "abc" {
		t.Errorf("cookies = %+v, want the stored session", cookies)
	}
}
