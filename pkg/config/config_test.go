package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.ConnectTimeout != 3*time.Second {
		t.Errorf("ConnectTimeout = %v, want 3s", cfg.Feed.ConnectTimeout)
	}
	if cfg.Feed.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.Feed.PollInterval)
	}
	if cfg.Feed.BackoffBase != time.Second || cfg.Feed.BackoffMax != 30*time.Second || cfg.Feed.BackoffRetries != 10 {
		t.Errorf("backoff = %v/%v/%d, want 1s/30s/10", cfg.Feed.BackoffBase, cfg.Feed.BackoffMax, cfg.Feed.BackoffRetries)
	}
	if cfg.Feed.DeploymentsCap != 10 || cfg.Feed.AlertsCap != 10 || cfg.Feed.HistoryCap != 50 {
		t.Errorf("caps = %d/%d/%d, want 10/10/50", cfg.Feed.DeploymentsCap, cfg.Feed.AlertsCap, cfg.Feed.HistoryCap)
	}
	if cfg.Feed.CompletedBuildTTL != 30*time.Second {
		t.Errorf("CompletedBuildTTL = %v, want 30s", cfg.Feed.CompletedBuildTTL)
	}
	if cfg.Feed.Strategy != "fallback" {
		t.Errorf("Strategy = %q, want fallback", cfg.Feed.Strategy)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad timeout", "FEED_CONNECT_TIMEOUT", "soon"},
		{"bad strategy", "FEED_STRATEGY", "retry-forever"},
		{"bad source", "FEED_SOURCE", "ftp"},
		{"bad retries", "FEED_BACKOFF_RETRIES", "ten"},
		{"negative history", "FEED_HISTORY_CAP", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() with %s=%s error = nil, want error", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_AuthRequiresToken(t *testing.T) {
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_BEARER_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() error = nil, want missing token error")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" http://a:1, ,http://b:2 ,")
	if len(got) != 2 || got[0] != "http://a:1" || got[1] != "http://b:2" {
		t.Errorf("splitCSV() = %v", got)
	}
}
