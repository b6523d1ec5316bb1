package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/instflow/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{Redis: config.RedisConfig{Enabled: false}}

	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on disabled client = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	if err := cache.Set(ctx, "key", map[string]int{"a": 1}, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var result map[string]int
	found, err := cache.Get(ctx, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"ReportKey", ReportKey("tse"), "flow:report:TSE"},
		{"HistoryKey", HistoryKey("otc", "0056"), "flow:history:OTC:0056"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %s, want %s", tt.got, tt.expected)
			}
		})
	}

	c := NewCache(Disabled(), "instflow")
	if got := c.fullKey(ReportKey("TSE")); got != "instflow:cache:flow:report:TSE" {
		t.Errorf("fullKey = %s", got)
	}
}
