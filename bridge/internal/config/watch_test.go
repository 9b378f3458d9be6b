package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, yaml string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatch_ReportsDivergedSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "bridge:\n  endpoint: http://one.local/ingest\n")

	running, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	type change struct {
		next    *Config
		changed []string
	}
	got := make(chan change, 4)
	go Watch(ctx, path, running, func(next *Config, changed []string) {
		got <- change{next, changed}
	})

	// Let the watcher register before the write lands.
	time.Sleep(50 * time.Millisecond)
	writeConfig(t, path, "bridge:\n  endpoint: http://two.local/ingest\n")

	select {
	case c := <-got:
		if len(c.changed) != 1 || c.changed[0] != "endpoint" {
			t.Errorf("changed settings: got %v, want [endpoint]", c.changed)
		}
		if c.next.Bridge.Endpoint != "http://two.local/ingest" {
			t.Errorf("reloaded endpoint: got %q", c.next.Bridge.Endpoint)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("change was never reported")
	}
}

func TestWatch_IgnoresEquivalentRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "bridge:\n  endpoint: http://one.local/ingest\n"
	writeConfig(t, path, body)

	running, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan []string, 4)
	go Watch(ctx, path, running, func(_ *Config, changed []string) {
		got <- changed
	})

	time.Sleep(50 * time.Millisecond)
	writeConfig(t, path, body) // byte-identical rewrite

	select {
	case changed := <-got:
		t.Errorf("equivalent rewrite reported as change: %v", changed)
	case <-time.After(2 * debounceWindow):
	}
}

func TestDiffSettings(t *testing.T) {
	base := func() *Config {
		return &Config{Bridge: BridgeConfig{
			Device:         "auto",
			BaudRate:       9600,
			Endpoint:       "http://localhost:8080/api/v1/ingest",
			Delimiter:      "\n",
			ReconnectDelay: 5 * time.Second,
			PostTimeout:    5 * time.Second,
			MaxPostRetries: 3,
		}}
	}

	if changed := diffSettings(base(), base()); len(changed) != 0 {
		t.Errorf("identical configs diverge: %v", changed)
	}

	next := base()
	next.Bridge.BaudRate = 115200
	next.Bridge.MaxPostRetries = 5
	changed := diffSettings(base(), next)
	want := []string{"baud_rate", "max_post_retries"}
	if len(changed) != len(want) {
		t.Fatalf("changed: got %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Errorf("changed[%d]: got %q, want %q", i, changed[i], want[i])
		}
	}
}
