package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stlalpha/tagrelay/internal/broker"
	"github.com/stlalpha/tagrelay/internal/config"
)

type recordingRelay struct {
	mu      sync.Mutex
	limits  []broker.Limits
	renames []string
}

func (r *recordingRelay) ApplyLimits(l broker.Limits) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limits = append(r.limits, l)
}

func (r *recordingRelay) RenameLocalUser(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renames = append(r.renames, name)
}

func (r *recordingRelay) snapshot() ([]broker.Limits, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broker.Limits(nil), r.limits...), append([]string(nil), r.renames...)
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestReloadAppliesLimitsAndName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"serverName": "Host", "idleTimeoutSeconds": 30, "floodRate": 4, "floodBurst": 2}`)

	relay := &recordingRelay{}
	cw := &ConfigWatcher{configDir: dir, relay: relay, current: config.DefaultServerConfig()}
	cw.reloadServerConfig()

	limits, renames := relay.snapshot()
	if len(limits) != 1 {
		t.Fatalf("expected 1 ApplyLimits call, got %d", len(limits))
	}
	want := broker.Limits{WriteTimeout: 5 * time.Second, IdleTimeout: 30 * time.Second, FloodRate: 4, FloodBurst: 2}
	if limits[0] != want {
		t.Errorf("limits = %+v, want %+v", limits[0], want)
	}
	if len(renames) != 1 || renames[0] != "Host" {
		t.Errorf("renames = %v", renames)
	}
	if cw.current.ServerName != "Host" {
		t.Errorf("current not updated: %+v", cw.current)
	}

	// Unchanged name: limits reapplied, no rename.
	cw.reloadServerConfig()
	if _, renames := relay.snapshot(); len(renames) != 1 {
		t.Errorf("rename repeated: %v", renames)
	}
}

func TestReloadKeepsSettingsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not json`)

	relay := &recordingRelay{}
	current := config.DefaultServerConfig()
	current.ServerName = "Keep"
	cw := &ConfigWatcher{configDir: dir, relay: relay, current: current}
	cw.reloadServerConfig()

	if limits, renames := relay.snapshot(); len(limits) != 0 || len(renames) != 0 {
		t.Errorf("bad file applied: limits=%v renames=%v", limits, renames)
	}
	if cw.current.ServerName != "Keep" {
		t.Error("current settings replaced by a bad file")
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	relay := &recordingRelay{}

	cw, err := NewConfigWatcher(dir, relay, config.DefaultServerConfig())
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}
	defer cw.Stop()
	cw.mu.Lock()
	cw.debounce = 20 * time.Millisecond
	cw.mu.Unlock()

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, `{"floodRate": 9}`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if limits, _ := relay.snapshot(); len(limits) > 0 {
			if limits[len(limits)-1].FloodRate != 9 {
				t.Errorf("unexpected limits %+v", limits)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("config change was not applied")
}

func TestWatcherStopIdempotent(t *testing.T) {
	cw, err := NewConfigWatcher(t.TempDir(), &recordingRelay{}, config.DefaultServerConfig())
	if err != nil {
		t.Fatalf("NewConfigWatcher: %v", err)
	}
	cw.Stop()
	cw.Stop()
}

func TestNewConfigWatcherMissingDir(t *testing.T) {
	if _, err := NewConfigWatcher(filepath.Join(t.TempDir(), "missing"), &recordingRelay{}, config.DefaultServerConfig()); err == nil {
		t.Error("expected error for missing directory")
	}
}
