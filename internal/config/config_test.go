package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newStore(t *testing.T) Store {
	t.Helper()
	return Store{Root: filepath.Join(t.TempDir(), "cbzmaker")}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "threads: 3\nseries: berserk\nretry_unit: 250ms\nallow_ext: [webp]\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads != 3 || cfg.Series != "berserk" || cfg.RetryUnit != "250ms" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if len(cfg.AllowExt) != 1 || cfg.AllowExt[0] != "webp" {
		t.Errorf("unexpected allow_ext %v", cfg.AllowExt)
	}
	// Unset keys keep their defaults.
	if cfg.Retries != 5 || cfg.BatchSize != 10 || !cfg.Progress {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.toml")
	writeFile(t, path, "threads = 2\nchapter_regex = '\\d+'\nreverse = true\nbatch_size = 4\n")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Threads != 2 || cfg.ChapterRegex != `\d+` || !cfg.Reverse || cfg.BatchSize != 4 {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "c.json")
	writeFile(t, bad, "{}")
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected error for unsupported extension")
	}

	broken := filepath.Join(dir, "c.toml")
	writeFile(t, broken, "threads = [")
	if _, err := LoadFile(broken); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadMergedOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	writeFile(t, path, "output: from-file\nseries: file-series\nthreads: 0\n")

	cfg, used, err := LoadMerged(Options{File: path, Series: "flag-series", Debug: true})
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if used != path {
		t.Errorf("used %q, want %q", used, path)
	}
	if cfg.Output != "from-file" {
		t.Errorf("expected file output, got %q", cfg.Output)
	}
	if cfg.Series != "flag-series" || !cfg.Debug {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Threads != 8 {
		t.Errorf("expected normalized threads, got %d", cfg.Threads)
	}
}

func TestLoadMergedWithoutProfile(t *testing.T) {
	cfg, used, err := LoadMerged(Options{Store: newStore(t)})
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if !strings.Contains(used, "default config") {
		t.Errorf("unexpected source %q", used)
	}
	if cfg.Threads != 8 || cfg.Output != "." {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadMergedActiveProfile(t *testing.T) {
	store := newStore(t)

	cfg := DefaultConfig()
	cfg.Series = "vagabond"
	cfg.BatchSize = 5
	path, err := store.Create("manga", cfg)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Switch("manga"); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	got, used, err := LoadMerged(Options{Store: store, Output: "out"})
	if err != nil {
		t.Fatalf("LoadMerged: %v", err)
	}
	if used != path {
		t.Errorf("used %q, want %q", used, path)
	}
	if got.Series != "vagabond" || got.BatchSize != 5 || got.Output != "out" {
		t.Errorf("unexpected config %+v", got)
	}
}

func TestStoreProfiles(t *testing.T) {
	store := newStore(t)

	if _, _, err := store.Active(); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
	list, err := store.List()
	if err != nil || len(list) != 0 {
		t.Fatalf("List on a fresh store = %v, %v", list, err)
	}

	def, created, err := store.Init()
	if err != nil || !created {
		t.Fatalf("Init = %t, %v", created, err)
	}
	if def != filepath.Join(store.Root, "configs", "Default.yaml") {
		t.Errorf("unexpected default path %s", def)
	}
	if _, created, err := store.Init(); err != nil || created {
		t.Errorf("second Init = %t, %v; want existing profile kept", created, err)
	}

	fast := DefaultConfig()
	fast.Threads = 16
	path, err := store.Create("fast", fast)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create("fast", fast); err == nil {
		t.Error("expected duplicate label to fail")
	}
	if err := store.Switch("fast"); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	label, active, err := store.Active()
	if err != nil || label != "fast" || active != path {
		t.Errorf("Active = %q, %q, %v; want fast, %q", label, active, err, path)
	}
	if loaded, err := store.Load("fast"); err != nil || loaded.Threads != 16 {
		t.Errorf("Load = %+v, %v", loaded, err)
	}
	if _, err := store.Path("nope"); err == nil {
		t.Error("expected error for unknown label")
	}
	if err := store.Switch("nope"); err == nil {
		t.Error("expected switch to an unknown label to fail")
	}

	if err := store.Rename("fast", "quick"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if label, _ := store.ActiveLabel(); label != "quick" {
		t.Errorf("active label not renamed: %q", label)
	}
	if err := store.Rename("quick", "Default"); err == nil {
		t.Error("expected rename onto an existing label to fail")
	}

	list, err = store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var labels []string
	for _, p := range list {
		l := p.Label
		if p.Active {
			l += "*"
		}
		labels = append(labels, l)
	}
	if strings.Join(labels, ",") != "Default,quick*" {
		t.Errorf("unexpected list %v", labels)
	}

	switched, err := store.Remove("quick")
	if err != nil || !switched {
		t.Fatalf("Remove = %t, %v", switched, err)
	}
	if label, _ := store.ActiveLabel(); label != DefaultLabel {
		t.Errorf("expected fallback to Default, got %q", label)
	}
	if _, err := store.Remove(DefaultLabel); err == nil {
		t.Error("expected Default to be protected")
	}
}

func TestStoreRejectsBadLabels(t *testing.T) {
	store := newStore(t)

	for _, label := range []string{"", "  ", "../escape", `a\b`, ".."} {
		if _, err := store.Create(label, DefaultConfig()); err == nil {
			t.Errorf("Create(%q) succeeded", label)
		}
	}
}

func TestStoreImportTOML(t *testing.T) {
	store := newStore(t)

	src := filepath.Join(t.TempDir(), "site.toml")
	writeFile(t, src, "selector = 'div.reader img'\nattr = 'data-src'\n")

	path, err := store.Import("site", src)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if filepath.Ext(path) != ".yaml" {
		t.Errorf("imported profile stored as %s", path)
	}

	cfg, err := store.Load("site")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Selector != "div.reader img" || cfg.Attr != "data-src" {
		t.Errorf("unexpected imported config %+v", cfg)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	unit, timeout, err := cfg.Durations()
	if err != nil {
		t.Fatalf("Durations: %v", err)
	}
	if unit != time.Second || timeout != 30*time.Second {
		t.Errorf("got %s, %s", unit, timeout)
	}

	cfg.RetryUnit = "soon"
	if _, _, err := cfg.Durations(); err == nil {
		t.Error("expected parse error")
	}

	cfg.RetryUnit = "0s"
	if _, _, err := cfg.Durations(); err == nil {
		t.Error("expected error for zero unit")
	}
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	DefaultConfig().Print(&buf)

	out := buf.String()
	for _, want := range []string{"-threads: 8", "-series: unnamed-series", "-batch_size: 10"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
