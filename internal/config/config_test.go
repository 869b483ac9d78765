package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	t.Setenv("TABSYNC_TEST_SET", "value")
	if got := getenv("TABSYNC_TEST_SET", "def"); got != "value" {
		t.Errorf("getenv(set) = %q", got)
	}
	if got := getenv("TABSYNC_TEST_UNSET", "def"); got != "def" {
		t.Errorf("getenv(unset) = %q, want default", got)
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"1", false, true},
		{"not-a-bool", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Setenv("TABSYNC_TEST_BOOL", tt.value)
		if got := mustBool("TABSYNC_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("mustBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestMustDuration(t *testing.T) {
	t.Setenv("TABSYNC_TEST_DUR", "90s")
	if got := mustDuration("TABSYNC_TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("mustDuration(valid) = %v", got)
	}
	t.Setenv("TABSYNC_TEST_DUR", "garbage")
	if got := mustDuration("TABSYNC_TEST_DUR", 5*time.Second); got != 5*time.Second {
		t.Errorf("mustDuration(garbage) = %v, want default", got)
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"10.0.0.0/8", []string{"10.0.0.0/8"}},
		{` "10.0.0.0/8" , '192.168.1.5' , `, []string{"10.0.0.0/8", "192.168.1.5"}},
	}
	for _, tt := range tests {
		if got := splitAndTrim(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitAndTrim(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequireEnvPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("requireEnv did not panic on a missing variable")
		}
	}()
	requireEnv("TABSYNC_TEST_DEFINITELY_UNSET")
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `webdav:
  serverUrl: https://dav.example.com
  username: alice
  password: secret
  syncPath: /backups/sync/
autoSync:
  enabled: true
  intervalMinutes: 15
  syncOnStart: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed() = %v", err)
	}
	if seed.WebDAV == nil || seed.WebDAV.ServerURL != "https://dav.example.com" {
		t.Errorf("WebDAV = %+v", seed.WebDAV)
	}
	if seed.WebDAV.SyncPath != "/backups/sync/" {
		t.Errorf("SyncPath = %q", seed.WebDAV.SyncPath)
	}
	if seed.AutoSync == nil || !seed.AutoSync.Enabled || seed.AutoSync.IntervalMinutes != 15 {
		t.Errorf("AutoSync = %+v", seed.AutoSync)
	}
}

func TestLoadSeed_MissingFile(t *testing.T) {
	if _, err := LoadSeed(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadSeed() = nil error for a missing file")
	}
}

func TestLoadSeed_BadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeed(path); err == nil {
		t.Error("LoadSeed() = nil error for invalid yaml")
	}
}
