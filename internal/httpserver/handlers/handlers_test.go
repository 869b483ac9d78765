package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/store/memory"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// schedulerStore keeps the auto-sync config in memory for tests.
type schedulerStore struct {
	mu  sync.Mutex
	cfg scheduler.Config
}

func (s *schedulerStore) AutoSyncConfig(ctx context.Context) (scheduler.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg, nil
}

func (s *schedulerStore) SaveAutoSyncConfig(ctx context.Context, cfg scheduler.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func testDeps(t *testing.T) (deps.Deps, *memory.Store) {
	t.Helper()
	log := logger.New("error", false)
	store := memory.NewStore()
	manager := syncer.New(store, nil, log)
	autoSync := scheduler.New(manager, &schedulerStore{}, log)

	return deps.Deps{
		Logger:    log,
		StartTime: time.Now(),
		TimeNow:   time.Now,
		Manager:   manager,
		AutoSync:  autoSync,
		Store:     store,
	}, store
}

func TestSyncNow_NotConfigured(t *testing.T) {
	d, _ := testDeps(t)

	w := httptest.NewRecorder()
	SyncNow(d)(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without a configured endpoint", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not configured") {
		t.Errorf("body = %q, want a not-configured message", w.Body.String())
	}
}

func TestPutWebDAVConfig(t *testing.T) {
	d, store := testDeps(t)

	body := `{"serverUrl":"https://dav.example.com","username":"alice","password":"secret"}`
	w := httptest.NewRecorder()
	PutWebDAVConfig(d)(w, httptest.NewRequest(http.MethodPut, "/api/config/webdav", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Error("response echoes the password")
	}

	cfg, err := store.RemoteConfig(context.Background())
	if err != nil || cfg == nil {
		t.Fatalf("stored config = %+v, %v", cfg, err)
	}
	if cfg.Password != "secret" || cfg.SyncPath != webdav.DefaultSyncPath {
		t.Errorf("stored config = %+v, want password kept and defaults filled", cfg)
	}
}

func TestPutWebDAVConfig_Invalid(t *testing.T) {
	d, _ := testDeps(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing credentials", `{"serverUrl":"https://dav.example.com"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			PutWebDAVConfig(d)(w, httptest.NewRequest(http.MethodPut, "/api/config/webdav", strings.NewReader(tt.body)))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetWebDAVConfig_Unconfigured(t *testing.T) {
	d, _ := testDeps(t)

	w := httptest.NewRecorder()
	GetWebDAVConfig(d)(w, httptest.NewRequest(http.MethodGet, "/api/config/webdav", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp webdavConfigResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Configured {
		t.Error("Configured = true with nothing stored")
	}
}

func TestDeleteWebDAVConfig(t *testing.T) {
	d, store := testDeps(t)
	if err := store.SaveRemoteConfig(context.Background(), webdav.RemoteConfig{
		ServerURL: "https://dav.example.com", Username: "u", Password: "p",
	}); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	DeleteWebDAVConfig(d)(w, httptest.NewRequest(http.MethodDelete, "/api/config/webdav", nil))

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if cfg, _ := store.RemoteConfig(context.Background()); cfg != nil {
		t.Error("config still stored after delete")
	}
}

func TestPutAutoSyncConfig_DefaultsInterval(t *testing.T) {
	d, _ := testDeps(t)

	w := httptest.NewRecorder()
	PutAutoSyncConfig(d)(w, httptest.NewRequest(http.MethodPut, "/api/config/autosync",
		strings.NewReader(`{"enabled":false}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var st scheduler.State
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want the 30 minute default", st.IntervalMinutes)
	}
}

func TestPutAutoSyncConfig_RejectsSubMinimumInterval(t *testing.T) {
	d, _ := testDeps(t)

	w := httptest.NewRecorder()
	PutAutoSyncConfig(d)(w, httptest.NewRequest(http.MethodPut, "/api/config/autosync",
		strings.NewReader(`{"enabled":true,"interval":3}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a 3 minute interval", w.Code)
	}
	if !strings.Contains(w.Body.String(), "at least 5 minutes") {
		t.Errorf("body = %q, want the minimum named in the error", w.Body.String())
	}
	if st := d.AutoSync.State(); st.Enabled {
		t.Error("rejected config was still applied")
	}
}

func TestHealthz(t *testing.T) {
	d, _ := testDeps(t)
	d.Version = "1.2.3"

	w := httptest.NewRecorder()
	Healthz(d)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthzResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" {
		t.Errorf("response = %+v", resp)
	}
}
