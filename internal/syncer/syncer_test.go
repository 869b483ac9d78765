package syncer_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/store/memory"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// fakeRemote is an in-memory file store behind the webdav.Transport
// interface. Any path ending in .json addresses the one snapshot file.
type fakeRemote struct {
	mu   sync.Mutex
	file []byte

	// corrupt makes GET answer a non-envelope body.
	corrupt bool

	// failWrites makes PUT and POST answer 500.
	failWrites bool

	puts int
	gets int
}

func (f *fakeRemote) Do(_ context.Context, req webdav.Request) (webdav.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	isFile := strings.HasSuffix(req.Path, ".json")
	switch req.Method {
	case webdav.MethodPropfind:
		return webdav.Response{Status: http.StatusMultiStatus, Header: http.Header{}}, nil
	case http.MethodGet:
		if !isFile {
			return webdav.Response{Status: http.StatusOK, Header: http.Header{}}, nil
		}
		f.gets++
		if f.corrupt {
			return webdav.Response{Status: http.StatusOK, Body: []byte("<html>"), Header: http.Header{}}, nil
		}
		if f.file == nil {
			return webdav.Response{Status: http.StatusNotFound, Header: http.Header{}}, nil
		}
		return webdav.Response{Status: http.StatusOK, Body: f.file, Header: http.Header{}}, nil
	case http.MethodPut, http.MethodPost:
		if f.failWrites {
			return webdav.Response{Status: http.StatusInternalServerError, Header: http.Header{}}, nil
		}
		f.puts++
		f.file = append([]byte(nil), req.Body...)
		return webdav.Response{Status: http.StatusCreated, Header: http.Header{}}, nil
	case http.MethodHead:
		if f.file == nil {
			return webdav.Response{Status: http.StatusNotFound, Header: http.Header{}}, nil
		}
		h := http.Header{}
		h.Set("Content-Length", "1")
		return webdav.Response{Status: http.StatusOK, Header: h}, nil
	}
	return webdav.Response{Status: http.StatusNotFound, Header: http.Header{}}, nil
}

func (f *fakeRemote) envelope(t *testing.T) *domain.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		t.Fatal("no file uploaded to the fake remote")
	}
	var env domain.Envelope
	if err := json.Unmarshal(f.file, &env); err != nil {
		t.Fatalf("remote file is not an envelope: %v", err)
	}
	return &env
}

func (f *fakeRemote) seed(t *testing.T, timestamp int64, snap *domain.Snapshot) {
	t.Helper()
	body, err := json.Marshal(domain.Envelope{
		Version:   domain.EnvelopeVersion,
		Timestamp: timestamp,
		Device:    "other-device",
		Data:      snap,
	})
	if err != nil {
		t.Fatalf("seed envelope: %v", err)
	}
	f.mu.Lock()
	f.file = body
	f.mu.Unlock()
}

func newManager(t *testing.T) (*syncer.Manager, *memory.Store, *fakeRemote) {
	t.Helper()
	log := logger.New("error", false)
	store := memory.NewStore()
	remote := &fakeRemote{}

	if err := store.SaveRemoteConfig(context.Background(), webdav.RemoteConfig{
		ServerURL: "https://dav.test",
		Username:  "u",
		Password:  "p",
	}); err != nil {
		t.Fatalf("save config: %v", err)
	}

	factory := func(cfg webdav.RemoteConfig) *webdav.Client {
		return webdav.NewWithTransport(cfg, remote, log)
	}
	return syncer.New(store, factory, log), store, remote
}

func TestSmartSync_FirstSyncUploadsLocalData(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	local := &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "a", LastModify: 1000}},
	}
	if err := store.SaveSnapshot(ctx, local); err != nil {
		t.Fatal(err)
	}

	result, err := mgr.SmartSync(ctx)
	if err != nil {
		t.Fatalf("SmartSync() = %v", err)
	}
	if result.Direction != syncer.DirectionUpload {
		t.Errorf("Direction = %q, want upload on first sync", result.Direction)
	}

	env := remote.envelope(t)
	if len(env.Data.Bookmarks) != 1 || env.Data.Bookmarks[0].URL != "https://a.test" {
		t.Errorf("remote data = %+v, want the local snapshot", env.Data)
	}
}

func TestSmartSync_NoChangesIsNoOp(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	same := &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "a", LastModify: 1000}},
	}
	if err := store.SaveSnapshot(ctx, same); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, 5000, same.Clone())

	result, err := mgr.SmartSync(ctx)
	if err != nil {
		t.Fatalf("SmartSync() = %v", err)
	}
	if result.Direction != syncer.DirectionNone {
		t.Errorf("Direction = %q, want none", result.Direction)
	}
	if remote.puts != 0 {
		t.Errorf("remote written %d times on a no-op cycle, want 0", remote.puts)
	}
}

func TestSmartSync_RemoteNewerUpdatesLocal(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	if err := store.SaveSnapshot(ctx, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "old", LastModify: 1000}},
	}); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, 5000, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{
			{URL: "https://a.test", Name: "renamed", LastModify: 2000},
			{URL: "https://b.test", Name: "b", Index: 1, LastModify: 1500},
		},
	})

	result, err := mgr.SmartSync(ctx)
	if err != nil {
		t.Fatalf("SmartSync() = %v", err)
	}
	if result.Direction != syncer.DirectionDownload {
		t.Errorf("Direction = %q, want download", result.Direction)
	}
	if !result.LocalUpdated {
		t.Error("LocalUpdated = false, want true")
	}

	snap, err := store.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Bookmarks) != 2 {
		t.Fatalf("local has %d bookmarks, want 2", len(snap.Bookmarks))
	}
	if snap.Bookmarks[0].Name != "renamed" {
		t.Errorf("local name = %q, want the newer remote edit", snap.Bookmarks[0].Name)
	}
	if remote.puts != 0 {
		t.Errorf("remote rewritten %d times, want 0: remote already holds the merge", remote.puts)
	}
}

func TestSmartSync_LocalAheadUploads(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	if err := store.SaveSnapshot(ctx, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{
			{URL: "https://a.test", Name: "a", LastModify: 1000},
			{URL: "https://b.test", Name: "b", Index: 1, LastModify: 2000},
		},
	}); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, 500, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "a", LastModify: 1000}},
	})

	result, err := mgr.SmartSync(ctx)
	if err != nil {
		t.Fatalf("SmartSync() = %v", err)
	}
	if result.Direction != syncer.DirectionUpload {
		t.Errorf("Direction = %q, want upload", result.Direction)
	}

	env := remote.envelope(t)
	if len(env.Data.Bookmarks) != 2 {
		t.Errorf("remote has %d bookmarks after upload, want 2", len(env.Data.Bookmarks))
	}
}

func TestSmartSync_DeletionPropagates(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	// Local deleted b an hour ago; remote still carries it from a day
	// ago. Timestamps must be recent or the retention window purges
	// the tombstone before it can act.
	now := time.Now().UnixMilli()
	if err := store.SaveSnapshot(ctx, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "a", LastModify: now - 86_400_000}},
		Deleted:   []domain.Tombstone{{URL: "https://b.test", DeletedAt: now - 3_600_000}},
	}); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, now-43_200_000, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{
			{URL: "https://a.test", Name: "a", LastModify: now - 86_400_000},
			{URL: "https://b.test", Name: "b", Index: 1, LastModify: now - 86_400_000},
		},
	})

	if _, err := mgr.SmartSync(ctx); err != nil {
		t.Fatalf("SmartSync() = %v", err)
	}

	env := remote.envelope(t)
	for _, b := range env.Data.Bookmarks {
		if b.URL == "https://b.test" {
			t.Error("deleted bookmark still present on the remote after sync")
		}
	}
	if len(env.Data.Deleted) != 1 {
		t.Errorf("remote carries %d tombstones, want 1", len(env.Data.Deleted))
	}
}

func TestSmartSync_FailedUploadLeavesLocalAheadOfRemote(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	if err := store.SaveSnapshot(ctx, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{
			{URL: "https://a.test", Name: "a", LastModify: 1000},
			{URL: "https://b.test", Name: "b", Index: 1, LastModify: 1800},
		},
	}); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, 2500, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{
			{URL: "https://a.test", Name: "a renamed", LastModify: 2000},
			{URL: "https://c.test", Name: "c", Index: 1, LastModify: 1500},
		},
	})

	// Both sides changed, so the merge must be persisted locally and
	// then uploaded; the upload is made to fail.
	remote.failWrites = true
	_, err := mgr.SmartSync(ctx)
	if !errors.Is(err, webdav.ErrUploadFailed) {
		t.Fatalf("SmartSync() = %v, want ErrUploadFailed", err)
	}

	// The merge survives the failed upload: local is ahead of remote,
	// never rolled back.
	snap, _ := store.Snapshot(ctx)
	if len(snap.Bookmarks) != 3 {
		t.Fatalf("local has %d bookmarks after the failed upload, want the 3-way merge", len(snap.Bookmarks))
	}
	byURL := make(map[string]*domain.Bookmark)
	for _, b := range snap.Bookmarks {
		byURL[b.URL] = b
	}
	if byURL["https://a.test"].Name != "a renamed" {
		t.Error("merged rename lost after the failed upload")
	}
	if lm, _ := store.LocalModify(ctx); lm.IsZero() {
		t.Error("local modify not stamped alongside the persisted merge")
	}

	// The next cycle sees remote as stale and re-uploads.
	remote.failWrites = false
	result, err := mgr.SmartSync(ctx)
	if err != nil {
		t.Fatalf("second SmartSync() = %v", err)
	}
	if result.Direction != syncer.DirectionUpload {
		t.Errorf("Direction = %q, want upload on the retry cycle", result.Direction)
	}
	env := remote.envelope(t)
	if len(env.Data.Bookmarks) != 3 {
		t.Errorf("remote has %d bookmarks after the retry, want 3", len(env.Data.Bookmarks))
	}
}

func TestSmartSync_NotConfigured(t *testing.T) {
	log := logger.New("error", false)
	store := memory.NewStore()
	mgr := syncer.New(store, func(cfg webdav.RemoteConfig) *webdav.Client {
		t.Fatal("client built without configuration")
		return nil
	}, log)

	_, err := mgr.SmartSync(context.Background())
	if !errors.Is(err, syncer.ErrNotConfigured) {
		t.Fatalf("SmartSync() = %v, want ErrNotConfigured", err)
	}
}

func TestSmartSync_CorruptRemoteLeavesLocalUntouched(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	local := &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://a.test", Name: "a", LastModify: 1000}},
	}
	if err := store.SaveSnapshot(ctx, local); err != nil {
		t.Fatal(err)
	}
	remote.corrupt = true

	_, err := mgr.SmartSync(ctx)
	if !errors.Is(err, webdav.ErrCorruptPayload) {
		t.Fatalf("SmartSync() = %v, want ErrCorruptPayload", err)
	}

	snap, _ := store.Snapshot(ctx)
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0].Name != "a" {
		t.Error("local snapshot changed after a corrupt download")
	}
	if remote.puts != 0 {
		t.Error("upload attempted after a corrupt download")
	}
}

func TestSyncFromCloud_OverwritesLocal(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()

	if err := store.SaveSnapshot(ctx, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://local-only.test", Name: "mine", LastModify: 9000}},
	}); err != nil {
		t.Fatal(err)
	}
	remote.seed(t, 500, &domain.Snapshot{
		Bookmarks: []*domain.Bookmark{{URL: "https://remote.test", Name: "theirs", LastModify: 100}},
	})

	result, err := mgr.SyncFromCloud(ctx)
	if err != nil {
		t.Fatalf("SyncFromCloud() = %v", err)
	}
	if result.Direction != syncer.DirectionDownload {
		t.Errorf("Direction = %q, want download", result.Direction)
	}

	snap, _ := store.Snapshot(ctx)
	if len(snap.Bookmarks) != 1 || snap.Bookmarks[0].URL != "https://remote.test" {
		t.Errorf("local = %+v, want the remote snapshot verbatim", snap.Bookmarks)
	}
}

func TestStatus(t *testing.T) {
	mgr, store, remote := newManager(t)
	ctx := context.Background()
	remote.seed(t, 500, &domain.Snapshot{})

	st, err := mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status() = %v", err)
	}
	if !st.Configured || st.ServerURL != "https://dav.test" {
		t.Errorf("Status() = %+v, want configured with server url", st)
	}
	if st.Remote == nil {
		t.Error("Remote metadata missing despite answering HEAD")
	}

	if err := store.ClearRemoteConfig(ctx); err != nil {
		t.Fatal(err)
	}
	st, err = mgr.Status(ctx)
	if err != nil {
		t.Fatalf("Status() = %v", err)
	}
	if st.Configured {
		t.Error("Configured = true after clearing the config")
	}
}

func TestTestConnection(t *testing.T) {
	mgr, _, _ := newManager(t)

	ok := mgr.TestConnection(context.Background(), webdav.RemoteConfig{
		ServerURL: "https://dav.test", Username: "u", Password: "p",
	})
	if !ok {
		t.Error("TestConnection() = false against an answering store")
	}
}
