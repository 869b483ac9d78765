package handlers

import (
	"errors"
	"net/http"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// SyncNow triggers one smart sync cycle. It goes through the scheduler
// so a manual trigger and a timer tick can never merge concurrently.
func SyncNow(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := d.AutoSync.Tick(r.Context())
		if err != nil {
			writeSyncError(w, d, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// Push uploads the local snapshot wholesale, bypassing merge.
func Push(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := d.Manager.SyncToCloud(r.Context())
		if err != nil {
			writeSyncError(w, d, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

// Pull overwrites local data with the remote snapshot, bypassing merge.
func Pull(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := d.Manager.SyncFromCloud(r.Context())
		if err != nil {
			writeSyncError(w, d, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

type statusResponse struct {
	Sync     *syncer.Status  `json:"sync"`
	AutoSync scheduler.State `json:"autoSync"`
}

// Status reports the sync state plus the scheduler state.
func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Manager.Status(r.Context())
		if err != nil {
			d.Logger.Error("status check failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "status unavailable")
			return
		}
		respondJSON(w, http.StatusOK, statusResponse{
			Sync:     st,
			AutoSync: d.AutoSync.State(),
		})
	}
}

func writeSyncError(w http.ResponseWriter, d deps.Deps, err error) {
	switch {
	case errors.Is(err, scheduler.ErrSyncInProgress):
		respondError(w, http.StatusConflict, "sync in progress")
	case errors.Is(err, syncer.ErrNotConfigured):
		respondError(w, http.StatusBadRequest, "webdav not configured")
	case errors.Is(err, webdav.ErrNoRemoteData):
		respondError(w, http.StatusNotFound, "no remote data")
	default:
		d.Logger.Error("sync failed", logger.Error(err))
		respondError(w, http.StatusBadGateway, err.Error())
	}
}
