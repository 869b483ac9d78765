package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/webdav"
)

type webdavConfigResponse struct {
	Configured bool   `json:"configured"`
	ServerURL  string `json:"serverUrl,omitempty"`
	Username   string `json:"username,omitempty"`
	SyncPath   string `json:"syncPath,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// GetWebDAVConfig returns the stored endpoint configuration. The
// password never leaves the store.
func GetWebDAVConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Store.RemoteConfig(r.Context())
		if err != nil {
			d.Logger.Error("failed to load webdav config", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "config unavailable")
			return
		}
		if cfg == nil {
			respondJSON(w, http.StatusOK, webdavConfigResponse{Configured: false})
			return
		}
		respondJSON(w, http.StatusOK, webdavConfigResponse{
			Configured: cfg.Complete(),
			ServerURL:  cfg.ServerURL,
			Username:   cfg.Username,
			SyncPath:   cfg.SyncPath,
			Filename:   cfg.Filename,
		})
	}
}

// PutWebDAVConfig replaces the stored endpoint configuration.
func PutWebDAVConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg webdav.RemoteConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		cfg = cfg.WithDefaults()
		if !cfg.Complete() {
			respondError(w, http.StatusBadRequest, "serverUrl, username and password are required")
			return
		}
		if err := d.Store.SaveRemoteConfig(r.Context(), cfg); err != nil {
			d.Logger.Error("failed to save webdav config", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to save config")
			return
		}
		d.Logger.Info("webdav config updated", logger.String("server", cfg.ServerURL))
		respondJSON(w, http.StatusOK, webdavConfigResponse{
			Configured: true,
			ServerURL:  cfg.ServerURL,
			Username:   cfg.Username,
			SyncPath:   cfg.SyncPath,
			Filename:   cfg.Filename,
		})
	}
}

// DeleteWebDAVConfig removes the endpoint configuration and sync
// bookkeeping. Local documents are kept.
func DeleteWebDAVConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Store.ClearRemoteConfig(r.Context()); err != nil {
			d.Logger.Error("failed to clear webdav config", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to clear config")
			return
		}
		d.AutoSync.Stop()
		d.Logger.Info("webdav config cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

type testConnectionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestWebDAVConfig probes the endpoint in the request body without
// touching the stored configuration. An empty body tests the stored
// endpoint instead.
func TestWebDAVConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg webdav.RemoteConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			stored, serr := d.Store.RemoteConfig(r.Context())
			if serr != nil || stored == nil {
				respondError(w, http.StatusBadRequest, "invalid json body and no stored config")
				return
			}
			cfg = *stored
		}
		if !cfg.WithDefaults().Complete() {
			respondError(w, http.StatusBadRequest, "serverUrl, username and password are required")
			return
		}

		if d.Manager.TestConnection(r.Context(), cfg) {
			respondJSON(w, http.StatusOK, testConnectionResponse{Success: true, Message: "connection ok"})
			return
		}
		respondJSON(w, http.StatusOK, testConnectionResponse{Success: false, Message: "server not reachable or credentials rejected"})
	}
}

// GetAutoSyncConfig reports the scheduler configuration and liveness.
func GetAutoSyncConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, d.AutoSync.State())
	}
}

// PutAutoSyncConfig saves the scheduler configuration and re-arms the
// timer to match it. An absent interval gets the default; one below
// the minimum is rejected rather than silently rewritten.
func PutAutoSyncConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg scheduler.Config
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			respondError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if cfg.IntervalMinutes <= 0 {
			cfg.IntervalMinutes = scheduler.DefaultIntervalMinutes
		} else if cfg.IntervalMinutes < scheduler.MinIntervalMinutes {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("interval must be at least %d minutes", scheduler.MinIntervalMinutes))
			return
		}
		if err := d.AutoSync.Apply(r.Context(), cfg); err != nil {
			d.Logger.Error("failed to apply auto sync config", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to save config")
			return
		}
		respondJSON(w, http.StatusOK, d.AutoSync.State())
	}
}
