package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/httpserver/handlers"
	"github.com/idleeyan/tabsync/internal/httpserver/mw"
)

func init() { Register(registerConfig) }

func registerConfig(r chi.Router, d deps.Deps) {
	guard := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(guard).Get("/api/config/webdav", handlers.GetWebDAVConfig(d))
	r.With(guard).Put("/api/config/webdav", handlers.PutWebDAVConfig(d))
	r.With(guard).Delete("/api/config/webdav", handlers.DeleteWebDAVConfig(d))
	r.With(guard).Post("/api/config/webdav/test", handlers.TestWebDAVConfig(d))
	r.With(guard).Get("/api/config/autosync", handlers.GetAutoSyncConfig(d))
	r.With(guard).Put("/api/config/autosync", handlers.PutAutoSyncConfig(d))
}
