package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
	"github.com/idleeyan/tabsync/internal/httpserver/handlers"
	"github.com/idleeyan/tabsync/internal/httpserver/mw"
)

func init() { Register(registerSync) }

func registerSync(r chi.Router, d deps.Deps) {
	guard := mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
	r.With(guard).Post("/api/sync", handlers.SyncNow(d))
	r.With(guard).Post("/api/sync/push", handlers.Push(d))
	r.With(guard).Post("/api/sync/pull", handlers.Pull(d))
	r.With(guard).Get("/api/sync/status", handlers.Status(d))
}
