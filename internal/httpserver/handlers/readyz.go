package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/idleeyan/tabsync/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports whether the store behind the sync engine is reachable.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.RedisClient != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.RedisClient.Ping(ctx).Err(); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, readyzResponse{
					Ready: false,
					Error: "redis unreachable",
				})
				return
			}
		}
		respondJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
