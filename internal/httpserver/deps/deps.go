package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/scheduler"
	"github.com/idleeyan/tabsync/internal/syncer"
	"github.com/idleeyan/tabsync/internal/webdav"
)

// ConfigStore persists the WebDAV endpoint configuration. Satisfied by
// the redis store and the in-memory store used in handler tests.
type ConfigStore interface {
	RemoteConfig(ctx context.Context) (*webdav.RemoteConfig, error)
	SaveRemoteConfig(ctx context.Context, cfg webdav.RemoteConfig) error
	ClearRemoteConfig(ctx context.Context) error
}

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time     // for testing, defaults to time.Now
	AllowedCIDRS []string             // IPs allowed to access the API endpoints
	TrustProxy   bool                 // true if running behind a trusted reverse proxy
	Manager      *syncer.Manager      // sync orchestration
	AutoSync     *scheduler.AutoSync  // recurring sync loop
	Store        ConfigStore          // WebDAV endpoint configuration
	RedisClient  *redis.Client        // for readiness checks
}
