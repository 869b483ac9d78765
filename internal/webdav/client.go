// Package webdav moves snapshot envelopes to and from a remote file
// store over a path-based protocol with basic authentication.
package webdav

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/idleeyan/tabsync/internal/domain"
	"github.com/idleeyan/tabsync/internal/logger"
	"github.com/idleeyan/tabsync/internal/version"
)

// Per-request bounds. A request that exceeds its bound counts as a
// failed attempt and the variant loop moves on; nothing is ever left
// pending.
const (
	requestTimeout = 10 * time.Second // probe, upload, download
	probeTimeout   = 5 * time.Second  // container checks and HEAD
)

var (
	// ErrNoRemoteData means no path variant yielded a snapshot. On a
	// first sync this is the expected "nothing uploaded yet" state.
	ErrNoRemoteData = errors.New("no sync data on server")

	// ErrCorruptPayload means a variant answered with a body that is
	// not a valid snapshot envelope. Callers must never treat this as
	// "no data yet": overwriting local state with it would propagate
	// corruption.
	ErrCorruptPayload = errors.New("remote payload is not a valid snapshot envelope")

	// ErrUploadFailed means every path variant rejected the write.
	ErrUploadFailed = errors.New("upload rejected on every path variant")
)

// RemoteConfig addresses one remote file store.
type RemoteConfig struct {
	ServerURL string `json:"serverUrl" yaml:"serverUrl"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	SyncPath  string `json:"syncPath,omitempty" yaml:"syncPath"`
	Filename  string `json:"filename,omitempty" yaml:"filename"`
}

// Complete reports whether the credentials needed to attempt any
// request are present.
func (c RemoteConfig) Complete() bool {
	return c.ServerURL != "" && c.Username != "" && c.Password != ""
}

// WithDefaults fills in the default sync path and filename.
func (c RemoteConfig) WithDefaults() RemoteConfig {
	if c.SyncPath == "" {
		c.SyncPath = DefaultSyncPath
	}
	if c.Filename == "" {
		c.Filename = DefaultFilename
	}
	return c
}

// Metadata is the lightweight remote-file description from a HEAD
// request, for staleness checks without a full download.
type Metadata struct {
	LastModified time.Time `json:"lastModified"`
	Size         int64     `json:"size"`
}

// Client talks to one remote file store. It is cheap to construct;
// the sync manager builds a fresh one per operation from the stored
// configuration.
type Client struct {
	cfg       RemoteConfig
	transport Transport
	device    string
	log       logger.Logger
	now       func() time.Time
}

// New builds a client that exchanges data over HTTP.
func New(cfg RemoteConfig, log logger.Logger) *Client {
	cfg = cfg.WithDefaults()
	return NewWithTransport(cfg, NewHTTPTransport(cfg), log)
}

// NewWithTransport builds a client over a caller-supplied transport.
func NewWithTransport(cfg RemoteConfig, t Transport, log logger.Logger) *Client {
	return &Client{
		cfg:       cfg.WithDefaults(),
		transport: t,
		device:    deviceID(),
		log:       log,
		now:       time.Now,
	}
}

func deviceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("tabsync/%s (%s; %s)", version.Version, runtime.GOOS, host)
}

// do runs one bounded request. Transport errors and timeouts come back
// as errors; the callers treat them as failed attempts, never as
// faults.
func (c *Client) do(ctx context.Context, timeout time.Duration, method, path string, body []byte) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.transport.Do(ctx, Request{Method: method, Path: path, Body: body})
}

// Probe checks that the store answers at all: PROPFIND against the
// base, falling back to a plain GET of the root for servers that
// refuse PROPFIND outright.
func (c *Client) Probe(ctx context.Context) bool {
	resp, err := c.do(ctx, requestTimeout, MethodPropfind, "", nil)
	if err == nil && resp.OK() {
		return true
	}
	if err != nil {
		c.log.Debug("probe PROPFIND failed, trying GET", logger.Error(err))
	}

	resp, err = c.do(ctx, requestTimeout, http.MethodGet, "/", nil)
	return err == nil && resp.OK()
}

// EnsureContainer makes a best effort to ensure the sync directory
// exists, trying each path variant with PROPFIND and answering a 404
// with MKCOL. A 405 on MKCOL is accepted: such servers forbid explicit
// directory creation and auto-create on upload.
//
// It reports success even when every variant fails — some servers
// need no directory at all, so the caller proceeds optimistically and
// lets the upload surface the real error. That can hide a genuine
// misconfiguration until the upload fails, hence the warning log.
func (c *Client) EnsureContainer(ctx context.Context) bool {
	for _, path := range containerVariants(c.cfg.SyncPath) {
		resp, err := c.do(ctx, probeTimeout, MethodPropfind, path, nil)
		if err != nil {
			c.log.Debug("container probe failed",
				logger.String("path", path),
				logger.Error(err))
			continue
		}
		if resp.OK() {
			return true
		}
		if resp.Status != http.StatusNotFound {
			continue
		}

		created, err := c.do(ctx, probeTimeout, MethodMkcol, path, nil)
		if err != nil {
			c.log.Debug("mkcol failed",
				logger.String("path", path),
				logger.Error(err))
			continue
		}
		if created.OK() || created.Status == http.StatusMethodNotAllowed {
			return true
		}
	}

	c.log.Warn("sync directory could not be verified, proceeding optimistically",
		logger.String("syncPath", c.cfg.SyncPath))
	return true
}

// Upload wraps snap in the wire envelope and writes it to the first
// path variant the server accepts: PUT first, then POST when the
// server answers 403 or 405.
func (c *Client) Upload(ctx context.Context, snap *domain.Snapshot) error {
	c.EnsureContainer(ctx)

	env := domain.Envelope{
		Version:   domain.EnvelopeVersion,
		Timestamp: c.now().UnixMilli(),
		Device:    c.device,
		Data:      snap,
	}
	body, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot envelope: %w", err)
	}

	for _, path := range fileVariants(c.cfg.SyncPath, c.cfg.Filename) {
		resp, err := c.do(ctx, requestTimeout, http.MethodPut, path, body)
		if err != nil {
			c.log.Debug("PUT failed",
				logger.String("path", path),
				logger.Error(err))
			continue
		}
		if resp.OK() {
			c.log.Info("snapshot uploaded",
				logger.String("path", path),
				logger.Int("bytes", len(body)))
			return nil
		}
		if resp.Status != http.StatusForbidden && resp.Status != http.StatusMethodNotAllowed {
			continue
		}

		resp, err = c.do(ctx, requestTimeout, http.MethodPost, path, body)
		if err == nil && resp.OK() {
			c.log.Info("snapshot uploaded via POST",
				logger.String("path", path),
				logger.Int("bytes", len(body)))
			return nil
		}
	}

	return ErrUploadFailed
}

// Download fetches and decodes the remote envelope, trying each path
// variant with GET. A found-but-undecodable body fails immediately
// with ErrCorruptPayload so callers can tell corruption apart from
// ErrNoRemoteData.
func (c *Client) Download(ctx context.Context) (*domain.Envelope, error) {
	for _, path := range fileVariants(c.cfg.SyncPath, c.cfg.Filename) {
		resp, err := c.do(ctx, requestTimeout, http.MethodGet, path, nil)
		if err != nil {
			c.log.Debug("GET failed",
				logger.String("path", path),
				logger.Error(err))
			continue
		}
		if !resp.OK() {
			continue
		}

		var env domain.Envelope
		if err := json.Unmarshal(resp.Body, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return &env, nil
	}

	return nil, ErrNoRemoteData
}

// Metadata fetches the remote file's modification time and size with
// HEAD, without transferring the snapshot itself.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	for _, path := range fileVariants(c.cfg.SyncPath, c.cfg.Filename) {
		resp, err := c.do(ctx, probeTimeout, http.MethodHead, path, nil)
		if err != nil || !resp.OK() {
			continue
		}

		meta := &Metadata{}
		if v := resp.Header.Get("Last-Modified"); v != "" {
			if t, err := http.ParseTime(v); err == nil {
				meta.LastModified = t
			}
		}
		if v := resp.Header.Get("Content-Length"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				meta.Size = n
			}
		}
		return meta, nil
	}

	return nil, ErrNoRemoteData
}
