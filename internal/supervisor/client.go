// Package supervisor is the authenticated client for the Home Assistant
// Supervisor REST API.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kebairia/habackup/internal/logger"
)

const (
	defaultBaseURL = "http://supervisor"

	// requestTimeout bounds regular API calls; downloadTimeout leaves room
	// for multi-gigabyte backup archives.
	requestTimeout  = 30 * time.Second
	downloadTimeout = 5 * time.Minute
)

// ErrRequest indicates a failed supervisor API call (transport, auth or
// non-2xx status). Failures are never retried here.
var ErrRequest = errors.New("supervisor API request failed")

// ErrNotFound indicates a 404 from the supervisor, e.g. an unknown backup
// slug.
var ErrNotFound = errors.New("not found")

// Option overrides a default client setting.
type Option func(*Client)

// WithBaseURL overrides the supervisor base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithToken overrides the bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		if token != "" {
			c.token = token
		}
	}
}

// WithHTTPClient replaces both underlying HTTP clients. Used in tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.api = hc
		c.download = hc
	}
}

// Client talks to the supervisor. Base URL and token default to the
// SUPERVISOR_URL and SUPERVISOR_TOKEN environment variables the add-on
// runtime injects.
type Client struct {
	baseURL  string
	token    string
	api      *http.Client
	download *http.Client
	log      logger.Logger
}

// NewClient builds a Client from environment defaults plus options.
func NewClient(log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  defaultBaseURL,
		token:    os.Getenv("SUPERVISOR_TOKEN"),
		api:      &http.Client{Timeout: requestTimeout},
		download: &http.Client{Timeout: downloadTimeout},
		log:      log,
	}
	if url := os.Getenv("SUPERVISOR_URL"); url != "" {
		c.baseURL = strings.TrimRight(url, "/")
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.token == "" {
		log.Warn("no supervisor token configured")
	}
	return c
}

// envelope is the supervisor's response wrapper.
type envelope struct {
	Result  string          `json:"result"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// request performs one API call and decodes the data payload into out
// (when out is non-nil).
func (c *Client) request(ctx context.Context, method, endpoint string, body, out any) error {
	url := c.baseURL + "/" + endpoint

	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrRequest, err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, payload)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("supervisor request", "method", method, "url", url)
	resp, err := c.api.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, endpoint)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", ErrRequest, method, endpoint, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequest, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrRequest, err)
	}
	return nil
}

// AddonInfo is one add-on entry inside a backup record.
type AddonInfo struct {
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Version string `json:"version"`
}

// BackupInfo is a backup record as the supervisor reports it.
type BackupInfo struct {
	Slug          string      `json:"slug"`
	Name          string      `json:"name"`
	Date          string      `json:"date"`
	Size          float64     `json:"size"`
	Type          string      `json:"type"`
	Protected     bool        `json:"protected"`
	Compressed    bool        `json:"compressed"`
	HomeAssistant string      `json:"homeassistant,omitempty"`
	Addons        []AddonInfo `json:"addons,omitempty"`
	Folders       []string    `json:"folders,omitempty"`
	Repositories  []string    `json:"repositories,omitempty"`
}

// ListBackups returns all backups known to the supervisor.
func (c *Client) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	var data struct {
		Backups []BackupInfo `json:"backups"`
	}
	if err := c.request(ctx, http.MethodGet, "backups", nil, &data); err != nil {
		return nil, err
	}
	return data.Backups, nil
}

// GetBackupInfo returns one backup record, or nil when the slug is
// unknown.
func (c *Client) GetBackupInfo(ctx context.Context, id string) (*BackupInfo, error) {
	var info BackupInfo
	err := c.request(ctx, http.MethodGet, "backups/"+id+"/info", nil, &info)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// DownloadBackup fetches the raw backup archive.
func (c *Client) DownloadBackup(ctx context.Context, id string) ([]byte, error) {
	url := c.baseURL + "/backups/" + id + "/download"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequest, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.download.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download backup %s: %v", ErrRequest, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: backup %s", ErrNotFound, id)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: download backup %s: status %d", ErrRequest, id, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read backup %s: %v", ErrRequest, id, err)
	}
	return data, nil
}

// CreateBackup starts a full backup and returns the new slug.
func (c *Client) CreateBackup(ctx context.Context, name, password string) (string, error) {
	body := map[string]any{"name": name, "compressed": true}
	if password != "" {
		body["password"] = password
	}
	var data struct {
		Slug string `json:"slug"`
	}
	if err := c.request(ctx, http.MethodPost, "backups/new/full", body, &data); err != nil {
		return "", err
	}
	return data.Slug, nil
}

// CreatePartialBackup starts a backup limited to the given add-ons and
// folders.
func (c *Client) CreatePartialBackup(ctx context.Context, name string, addons, folders []string, password string) (string, error) {
	body := map[string]any{
		"name":    name,
		"addons":  emptyIfNil(addons),
		"folders": emptyIfNil(folders),
	}
	if password != "" {
		body["password"] = password
	}
	var data struct {
		Slug string `json:"slug"`
	}
	if err := c.request(ctx, http.MethodPost, "backups/new/partial", body, &data); err != nil {
		return "", err
	}
	return data.Slug, nil
}

// RestoreBackup starts a full restore.
func (c *Client) RestoreBackup(ctx context.Context, id, password string) error {
	body := map[string]any{}
	if password != "" {
		body["password"] = password
	}
	return c.request(ctx, http.MethodPost, "backups/"+id+"/restore/full", body, nil)
}

// RestorePartialBackup starts a partial restore.
func (c *Client) RestorePartialBackup(ctx context.Context, id string, homeassistant bool, addons, folders []string, password string) error {
	body := map[string]any{
		"homeassistant": homeassistant,
		"addons":        emptyIfNil(addons),
		"folders":       emptyIfNil(folders),
	}
	if password != "" {
		body["password"] = password
	}
	return c.request(ctx, http.MethodPost, "backups/"+id+"/restore/partial", body, nil)
}

// DeleteBackup removes a backup.
func (c *Client) DeleteBackup(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "backups/"+id, nil, nil)
}

// CoreInfo is the running Home Assistant core state.
type CoreInfo struct {
	Version         string `json:"version"`
	State           string `json:"state"`
	UpdateAvailable bool   `json:"update_available"`
}

// GetCoreInfo returns the running core's information.
func (c *Client) GetCoreInfo(ctx context.Context) (*CoreInfo, error) {
	var info CoreInfo
	if err := c.request(ctx, http.MethodGet, "core/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetCurrentVersion returns the running platform version.
func (c *Client) GetCurrentVersion(ctx context.Context) (string, error) {
	info, err := c.GetCoreInfo(ctx)
	if err != nil {
		return "", err
	}
	return info.Version, nil
}

// SupervisorInfo is the supervisor's own state.
type SupervisorInfo struct {
	Version string `json:"version"`
	Healthy bool   `json:"healthy"`
}

// GetSupervisorInfo returns the supervisor's information.
func (c *Client) GetSupervisorInfo(ctx context.Context) (*SupervisorInfo, error) {
	var info SupervisorInfo
	if err := c.request(ctx, http.MethodGet, "supervisor/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// HostInfo is the host machine's state.
type HostInfo struct {
	Hostname        string  `json:"hostname"`
	OperatingSystem string  `json:"operating_system"`
	DiskTotal       float64 `json:"disk_total"`
	DiskUsed        float64 `json:"disk_used"`
	DiskFree        float64 `json:"disk_free"`
}

// GetHostInfo returns host information.
func (c *Client) GetHostInfo(ctx context.Context) (*HostInfo, error) {
	var info HostInfo
	if err := c.request(ctx, http.MethodGet, "host/info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Ping reports whether the supervisor API answers at all.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.GetSupervisorInfo(ctx)
	if err != nil {
		c.log.Error("supervisor ping failed", "error", err.Error())
		return false
	}
	return true
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
