// Package vault retrieves the supervisor API token from a HashiCorp Vault
// KV store, for deployments that do not inject SUPERVISOR_TOKEN through
// the environment.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"
)

const (
	approleSecretIDPath = "auth/approle/role/%s/secret-id"
	approleLoginPath    = "auth/approle/login"
)

// ErrClientInit indicates failure to initialize the Vault API client.
var ErrClientInit = errors.New("vault client initialization failed")

// Option overrides a default client setting.
type Option func(*config)

type config struct {
	address  string
	token    string
	roleID   string
	roleName string
}

// Client wraps the Vault API client.
type Client struct {
	api    *vault.Client
	config *config
}

// WithAddress sets the Vault server address.
func WithAddress(address string) Option {
	return func(c *config) {
		if address != "" {
			c.address = address
		}
	}
}

// WithToken sets a static token for authentication.
func WithToken(token string) Option {
	return func(c *config) {
		if token != "" {
			c.token = token
		}
	}
}

// WithAppRole configures AppRole login instead of a static token.
func WithAppRole(roleID, roleName string) Option {
	return func(c *config) {
		c.roleID = roleID
		c.roleName = roleName
	}
}

// NewClient creates and initializes a Vault client. Address and token
// default to VAULT_ADDR and VAULT_TOKEN. AppRole login is performed when
// both roleID and roleName are set, otherwise the static token is used.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{
		address: os.Getenv("VAULT_ADDR"),
		token:   os.Getenv("VAULT_TOKEN"),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	apiCfg := vault.DefaultConfig()
	if cfg.address != "" {
		apiCfg.Address = cfg.address
	}

	api, err := vault.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClientInit, err)
	}

	client := &Client{api: api, config: cfg}
	if cfg.token != "" {
		client.api.SetToken(cfg.token)
	}
	if cfg.roleID != "" && cfg.roleName != "" {
		if err := client.loginAppRole(ctx); err != nil {
			return nil, fmt.Errorf("%w: approle login: %v", ErrClientInit, err)
		}
	}
	return client, nil
}

// loginAppRole generates a secret_id for the configured role and logs in
// with it.
func (c *Client) loginAppRole(ctx context.Context) error {
	path := fmt.Sprintf(approleSecretIDPath, c.config.roleName)
	resp, err := c.api.Logical().WriteWithContext(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("generate secret_id: %w", err)
	}
	sid, ok := resp.Data["secret_id"].(string)
	if !ok || sid == "" {
		return fmt.Errorf("no secret_id returned from %s", path)
	}

	loginData := map[string]any{
		"role_id":   c.config.roleID,
		"secret_id": sid,
	}
	loginResp, err := c.api.Logical().WriteWithContext(ctx, approleLoginPath, loginData)
	if err != nil {
		return fmt.Errorf("approle login request: %w", err)
	}
	if loginResp.Auth == nil || loginResp.Auth.ClientToken == "" {
		return fmt.Errorf("no token in login response")
	}
	c.api.SetToken(loginResp.Auth.ClientToken)
	return nil
}

// supervisorSecret is the expected shape of the KV entry holding the
// supervisor credentials.
type supervisorSecret struct {
	Token string `mapstructure:"token"`
	URL   string `mapstructure:"url"`
}

// SupervisorCredentials is what GetSupervisorCredentials returns; URL may
// be empty when the KV entry only carries the token.
type SupervisorCredentials struct {
	Token string
	URL   string
}

// GetSupervisorCredentials reads the supervisor token (and optional URL)
// from the KV entry at path.
func (c *Client) GetSupervisorCredentials(ctx context.Context, path string) (SupervisorCredentials, error) {
	secret, err := c.api.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return SupervisorCredentials{}, fmt.Errorf("read %s: %w", path, err)
	}
	if secret == nil {
		return SupervisorCredentials{}, fmt.Errorf("no data found at path: %s", path)
	}

	// KV v2 nests the payload under a second "data" key.
	data := secret.Data
	if nested, ok := secret.Data["data"].(map[string]any); ok {
		data = nested
	}

	var decoded supervisorSecret
	if err := mapstructure.Decode(data, &decoded); err != nil {
		return SupervisorCredentials{}, fmt.Errorf("decode secret at %s: %w", path, err)
	}
	if decoded.Token == "" {
		return SupervisorCredentials{}, fmt.Errorf("no token in secret at %s", path)
	}
	return SupervisorCredentials{Token: decoded.Token, URL: decoded.URL}, nil
}
