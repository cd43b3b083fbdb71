package config

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMistHost is the API host used when none is configured.
// Regional clouds (api.eu.mist.com, api.gc1.mist.com, ...) can be set
// via the config file or MIST_HOST.
const DefaultMistHost = "api.mist.com"

// DefaultListen is the HTTP listen address used when none is configured.
const DefaultListen = ":5000"

// Config is the top-level structure for the console configuration.
type Config struct {
	Mist *MistConfig `hcl:"mist,block" json:"mist,omitempty"`
	API  *APIConfig  `hcl:"api,block" json:"api,omitempty"`
	Log  *LogConfig  `hcl:"log,block" json:"log,omitempty"`
}

// MistConfig holds credentials and addressing for the Mist cloud API.
type MistConfig struct {
	APIToken string `hcl:"api_token,optional" json:"api_token,omitempty"`
	Host     string `hcl:"host,optional" json:"host,omitempty"`
	OrgID    string `hcl:"org_id,optional" json:"org_id,omitempty"`
}

// APIConfig configures the HTTP server.
type APIConfig struct {
	Listen string `hcl:"listen,optional" json:"listen,omitempty"` // default :5000

	// TLS configuration. When both cert and key are set the server
	// listens with TLS on tls_listen, or directly on listen when
	// tls_listen is unset. With tls_listen set, the plain listener on
	// listen redirects every request to HTTPS.
	TLSCert   string `hcl:"tls_cert,optional" json:"tls_cert,omitempty"`
	TLSKey    string `hcl:"tls_key,optional" json:"tls_key,omitempty"`
	TLSListen string `hcl:"tls_listen,optional" json:"tls_listen,omitempty"`

	// AuthToken, when set, is required as a Bearer token on /api/ routes.
	AuthToken string `hcl:"auth_token,optional" json:"auth_token,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level string `hcl:"level,optional" json:"level,omitempty"` // debug, info, warn, error
	JSON  bool   `hcl:"json,optional" json:"json,omitempty"`
}

var errMissingToken = errors.New("mist api_token is required (set in config file or MIST_APITOKEN)")

// Default returns a config populated with defaults. Env overrides and
// validation are applied by the loader.
func Default() *Config {
	return &Config{
		Mist: &MistConfig{Host: DefaultMistHost},
		API:  &APIConfig{Listen: DefaultListen},
		Log:  &LogConfig{Level: "info"},
	}
}

// Normalize fills in zero values so downstream code can rely on the
// blocks being present.
func (c *Config) Normalize() {
	if c.Mist == nil {
		c.Mist = &MistConfig{}
	}
	if c.Mist.Host == "" {
		c.Mist.Host = DefaultMistHost
	}
	if c.API == nil {
		c.API = &APIConfig{}
	}
	if c.API.Listen == "" {
		c.API.Listen = DefaultListen
	}
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the config for operability. A missing token is an error:
// every useful operation needs it.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Mist.APIToken == "" {
		return errMissingToken
	}
	if strings.Contains(c.Mist.Host, "://") {
		return fmt.Errorf("mist host must be a bare hostname, got %q", c.Mist.Host)
	}
	if c.API.TLSCert != "" && c.API.TLSKey == "" || c.API.TLSKey != "" && c.API.TLSCert == "" {
		return errors.New("tls_cert and tls_key must be set together")
	}
	if c.API.TLSListen != "" && c.API.TLSCert == "" {
		return errors.New("tls_listen requires tls_cert and tls_key")
	}
	return nil
}
