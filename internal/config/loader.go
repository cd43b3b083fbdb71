package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// LoadFile loads a config file (HCL or JSON) and applies environment
// overrides. A missing file is not an error: the console can run entirely
// from environment variables, the way the original deployment did.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		cfg, err = parse(data, path)
		if err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// Env-only operation.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ApplyEnv(cfg)
	cfg.Normalize()
	return cfg, nil
}

func parse(data []byte, path string) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return parseJSON(data)
	case ".hcl":
		return parseHCL(data, path)
	default:
		// Try HCL first, fall back to JSON.
		cfg, err := parseHCL(data, path)
		if err != nil {
			return parseJSON(data)
		}
		return cfg, nil
	}
}

func parseHCL(data []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	return &cfg, nil
}

func parseJSON(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("JSON parse error: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Env wins over file
// contents so containerized deployments can inject credentials without
// mounting a config file. Variable names match the original deployment
// (MIST_APITOKEN, MIST_HOST, MIST_ORG_ID, PORT, LOG_LEVEL).
func ApplyEnv(cfg *Config) {
	cfg.Normalize()

	if v := os.Getenv("MIST_APITOKEN"); v != "" {
		cfg.Mist.APIToken = v
	}
	if v := os.Getenv("MIST_HOST"); v != "" {
		cfg.Mist.Host = v
	}
	if v := os.Getenv("MIST_ORG_ID"); v != "" {
		cfg.Mist.OrgID = v
	} else if v := os.Getenv("org_id"); v != "" {
		// Legacy variable honored by the original deployment.
		cfg.Mist.OrgID = v
	}
	if v := os.Getenv("GUESTGATE_LISTEN"); v != "" {
		cfg.API.Listen = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.API.Listen = ":" + v
	}
	if v := os.Getenv("GUESTGATE_AUTH_TOKEN"); v != "" {
		cfg.API.AuthToken = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}
