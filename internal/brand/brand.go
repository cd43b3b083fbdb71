// Package brand provides centralized branding constants for the console.
// This makes it easy to fork or white-label the product by changing brand.json.
//
// The brand identity is loaded from brand.json at compile time via go:embed.
// This allows other tools (scripts, docs generators) to read the same file.
package brand

import (
	_ "embed"
	"encoding/json"
)

//go:embed brand.json
var brandJSON []byte

// Brand holds all branding information
type Brand struct {
	Name            string `json:"name"`
	LowerName       string `json:"lowerName"`
	Vendor          string `json:"vendor"`
	Description     string `json:"description"`
	Tagline         string `json:"tagline"`
	ConfigEnvPrefix string `json:"configEnvPrefix"`
	DefaultConfig   string `json:"defaultConfig"`
	BinaryName      string `json:"binaryName"`
	License         string `json:"license"`
}

var b Brand

func init() {
	if err := json.Unmarshal(brandJSON, &b); err != nil {
		panic("failed to parse brand.json: " + err.Error())
	}

	Name = b.Name
	LowerName = b.LowerName
	Vendor = b.Vendor
	Description = b.Description
	Tagline = b.Tagline
	ConfigEnvPrefix = b.ConfigEnvPrefix
	DefaultConfig = b.DefaultConfig
	BinaryName = b.BinaryName
	License = b.License
}

// Exported variables for convenience
var (
	Name            string
	LowerName       string
	Vendor          string
	Description     string
	Tagline         string
	ConfigEnvPrefix string
	DefaultConfig   string
	BinaryName      string
	License         string
)

// Get returns the full brand structure, e.g. for the /api/brand endpoint.
func Get() Brand {
	return b
}
