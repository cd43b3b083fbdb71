package cmd

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/mistops/guestgate/internal/config"
)

// RunCheck validates the effective configuration (file plus
// environment) without starting the server.
func RunCheck(configFile string, verbose bool) error {
	_ = godotenv.Load()

	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	if verbose {
		fmt.Printf("  mist host:  %s\n", cfg.Mist.Host)
		fmt.Printf("  org id:     %s\n", orDefault(cfg.Mist.OrgID, "(discover from token)"))
		fmt.Printf("  api token:  %s\n", redact(cfg.Mist.APIToken))
		fmt.Printf("  listen:     %s\n", cfg.API.Listen)
		fmt.Printf("  tls:        %v\n", cfg.API.TLSCert != "")
		fmt.Printf("  log level:  %s\n", cfg.Log.Level)
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func redact(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
