package main

import (
	"embed"
	"flag"
	"fmt"
	"os"

	"github.com/mistops/guestgate/cmd"
	"github.com/mistops/guestgate/internal/brand"
)

//go:embed all:ui/dist
var uiAssets embed.FS

func main() {
	// With no arguments the binary serves. Containers run it that way.
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
		configFile := serveFlags.String("config", brand.DefaultConfig, "Configuration file")
		serveFlags.StringVar(configFile, "c", brand.DefaultConfig, "Configuration file (short)")
		listen := serveFlags.String("listen", "", "Listen address override (e.g. :5000)")
		serveFlags.Parse(args)

		if err := cmd.RunServe(*configFile, *listen, uiAssets); err != nil {
			fmt.Fprintf(os.Stderr, "Serve failed: %v\n", err)
			os.Exit(1)
		}

	case "check":
		checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
		verbose := checkFlags.Bool("verbose", false, "Verbose output")
		checkFlags.BoolVar(verbose, "v", false, "Verbose output (short)")
		checkFlags.Parse(args)

		configFile := brand.DefaultConfig
		if len(checkFlags.Args()) > 0 {
			configFile = checkFlags.Arg(0)
		}

		if err := cmd.RunCheck(configFile, *verbose); err != nil {
			fmt.Fprintf(os.Stderr, "Check failed: %v\n", err)
			os.Exit(1)
		}

	case "version":
		fmt.Printf("%s version %s\n", brand.Name, cmd.Version)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - %s

Usage:
  %s [command] [options]

Commands:
  serve     Start the console (default when no command is given)
            Options: --config (-c) <file>, --listen <addr>
  check     Validate configuration
            Options: --verbose (-v)
  version   Print version information
  help      Show this help

Configuration is read from %s and the environment
(MIST_APITOKEN, MIST_HOST, MIST_ORG_ID, PORT, LOG_LEVEL).
`,
		brand.Name, brand.Description,
		brand.BinaryName,
		brand.DefaultConfig)
}
