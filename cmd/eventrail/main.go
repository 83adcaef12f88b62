// Package main implements the eventrail journal service binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/eventrail/eventrail/internal/app"
	"github.com/eventrail/eventrail/internal/config"
	"github.com/joho/godotenv"
)

var version = "dev"

func main() {
	var (
		configFile  string
		dataDir     string
		httpAddr    string
		showVersion bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Eventrail - Append-Only Event Journal\n\n")
		fmt.Fprintf(os.Stderr, "Usage: eventrail [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  eventrail --data-dir /data/eventrail\n")
		fmt.Fprintf(os.Stderr, "  eventrail --config /etc/eventrail/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment variables use the EVENTRAIL_ prefix; a .env file\n")
		fmt.Fprintf(os.Stderr, "in the working directory is loaded if present.\n")
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("eventrail %s\n", version)
		return
	}

	// A local .env is a convenience for development; absence is not an error.
	_ = godotenv.Load()

	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.LoadFromFile(configFile)
		if err != nil {
			log.Fatalf("eventrail: %v", err)
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)

	// Flags take precedence over file and environment.
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("eventrail: %v", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatalf("eventrail: %v", err)
	}
}
