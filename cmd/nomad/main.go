// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the nomad CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/nomad/internal/log"
	"github.com/pdiddy/nomad/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultCacheDir = ".nomad/cache"

var (
	dryRun bool
	debug  bool
)

// rootCmd is the base command for the nomad CLI.
var rootCmd = &cobra.Command{
	Use:   "nomad",
	Short: "Geo-spatial lookups and OSM data acquisition from the command line",
	Long: `nomad turns place names into coordinates and raw OpenStreetMap data.

geocode resolves a location string to a latitude/longitude pair through the
Nominatim API. download fetches the street network for a place from the
Overpass API into a local response cache. cache inspects, searches, and
prunes that cache.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Setup(debug, os.Stderr)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Exposes --version alongside the version subcommand.
	rootCmd.Version = version

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./nomad.yaml or ~/.config/nomad/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "simulate running commands")
	// No shorthand: -e belongs to cache rm --empty.
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "turn on debugging features")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("nomad")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "nomad"))
		}
	}

	viper.SetEnvPrefix("NOMAD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the viper state into typed config and fills in
// the defaults the clients do not own.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = defaultCacheDir
	}

	ua := "nomad/" + version
	if cfg.Geocode.UserAgent == "" {
		cfg.Geocode.UserAgent = ua
	}
	if cfg.Download.UserAgent == "" {
		cfg.Download.UserAgent = ua
	}

	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
