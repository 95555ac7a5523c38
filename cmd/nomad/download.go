// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nomad/internal/geocache"
	"github.com/pdiddy/nomad/internal/nominatim"
	"github.com/pdiddy/nomad/internal/overpass"
)

var downloadCmd = &cobra.Command{
	Use:   "download [flags] LOCATION",
	Short: "Download GIS data from various sources",
	Long: `Download resolves a location to a place boundary through Nominatim,
then fetches the raw street network within its bounding box from the
Overpass API. Both responses land in the response cache; nothing is
parsed further. Use the cache commands to work with the downloaded data.`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringP("download-dir", "d", "", "path to the GIS download directory (default: the cache directory)")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	location := args[0]

	if dryRun {
		fmt.Println(location)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("download-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}

	cache := geocache.New(cfg.Cache.Dir)
	defer cache.Close()

	// Acquisition always caches; that is the point of the command.
	cfg.Geocode.UseCache = true

	nom := nominatim.New(cfg.Geocode, cache)
	place, err := nom.ResolvePlace(cmd.Context(), location)
	if errors.Is(err, nominatim.ErrNoResults) {
		return fmt.Errorf("Location %q could not be found.", location)
	}
	if err != nil {
		return err
	}

	ovp := overpass.New(cfg.Download, cache)
	if _, err := ovp.Download(cmd.Context(), place); err != nil {
		return err
	}

	fmt.Printf("Location %s successfully downloaded to: %s.\n", location, cfg.Cache.Dir)
	return nil
}
