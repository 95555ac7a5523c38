// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/nomad/internal/geocache"
	"github.com/pdiddy/nomad/internal/nominatim"
	"github.com/pdiddy/nomad/pkg/types"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode [flags] LOCATION",
	Short: "Convert a location string into a latitude/longitude pair",
	Long: `Geocode resolves a free-text location ("Berlin, Germany") to the
coordinates of its best match through the Nominatim search API. With
--cache the raw response is stored in the response cache and repeated
queries are answered from disk.`,
	Args: cobra.ExactArgs(1),
	RunE: runGeocode,
}

func init() {
	geocodeCmd.Flags().BoolP("cache", "c", false, "cache the geocode JSON response")
	geocodeCmd.Flags().BoolP("pretty-print", "p", false, "toggle pretty printing")

	rootCmd.AddCommand(geocodeCmd)
}

func runGeocode(cmd *cobra.Command, args []string) error {
	location := args[0]

	if dryRun {
		fmt.Println(location)
		return nil
	}

	useCache, _ := cmd.Flags().GetBool("cache")
	pretty, _ := cmd.Flags().GetBool("pretty-print")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if useCache {
		cfg.Geocode.UseCache = true
	}

	cache := geocache.New(cfg.Cache.Dir)
	defer cache.Close()

	client := nominatim.New(cfg.Geocode, cache)
	place, err := client.Geocode(cmd.Context(), location)
	if errors.Is(err, nominatim.ErrNoResults) {
		return fmt.Errorf("Nominatim could not geocode query %q", location)
	}
	if err != nil {
		return err
	}

	fmt.Print(formatCoordinates(place, pretty))
	return nil
}

// formatCoordinates renders a geocoded place for the terminal: a bare
// "lat lon" line, or labeled lines with the values right-aligned to
// eight decimal places when pretty is set.
func formatCoordinates(place types.Place, pretty bool) string {
	if !pretty {
		return fmt.Sprintf("%v %v\n", place.Lat, place.Lon)
	}
	return fmt.Sprintf("%-10s%14.8f\n", "latitude:", place.Lat) +
		fmt.Sprintf("%-10s%14.8f\n", "longitude:", place.Lon)
}
