// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/nomad/internal/geocache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the GIS response cache",
	Long: `Cache manages the local directory of raw API responses written by
geocode --cache and download. Use subcommands to inspect entries, search
through them, list the manifest, or delete them.`,
}

// --- inspect subcommand ---

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the contents of the GIS response cache",
	Long: `Inspect walks the cache directory and prints, for every non-empty
JSON response, its file path and top-level scalar fields. Nested
structures are omitted; they rarely matter when checking what a cached
response refers to.`,
	RunE: runCacheInspect,
}

func runCacheInspect(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer cache.Close()

	entries, err := cache.Entries(geocache.ScopeNonEmpty)
	if err != nil {
		return err
	}

	return formatEntries(entries, format)
}

// --- search subcommand ---

var cacheSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search through JSON data in the GIS response cache",
	Long: `Search prints every cached entry whose inspectable contents match
the given regular expression. Matching is case-insensitive.`,
	Args: cobra.ExactArgs(1),
	RunE: runCacheSearch,
}

func runCacheSearch(cmd *cobra.Command, args []string) error {
	re, err := regexp.Compile("(?i)" + args[0])
	if err != nil {
		return fmt.Errorf("invalid search pattern: %w", err)
	}

	cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer cache.Close()

	matches, err := cache.Search(re)
	if err != nil {
		return err
	}

	for _, e := range matches {
		fmt.Println(e.Render())
	}
	return nil
}

// --- ls subcommand ---

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the cache manifest",
	Long: `Ls prints the manifest rows for the cache: which API each response
came from, its size, and when it was fetched. The manifest is written
alongside the cache; a cache created without one lists as empty.`,
	RunE: runCacheLs,
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir, _ := cmd.Flags().GetString("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}

	store, err := geocache.OpenStore(cfg.Cache.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("Cache manifest is empty.")
		return nil
	}

	fmt.Printf("%-10s  %-8s  %-16s  %s\n", "Endpoint", "Size", "Fetched", "Path")
	fmt.Println(strings.Repeat("-", 72))
	for _, r := range records {
		fmt.Printf("%-10s  %-8d  %-16s  %s\n",
			r.Endpoint, r.Size, r.FetchedAt.Format("2006-01-02 15:04"), r.Path)
	}
	fmt.Printf("\n%d cached responses\n", len(records))
	return nil
}

// --- rm subcommand ---

var cacheRmCmd = &cobra.Command{
	Use:   "rm",
	Short: "Remove cached data from the cache directory",
	Long: `Rm deletes cached responses. By default every entry is removed;
with --empty only entries whose JSON body is empty (failed lookups) are.
Rm prompts before deleting unless --force is given.`,
	RunE: runCacheRm,
}

func runCacheRm(cmd *cobra.Command, args []string) error {
	emptyOnly, _ := cmd.Flags().GetBool("empty")
	force, _ := cmd.Flags().GetBool("force")

	cache, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer cache.Close()

	scope := geocache.ScopeAll
	scopeDesc := "all cached data"
	if emptyOnly {
		scope = geocache.ScopeEmpty
		scopeDesc = "only empty JSON cached data"
	}

	entries, err := cache.Entries(scope)
	if err != nil {
		return err
	}

	if dryRun {
		for _, e := range entries {
			fmt.Printf("Would delete: %s\n", e.Path)
		}
		return nil
	}

	if !force {
		if !confirm(fmt.Sprintf("Do you want to delete %s?", scopeDesc)) {
			return errors.New("aborted")
		}
		fmt.Println("Confirmed. Now deleting ...")
	} else {
		fmt.Println("Now deleting ...")
	}

	for _, e := range entries {
		if err := cache.Remove(e); err != nil {
			return err
		}
		fmt.Printf("Deleted: %s\n", e.Path)
	}
	return nil
}

// --- shared helpers ---

// openCache builds the cache from config, honoring the shared
// --cache-dir flag.
func openCache(cmd *cobra.Command) (*geocache.Cache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if dir, _ := cmd.Flags().GetString("cache-dir"); dir != "" {
		cfg.Cache.Dir = dir
	}
	return geocache.New(cfg.Cache.Dir), nil
}

// inspectEntry is the serializable form of a cache entry for the json
// and yaml formats.
type inspectEntry struct {
	Path string            `json:"path" yaml:"path"`
	Data map[string]string `json:"data" yaml:"data"`
}

func formatEntries(entries []geocache.Entry, format string) error {
	switch format {
	case "text", "":
		for _, e := range entries {
			fmt.Println(e.Render())
		}
		return nil

	case "json", "yaml":
		out := make([]inspectEntry, 0, len(entries))
		for _, e := range entries {
			data := make(map[string]string, len(e.Doc.Fields))
			for _, f := range e.Doc.Fields {
				data[f.Key] = f.Value
			}
			out = append(out, inspectEntry{Path: e.Path, Data: data})
		}
		if format == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}
		return yaml.NewEncoder(os.Stdout).Encode(out)

	default:
		return fmt.Errorf("unsupported format %q: use text, json, or yaml", format)
	}
}

// stdin is the prompt input source; tests substitute it.
var stdin io.Reader = os.Stdin

// confirm asks a yes/no question on stdin. Anything but an explicit yes
// declines.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func init() {
	// Shared flag on the parent command, inherited by subcommands.
	cacheCmd.PersistentFlags().String("cache-dir", "", "cache directory (default: from config)")

	cacheInspectCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	cacheLsCmd.Flags().Bool("json", false, "output manifest rows as JSON")
	cacheRmCmd.Flags().BoolP("empty", "e", false, "remove only empty cached responses")
	cacheRmCmd.Flags().BoolP("force", "f", false, "delete without prompting")

	cacheCmd.AddCommand(cacheInspectCmd)
	cacheCmd.AddCommand(cacheSearchCmd)
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheRmCmd)

	rootCmd.AddCommand(cacheCmd)
}
